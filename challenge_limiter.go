package goChallenge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	errChallengeRateLimited        = errors.New("challenge rate limited")
	errChallengeLimiterUnavailable = errors.New("challenge limiter unavailable")
)

type challengeLimiter struct {
	redis  *redis.Client
	config ChallengeConfig
}

func newChallengeLimiter(redisClient *redis.Client, cfg ChallengeConfig) *challengeLimiter {
	return &challengeLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *challengeLimiter) CheckSend(ctx context.Context, identifier, ip string) error {
	if l.config.EnableIdentifierThrottle {
		if err := l.enforceFixedWindow(ctx, challengeSendIdentifierKey(identifier), l.config.MaxSendPerWindow, l.config.SendWindow); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx, challengeSendIPKey(ip), l.config.MaxSendPerWindow, l.config.SendWindow); err != nil {
			return err
		}
	}
	return nil
}

func (l *challengeLimiter) CheckVerify(ctx context.Context, identifier, ip string) error {
	if l.config.EnableIdentifierThrottle {
		if err := l.enforceFixedWindow(ctx, challengeVerifyIdentifierKey(identifier), l.config.MaxVerifyPerWindow, l.config.VerifyWindow); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx, challengeVerifyIPKey(ip), l.config.MaxVerifyPerWindow, l.config.VerifyWindow); err != nil {
			return err
		}
	}
	return nil
}

func (l *challengeLimiter) enforceFixedWindow(ctx context.Context, key string, limit int, window time.Duration) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", errChallengeLimiterUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, window).Err(); err != nil {
			return fmt.Errorf("%w: %v", errChallengeLimiterUnavailable, err)
		}
	}

	if count > int64(limit) {
		return errChallengeRateLimited
	}

	return nil
}

func challengeSendIdentifierKey(identifier string) string {
	return "chsi:" + strings.ToLower(identifier)
}

func challengeSendIPKey(ip string) string {
	return "chsip:" + ip
}

func challengeVerifyIdentifierKey(identifier string) string {
	return "chvi:" + strings.ToLower(identifier)
}

func challengeVerifyIPKey(ip string) string {
	return "chvip:" + ip
}
