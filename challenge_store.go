package goChallenge

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeKeyPrefix      = "chs"
	challengeRecordVersion1 = 1
)

var (
	errChallengeNotFound         = errors.New("challenge session not found")
	errChallengeDecode           = errors.New("challenge session decode failed")
	errChallengeRedisUnavailable = errors.New("challenge redis unavailable")
)

// challengeSessionRecord is the persisted shape of a pending session. One
// record exists per identifier; saving overwrites the previous one, which
// is how resend supersedes.
type challengeSessionRecord struct {
	SessionID string
	Purpose   ChallengePurpose
	IssuedAt  int64
	Resends   uint16
}

type challengeSessionStore struct {
	redis  *redis.Client
	prefix string
}

func newChallengeSessionStore(redisClient *redis.Client) *challengeSessionStore {
	return &challengeSessionStore{
		redis:  redisClient,
		prefix: challengeKeyPrefix,
	}
}

func (s *challengeSessionStore) key(identifier string) string {
	return s.prefix + ":" + strings.ToLower(identifier)
}

// Save describes the save operation and its observable behavior.
//
// Save may return an error when input validation, dependency calls, or security checks fail.
// Save does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *challengeSessionStore) Save(ctx context.Context, identifier string, record *challengeSessionRecord, ttl time.Duration) error {
	encoded, err := encodeChallengeSessionRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(identifier), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errChallengeRedisUnavailable, err)
	}

	return nil
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *challengeSessionStore) Get(ctx context.Context, identifier string) (*challengeSessionRecord, error) {
	data, err := s.redis.Get(ctx, s.key(identifier)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", errChallengeRedisUnavailable, err)
	}

	return decodeChallengeSessionRecord(data)
}

// Consume describes the consume operation and its observable behavior.
//
// Consume atomically fetches and deletes the pending session so a session
// marker is observed at most once.
func (s *challengeSessionStore) Consume(ctx context.Context, identifier string) (*challengeSessionRecord, error) {
	data, err := s.redis.GetDel(ctx, s.key(identifier)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", errChallengeRedisUnavailable, err)
	}

	return decodeChallengeSessionRecord(data)
}

// Delete describes the delete operation and its observable behavior.
//
// Delete is idempotent; deleting a missing session is not an error.
func (s *challengeSessionStore) Delete(ctx context.Context, identifier string) error {
	if err := s.redis.Del(ctx, s.key(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errChallengeRedisUnavailable, err)
	}
	return nil
}

func purposeToByte(p ChallengePurpose) (byte, error) {
	switch p {
	case PurposeSignup:
		return 1, nil
	case PurposeSignin:
		return 2, nil
	case PurposeRecovery:
		return 3, nil
	default:
		return 0, fmt.Errorf("unsupported challenge purpose %q", p)
	}
}

func purposeFromByte(b byte) (ChallengePurpose, error) {
	switch b {
	case 1:
		return PurposeSignup, nil
	case 2:
		return PurposeSignin, nil
	case 3:
		return PurposeRecovery, nil
	default:
		return "", errChallengeDecode
	}
}

func encodeChallengeSessionRecord(record *challengeSessionRecord) ([]byte, error) {
	if record == nil {
		return nil, errors.New("nil challenge session record")
	}
	if len(record.SessionID) > 255 {
		return nil, errors.New("challenge session id too long")
	}
	purposeByte, err := purposeToByte(record.Purpose)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersion1)
	buf.WriteByte(byte(len(record.SessionID)))
	buf.WriteString(record.SessionID)
	buf.WriteByte(purposeByte)
	if err := binary.Write(&buf, binary.BigEndian, record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.Resends); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeChallengeSessionRecord(data []byte) (*challengeSessionRecord, error) {
	if len(data) < 2 {
		return nil, errChallengeDecode
	}
	if data[0] != challengeRecordVersion1 {
		return nil, errChallengeDecode
	}

	idLen := int(data[1])
	rest := data[2:]
	if len(rest) < idLen+1+8+2 {
		return nil, errChallengeDecode
	}

	record := &challengeSessionRecord{
		SessionID: string(rest[:idLen]),
	}
	rest = rest[idLen:]

	purpose, err := purposeFromByte(rest[0])
	if err != nil {
		return nil, err
	}
	record.Purpose = purpose
	rest = rest[1:]

	record.IssuedAt = int64(binary.BigEndian.Uint64(rest[:8]))
	record.Resends = binary.BigEndian.Uint16(rest[8:10])

	return record, nil
}
