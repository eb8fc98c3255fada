// Package proof issues and validates signed verification assertions. After
// the identity provider confirms a one-time code, the engine can hand the
// caller a short-lived proof token its backend verifies offline instead of
// re-querying the provider.
package proof
