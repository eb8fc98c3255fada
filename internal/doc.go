// Package internal holds ID and code generation helpers shared by the
// engine, the example provider, and tests. Nothing here is part of the
// public API.
package internal
