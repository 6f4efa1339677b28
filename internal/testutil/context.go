package testutil

import (
	"context"
	"testing"
	"time"
)

// ContextWithTimeout returns a context cancelled after d or when the test ends.
func ContextWithTimeout(tb testing.TB, d time.Duration) context.Context {
	tb.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), d)
	tb.Cleanup(cancel)

	return ctx
}

// DefaultTimeout bounds tests that touch the filesystem or a database.
const DefaultTimeout = 30 * time.Second
