package testutil

import (
	"testing"
)

// SkipIfShort skips the test if running in short mode.
// Use this for integration tests.
//
// Example:
//
//	func TestIntegration(t *testing.T) {
//	    testutil.SkipIfShort(t)
//	    // ... integration test code
//	}
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// Must asserts that err is nil, or fails the test immediately.
// Useful for test setup code.
//
// Example:
//
//	testutil.Must(t, os.WriteFile(path, data, 0644))
func Must(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// MustValue asserts that err is nil, or fails the test immediately.
// Returns the value on success.
//
// Example:
//
//	sum := testutil.MustValue(t, checksum.Compute(tables))
func MustValue[T any](t *testing.T, value T, err error) T {
	t.Helper()

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	return value
}
