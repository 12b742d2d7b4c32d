package exec

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain uses goleak to verify this package's tests do not leak worker
// goroutines left over from a Pool that was started but never Close()'d.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
