package engine

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain fails the package if a test leaves pipe readers running.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
