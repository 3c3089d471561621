// Package testing forces test mode for packages that import it for side effects.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
	"time"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
		if os.Getenv("GOTENBERG_URL") == "" {
			_ = os.Setenv("GOTENBERG_URL", "http://127.0.0.1:0")
		}
		if os.Getenv("APP_LANG") == "" {
			_ = os.Setenv("APP_LANG", "en")
		}
		// Period keys and fiscal year boundaries are computed in UTC.
		time.Local = time.UTC
	})
}

func init() {
	ensureTestMode()
}

// TestMain runs m after forcing test mode.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
