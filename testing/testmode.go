// Package testing switches binaries into test mode when imported by a test package.
package testing

import (
	"os"
	"sync"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
		if os.Getenv("CATALOG_SOURCE") == "" {
			_ = os.Setenv("CATALOG_SOURCE", "static")
		}
		if os.Getenv("GOTENBERG_URL") == "" {
			_ = os.Setenv("GOTENBERG_URL", "http://127.0.0.1:0")
		}
		_ = os.Unsetenv("DISPATCH_WEBHOOK_URL")
	})
}

func init() {
	ensureTestMode()
}
