// Package guard switches binaries into test mode when imported by a test, so calling
// main() returns before any connection is opened.
package guard

import (
	"os"
	"sync"
)

// Env is the variable the binaries consult.
const Env = "LEDGER_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(Env) == "" {
			_ = os.Setenv(Env, "1")
		}
	})
}
