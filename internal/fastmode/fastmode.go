// Package fastmode provides the process-wide MILLSIM_FAST_TESTS hook.
//
// Read exactly once, lazily, and cached for the process lifetime behind a
// sync.Once (the Go counterpart of a OnceCell).
package fastmode

import (
	"os"
	"sync"
)

var (
	once    sync.Once
	enabled bool
)

// Enabled reports whether MILLSIM_FAST_TESTS is set to a truthy value.
// The environment is only ever consulted on the first call.
func Enabled() bool {
	once.Do(func() {
		v, ok := os.LookupEnv("MILLSIM_FAST_TESTS")
		if !ok {
			return
		}
		switch v {
		case "0", "", "false", "FALSE", "False":
			enabled = false
		default:
			enabled = true
		}
	})
	return enabled
}
