package app

import (
	"os"
	"strconv"
)

// TestModeEnv marks a process started by the test suite. Binaries check it
// before opening Postgres, Redis or the asynq server.
const TestModeEnv = "NOVELFORGE_TEST_MODE"

// InTestMode reports whether the application should skip runtime side effects.
// Any value accepted by strconv.ParseBool works; unset or unparsable means no.
func InTestMode() bool {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	return err == nil && on
}
