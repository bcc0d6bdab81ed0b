// Package testing puts binaries into test mode when a test imports it for
// side effects. It also points the LLM client at an address that refuses
// connections so no test reaches a real provider.
package testing

import (
	"os"
	stdtesting "testing"
)

func init() {
	_ = os.Setenv("NOVELFORGE_TEST_MODE", "1")
	setDefault("LLM_BASE_URL", "http://127.0.0.1:0")
}

func setDefault(key, value string) {
	if os.Getenv(key) == "" {
		_ = os.Setenv(key, value)
	}
}

// TestMain runs m in test mode.
func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
