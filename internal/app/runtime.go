package app

import (
	"os"
	"strconv"
	"sync"
)

const testModeEnv = "ODYSSEY_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return parseTestMode(os.Getenv(testModeEnv))
})

// InTestMode reports whether binaries should skip connecting to PostgreSQL and
// Redis. Importing the testing helper package sets the flag.
func InTestMode() bool {
	return testMode()
}

func parseTestMode(v string) bool {
	on, err := strconv.ParseBool(v)
	return err == nil && on
}
