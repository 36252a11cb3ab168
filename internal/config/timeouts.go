package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	ServerBuild       time.Duration // Max wait for a VM to leave BUILD
	ServerDelete      time.Duration // Max wait for a VM to reach DELETED
	PollInitial       time.Duration // First delay between status polls
	PollMax           time.Duration // Cap on the delay between status polls
	RetryMaxAttempts  int           // Maximum number of retry attempts
	RetryInitialDelay time.Duration // Initial delay between retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - LAMBDA_TIMEOUT_SERVER_BUILD (default: 10m)
//   - LAMBDA_TIMEOUT_SERVER_DELETE (default: 600s)
//   - LAMBDA_POLL_INITIAL_INTERVAL (default: 2s)
//   - LAMBDA_POLL_MAX_INTERVAL (default: 15s)
//   - LAMBDA_RETRY_MAX_ATTEMPTS (default: 5)
//   - LAMBDA_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		ServerBuild:       parseDuration("LAMBDA_TIMEOUT_SERVER_BUILD", 10*time.Minute),
		ServerDelete:      parseDuration("LAMBDA_TIMEOUT_SERVER_DELETE", 600*time.Second),
		PollInitial:       parseDuration("LAMBDA_POLL_INITIAL_INTERVAL", 2*time.Second),
		PollMax:           parseDuration("LAMBDA_POLL_MAX_INTERVAL", 15*time.Second),
		RetryMaxAttempts:  parseInt("LAMBDA_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("LAMBDA_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

// TestTimeouts returns short timeouts suitable for unit tests.
func TestTimeouts() *Timeouts {
	return &Timeouts{
		ServerBuild:       time.Second,
		ServerDelete:      time.Second,
		PollInitial:       time.Millisecond,
		PollMax:           5 * time.Millisecond,
		RetryMaxAttempts:  1,
		RetryInitialDelay: time.Millisecond,
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
