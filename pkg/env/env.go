package env

import "os"

// Get reads an environment variable, returning fallback when the value is
// unset or empty.
func Get(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
