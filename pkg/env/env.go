// Package env reads process environment knobs needed before the typed
// config is parsed, like the output format the logger itself boots with.
package env

import "os"

// Get returns the named variable's value, or fallback when unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
