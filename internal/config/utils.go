package config

import (
	"reflect"
)

// BoolValue returns the value behind an optional YAML boolean, or defaultValue when it is unset.
func BoolValue(value *bool, defaultValue bool) bool {
	if value == nil {
		return defaultValue
	}
	return *value
}

// SetThen provides a utility to select the first value if set, otherwise defaults.
func SetThen[T any](value T, defaultValue T) T {
	if reflect.ValueOf(value).IsZero() {
		return defaultValue
	}
	return value
}
