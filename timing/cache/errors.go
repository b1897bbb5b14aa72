package cache

import "fmt"

// ConfigError reports an invalid cache or strategy configuration. It is
// returned before any access is processed.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

// InvariantViolation reports a defect in a strategy implementation, such as a
// replacement policy returning a way outside the set. The engine panics with
// it rather than corrupting state; CheckInvariants returns it.
type InvariantViolation struct {
	What string
}

func (e *InvariantViolation) Error() string {
	return "cache invariant violated: " + e.What
}

func isPowerOfTwo(v uint32) bool {
	return v != 0 && v&(v-1) == 0
}

func mustBePowerOfTwo(field string, v uint32) error {
	if v == 0 {
		return &ConfigError{Field: field, Value: v, Reason: "must be > 0"}
	}
	if !isPowerOfTwo(v) {
		return &ConfigError{Field: field, Value: v, Reason: "must be a power of two"}
	}
	return nil
}
