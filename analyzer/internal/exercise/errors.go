package exercise

import "fmt"

// ConfigurationError reports an exercise that cannot be built: an unknown
// name or invalid thresholds. It is only ever returned at startup.
type ConfigurationError struct {
	Exercise string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("exercise %q: %s", e.Exercise, e.Reason)
}

func configErr(name, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Exercise: name, Reason: fmt.Sprintf(format, args...)}
}
