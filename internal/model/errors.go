package model

import (
	"errors"
	"fmt"
)

// ConfigError indicates that a required credential or setting is absent.
// It is raised at the point of use, before any network action, and is never
// retried.
type ConfigError struct {
	Setting string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required setting: %s", e.Setting)
}

// IsConfigError reports whether err (or any error in its chain) is a
// ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
