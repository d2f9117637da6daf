package source

import (
	"errors"
	"fmt"
)

// AuthError indicates that authentication has failed for a source.
// It is returned by source clients when the remote service rejects the
// configured credentials.
type AuthError struct {
	SourceType SourceType
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.SourceType, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// SourceType identifies the kind of external data source.
type SourceType string

const (
	SourceTypeMail    SourceType = "mail"
	SourceTypeNews    SourceType = "news"
	SourceTypeWeather SourceType = "weather"
)
