package ticktick

import (
	"errors"
	"fmt"
)

// ErrMissingCode is returned when the OAuth callback query lacks a code.
var ErrMissingCode = errors.New("oauth callback did not include a code")

// ErrMissingToken is returned when an operation requires an access token
// and none is configured. It is checked before any network I/O happens.
var ErrMissingToken = errors.New("no TickTick access token configured")

// TokenExchangeError is returned when the provider rejects the
// authorization-code exchange. The provider's response body is carried
// verbatim so the user sees the actual rejection reason.
type TokenExchangeError struct {
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("token exchange failed: %s", e.Body)
	}
	return fmt.Sprintf("token exchange failed: %d %s", e.StatusCode, e.Body)
}

// APIError is returned for any non-2xx response from the TickTick Open API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ticktick API error: %d %s", e.StatusCode, e.Body)
}
