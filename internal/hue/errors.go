package hue

import (
	"errors"
	"fmt"
)

// ErrorTypeLinkButton is the v1 error type returned by user creation
// while the physical link button has not been pressed.
const ErrorTypeLinkButton = 101

// ErrorTypeUnauthorized is the v1 error type for an unknown username.
const ErrorTypeUnauthorized = 1

// APIError is an error entry returned by the bridge (v1 API)
type APIError struct {
	Type        int    `json:"type"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hue error %d at %s: %s", e.Type, e.Address, e.Description)
}

// IsLinkButtonNotPressed reports whether err carries a link-button error from the bridge
func IsLinkButtonNotPressed(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeLinkButton
}
