// Package auth implements static Basic credential checks for the HTTP API.
package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"
)

var (
	// ErrMissingCredentials is returned when the header is absent or malformed
	ErrMissingCredentials = errors.New("missing or malformed credentials")

	// ErrForbidden is returned when the username is unknown or the secret does not match
	ErrForbidden = errors.New("forbidden")
)

// Authorizer checks Basic credentials against a fixed username to secret mapping
type Authorizer struct {
	credentials map[string]string
}

// NewAuthorizer creates an authorizer from a username to secret mapping.
// The mapping is copied; later changes to it have no effect.
func NewAuthorizer(credentials map[string]string) *Authorizer {
	copied := make(map[string]string, len(credentials))
	for username, secret := range credentials {
		copied[username] = secret
	}
	return &Authorizer{credentials: copied}
}

// Authorize validates an Authorization header of the form "Basic base64(username:password)"
// and returns the authenticated username
func (a *Authorizer) Authorize(header string) (string, error) {
	username, password, err := parseBasic(header)
	if err != nil {
		return "", err
	}

	expected, ok := a.credentials[username]
	if !ok || subtle.ConstantTimeCompare([]byte(expected), []byte(password)) != 1 {
		return "", ErrForbidden
	}

	return username, nil
}

func parseBasic(header string) (string, string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Basic") {
		return "", "", ErrMissingCredentials
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return "", "", ErrMissingCredentials
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok || username == "" {
		return "", "", ErrMissingCredentials
	}

	return username, password, nil
}
