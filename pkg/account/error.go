package account

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies authentication failures so callers can react without inspecting message
// text.
type ErrorKind int

const (
	KindOther            ErrorKind = iota // Server rejected the login for an unrecognized reason.
	KindInvalidEmail                      // The email address is not registered in the namespace.
	KindInvalidPassword                   // The password does not match the email address.
	KindUnknownNamespace                  // The namespace does not exist.
	KindTransport                         // The auth endpoint could not be reached.
)

var kindNames = map[ErrorKind]string{
	KindOther:            "other",
	KindInvalidEmail:     "invalid_email",
	KindInvalidPassword:  "invalid_password",
	KindUnknownNamespace: "unknown_namespace",
	KindTransport:        "transport",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Messages the auth endpoint uses for rejected credentials.
var serverMessageKinds = map[string]ErrorKind{
	"email is incorrect":           KindInvalidEmail,
	"incorrect password":           KindInvalidPassword,
	"namespace could not be found": KindUnknownNamespace,
}

func kindFromMessage(message string) ErrorKind {
	if kind, ok := serverMessageKinds[strings.ToLower(strings.TrimSpace(message))]; ok {
		return kind
	}
	return KindOther
}

// AuthError is returned by [Account.Token] when a credential could not be obtained.
type AuthError struct {
	Kind ErrorKind
	// Message is the text reported by the server, or a description of the transport failure.
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Kind == KindTransport {
		return fmt.Sprintf("authentication failed: %s", e.Message)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Temporary returns true if the failure might resolve without the user changing credentials.
func (e *AuthError) Temporary() bool {
	return e.Kind == KindTransport
}

// Kind returns the ErrorKind of err if it wraps an *AuthError.
func Kind(err error) (ErrorKind, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind, true
	}
	return KindOther, false
}
