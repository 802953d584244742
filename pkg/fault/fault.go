// Package fault carries coded errors across component boundaries so callers
// can tell "don't know who you are" (IDENTITY_UNRESOLVED) apart from "you
// lied about who you are" (SIGNATURE_INVALID), and retryable backend trouble
// (TRANSPORT_FAILURE) apart from everything else.
package fault

import (
	"errors"
	"fmt"
)

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func InvalidArg(msg string) error {
	return New(CodeInvalidArgument, msg)
}

func IdentityUnresolved(msg string, cause error) error {
	return Wrap(CodeIdentityUnresolved, msg, cause)
}

func SignatureInvalid(msg string) error {
	return New(CodeSignatureInvalid, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func AlreadyExists(msg string) error {
	return New(CodeAlreadyExists, msg)
}

func Unauthenticated(msg string) error {
	return New(CodeUnauthenticated, msg)
}

func Transport(msg string, cause error) error {
	return Wrap(CodeTransportFailure, msg, cause)
}

func Disconnected(msg string) error {
	return New(CodeConsumerDisconnected, msg)
}

// CodeOf extracts the code from err, walking wrapped causes.
// Plain errors report CodeUnknown.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return CodeUnknown
}

func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
