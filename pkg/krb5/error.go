package krb5

/*
#include <krb5.h>
*/
import "C"

import (
	"errors"
	"fmt"
)

// ErrFreed is returned when a wrapper is used after it, or the Context owning
// it, has been freed.
var ErrFreed = errors.New("krb5: handle has been freed")

// ErrForeignContext is returned when resources derived from different
// Contexts are combined in one operation.
var ErrForeignContext = errors.New("krb5: resource belongs to a different context")

// Error is an error generated by libkrb5.
//
// Message is the human-readable rendering fetched from the library at the
// moment the error occurred. krb5_get_error_message may only be called once
// per failing call and the returned buffer belongs to the library, so the
// message is copied out immediately and kept independent of any Context.
type Error struct {
	Code    int32
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// StringTooLongError reports a string that does not fit the 32-bit length
// fields used throughout the libkrb5 wire structures. Such strings are
// rejected rather than silently truncated.
type StringTooLongError struct {
	Name string
}

func (e *StringTooLongError) Error() string {
	return fmt.Sprintf("krb5: %s is too long", e.Name)
}

// errorFromCode converts a libkrb5 status code into an error, fetching and
// copying the library's message for non-zero codes.
//
// ctx must be nil iff the error happened while initializing the context
// itself. Must be called exactly once, immediately after the failing call.
func errorFromCode(ctx *Context, code C.krb5_error_code) error {
	if code == 0 {
		return nil
	}
	var raw C.krb5_context
	if ctx != nil {
		raw = ctx.raw
	}
	cmsg := C.krb5_get_error_message(raw, code)
	msg := C.GoString(cmsg)
	C.krb5_free_error_message(raw, cmsg)
	return &Error{Code: int32(code), Message: msg}
}
