package kadm5

/*
#include <kadm5/admin.h>
#include <com_err.h>
*/
import "C"

import "errors"

// CodeDuplicate is the well-known status for "principal or policy already
// exists". Callers creating principals must treat it as "already
// provisioned", not as a generic failure.
const CodeDuplicate = int64(C.KADM5_DUP)

// Error is an error generated by libkadm5.
//
// The message is rendered lazily from the code via the com_err tables, which
// is a pure lookup and needs no session or context.
type Error struct {
	Code int64
}

func (e *Error) Error() string {
	return C.GoString(C.error_message(C.long(e.Code)))
}

// IsDuplicate reports whether err is the well-known "duplicate identity"
// administration error.
func IsDuplicate(err error) bool {
	var kerr *Error
	return errors.As(err, &kerr) && kerr.Code == CodeDuplicate
}

// errorFromRet converts a kadm5 return code into an error.
func errorFromRet(ret C.kadm5_ret_t) error {
	if int64(ret) == int64(C.KADM5_OK) {
		return nil
	}
	return &Error{Code: int64(ret)}
}
