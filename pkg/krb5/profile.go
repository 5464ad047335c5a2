package krb5

/*
#include <stdlib.h>
#include <profile.h>
#include <com_err.h>

static long wrap_profile_init(char **files, profile_t *ret_profile) {
	return profile_init((const_profile_filespec_t *)files, ret_profile);
}
*/
import "C"

import "unsafe"

// Profile is a parsed configuration profile (krb5.conf style) that can seed a
// [Context] via [NewFromProfile].
//
// A Profile stands on its own: unlike the other wrappers in this package it is
// not derived from a Context and may outlive or predate any number of them.
type Profile struct {
	raw    C.profile_t
	closed bool
}

// NewProfile loads a profile from the given configuration files. All paths
// must exist; later files override earlier ones.
func NewProfile(paths ...string) (*Profile, error) {
	cpaths := make([]*C.char, len(paths)+1)
	for i, p := range paths {
		cpaths[i] = C.CString(p)
	}
	defer func() {
		for _, cp := range cpaths {
			if cp != nil {
				C.free(unsafe.Pointer(cp))
			}
		}
	}()

	p := &Profile{}
	if ret := C.wrap_profile_init(&cpaths[0], &p.raw); ret != 0 {
		// Profile errors are com_err codes without a context; error_message
		// renders them the same way libkrb5 would.
		return nil, &Error{Code: int32(ret), Message: C.GoString(C.error_message(C.long(ret)))}
	}
	return p, nil
}

func (p *Profile) alive() error {
	if p == nil || p.closed {
		return ErrFreed
	}
	return nil
}

// Close releases the profile. Contexts already created from it are
// unaffected. Close is idempotent.
func (p *Profile) Close() error {
	if p == nil || p.closed {
		return nil
	}
	p.closed = true
	C.profile_release(p.raw)
	p.raw = nil
	return nil
}
