package krb5

/*
#include <stdlib.h>
#include <krb5.h>
*/
import "C"

import "unsafe"

// Keytab is a container of (principal, key version, key) entries, backed by
// one of libkrb5's keytab implementations.
type Keytab struct {
	ctx    *Context
	raw    C.krb5_keytab
	closed bool
}

// ResolveKeytab opens or creates the keytab identified by name.
//
// name follows the format "{type}:{residual}", such as "FILE:/foo/bar".
// Known types include:
//   - FILE: a keytab serialized to a file
//   - MEMORY: an unnamed in-memory keytab
//
// Resolving is an open/create operation, not a read: a FILE keytab's backing
// file does not need to exist yet and is created as required.
func ResolveKeytab(ctx *Context, name string) (*Keytab, error) {
	if err := ctx.alive(); err != nil {
		return nil, err
	}
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	kt := &Keytab{ctx: ctx}
	if err := errorFromCode(ctx, C.krb5_kt_resolve(ctx.raw, cname, &kt.raw)); err != nil {
		return nil, err
	}
	ctx.adopt(kt, kt.destroy)
	return kt, nil
}

// Add appends an entry binding (principal, kvno) to the given key.
//
// krb5_kt_add_entry copies whatever it needs, so neither the principal nor
// the key has to stay alive past the call.
func (kt *Keytab) Add(principal *Principal, kvno Kvno, key KeyblockRef) error {
	if err := kt.alive(); err != nil {
		return err
	}
	if err := principal.alive(); err != nil {
		return err
	}
	if err := key.alive(); err != nil {
		return err
	}
	if principal.ctx != kt.ctx || key.ctx != kt.ctx {
		return ErrForeignContext
	}

	var entry C.krb5_keytab_entry // zero value matches libkrb5's "unset"
	entry.principal = principal.raw
	entry.vno = C.krb5_kvno(kvno)
	entry.key = *key.raw
	return errorFromCode(kt.ctx, C.krb5_kt_add_entry(kt.ctx.raw, kt.raw, &entry))
}

func (kt *Keytab) alive() error {
	if kt == nil || kt.closed {
		return ErrFreed
	}
	return kt.ctx.alive()
}

func (kt *Keytab) destroy() error {
	kt.closed = true
	err := errorFromCode(kt.ctx, C.krb5_kt_close(kt.ctx.raw, kt.raw))
	kt.raw = nil
	return err
}

// Close releases the keytab handle, flushing a FILE keytab to disk. Close is
// idempotent.
func (kt *Keytab) Close() error {
	if kt == nil || kt.closed {
		return nil
	}
	if err := kt.ctx.alive(); err != nil {
		return err
	}
	kt.ctx.disown(kt)
	return kt.destroy()
}
