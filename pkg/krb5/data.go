package krb5

/*
#include <krb5.h>
*/
import "C"

import "unsafe"

// Data owns a krb5_data buffer allocated by libkrb5, such as the salt
// produced by [Principal.DefaultSalt].
type Data struct {
	ctx    *Context
	raw    C.krb5_data
	closed bool
}

func (d *Data) alive() error {
	if d == nil || d.closed {
		return ErrFreed
	}
	return d.ctx.alive()
}

// Bytes returns a view of the buffer contents. The view borrows the native
// allocation: it is valid only until the Data (or its Context) is freed and
// must not be retained beyond that.
//
// libkrb5 does not allocate a buffer for zero-length data, so that case
// yields an empty slice rather than dereferencing a null pointer.
func (d *Data) Bytes() ([]byte, error) {
	if err := d.alive(); err != nil {
		return nil, err
	}
	if d.raw.length == 0 {
		return []byte{}, nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(d.raw.data)), int(d.raw.length)), nil
}

func (d *Data) destroy() error {
	d.closed = true
	C.krb5_free_data_contents(d.ctx.raw, &d.raw)
	return nil
}

// Free releases the buffer contents. Free is idempotent.
func (d *Data) Free() error {
	if d == nil || d.closed {
		return nil
	}
	if err := d.ctx.alive(); err != nil {
		return err
	}
	d.ctx.disown(d)
	return d.destroy()
}
