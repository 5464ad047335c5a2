package krb5

/*
#include <stdlib.h>
#include <krb5.h>
*/
import "C"

import (
	"math"
	"unsafe"
)

// Enctype identifies a Kerberos encryption algorithm. Well-known values are
// provided as constants; the set is not exhaustive.
type Enctype int32

const (
	EnctypeAES128CTSHMACSHA196    = Enctype(C.ENCTYPE_AES128_CTS_HMAC_SHA1_96)
	EnctypeAES256CTSHMACSHA196    = Enctype(C.ENCTYPE_AES256_CTS_HMAC_SHA1_96)
	EnctypeAES128CTSHMACSHA256128 = Enctype(C.ENCTYPE_AES128_CTS_HMAC_SHA256_128)
	EnctypeAES256CTSHMACSHA384192 = Enctype(C.ENCTYPE_AES256_CTS_HMAC_SHA384_192)
)

// Kvno is a key version number, incremented by the KDC on key rotation.
type Kvno uint32

// Keyblock is an owned Kerberos encryption key of a specific enctype.
type Keyblock struct {
	ctx    *Context
	raw    *C.krb5_keyblock
	closed bool
}

// NewKeyblock creates a zero-initialized keyblock of the given length.
func NewKeyblock(ctx *Context, enctype Enctype, length uint) (*Keyblock, error) {
	if err := ctx.alive(); err != nil {
		return nil, err
	}
	k := &Keyblock{ctx: ctx}
	err := errorFromCode(ctx, C.krb5_init_keyblock(ctx.raw, C.krb5_enctype(enctype), C.size_t(length), &k.raw))
	if err != nil {
		return nil, err
	}
	ctx.adopt(k, k.destroy)
	// krb5_init_keyblock does not guarantee zeroed contents; clear them so a
	// fresh keyblock never leaks heap garbage as key material.
	contents, err := k.Contents()
	if err != nil {
		return nil, err
	}
	for i := range contents {
		contents[i] = 0
	}
	return k, nil
}

// KeyblockFromPassword derives a key from a password using the native
// string-to-key function for the given enctype.
//
// salt is typically obtained from [Principal.DefaultSalt]. The derivation is
// deterministic: the same (enctype, password, salt) always yields the same
// key bytes.
func KeyblockFromPassword(ctx *Context, enctype Enctype, password string, salt *Data) (*Keyblock, error) {
	if err := ctx.alive(); err != nil {
		return nil, err
	}
	if err := salt.alive(); err != nil {
		return nil, err
	}
	if salt.ctx != ctx {
		return nil, ErrForeignContext
	}
	if len(password) > math.MaxInt32 {
		return nil, &StringTooLongError{Name: "password"}
	}

	// krb5_c_string_to_key allocates the key contents itself and does not
	// free or reuse an existing buffer, so start from an empty keyblock.
	k, err := NewKeyblock(ctx, enctype, 0)
	if err != nil {
		return nil, err
	}

	// The password is copied into C memory: cgo forbids passing a pointer to
	// Go memory inside another structure handed to C.
	var passwordData C.krb5_data
	passwordData.length = C.uint(len(password))
	if len(password) > 0 {
		cpw := C.CBytes([]byte(password))
		defer C.free(cpw)
		passwordData.data = (*C.char)(cpw)
	}
	err = errorFromCode(ctx, C.krb5_c_string_to_key(ctx.raw, C.krb5_enctype(enctype), &passwordData, &salt.raw, k.raw))
	if err != nil {
		_ = k.Free()
		return nil, err
	}
	return k, nil
}

// Enctype returns the keyblock's encryption type.
func (k *Keyblock) Enctype() (Enctype, error) {
	if err := k.alive(); err != nil {
		return 0, err
	}
	return Enctype(k.raw.enctype), nil
}

// Contents returns a mutable view of the raw key bytes. The view borrows
// native memory owned by the keyblock: it is valid only while the Keyblock is
// alive and must not be retained beyond it.
//
// A zero-length keyblock has no allocated contents; that case yields an empty
// slice.
func (k *Keyblock) Contents() ([]byte, error) {
	if err := k.alive(); err != nil {
		return nil, err
	}
	if k.raw.length == 0 {
		return []byte{}, nil
	}
	if k.raw.length > math.MaxInt32 {
		return nil, &StringTooLongError{Name: "keyblock"}
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(k.raw.contents)), int(k.raw.length)), nil
}

// Ref returns a non-owning view of the keyblock for passing to keytab and
// kadm5 operations. The ref is poisoned when the Keyblock (or its Context)
// is freed.
func (k *Keyblock) Ref() (KeyblockRef, error) {
	if err := k.alive(); err != nil {
		return KeyblockRef{}, err
	}
	return KeyblockRef{ctx: k.ctx, raw: k.raw, owner: k.alive}, nil
}

func (k *Keyblock) alive() error {
	if k == nil || k.closed {
		return ErrFreed
	}
	return k.ctx.alive()
}

func (k *Keyblock) destroy() error {
	k.closed = true
	C.krb5_free_keyblock(k.ctx.raw, k.raw)
	k.raw = nil
	return nil
}

// Free releases the keyblock, including its key contents. Free is idempotent.
func (k *Keyblock) Free() error {
	if k == nil || k.closed {
		return nil
	}
	if err := k.ctx.alive(); err != nil {
		return err
	}
	k.ctx.disown(k)
	return k.destroy()
}

// KeyblockRef is a non-owning reference to a Kerberos keyblock. The
// underlying keyblock is owned either by a [Keyblock] or by a kadm5 key-data
// collection; the ref is poisoned once that owner is freed.
type KeyblockRef struct {
	ctx   *Context
	raw   *C.krb5_keyblock
	owner func() error
}

// NewKeyblockRef wraps a keyblock allocated by a companion binding (such as
// pkg/krb5/kadm5). raw must point at a native krb5_keyblock; the caller
// retains ownership. owner reports whether the owning resource is still
// alive and is consulted on every access; nil means only the context gates
// the ref.
func NewKeyblockRef(ctx *Context, raw unsafe.Pointer, owner func() error) KeyblockRef {
	return KeyblockRef{ctx: ctx, raw: (*C.krb5_keyblock)(raw), owner: owner}
}

func (r KeyblockRef) alive() error {
	if r.owner != nil {
		return r.owner()
	}
	return r.ctx.alive()
}

// Enctype returns the referenced keyblock's encryption type.
func (r KeyblockRef) Enctype() (Enctype, error) {
	if err := r.alive(); err != nil {
		return 0, err
	}
	return Enctype(r.raw.enctype), nil
}

// Contents returns a read-only view of the referenced key bytes, with the
// same borrow and zero-length rules as [Keyblock.Contents].
func (r KeyblockRef) Contents() ([]byte, error) {
	if err := r.alive(); err != nil {
		return nil, err
	}
	if r.raw.length == 0 {
		return []byte{}, nil
	}
	if r.raw.length > math.MaxInt32 {
		return nil, &StringTooLongError{Name: "keyblock"}
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(r.raw.contents)), int(r.raw.length)), nil
}
