package kadm5

/*
#include <kadm5/admin.h>
*/
import "C"

import (
	"unsafe"

	"github.com/viet-stackable/secret-operator/pkg/krb5"
)

// KvnoAll requests every key version a principal has, rather than one
// specific version.
const KvnoAll = krb5.Kvno(0)

// KeyData is an unowned view of one of a principal's keys. It borrows memory
// owned by a [KeyDataList] and must not outlive it.
type KeyData struct {
	Kvno     krb5.Kvno
	Keyblock krb5.KeyblockRef
}

// KeyDataList is an owned batch of (key version, key) pairs returned by
// [ServerHandle.GetPrincipalKeys].
type KeyDataList struct {
	ctx    *krb5.Context
	raw    *C.kadm5_key_data
	count  C.int
	closed bool
}

// Len returns the number of keys in the batch.
func (l *KeyDataList) Len() int {
	return int(l.count)
}

func (l *KeyDataList) alive() error {
	if l == nil || l.closed {
		return krb5.ErrFreed
	}
	if l.ctx.Raw() == nil {
		return krb5.ErrFreed
	}
	return nil
}

// Keys returns views of all keys in the batch. The views are poisoned once
// the list is closed.
func (l *KeyDataList) Keys() ([]KeyData, error) {
	if err := l.alive(); err != nil {
		return nil, err
	}
	if l.count == 0 {
		return nil, nil
	}
	entries := unsafe.Slice(l.raw, int(l.count))
	keys := make([]KeyData, len(entries))
	for i := range entries {
		keys[i] = KeyData{
			Kvno:     krb5.Kvno(entries[i].kvno),
			Keyblock: krb5.NewKeyblockRef(l.ctx, unsafe.Pointer(&entries[i].key), l.alive),
		}
	}
	return keys, nil
}

// Destroy frees the native batch. Invoked by the owning context's Close when
// the list is still live at that point; prefer [KeyDataList.Close].
func (l *KeyDataList) Destroy() error {
	if l.closed {
		return nil
	}
	l.closed = true
	rawCtx := l.ctx.Raw()
	if rawCtx == nil {
		return krb5.ErrFreed
	}
	err := errorFromRet(C.kadm5_free_kadm5_key_data(C.krb5_context(rawCtx), l.count, l.raw))
	l.raw = nil
	return err
}

// Close frees the batch and unregisters it from the owning context. Close is
// idempotent.
func (l *KeyDataList) Close() error {
	if l == nil || l.closed {
		return nil
	}
	l.ctx.Disown(l)
	return l.Destroy()
}
