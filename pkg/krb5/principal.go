package krb5

/*
#include <krb5.h>
*/
import "C"

import "unsafe"

// RealmDisplayMode controls whether [Principal.Unparse] includes the realm.
type RealmDisplayMode int

const (
	// RealmDisplayAlways always includes the realm.
	RealmDisplayAlways RealmDisplayMode = iota
	// RealmDisplayIfForeign includes the realm only when it differs from the
	// context's default realm.
	RealmDisplayIfForeign
	// RealmDisplayNever never includes the realm. This may create ambiguity
	// in multi-realm configurations.
	RealmDisplayNever
)

// UnparseOptions are optional settings for [Principal.Unparse].
type UnparseOptions struct {
	// Realm controls whether the realm is included.
	Realm RealmDisplayMode

	// ForDisplay skips quoting of special characters, even if this produces a
	// principal string that cannot be parsed back.
	ForDisplay bool
}

func (o UnparseOptions) flags() C.int {
	var flags C.int
	switch o.Realm {
	case RealmDisplayIfForeign:
		flags |= C.KRB5_PRINCIPAL_UNPARSE_SHORT
	case RealmDisplayNever:
		flags |= C.KRB5_PRINCIPAL_UNPARSE_NO_REALM
	}
	if o.ForDisplay {
		flags |= C.KRB5_PRINCIPAL_UNPARSE_DISPLAY
	}
	return flags
}

// Principal is a parsed Kerberos principal name.
//
// Created by [Context.ParsePrincipal]; valid only while its Context is live.
type Principal struct {
	ctx    *Context
	raw    C.krb5_principal
	closed bool
}

func (p *Principal) alive() error {
	if p == nil || p.closed {
		return ErrFreed
	}
	return p.ctx.alive()
}

// Unparse converts the parsed principal back into its string representation.
func (p *Principal) Unparse(opts UnparseOptions) (string, error) {
	if err := p.alive(); err != nil {
		return "", err
	}
	var raw *C.char
	err := errorFromCode(p.ctx, C.krb5_unparse_name_flags(p.ctx.raw, p.raw, opts.flags(), &raw))
	if err != nil {
		return "", err
	}
	name := C.GoString(raw)
	C.krb5_free_unparsed_name(p.ctx.raw, raw)
	return name, nil
}

// String implements fmt.Stringer using default unparse options.
func (p *Principal) String() string {
	name, err := p.Unparse(UnparseOptions{})
	if err != nil {
		return "(invalid)"
	}
	return name
}

// DefaultSalt returns the default salt used when deriving keys for this
// principal.
func (p *Principal) DefaultSalt() (*Data, error) {
	if err := p.alive(); err != nil {
		return nil, err
	}
	d := &Data{ctx: p.ctx}
	if err := errorFromCode(p.ctx, C.krb5_principal2salt(p.ctx.raw, p.raw, &d.raw)); err != nil {
		return nil, err
	}
	p.ctx.adopt(d, d.destroy)
	return d, nil
}

// Raw exposes the native krb5_principal handle for companion bindings
// (pkg/krb5/kadm5). It returns nil once the principal or its Context has been
// freed. The pointer must not be retained past the principal's lifetime.
func (p *Principal) Raw() unsafe.Pointer {
	if p.alive() != nil {
		return nil
	}
	return unsafe.Pointer(p.raw)
}

func (p *Principal) destroy() error {
	p.closed = true
	C.krb5_free_principal(p.ctx.raw, p.raw)
	p.raw = nil
	return nil
}

// Free releases the principal. Free is idempotent and must happen no later
// than the close of the owning Context (which otherwise frees it itself).
func (p *Principal) Free() error {
	if p == nil || p.closed {
		return nil
	}
	if err := p.ctx.alive(); err != nil {
		return err
	}
	p.ctx.disown(p)
	return p.destroy()
}
