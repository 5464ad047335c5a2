package krb5

/*
#cgo LDFLAGS: -lkrb5 -lk5crypto -lcom_err
#include <stdlib.h>
#include <krb5.h>
#include <profile.h>
*/
import "C"

import (
	"errors"
	"unsafe"
)

// Context is an instance of the libkrb5 client library.
//
// All other krb5 wrappers are linked to a specific Context and must not be
// mixed between contexts or used past the lifetime of the owning Context.
// Closing a Context releases every derived resource that has not been freed
// yet, in reverse creation order, before freeing the native context state
// exactly once.
//
// Context is not safe for concurrent use: libkrb5 mutates the context
// internally on most calls.
type Context struct {
	raw      C.krb5_context
	children []childResource
	closed   bool
}

type childResource struct {
	id      any
	destroy func() error
}

// Resource is a native allocation whose lifetime is bounded by a Context.
// It is implemented by companion bindings such as pkg/krb5/kadm5.
type Resource interface {
	Destroy() error
}

// New creates a Context using the default configuration sources
// (KRB5_CONFIG, /etc/krb5.conf, ...).
func New() (*Context, error) {
	var raw C.krb5_context
	if err := errorFromCode(nil, C.krb5_init_context(&raw)); err != nil {
		return nil, err
	}
	return &Context{raw: raw}, nil
}

// NewFromProfile creates a Context seeded from the given configuration
// profile. The profile is copied into the created context and may be freed
// independently afterwards.
func NewFromProfile(profile *Profile) (*Context, error) {
	if err := profile.alive(); err != nil {
		return nil, err
	}
	var raw C.krb5_context
	if err := errorFromCode(nil, C.krb5_init_context_profile(profile.raw, 0, &raw)); err != nil {
		return nil, err
	}
	return &Context{raw: raw}, nil
}

// alive reports whether the context can still back native calls.
func (c *Context) alive() error {
	if c == nil || c.closed {
		return ErrFreed
	}
	return nil
}

// adopt registers a derived resource so that Close can release it if the
// caller has not done so already. id is used for identity in disown.
func (c *Context) adopt(id any, destroy func() error) {
	c.children = append(c.children, childResource{id: id, destroy: destroy})
}

// disown removes a resource registration after the resource freed itself.
func (c *Context) disown(id any) {
	for i, child := range c.children {
		if child.id == id {
			c.children = append(c.children[:i], c.children[i+1:]...)
			return
		}
	}
}

// Adopt ties an externally managed native resource (such as a kadm5 session)
// to the context's lifetime. If the Context is closed while the resource is
// still live, the resource's Destroy method is invoked first.
//
// Companion bindings call Adopt during construction and [Context.Disown] once
// they have destroyed themselves.
func (c *Context) Adopt(r Resource) error {
	if err := c.alive(); err != nil {
		return err
	}
	c.adopt(r, r.Destroy)
	return nil
}

// Disown removes a resource previously registered with Adopt.
func (c *Context) Disown(r Resource) {
	if c == nil || c.closed {
		return
	}
	c.disown(r)
}

// Close releases all still-live derived resources in reverse creation order,
// then frees the native context. Using the Context or any derived wrapper
// afterwards fails with ErrFreed. Close is idempotent.
func (c *Context) Close() error {
	if c == nil || c.closed {
		return nil
	}
	var errs []error
	for i := len(c.children) - 1; i >= 0; i-- {
		if err := c.children[i].destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	c.children = nil
	c.closed = true
	C.krb5_free_context(c.raw)
	c.raw = nil
	return errors.Join(errs...)
}

// Raw exposes the native krb5_context handle for companion bindings
// (pkg/krb5/kadm5). It returns nil once the Context has been closed. The
// pointer must not be retained past the Context's lifetime.
func (c *Context) Raw() unsafe.Pointer {
	if c == nil || c.closed {
		return nil
	}
	return unsafe.Pointer(c.raw)
}

// DefaultRealm returns the default realm configured for this context.
func (c *Context) DefaultRealm() (string, error) {
	if err := c.alive(); err != nil {
		return "", err
	}
	var raw *C.char
	if err := errorFromCode(c, C.krb5_get_default_realm(c.raw, &raw)); err != nil {
		return "", err
	}
	realm := C.GoString(raw)
	C.krb5_free_default_realm(c.raw, raw)
	return realm, nil
}

// ParsePrincipal parses a textual Kerberos principal in the scope of this
// context; the context's default realm is used when name does not carry one.
func (c *Context) ParsePrincipal(name string) (*Principal, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	var raw C.krb5_principal
	if err := errorFromCode(c, C.krb5_parse_name(c.raw, cname, &raw)); err != nil {
		return nil, err
	}
	p := &Principal{ctx: c, raw: raw}
	c.adopt(p, p.destroy)
	return p, nil
}
