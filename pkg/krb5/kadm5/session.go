package kadm5

/*
#cgo LDFLAGS: -lkadm5clnt_mit -lkrb5 -lk5crypto -lcom_err
#include <stdlib.h>
#include <kadm5/admin.h>
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/viet-stackable/secret-operator/pkg/krb5"
)

// Credential is a closed set of ways to authenticate to the administration
// service. The only kind currently supported is [ServiceKeyCredential].
type Credential interface {
	isCredential()
}

// ServiceKeyCredential authenticates using a key located in a keytab file.
type ServiceKeyCredential struct {
	// KeytabPath is the path to the keytab containing the client's key.
	KeytabPath string
}

func (ServiceKeyCredential) isCredential() {}

// ConfigParams are optional overrides for the libkadm5 client configuration.
// Zero values leave the corresponding setting at its library default.
type ConfigParams struct {
	// DefaultRealm overrides the default realm.
	DefaultRealm string

	// AdminServer overrides the hostname of the kadmind server.
	AdminServer string

	// KadmindPort overrides the kadmind port.
	KadmindPort int
}

// ServerHandle is an authenticated session against a remote kadmind.
//
// It is derived from a [krb5.Context] and must be closed no later than that
// context; the handle registers itself with the context to guarantee this.
type ServerHandle struct {
	ctx    *krb5.Context
	raw    unsafe.Pointer
	closed bool
}

// Connect performs the remote authentication handshake and returns a live
// session.
//
// clientName is the principal the session authenticates as. serviceName is
// the expected principal of the admin service; leave empty to use the
// default. The session speaks struct version 1 / API version 4 of the
// administration protocol.
func Connect(ctx *krb5.Context, clientName, serviceName string, credential Credential, params ConfigParams) (*ServerHandle, error) {
	rawCtx := ctx.Raw()
	if rawCtx == nil {
		return nil, krb5.ErrFreed
	}

	cClient := C.CString(clientName)
	defer C.free(unsafe.Pointer(cClient))
	var cService *C.char
	if serviceName != "" {
		cService = C.CString(serviceName)
		defer C.free(unsafe.Pointer(cService))
	}

	var cParams C.kadm5_config_params
	if params.DefaultRealm != "" {
		cParams.realm = C.CString(params.DefaultRealm)
		defer C.free(unsafe.Pointer(cParams.realm))
		cParams.mask |= C.long(C.KADM5_CONFIG_REALM)
	}
	if params.AdminServer != "" {
		cParams.admin_server = C.CString(params.AdminServer)
		defer C.free(unsafe.Pointer(cParams.admin_server))
		cParams.mask |= C.long(C.KADM5_CONFIG_ADMIN_SERVER)
	}
	if params.KadmindPort != 0 {
		cParams.kadmind_port = C.int(params.KadmindPort)
		cParams.mask |= C.long(C.KADM5_CONFIG_KADMIND_PORT)
	}

	h := &ServerHandle{ctx: ctx}
	switch cred := credential.(type) {
	case ServiceKeyCredential:
		cKeytab := C.CString(cred.KeytabPath)
		defer C.free(unsafe.Pointer(cKeytab))
		ret := C.kadm5_init_with_skey(
			C.krb5_context(rawCtx),
			cClient,
			cKeytab,
			cService,
			&cParams,
			C.krb5_ui_4(C.KADM5_STRUCT_VERSION_1),
			C.krb5_ui_4(C.KADM5_API_VERSION_4),
			nil,
			&h.raw,
		)
		if err := errorFromRet(ret); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("kadm5: unsupported credential type %T", credential)
	}

	if err := ctx.Adopt(h); err != nil {
		// The context went away between Raw and Adopt; tear the session down
		// again rather than leaking it.
		h.Destroy()
		return nil, err
	}
	return h, nil
}

// CreatePrincipal creates principal remotely, with no attributes beyond the
// identity itself.
//
// Fails with the well-known duplicate code (see [IsDuplicate]) if the
// principal already exists.
func (h *ServerHandle) CreatePrincipal(principal *krb5.Principal) error {
	if err := h.alive(); err != nil {
		return err
	}
	rawPrinc := principal.Raw()
	if rawPrinc == nil {
		return krb5.ErrFreed
	}

	var ent C.kadm5_principal_ent_rec
	ent.principal = C.krb5_principal(rawPrinc)
	return errorFromRet(C.kadm5_create_principal(h.raw, &ent, C.long(C.KADM5_PRINCIPAL), nil))
}

// GetPrincipalKeys fetches the remote key set of a principal.
//
// kvno selects a single key version, or [KvnoAll] for every version the KDC
// still stores.
func (h *ServerHandle) GetPrincipalKeys(principal *krb5.Principal, kvno krb5.Kvno) (*KeyDataList, error) {
	if err := h.alive(); err != nil {
		return nil, err
	}
	rawPrinc := principal.Raw()
	if rawPrinc == nil {
		return nil, krb5.ErrFreed
	}

	l := &KeyDataList{ctx: h.ctx}
	ret := C.kadm5_get_principal_keys(h.raw, C.krb5_principal(rawPrinc), C.krb5_kvno(kvno), &l.raw, &l.count)
	if err := errorFromRet(ret); err != nil {
		return nil, err
	}
	if err := h.ctx.Adopt(l); err != nil {
		_ = l.Destroy()
		return nil, err
	}
	return l, nil
}

func (h *ServerHandle) alive() error {
	if h == nil || h.closed {
		return krb5.ErrFreed
	}
	if h.ctx.Raw() == nil {
		return krb5.ErrFreed
	}
	return nil
}

// Destroy tears down the native session. It panics if libkadm5 reports a
// failure: the session is in an unknown state and cannot be retried or
// leaked silently.
//
// Destroy is invoked by the owning context's Close when the handle is still
// live at that point; prefer [ServerHandle.Close].
func (h *ServerHandle) Destroy() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if err := errorFromRet(C.kadm5_destroy(h.raw)); err != nil {
		panic(fmt.Sprintf("kadm5: failed to destroy server handle: %v", err))
	}
	h.raw = nil
	return nil
}

// Close tears down the session and unregisters it from the owning context.
// Close is idempotent. Like [ServerHandle.Destroy] it panics if the native
// teardown fails.
func (h *ServerHandle) Close() error {
	if h == nil || h.closed {
		return nil
	}
	h.ctx.Disown(h)
	return h.Destroy()
}
