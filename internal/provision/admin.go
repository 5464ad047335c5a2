package provision

import (
	"context"
	"fmt"
	"sort"

	"github.com/viet-stackable/secret-operator/internal/logger"
	"github.com/viet-stackable/secret-operator/pkg/krb5"
	"github.com/viet-stackable/secret-operator/pkg/krb5/kadm5"
)

// Admin creates principals and fetches their long-term keys.
type Admin interface {
	// EnsurePrincipal creates the principal if it does not exist yet.
	// A principal that already exists is not an error.
	EnsurePrincipal(ctx context.Context, principal string) error

	// PrincipalKeys returns all long-term keys of the principal, sorted by
	// kvno then enctype.
	PrincipalKeys(ctx context.Context, principal string) (KeySet, error)
}

// SessionDial establishes a kadmin session on the given krb5 context. The
// caller already holds the context's lock when the dial runs.
type SessionDial func(*krb5.Context) (*kadm5.ServerHandle, error)

// KadminAdmin is an Admin backed by a kadmin server session. All native use
// of the krb5 context goes through the SharedContext, so it is safe to share
// the context with other components.
type KadminAdmin struct {
	krb    *SharedContext
	dial   SessionDial
	handle *kadm5.ServerHandle
}

// NewKadminAdmin dials an initial kadmin session. The krb5 context stays
// owned by the caller; dial is kept for [KadminAdmin.Reconnect] when the
// admin keytab rotates.
func NewKadminAdmin(krb *SharedContext, dial SessionDial) (*KadminAdmin, error) {
	a := &KadminAdmin{krb: krb, dial: dial}
	if err := a.Reconnect(); err != nil {
		return nil, err
	}
	return a, nil
}

// Reconnect dials a fresh kadmin session and closes the previous one. Used
// when the admin keytab rotates.
func (a *KadminAdmin) Reconnect() error {
	krb := a.krb.Acquire()
	defer a.krb.Release()

	fresh, err := a.dial(krb)
	if err != nil {
		return err
	}
	old := a.handle
	a.handle = fresh
	if old != nil {
		return old.Close()
	}
	return nil
}

func (a *KadminAdmin) EnsurePrincipal(ctx context.Context, principal string) error {
	krb := a.krb.Acquire()
	defer a.krb.Release()

	parsed, err := krb.ParsePrincipal(principal)
	if err != nil {
		return fmt.Errorf("failed to parse principal %q: %w", principal, err)
	}
	defer parsed.Free()

	if err := a.handle.CreatePrincipal(parsed); err != nil {
		if kadm5.IsDuplicate(err) {
			logger.Debug("principal already exists", "principal", principal)
			return nil
		}
		return fmt.Errorf("failed to create principal %q: %w", principal, err)
	}
	logger.Info("created principal", "principal", principal)
	return nil
}

func (a *KadminAdmin) PrincipalKeys(ctx context.Context, principal string) (KeySet, error) {
	krb := a.krb.Acquire()
	defer a.krb.Release()

	parsed, err := krb.ParsePrincipal(principal)
	if err != nil {
		return KeySet{}, fmt.Errorf("failed to parse principal %q: %w", principal, err)
	}
	defer parsed.Free()

	list, err := a.handle.GetPrincipalKeys(parsed, kadm5.KvnoAll)
	if err != nil {
		return KeySet{}, fmt.Errorf("failed to get keys for principal %q: %w", principal, err)
	}
	defer list.Close()

	keys, err := list.Keys()
	if err != nil {
		return KeySet{}, err
	}

	// Copy everything out of native memory before the list is freed.
	set := KeySet{Entries: make([]KeyEntry, 0, len(keys))}
	for _, kd := range keys {
		enctype, err := kd.Keyblock.Enctype()
		if err != nil {
			return KeySet{}, err
		}
		contents, err := kd.Keyblock.Contents()
		if err != nil {
			return KeySet{}, err
		}
		key := make([]byte, len(contents))
		copy(key, contents)
		set.Entries = append(set.Entries, KeyEntry{
			Kvno:    kd.Kvno,
			Enctype: enctype,
			Key:     key,
		})
	}
	sort.Slice(set.Entries, func(i, j int) bool {
		if set.Entries[i].Kvno != set.Entries[j].Kvno {
			return set.Entries[i].Kvno < set.Entries[j].Kvno
		}
		return set.Entries[i].Enctype < set.Entries[j].Enctype
	})
	return set, nil
}
