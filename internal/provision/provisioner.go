// Package provision turns Kerberos principals into keytabs.
//
// Keys are provisioned once per principal: the first request creates the
// principal on the KDC, fetches its long-term keys and stores them in the
// credential cache; later requests (including from other replicas) reuse the
// cached keys so every pod of a service receives the same keytab.
package provision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/viet-stackable/secret-operator/internal/credcache"
	"github.com/viet-stackable/secret-operator/internal/logger"
	"github.com/viet-stackable/secret-operator/internal/telemetry"
	"github.com/viet-stackable/secret-operator/pkg/metrics"
)

// Provisioner provisions principals and caches their keys.
type Provisioner struct {
	admin   Admin
	cache   *credcache.CredentialCache
	metrics *metrics.ProvisionMetrics
}

// NewProvisioner builds a Provisioner over an admin connection and a
// credential cache.
func NewProvisioner(admin Admin, cache *credcache.CredentialCache, m *metrics.ProvisionMetrics) *Provisioner {
	return &Provisioner{admin: admin, cache: cache, metrics: m}
}

// SecretKeyFor maps a principal name to a Secret data key.
//
// Secret keys must match [-._a-zA-Z0-9]+, so the principal separators '/'
// and '@' (and anything else outside the set) are folded to '.'.
func SecretKeyFor(principal string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '.'
		}
	}, principal)
}

// PrincipalKeys returns the long-term keys for the principal, provisioning it
// on first use.
//
// The generator is idempotent as long as the KDC does not rotate the
// principal's keys while two replicas race on the same principal; see the
// credential cache for the exact contract.
func (p *Provisioner) PrincipalKeys(ctx context.Context, principal string) (KeySet, error) {
	ctx, span := telemetry.StartSpan(ctx, "provision.PrincipalKeys", telemetry.WithPrincipal(principal))
	defer span.End()

	p.metrics.RecordRequest("principal_keys")
	start := time.Now()
	defer func() {
		p.metrics.ObserveRequestDuration(time.Since(start).Seconds())
	}()

	raw, err := p.cache.GetOrInsert(ctx, SecretKeyFor(principal), func(ctx context.Context, info credcache.GeneratorInfo) ([]byte, error) {
		logger.Info("provisioning principal", "principal", principal, "cache", info.CacheRef)
		if err := p.admin.EnsurePrincipal(ctx, principal); err != nil {
			return nil, err
		}
		keys, err := p.admin.PrincipalKeys(ctx, principal)
		if err != nil {
			return nil, err
		}
		return keys.Encode()
	})
	if err != nil {
		p.metrics.RecordError("principal_keys")
		telemetry.RecordError(ctx, err)
		return KeySet{}, err
	}

	keys, err := DecodeKeySet(raw)
	if err != nil {
		p.metrics.RecordError("principal_keys")
		return KeySet{}, fmt.Errorf("cached keys for principal %q are corrupt: %w", principal, err)
	}
	return keys, nil
}
