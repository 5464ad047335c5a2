// Package credcache provides a lock-free credential cache backed by a
// Kubernetes Secret.
//
// The cache keeps a local snapshot of the Secret's data and fills missing
// entries by calling a generator, persisting the result with a merge patch.
// No cluster-wide locking is performed: when two replicas race on the same
// key, the generator must either fail or be idempotent (producing the same
// value for all concurrent calls for the same key).
package credcache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"

	"github.com/viet-stackable/secret-operator/internal/logger"
	"github.com/viet-stackable/secret-operator/pkg/metrics"
)

const (
	operatorName      = "secrets.stackable.tech"
	fieldManagerScope = "krb5-provision-keytab"
)

// SecretReference identifies a Secret by namespace and name.
type SecretReference struct {
	Namespace string
	Name      string
}

func (r SecretReference) String() string {
	return fmt.Sprintf("%s/%s", r.Namespace, r.Name)
}

// GeneratorInfo carries context that generators may want for error messages.
type GeneratorInfo struct {
	CacheRef SecretReference
}

// Generator produces the value for a missing cache key.
//
// Errors returned by a Generator are passed through to the caller of
// GetOrInsert unwrapped, so callers can inspect them with errors.Is/As.
type Generator func(ctx context.Context, info GeneratorInfo) ([]byte, error)

// CredentialCache caches credentials in a Kubernetes Secret.
//
// Safe for concurrent use. Failed generator calls are never cached.
type CredentialCache struct {
	name    string
	client  kubernetes.Interface
	ref     SecretReference
	metrics *metrics.CredentialCacheMetrics

	mu      sync.Mutex
	current *corev1.Secret
}

// New fetches the current state of the backing Secret and returns a cache
// over it. The Secret must already exist; a missing Secret is a *LoadError.
func New(ctx context.Context, name string, client kubernetes.Interface, ref SecretReference, m *metrics.CredentialCacheMetrics) (*CredentialCache, error) {
	secret, err := client.CoreV1().Secrets(ref.Namespace).Get(ctx, ref.Name, metav1.GetOptions{})
	if err != nil {
		return nil, &LoadError{Ref: ref, Err: err}
	}
	return &CredentialCache{
		name:    name,
		client:  client,
		ref:     ref,
		metrics: m,
		current: secret,
	}, nil
}

// Ref returns the reference of the backing Secret.
func (c *CredentialCache) Ref() SecretReference { return c.ref }

func (c *CredentialCache) snapshot(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.current.Data[key]
	return value, ok
}

// GetOrInsert returns the credential named key from the cache, calling
// mkValue if it cannot be found and persisting the generated value.
//
// The generator runs outside any lock. If a concurrent writer saves the same
// key first, the merge patch still succeeds and the value returned is the one
// the apiserver stored, so all racing callers converge on a single credential
// provided the generator is idempotent.
func (c *CredentialCache) GetOrInsert(ctx context.Context, key string, mkValue Generator) ([]byte, error) {
	if value, ok := c.snapshot(key); ok {
		logger.Info("credential found in cache, reusing", "cache", c.name, "key", key, "secret", c.ref)
		c.metrics.RecordHit(c.name)
		return value, nil
	}

	logger.Info("credential not found in cache, generating", "cache", c.name, "key", key, "secret", c.ref)
	c.metrics.RecordMiss(c.name)

	value, err := mkValue(ctx, GeneratorInfo{CacheRef: c.ref})
	if err != nil {
		// No negative caching: the next call for this key will retry.
		logger.Warn("failed to generate credential, discarding", "cache", c.name, "key", key, "error", err)
		return nil, err
	}

	logger.Info("generated credential successfully, saving", "cache", c.name, "key", key, "secret", c.ref)
	saved, err := c.save(ctx, key, value)
	if err != nil {
		c.metrics.RecordSaveFailure(c.name)
		return nil, &SaveError{Ref: c.ref, Key: key, Err: err}
	}

	c.mu.Lock()
	c.current = saved
	stored, ok := c.current.Data[key]
	c.mu.Unlock()
	if !ok {
		return nil, &MissingAfterSaveError{Ref: c.ref, Key: key}
	}
	return stored, nil
}

// save persists a single key with a merge patch, so concurrent writers to
// other keys are never clobbered. Returns the Secret as stored.
func (c *CredentialCache) save(ctx context.Context, key string, value []byte) (*corev1.Secret, error) {
	patch, err := json.Marshal(map[string]any{
		"data": map[string]string{
			key: base64.StdEncoding.EncodeToString(value),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode patch: %w", err)
	}
	return c.client.CoreV1().Secrets(c.ref.Namespace).Patch(
		ctx,
		c.ref.Name,
		types.MergePatchType,
		patch,
		metav1.PatchOptions{FieldManager: operatorName + "/" + fieldManagerScope},
	)
}
