package credcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

var testRef = SecretReference{Namespace: "stackable", Name: "kerberos-credentials"}

func testSecret(data map[string][]byte) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: testRef.Namespace,
			Name:      testRef.Name,
		},
		Data: data,
	}
}

func patchActions(clientset *fake.Clientset) []k8stesting.Action {
	var patches []k8stesting.Action
	for _, action := range clientset.Actions() {
		if action.Matches("patch", "secrets") {
			patches = append(patches, action)
		}
	}
	return patches
}

func TestNewMissingSecret(t *testing.T) {
	clientset := fake.NewClientset()

	_, err := New(context.Background(), "test", clientset, testRef, nil)
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, testRef, loadErr.Ref)
}

func TestGetOrInsertHit(t *testing.T) {
	clientset := fake.NewClientset(testSecret(map[string][]byte{
		"admin-keytab": []byte("cached"),
	}))

	cache, err := New(context.Background(), "test", clientset, testRef, nil)
	require.NoError(t, err)

	value, err := cache.GetOrInsert(context.Background(), "admin-keytab", func(ctx context.Context, info GeneratorInfo) ([]byte, error) {
		t.Fatal("generator must not run on a cache hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("cached"), value)

	// A hit is strictly read-only.
	assert.Empty(t, patchActions(clientset))
}

func TestGetOrInsertMissSavesValue(t *testing.T) {
	clientset := fake.NewClientset(testSecret(nil))

	cache, err := New(context.Background(), "test", clientset, testRef, nil)
	require.NoError(t, err)

	calls := 0
	generator := func(ctx context.Context, info GeneratorInfo) ([]byte, error) {
		calls++
		assert.Equal(t, testRef, info.CacheRef)
		return []byte("generated"), nil
	}

	value, err := cache.GetOrInsert(context.Background(), "admin-keytab", generator)
	require.NoError(t, err)
	assert.Equal(t, []byte("generated"), value)
	assert.Equal(t, 1, calls)
	assert.Len(t, patchActions(clientset), 1)

	stored, err := clientset.CoreV1().Secrets(testRef.Namespace).Get(context.Background(), testRef.Name, metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte("generated"), stored.Data["admin-keytab"])

	// Second call is served from the refreshed snapshot.
	value, err = cache.GetOrInsert(context.Background(), "admin-keytab", generator)
	require.NoError(t, err)
	assert.Equal(t, []byte("generated"), value)
	assert.Equal(t, 1, calls)
	assert.Len(t, patchActions(clientset), 1)
}

func TestGetOrInsertMergesWithExistingKeys(t *testing.T) {
	clientset := fake.NewClientset(testSecret(map[string][]byte{
		"other-key": []byte("keep me"),
	}))

	cache, err := New(context.Background(), "test", clientset, testRef, nil)
	require.NoError(t, err)

	_, err = cache.GetOrInsert(context.Background(), "admin-keytab", func(ctx context.Context, info GeneratorInfo) ([]byte, error) {
		return []byte("new"), nil
	})
	require.NoError(t, err)

	stored, err := clientset.CoreV1().Secrets(testRef.Namespace).Get(context.Background(), testRef.Name, metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte("keep me"), stored.Data["other-key"])
	assert.Equal(t, []byte("new"), stored.Data["admin-keytab"])
}

func TestGeneratorErrorPassesThrough(t *testing.T) {
	clientset := fake.NewClientset(testSecret(nil))

	cache, err := New(context.Background(), "test", clientset, testRef, nil)
	require.NoError(t, err)

	sentinel := errors.New("kadmin unreachable")
	_, err = cache.GetOrInsert(context.Background(), "admin-keytab", func(ctx context.Context, info GeneratorInfo) ([]byte, error) {
		return nil, sentinel
	})
	// Generator errors are returned unwrapped, without any caching layer on top.
	require.ErrorIs(t, err, sentinel)
	assert.Empty(t, patchActions(clientset))

	// No negative caching: a later call retries the generator.
	value, err := cache.GetOrInsert(context.Background(), "admin-keytab", func(ctx context.Context, info GeneratorInfo) ([]byte, error) {
		return []byte("recovered"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("recovered"), value)
}

func TestSaveFailure(t *testing.T) {
	clientset := fake.NewClientset(testSecret(nil))
	clientset.PrependReactor("patch", "secrets", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("apiserver on fire")
	})

	cache, err := New(context.Background(), "test", clientset, testRef, nil)
	require.NoError(t, err)

	_, err = cache.GetOrInsert(context.Background(), "admin-keytab", func(ctx context.Context, info GeneratorInfo) ([]byte, error) {
		return []byte("doomed"), nil
	})

	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, "admin-keytab", saveErr.Key)
}

func TestMissingAfterSave(t *testing.T) {
	clientset := fake.NewClientset(testSecret(nil))
	clientset.PrependReactor("patch", "secrets", func(action k8stesting.Action) (bool, runtime.Object, error) {
		// Simulate a misbehaving apiserver that drops the patched key.
		return true, testSecret(nil), nil
	})

	cache, err := New(context.Background(), "test", clientset, testRef, nil)
	require.NoError(t, err)

	_, err = cache.GetOrInsert(context.Background(), "admin-keytab", func(ctx context.Context, info GeneratorInfo) ([]byte, error) {
		return []byte("lost"), nil
	})

	var missingErr *MissingAfterSaveError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, "admin-keytab", missingErr.Key)
}

func TestConcurrentGetOrInsert(t *testing.T) {
	clientset := fake.NewClientset(testSecret(nil))

	cache, err := New(context.Background(), "test", clientset, testRef, nil)
	require.NoError(t, err)

	// An idempotent generator: every racing caller produces the same value,
	// so all of them must converge on it.
	generator := func(ctx context.Context, info GeneratorInfo) ([]byte, error) {
		return []byte("deterministic"), nil
	}

	const workers = 16
	results := make([][]byte, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = cache.GetOrInsert(context.Background(), fmt.Sprintf("key-%d", i%2), generator)
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, []byte("deterministic"), results[i])
	}
}
