package provision

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viet-stackable/secret-operator/pkg/krb5"
)

func newTestKrbContext(t *testing.T) *krb5.Context {
	t.Helper()

	conf := filepath.Join(t.TempDir(), "krb5.conf")
	err := os.WriteFile(conf, []byte("[libdefaults]\n\tdefault_realm = EXAMPLE.COM\n"), 0o600)
	require.NoError(t, err)

	profile, err := krb5.NewProfile(conf)
	require.NoError(t, err)
	ctx, err := krb5.NewFromProfile(profile)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, ctx.Close())
		require.NoError(t, profile.Close())
	})
	return ctx
}

func TestWriteKeytab(t *testing.T) {
	ctx := newTestKrbContext(t)
	p := NewProvisioner(nil, nil, nil)

	key := bytes.Repeat([]byte{0x42}, 32)
	keys := map[string]KeySet{
		"HTTP/airflow.example.com@EXAMPLE.COM": {Entries: []KeyEntry{
			{Kvno: 2, Enctype: krb5.EnctypeAES256CTSHMACSHA196, Key: key},
		}},
	}

	path := filepath.Join(t.TempDir(), "service.keytab")
	require.NoError(t, p.WriteKeytab(context.Background(), ctx, keys, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	kt := keytab.New()
	require.NoError(t, kt.Unmarshal(data))
	require.Len(t, kt.Entries, 1)
	assert.Equal(t, uint32(2), kt.Entries[0].KVNO)
	assert.Equal(t, []string{"HTTP", "airflow.example.com"}, kt.Entries[0].Principal.Components)
	assert.Equal(t, key, kt.Entries[0].Key.KeyValue)
}

func TestWriteKeytabBadPath(t *testing.T) {
	ctx := newTestKrbContext(t)
	p := NewProvisioner(nil, nil, nil)

	keys := map[string]KeySet{
		"HTTP/a@EXAMPLE.COM": {Entries: []KeyEntry{
			{Kvno: 1, Enctype: krb5.EnctypeAES256CTSHMACSHA196, Key: bytes.Repeat([]byte{1}, 32)},
		}},
	}
	err := p.WriteKeytab(context.Background(), ctx, keys, "/nonexistent-dir/service.keytab")
	assert.Error(t, err)
}
