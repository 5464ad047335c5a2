package krb5

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()

	conf := filepath.Join(t.TempDir(), "krb5.conf")
	err := os.WriteFile(conf, []byte("[libdefaults]\n\tdefault_realm = EXAMPLE.COM\n"), 0o600)
	require.NoError(t, err)

	profile, err := NewProfile(conf)
	require.NoError(t, err)
	ctx, err := NewFromProfile(profile)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, ctx.Close())
		require.NoError(t, profile.Close())
	})
	return ctx
}

func TestDefaultRealm(t *testing.T) {
	ctx := newTestContext(t)
	realm, err := ctx.DefaultRealm()
	require.NoError(t, err)
	assert.Equal(t, "EXAMPLE.COM", realm)
}

func TestParsePrincipalRoundTrip(t *testing.T) {
	ctx := newTestContext(t)

	tests := []struct {
		input string
		opts  UnparseOptions
		want  string
	}{
		{"user@EXAMPLE.COM", UnparseOptions{}, "user@EXAMPLE.COM"},
		{"user", UnparseOptions{}, "user@EXAMPLE.COM"},
		{"user@EXAMPLE.COM", UnparseOptions{Realm: RealmDisplayNever}, "user"},
		{"user@EXAMPLE.COM", UnparseOptions{Realm: RealmDisplayIfForeign}, "user"},
		{"user@OTHER.COM", UnparseOptions{Realm: RealmDisplayIfForeign}, "user@OTHER.COM"},
		{"HTTP/host.example.com@EXAMPLE.COM", UnparseOptions{}, "HTTP/host.example.com@EXAMPLE.COM"},
	}
	for _, tt := range tests {
		principal, err := ctx.ParsePrincipal(tt.input)
		require.NoError(t, err, "parse %q", tt.input)

		name, err := principal.Unparse(tt.opts)
		require.NoError(t, err)
		assert.Equal(t, tt.want, name, "unparse %q with %+v", tt.input, tt.opts)
		require.NoError(t, principal.Free())
	}
}

func TestUnparseQuotesSpecialCharacters(t *testing.T) {
	ctx := newTestContext(t)

	principal, err := ctx.ParsePrincipal(`odd\/name@EXAMPLE.COM`)
	require.NoError(t, err)
	defer principal.Free()

	quoted, err := principal.Unparse(UnparseOptions{})
	require.NoError(t, err)
	assert.Equal(t, `odd\/name@EXAMPLE.COM`, quoted)

	display, err := principal.Unparse(UnparseOptions{ForDisplay: true})
	require.NoError(t, err)
	assert.Equal(t, "odd/name@EXAMPLE.COM", display)
}

func TestDefaultSalt(t *testing.T) {
	ctx := newTestContext(t)

	principal, err := ctx.ParsePrincipal("user@EXAMPLE.COM")
	require.NoError(t, err)
	defer principal.Free()

	salt, err := principal.DefaultSalt()
	require.NoError(t, err)
	defer salt.Free()

	// The default salt is the realm concatenated with the name components.
	got, err := salt.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("EXAMPLE.COMuser"), got)
}

func TestNewKeyblockZeroed(t *testing.T) {
	ctx := newTestContext(t)

	kb, err := NewKeyblock(ctx, EnctypeAES256CTSHMACSHA196, 32)
	require.NoError(t, err)
	defer kb.Free()

	contents, err := kb.Contents()
	require.NoError(t, err)
	require.Len(t, contents, 32)
	for i, b := range contents {
		require.Zerof(t, b, "byte %d not zeroed", i)
	}

	enctype, err := kb.Enctype()
	require.NoError(t, err)
	assert.Equal(t, EnctypeAES256CTSHMACSHA196, enctype)
}

func TestKeyblockFromPasswordDeterministic(t *testing.T) {
	ctx := newTestContext(t)

	principal, err := ctx.ParsePrincipal("user@EXAMPLE.COM")
	require.NoError(t, err)
	defer principal.Free()

	derive := func(password string, salt *Data) []byte {
		kb, err := KeyblockFromPassword(ctx, EnctypeAES256CTSHMACSHA196, password, salt)
		require.NoError(t, err)
		defer kb.Free()

		contents, err := kb.Contents()
		require.NoError(t, err)
		out := make([]byte, len(contents))
		copy(out, contents)
		return out
	}

	salt, err := principal.DefaultSalt()
	require.NoError(t, err)
	defer salt.Free()

	first := derive("hunter2", salt)
	second := derive("hunter2", salt)
	assert.Len(t, first, 32)
	assert.Equal(t, first, second)

	assert.NotEqual(t, first, derive("different", salt))

	other, err := ctx.ParsePrincipal("other@EXAMPLE.COM")
	require.NoError(t, err)
	defer other.Free()
	otherSalt, err := other.DefaultSalt()
	require.NoError(t, err)
	defer otherSalt.Free()
	assert.NotEqual(t, first, derive("hunter2", otherSalt))
}

func TestKeyblockFromPasswordForeignSalt(t *testing.T) {
	ctx1 := newTestContext(t)
	ctx2 := newTestContext(t)

	principal, err := ctx1.ParsePrincipal("user@EXAMPLE.COM")
	require.NoError(t, err)
	salt, err := principal.DefaultSalt()
	require.NoError(t, err)

	_, err = KeyblockFromPassword(ctx2, EnctypeAES256CTSHMACSHA196, "hunter2", salt)
	assert.ErrorIs(t, err, ErrForeignContext)
}

func TestMemoryKeytabAdd(t *testing.T) {
	ctx := newTestContext(t)

	kt, err := ResolveKeytab(ctx, "MEMORY:test")
	require.NoError(t, err)

	principal, err := ctx.ParsePrincipal("HTTP/host.example.com@EXAMPLE.COM")
	require.NoError(t, err)
	defer principal.Free()

	salt, err := principal.DefaultSalt()
	require.NoError(t, err)
	defer salt.Free()

	kb, err := KeyblockFromPassword(ctx, EnctypeAES256CTSHMACSHA196, "hunter2", salt)
	require.NoError(t, err)
	defer kb.Free()

	ref, err := kb.Ref()
	require.NoError(t, err)
	require.NoError(t, kt.Add(principal, 2, ref))
	assert.NoError(t, kt.Close())
}

func TestParseInvalidPrincipal(t *testing.T) {
	ctx := newTestContext(t)

	_, err := ctx.ParsePrincipal("user@EXAMPLE.COM@EXTRA")
	require.Error(t, err)

	var krbErr *Error
	require.ErrorAs(t, err, &krbErr)
	assert.NotZero(t, krbErr.Code)
	assert.NotEmpty(t, krbErr.Message)
}
