package provisioner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/container-storage-interface/spec/lib/go/csi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// stubBackend returns canned data or a canned error.
type stubBackend struct {
	data map[string][]byte
	err  error
	sel  SecretVolumeSelector
}

func (b *stubBackend) GetSecretData(ctx context.Context, sel SecretVolumeSelector) (map[string][]byte, error) {
	b.sel = sel
	return b.data, b.err
}

func validVolumeContext() map[string]string {
	return map[string]string{
		"secrets.stackable.tech/class":                  "kerberos-tls",
		"secrets.stackable.tech/kerberos.service.names": "HTTP",
		"csi.storage.k8s.io/pod.name":                   "airflow-0",
		"csi.storage.k8s.io/pod.namespace":              "default",
	}
}

func TestNodePublishVolumeWritesFiles(t *testing.T) {
	backend := &stubBackend{data: map[string][]byte{
		"keytab":    []byte("keytab-bytes"),
		"krb5.conf": []byte("[libdefaults]"),
	}}
	server := newNodeServer(backend, "node-1")

	target := filepath.Join(t.TempDir(), "volume")
	_, err := server.NodePublishVolume(context.Background(), &csi.NodePublishVolumeRequest{
		VolumeId:      "vol-1",
		TargetPath:    target,
		VolumeContext: validVolumeContext(),
	})
	require.NoError(t, err)

	keytab, err := os.ReadFile(filepath.Join(target, "keytab"))
	require.NoError(t, err)
	assert.Equal(t, []byte("keytab-bytes"), keytab)

	conf, err := os.ReadFile(filepath.Join(target, "krb5.conf"))
	require.NoError(t, err)
	assert.Equal(t, []byte("[libdefaults]"), conf)

	assert.Equal(t, "airflow-0", backend.sel.Pod)
}

func TestNodePublishVolumeInvalidSelector(t *testing.T) {
	server := newNodeServer(&stubBackend{}, "node-1")

	_, err := server.NodePublishVolume(context.Background(), &csi.NodePublishVolumeRequest{
		VolumeId:      "vol-1",
		TargetPath:    t.TempDir(),
		VolumeContext: map[string]string{},
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestNodePublishVolumeBackendError(t *testing.T) {
	backend := &stubBackend{err: errors.New("kadmind unreachable")}
	server := newNodeServer(backend, "node-1")

	_, err := server.NodePublishVolume(context.Background(), &csi.NodePublishVolumeRequest{
		VolumeId:      "vol-1",
		TargetPath:    t.TempDir(),
		VolumeContext: validVolumeContext(),
	})
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))
	// The status message carries the flattened error chain.
	assert.Contains(t, status.Convert(err).Message(), "kadmind unreachable")
}

func TestNodeUnpublishVolume(t *testing.T) {
	target := filepath.Join(t.TempDir(), "volume")
	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "keytab"), []byte("x"), 0o600))

	server := newNodeServer(&stubBackend{}, "node-1")
	_, err := server.NodeUnpublishVolume(context.Background(), &csi.NodeUnpublishVolumeRequest{
		VolumeId:   "vol-1",
		TargetPath: target,
	})
	require.NoError(t, err)
	assert.NoDirExists(t, target)

	// Unpublishing an already-removed volume is fine.
	_, err = server.NodeUnpublishVolume(context.Background(), &csi.NodeUnpublishVolumeRequest{
		VolumeId:   "vol-1",
		TargetPath: target,
	})
	assert.NoError(t, err)
}

func TestNodeUnimplementedEndpoints(t *testing.T) {
	server := newNodeServer(&stubBackend{}, "node-1")
	ctx := context.Background()

	_, err := server.NodeStageVolume(ctx, &csi.NodeStageVolumeRequest{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
	_, err = server.NodeUnstageVolume(ctx, &csi.NodeUnstageVolumeRequest{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
	_, err = server.NodeGetVolumeStats(ctx, &csi.NodeGetVolumeStatsRequest{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
	_, err = server.NodeExpandVolume(ctx, &csi.NodeExpandVolumeRequest{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestNodeGetInfo(t *testing.T) {
	server := newNodeServer(&stubBackend{}, "node-1")
	resp, err := server.NodeGetInfo(context.Background(), &csi.NodeGetInfoRequest{})
	require.NoError(t, err)
	assert.Equal(t, "node-1", resp.NodeId)
}
