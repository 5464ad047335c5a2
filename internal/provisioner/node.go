package provisioner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/container-storage-interface/spec/lib/go/csi"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/viet-stackable/secret-operator/internal/logger"
	"github.com/viet-stackable/secret-operator/internal/telemetry"
)

// nodeServer implements the CSI Node service. Only publish and unpublish do
// real work; staging, stats and expansion do not apply to secret volumes.
type nodeServer struct {
	csi.UnimplementedNodeServer
	backend SecretBackend
	nodeID  string
}

func newNodeServer(backend SecretBackend, nodeID string) *nodeServer {
	return &nodeServer{backend: backend, nodeID: nodeID}
}

func (s *nodeServer) NodePublishVolume(ctx context.Context, req *csi.NodePublishVolumeRequest) (*csi.NodePublishVolumeResponse, error) {
	requestID := uuid.NewString()
	targetPath := req.GetTargetPath()
	if targetPath == "" {
		return nil, status.Error(codes.InvalidArgument, "target path is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "provisioner.NodePublishVolume",
		telemetry.WithVolume(req.GetVolumeId(), targetPath))
	defer span.End()

	logger.Info("received NodePublishVolume request",
		"request_id", requestID,
		"volume_id", req.GetVolumeId(),
		"target_path", targetPath,
	)

	sel, err := ParseSelector(req.GetVolumeContext())
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, publishStatus(err)
	}

	data, err := s.backend.GetSecretData(ctx, sel)
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.Error("failed to get secret data",
			"request_id", requestID,
			"pod", sel.Pod,
			"namespace", sel.Namespace,
			"error", err,
		)
		return nil, publishStatus(fmt.Errorf("backend failed to get secret data: %w", err))
	}

	if err := saveSecretData(targetPath, data); err != nil {
		telemetry.RecordError(ctx, err)
		return nil, publishStatus(err)
	}

	logger.Info("published secret volume",
		"request_id", requestID,
		"target_path", targetPath,
		"files", len(data),
	)
	return &csi.NodePublishVolumeResponse{}, nil
}

func (s *nodeServer) NodeUnpublishVolume(ctx context.Context, req *csi.NodeUnpublishVolumeRequest) (*csi.NodeUnpublishVolumeResponse, error) {
	targetPath := req.GetTargetPath()
	if targetPath == "" {
		return nil, status.Error(codes.InvalidArgument, "target path is required")
	}

	logger.Info("received NodeUnpublishVolume request", "target_path", targetPath)
	if err := os.RemoveAll(targetPath); err != nil {
		return nil, status.Errorf(codes.Unavailable, "failed to clean up volume mount directory %s: %v", targetPath, err)
	}
	return &csi.NodeUnpublishVolumeResponse{}, nil
}

func (s *nodeServer) NodeGetInfo(ctx context.Context, req *csi.NodeGetInfoRequest) (*csi.NodeGetInfoResponse, error) {
	return &csi.NodeGetInfoResponse{
		NodeId:            s.nodeID,
		MaxVolumesPerNode: math.MaxInt64,
	}, nil
}

func (s *nodeServer) NodeGetCapabilities(ctx context.Context, req *csi.NodeGetCapabilitiesRequest) (*csi.NodeGetCapabilitiesResponse, error) {
	return &csi.NodeGetCapabilitiesResponse{}, nil
}

func (s *nodeServer) NodeStageVolume(ctx context.Context, req *csi.NodeStageVolumeRequest) (*csi.NodeStageVolumeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "endpoint not implemented")
}

func (s *nodeServer) NodeUnstageVolume(ctx context.Context, req *csi.NodeUnstageVolumeRequest) (*csi.NodeUnstageVolumeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "endpoint not implemented")
}

func (s *nodeServer) NodeGetVolumeStats(ctx context.Context, req *csi.NodeGetVolumeStatsRequest) (*csi.NodeGetVolumeStatsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "endpoint not implemented")
}

func (s *nodeServer) NodeExpandVolume(ctx context.Context, req *csi.NodeExpandVolumeRequest) (*csi.NodeExpandVolumeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "endpoint not implemented")
}

// saveSecretData writes each file under the target path, creating parent
// directories as needed.
func saveSecretData(targetPath string, data map[string][]byte) error {
	for name, contents := range data {
		itemPath := filepath.Join(targetPath, name)
		if err := os.MkdirAll(filepath.Dir(itemPath), 0o755); err != nil {
			return fmt.Errorf("failed to create secret parent dir %s: %w", filepath.Dir(itemPath), err)
		}
		if err := os.WriteFile(itemPath, contents, 0o600); err != nil {
			return fmt.Errorf("failed to write secret file %s: %w", itemPath, err)
		}
	}
	return nil
}

// publishStatus maps a publish error onto a gRPC status: selector problems
// are the caller's fault, everything else is retryable on the next request.
func publishStatus(err error) error {
	var selErr *SelectorError
	if errors.As(err, &selErr) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Unavailable, err.Error())
}
