// Package provisioner exposes secret provisioning to the kubelet as a CSI
// driver on a unix socket.
package provisioner

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/container-storage-interface/spec/lib/go/csi"
	"google.golang.org/grpc"

	"github.com/viet-stackable/secret-operator/internal/logger"
)

// Server serves the CSI Identity and Node services on a unix socket.
type Server struct {
	endpoint string
	backend  SecretBackend
	nodeID   string
	version  string
}

// NewServer builds a CSI server (not yet listening). endpoint is the path of
// the unix socket to bind.
func NewServer(endpoint string, backend SecretBackend, nodeID, version string) *Server {
	return &Server{
		endpoint: endpoint,
		backend:  backend,
		nodeID:   nodeID,
		version:  version,
	}
}

// Run listens on the unix socket and serves until ctx is cancelled, then
// stops gracefully. A stale socket file left over from a previous run is
// removed before binding.
func (s *Server) Run(ctx context.Context) error {
	if err := removeStaleSocket(s.endpoint); err != nil {
		return err
	}

	listener, err := net.Listen("unix", s.endpoint)
	if err != nil {
		return fmt.Errorf("failed to bind CSI endpoint %s: %w", s.endpoint, err)
	}

	grpcServer := grpc.NewServer()
	csi.RegisterIdentityServer(grpcServer, newIdentityServer(s.version))
	csi.RegisterNodeServer(grpcServer, newNodeServer(s.backend, s.nodeID))

	go func() {
		<-ctx.Done()
		logger.Info("shutting down CSI server", "endpoint", s.endpoint)
		grpcServer.GracefulStop()
	}()

	logger.Info("CSI server listening", "endpoint", s.endpoint, "node_id", s.nodeID)
	return grpcServer.Serve(listener)
}

// removeStaleSocket removes the endpoint path if it is a leftover socket.
// Anything else at that path is an error rather than something to delete.
func removeStaleSocket(endpoint string) error {
	info, err := os.Lstat(endpoint)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to inspect CSI endpoint %s: %w", endpoint, err)
	}
	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("CSI endpoint %s exists and is not a socket", endpoint)
	}
	if err := os.Remove(endpoint); err != nil {
		return fmt.Errorf("failed to remove stale socket %s: %w", endpoint, err)
	}
	return nil
}
