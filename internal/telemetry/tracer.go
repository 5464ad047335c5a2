package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for secret provisioning operations.
// Keys follow OpenTelemetry semantic conventions where applicable.
const (
	// Volume attributes
	AttrVolumeID   = "csi.volume_id"
	AttrTargetPath = "csi.target_path"
	AttrPodName    = "csi.pod_name"
	AttrNamespace  = "csi.pod_namespace"

	// Kerberos attributes
	AttrRealm       = "kerberos.realm"
	AttrPrincipal   = "kerberos.principal"
	AttrKvno        = "kerberos.kvno"
	AttrAdminServer = "kerberos.admin_server"

	// Credential cache attributes
	AttrCacheSecret = "cache.secret"
	AttrCacheKey    = "cache.key"
	AttrCacheHit    = "cache.hit"
)

// WithVolume returns span options carrying the CSI volume identity.
func WithVolume(volumeID, targetPath string) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String(AttrVolumeID, volumeID),
		attribute.String(AttrTargetPath, targetPath),
	)
}

// WithPrincipal returns span options carrying the Kerberos principal.
func WithPrincipal(principal string) trace.SpanStartOption {
	return trace.WithAttributes(attribute.String(AttrPrincipal, principal))
}
