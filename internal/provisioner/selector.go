package provisioner

import (
	"fmt"
	"strings"
)

// Volume context keys set by the kubelet and by the volume definition.
const (
	ctxKeyPodName      = "csi.storage.k8s.io/pod.name"
	ctxKeyPodNamespace = "csi.storage.k8s.io/pod.namespace"
	ctxKeyClass        = "secrets.stackable.tech/class"
	ctxKeyServiceNames = "secrets.stackable.tech/kerberos.service.names"
)

// SecretVolumeSelector describes which secret a volume mount asks for,
// decoded from the CSI volume context.
type SecretVolumeSelector struct {
	// Class names the secret class backing this volume.
	Class string

	// Pod and Namespace identify the workload the secret is issued for.
	Pod       string
	Namespace string

	// KerberosServiceNames lists the service name parts of the principals to
	// provision (e.g. "HTTP", "nn").
	KerberosServiceNames []string
}

// SelectorError reports a volume context that cannot be decoded.
type SelectorError struct {
	Field string
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("failed to parse selector from volume context: missing %s", e.Field)
}

// ParseSelector decodes a SecretVolumeSelector from a CSI volume context.
func ParseSelector(volumeContext map[string]string) (SecretVolumeSelector, error) {
	sel := SecretVolumeSelector{
		Class:     volumeContext[ctxKeyClass],
		Pod:       volumeContext[ctxKeyPodName],
		Namespace: volumeContext[ctxKeyPodNamespace],
	}
	if sel.Class == "" {
		return SecretVolumeSelector{}, &SelectorError{Field: ctxKeyClass}
	}
	if sel.Pod == "" {
		return SecretVolumeSelector{}, &SelectorError{Field: ctxKeyPodName}
	}
	if sel.Namespace == "" {
		return SecretVolumeSelector{}, &SelectorError{Field: ctxKeyPodNamespace}
	}

	if names := volumeContext[ctxKeyServiceNames]; names != "" {
		for _, name := range strings.Split(names, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				sel.KerberosServiceNames = append(sel.KerberosServiceNames, name)
			}
		}
	}
	return sel, nil
}
