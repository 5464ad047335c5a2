package provisioner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/viet-stackable/secret-operator/internal/logger"
	"github.com/viet-stackable/secret-operator/internal/provision"
)

// SecretBackend resolves a volume selector into the files to place in the
// volume, keyed by their relative path under the target directory.
type SecretBackend interface {
	GetSecretData(ctx context.Context, sel SecretVolumeSelector) (map[string][]byte, error)
}

// KerberosBackend issues keytabs for the principals a volume asks for.
//
// Each mount receives a keytab with one principal per requested service name,
// plus a krb5.conf pointing at the configured KDC. Keys come from the
// provisioner's credential cache, so every pod of a service gets the same
// keytab.
type KerberosBackend struct {
	// krb serializes all native use of the krb5 context, shared with the
	// kadmin session and any other component holding the same context.
	krb         *provision.SharedContext
	provisioner *provision.Provisioner

	realm       string
	kdc         string
	adminServer string
}

// NewKerberosBackend builds a backend over an established provisioner. The
// krb5 context stays owned by the caller.
func NewKerberosBackend(krb *provision.SharedContext, p *provision.Provisioner, realm, kdc, adminServer string) *KerberosBackend {
	return &KerberosBackend{
		krb:         krb,
		provisioner: p,
		realm:       realm,
		kdc:         kdc,
		adminServer: adminServer,
	}
}

// PrincipalsFor returns the principals to provision for a selector, one per
// requested Kerberos service name.
func (b *KerberosBackend) PrincipalsFor(sel SecretVolumeSelector) []string {
	principals := make([]string, 0, len(sel.KerberosServiceNames))
	for _, service := range sel.KerberosServiceNames {
		principals = append(principals,
			fmt.Sprintf("%s/%s.%s.svc.cluster.local@%s", service, sel.Pod, sel.Namespace, b.realm))
	}
	return principals
}

func (b *KerberosBackend) GetSecretData(ctx context.Context, sel SecretVolumeSelector) (map[string][]byte, error) {
	principals := b.PrincipalsFor(sel)
	if len(principals) == 0 {
		return nil, fmt.Errorf("volume requests no Kerberos service names")
	}

	keys := make(map[string]provision.KeySet, len(principals))
	for _, principal := range principals {
		set, err := b.provisioner.PrincipalKeys(ctx, principal)
		if err != nil {
			return nil, fmt.Errorf("failed to provision principal %q: %w", principal, err)
		}
		keys[principal] = set
	}

	keytab, err := b.renderKeytab(ctx, keys)
	if err != nil {
		return nil, err
	}

	logger.Info("issued keytab",
		"pod", sel.Pod,
		"namespace", sel.Namespace,
		"principals", principals,
	)
	return map[string][]byte{
		"keytab":    keytab,
		"krb5.conf": b.renderKrb5Conf(),
	}, nil
}

// renderKeytab writes the key sets into a scratch file and returns its
// contents. libkrb5 only writes keytabs to files, so the round-trip through
// the filesystem is unavoidable.
func (b *KerberosBackend) renderKeytab(ctx context.Context, keys map[string]provision.KeySet) ([]byte, error) {
	dir, err := os.MkdirTemp("", "secret-operator-keytab-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "keytab")
	krb := b.krb.Acquire()
	err = b.provisioner.WriteKeytab(ctx, krb, keys, path)
	b.krb.Release()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keytab back: %w", err)
	}
	return data, nil
}

func (b *KerberosBackend) renderKrb5Conf() []byte {
	return fmt.Appendf(nil, `[libdefaults]
default_realm = %s
rdns = false
dns_canonicalize_hostname = false
udp_preference_limit = 1

[realms]
%s = {
  kdc = %s
  admin_server = %s
}
`, b.realm, b.realm, b.kdc, b.adminServer)
}
