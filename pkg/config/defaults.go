package config

import "github.com/viet-stackable/secret-operator/internal/logger"

// DefaultConfig returns the configuration used when nothing else is set.
// Kerberos realm and admin settings have no sane default and must be
// provided; everything else works out of the box in a cluster deployment.
func DefaultConfig() *Config {
	return &Config{
		Logging: logger.Config{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
		Telemetry: TelemetryConfig{
			Enabled:    false,
			Endpoint:   "localhost:4317",
			Insecure:   true,
			SampleRate: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
		Kerberos: KerberosConfig{
			AdminPrincipal: "stackable-secret-operator",
			Krb5ConfPath:   "/etc/krb5.conf",
		},
		CSI: CSIConfig{
			Endpoint: "/var/lib/kubelet/plugins/secrets.stackable.tech/csi.sock",
			NodeID:   "",
		},
		Cache: CacheConfig{
			SecretName:      "secret-provisioner-keytab-cache",
			SecretNamespace: "default",
		},
	}
}
