// Package config loads and validates the operator configuration from file,
// environment and defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	krb5config "github.com/jcmturner/gokrb5/v8/config"
	"github.com/spf13/viper"

	"github.com/viet-stackable/secret-operator/internal/logger"
)

// Config is the root configuration of the secret operator.
type Config struct {
	Logging   logger.Config   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Kerberos  KerberosConfig  `mapstructure:"kerberos" yaml:"kerberos"`
	CSI       CSIConfig       `mapstructure:"csi" yaml:"csi"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
}

// TelemetryConfig configures the OTLP trace exporter.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address"`
}

// KerberosConfig describes the realm the operator provisions principals in
// and the identity it administers with.
type KerberosConfig struct {
	// Realm is the Kerberos realm, e.g. "CLUSTER.LOCAL".
	Realm string `mapstructure:"realm" yaml:"realm"`

	// KDC is the host (and optional port) of the KDC, written into issued
	// krb5.conf files.
	KDC string `mapstructure:"kdc" yaml:"kdc"`

	// AdminServer is the host of the kadmin server.
	AdminServer string `mapstructure:"admin_server" yaml:"admin_server"`

	// AdminPrincipal is the principal the operator authenticates as.
	AdminPrincipal string `mapstructure:"admin_principal" yaml:"admin_principal"`

	// AdminKeytabPath is the keytab holding AdminPrincipal's key.
	AdminKeytabPath string `mapstructure:"admin_keytab_path" yaml:"admin_keytab_path"`

	// Krb5ConfPath points at the krb5.conf the operator itself uses.
	Krb5ConfPath string `mapstructure:"krb5_conf_path" yaml:"krb5_conf_path"`
}

// CSIConfig configures the CSI driver endpoint.
type CSIConfig struct {
	// Endpoint is the path of the unix socket the kubelet connects to.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// NodeID is the node name reported to the kubelet.
	NodeID string `mapstructure:"node_id" yaml:"node_id"`
}

// CacheConfig names the Secret backing the credential cache.
type CacheConfig struct {
	SecretName      string `mapstructure:"secret_name" yaml:"secret_name"`
	SecretNamespace string `mapstructure:"secret_namespace" yaml:"secret_namespace"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SECRET_OPERATOR_*)
//  2. Configuration file
//  3. Default values
//
// configPath may be empty, in which case only environment variables and
// defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// setupViper configures environment variable support and defaults.
// Environment variables use the SECRET_OPERATOR_ prefix with underscores,
// e.g. SECRET_OPERATOR_KERBEROS_REALM=CLUSTER.LOCAL.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SECRET_OPERATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	// Defaults double as the key registry for AutomaticEnv.
	defaults := DefaultConfig()
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.output", defaults.Logging.Output)
	v.SetDefault("telemetry.enabled", defaults.Telemetry.Enabled)
	v.SetDefault("telemetry.endpoint", defaults.Telemetry.Endpoint)
	v.SetDefault("telemetry.insecure", defaults.Telemetry.Insecure)
	v.SetDefault("telemetry.sample_rate", defaults.Telemetry.SampleRate)
	v.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	v.SetDefault("metrics.address", defaults.Metrics.Address)
	v.SetDefault("kerberos.realm", defaults.Kerberos.Realm)
	v.SetDefault("kerberos.kdc", defaults.Kerberos.KDC)
	v.SetDefault("kerberos.admin_server", defaults.Kerberos.AdminServer)
	v.SetDefault("kerberos.admin_principal", defaults.Kerberos.AdminPrincipal)
	v.SetDefault("kerberos.admin_keytab_path", defaults.Kerberos.AdminKeytabPath)
	v.SetDefault("kerberos.krb5_conf_path", defaults.Kerberos.Krb5ConfPath)
	v.SetDefault("csi.endpoint", defaults.CSI.Endpoint)
	v.SetDefault("csi.node_id", defaults.CSI.NodeID)
	v.SetDefault("cache.secret_name", defaults.Cache.SecretName)
	v.SetDefault("cache.secret_namespace", defaults.Cache.SecretNamespace)
}

// Validate checks the configuration for values the operator cannot run
// without, and parses the referenced krb5.conf to fail early on typos.
func Validate(cfg *Config) error {
	if cfg.Kerberos.Realm == "" {
		return fmt.Errorf("kerberos.realm is required")
	}
	if cfg.Kerberos.AdminServer == "" {
		return fmt.Errorf("kerberos.admin_server is required")
	}
	if cfg.Kerberos.AdminPrincipal == "" {
		return fmt.Errorf("kerberos.admin_principal is required")
	}
	if cfg.Kerberos.AdminKeytabPath == "" {
		return fmt.Errorf("kerberos.admin_keytab_path is required")
	}
	if cfg.CSI.Endpoint == "" {
		return fmt.Errorf("csi.endpoint is required")
	}
	if cfg.Cache.SecretName == "" || cfg.Cache.SecretNamespace == "" {
		return fmt.Errorf("cache.secret_name and cache.secret_namespace are required")
	}
	if cfg.Telemetry.SampleRate < 0 || cfg.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be between 0.0 and 1.0")
	}

	if path := cfg.Kerberos.Krb5ConfPath; path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := krb5config.Load(path); err != nil {
				return fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}
	return nil
}
