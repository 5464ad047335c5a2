package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/viet-stackable/secret-operator/internal/credcache"
	"github.com/viet-stackable/secret-operator/internal/logger"
	"github.com/viet-stackable/secret-operator/internal/provision"
	"github.com/viet-stackable/secret-operator/internal/provisioner"
	"github.com/viet-stackable/secret-operator/internal/telemetry"
	"github.com/viet-stackable/secret-operator/pkg/config"
	"github.com/viet-stackable/secret-operator/pkg/krb5"
	"github.com/viet-stackable/secret-operator/pkg/krb5/kadm5"
	"github.com/viet-stackable/secret-operator/pkg/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the CSI driver",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func run() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "secret-operator",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	var cacheMetrics *metrics.CredentialCacheMetrics
	var provisionMetrics *metrics.ProvisionMetrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		cacheMetrics = metrics.NewCredentialCacheMetrics()
		provisionMetrics = metrics.NewProvisionMetrics()
		startMetricsServer(ctx, cfg.Metrics.Address)
	}

	client, err := newKubeClient()
	if err != nil {
		return fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	cache, err := credcache.New(ctx, "keytab", client, credcache.SecretReference{
		Namespace: cfg.Cache.SecretNamespace,
		Name:      cfg.Cache.SecretName,
	}, cacheMetrics)
	if err != nil {
		return err
	}

	krbCtx, profile, err := newKrbContext(cfg.Kerberos.Krb5ConfPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := krbCtx.Close(); err != nil {
			logger.Error("krb5 context teardown error", "error", err)
		}
		if profile != nil {
			if err := profile.Close(); err != nil {
				logger.Error("krb5 profile teardown error", "error", err)
			}
		}
	}()

	// Every component sharing the krb5 context serializes its native calls
	// through this one lock.
	shared := provision.NewSharedContext(krbCtx)

	admin, err := provision.NewKadminAdmin(shared, func(krb *krb5.Context) (*kadm5.ServerHandle, error) {
		return kadm5.Connect(krb,
			cfg.Kerberos.AdminPrincipal,
			"",
			kadm5.ServiceKeyCredential{KeytabPath: cfg.Kerberos.AdminKeytabPath},
			kadm5.ConfigParams{
				DefaultRealm: cfg.Kerberos.Realm,
				AdminServer:  cfg.Kerberos.AdminServer,
			})
	})
	if err != nil {
		return fmt.Errorf("failed to connect to kadmin server %s: %w", cfg.Kerberos.AdminServer, err)
	}

	watcher := provision.NewAdminKeytabWatcher(cfg.Kerberos.AdminKeytabPath, admin.Reconnect)
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	p := provision.NewProvisioner(admin, cache, provisionMetrics)
	backend := provisioner.NewKerberosBackend(shared, p,
		cfg.Kerberos.Realm, cfg.Kerberos.KDC, cfg.Kerberos.AdminServer)

	nodeID := cfg.CSI.NodeID
	if nodeID == "" {
		if nodeID, err = os.Hostname(); err != nil {
			return fmt.Errorf("failed to determine node id: %w", err)
		}
	}

	logger.Info("starting secret operator",
		"version", Version,
		"realm", cfg.Kerberos.Realm,
		"admin_server", cfg.Kerberos.AdminServer,
		"cache_secret", cfg.Cache.SecretNamespace+"/"+cfg.Cache.SecretName,
	)
	return provisioner.NewServer(cfg.CSI.Endpoint, backend, nodeID, Version).Run(ctx)
}

// newKubeClient prefers the in-cluster service account and falls back to the
// local kubeconfig for development.
func newKubeClient() (kubernetes.Interface, error) {
	restCfg, err := rest.InClusterConfig()
	if err != nil {
		restCfg, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			clientcmd.NewDefaultClientConfigLoadingRules(),
			&clientcmd.ConfigOverrides{},
		).ClientConfig()
		if err != nil {
			return nil, err
		}
	}
	return kubernetes.NewForConfig(restCfg)
}

// newKrbContext builds the libkrb5 context, from an explicit profile when
// configured and from the library defaults otherwise.
func newKrbContext(krb5ConfPath string) (*krb5.Context, *krb5.Profile, error) {
	if krb5ConfPath == "" {
		ctx, err := krb5.New()
		return ctx, nil, err
	}
	profile, err := krb5.NewProfile(krb5ConfPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", krb5ConfPath, err)
	}
	ctx, err := krb5.NewFromProfile(profile)
	if err != nil {
		profile.Close()
		return nil, nil, err
	}
	return ctx, profile, nil
}

// startMetricsServer serves the Prometheus endpoint until ctx is cancelled.
func startMetricsServer(ctx context.Context, address string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{Addr: address, Handler: mux}

	go func() {
		logger.Info("metrics server listening", "address", address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}()
}
