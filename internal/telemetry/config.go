package telemetry

// Config controls the OTLP trace exporter.
type Config struct {
	// Enabled turns tracing on. When false Init installs a noop provider.
	Enabled bool

	// ServiceName identifies this process to the trace backend.
	ServiceName string

	// ServiceVersion is reported alongside the service name.
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector address, host:port.
	Endpoint string

	// Insecure disables TLS on the exporter connection.
	Insecure bool

	// SampleRate is the fraction of traces to sample, 0.0 to 1.0.
	SampleRate float64
}

// DefaultConfig returns a disabled tracing configuration pointed at a
// local collector.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "secret-operator",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
