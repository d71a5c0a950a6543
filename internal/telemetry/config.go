package telemetry

// Config holds configuration for the tracer
type Config struct {
	// ServiceName is the name of the service
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Environment names the agent environment (linux, windows, ...)
	Environment string

	// Enabled determines whether tracing is enabled.
	// When false, a noop tracer is used.
	Enabled bool

	// Endpoint is the OTLP/HTTP collector endpoint (host:port).
	// If empty, spans are recorded but not exported.
	Endpoint string

	// Insecure disables TLS towards the collector
	Insecure bool

	// SampleRate is the fraction of runs to sample (0.0 to 1.0)
	SampleRate float64

	// Attributes are attached to the trace resource, e.g. the Buildkite
	// build number and the diff under review. Empty values are dropped.
	Attributes map[string]string
}

// DefaultConfig returns the configuration used when no collector is set:
// tracing disabled.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "premerge",
		ServiceVersion: "dev",
		Environment:    "ci",
		Enabled:        false,
		SampleRate:     1.0,
	}
}

// ForEndpoint returns a configuration that exports every run to endpoint.
func ForEndpoint(endpoint string) Config {
	cfg := DefaultConfig()
	cfg.Enabled = endpoint != ""
	cfg.Endpoint = endpoint
	return cfg
}
