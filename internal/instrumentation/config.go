package instrumentation

import "fmt"

// Exporter names accepted in Config.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Label values shared by the recorders in metrics.go.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"
	OAuthResultExpired = "expired"

	ServiceGmail = "gmail"

	OperationList        = "list"
	OperationGet         = "get"
	OperationModify      = "modify"
	OperationBatchModify = "batch_modify"
)

// Config selects the telemetry pipeline. The zero value is disabled.
type Config struct {
	ServiceName    string
	ServiceVersion string

	Enabled bool

	// MetricsExporter is prometheus, otlp or stdout. Empty means prometheus.
	MetricsExporter string

	// TracingExporter is otlp, stdout or none. Empty means none.
	TracingExporter string

	// OTLPEndpoint is host:port of the collector's HTTP receiver.
	OTLPEndpoint string
	OTLPInsecure bool

	// SamplingRate is the fraction of root spans kept, 0 to 1.
	SamplingRate float64
}

func (c Config) metricsExporter() string {
	if c.MetricsExporter == "" {
		return ExporterPrometheus
	}
	return c.MetricsExporter
}

func (c Config) tracingExporter() string {
	if c.TracingExporter == "" {
		return ExporterNone
	}
	return c.TracingExporter
}

// Validate checks exporter names, the sampling rate and the OTLP endpoint.
func (c Config) Validate() error {
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %v", c.SamplingRate)
	}

	needEndpoint := false
	switch c.metricsExporter() {
	case ExporterPrometheus, ExporterStdout:
	case ExporterOTLP:
		needEndpoint = true
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}
	switch c.tracingExporter() {
	case ExporterNone, ExporterStdout:
	case ExporterOTLP:
		needEndpoint = true
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if needEndpoint && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when an exporter is set to otlp")
	}
	return nil
}
