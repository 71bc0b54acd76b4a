package config

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/torosent/pacer/internal/threshold"
)

// CutoverPolicy selects how in-flight requests are handled once the
// completion target is reached.
type CutoverPolicy string

const (
	CutoverStrict CutoverPolicy = "strict"
	CutoverLoose  CutoverPolicy = "loose"
)

type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

// OutputFormat selects how the final report is rendered.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

// highRateWarning is the rps above which Warnings asks the user to confirm
// they are authorized to load the target.
const highRateWarning = 1000

var allowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

// Config is the validated run configuration.
type Config struct {
	TargetURL   string        `mapstructure:"url"`
	Method      string        `mapstructure:"method"`
	Rate        float64       `mapstructure:"rps"`
	Total       int           `mapstructure:"requests"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
	Cutover     CutoverPolicy `mapstructure:"cutover"`
	Arrival     ArrivalModel  `mapstructure:"arrival_model"`
	Retries     int           `mapstructure:"retries"`
	Output      OutputFormat  `mapstructure:"output"`
	LogErrors   bool          `mapstructure:"log_errors"`
	LogLevel    string        `mapstructure:"log_level"`
	Thresholds  []string      `mapstructure:"thresholds"`
	ConfigFile  string        `mapstructure:"-"`
	Tracing     TracingConfig `mapstructure:"tracing"`
}

// TracingConfig configures OpenTelemetry export of per-request spans.
type TracingConfig struct {
	Endpoint           string  `mapstructure:"endpoint"`     // OTLP collector endpoint; empty disables export
	Protocol           string  `mapstructure:"protocol"`     // "grpc" (default) or "http"
	Insecure           bool    `mapstructure:"insecure"`     // plaintext connection to the collector
	ServiceName        string  `mapstructure:"service_name"` // defaults to OTEL_SERVICE_NAME or "pacer"
	SampleRate         float64 `mapstructure:"sample_rate"`  // 0.0-1.0
	DisablePropagation bool    `mapstructure:"disable_propagation"`
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether W3C trace headers are injected into
// outgoing requests.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Enabled() && !t.DisablePropagation
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var issues []string

	target := strings.TrimSpace(c.TargetURL)
	if target == "" {
		issues = append(issues, "url is required (use --help for usage information)")
	} else if u, err := url.Parse(target); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		issues = append(issues, fmt.Sprintf("url %q must be an absolute http or https URL", target))
	}

	if !isAllowedMethod(c.Method) {
		issues = append(issues, fmt.Sprintf("method must be one of %s", strings.Join(allowedMethods, ", ")))
	}
	if c.Rate <= 0 {
		issues = append(issues, "rps must be > 0")
	}
	if c.Total <= 0 {
		issues = append(issues, "requests must be > 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Concurrency < 0 {
		issues = append(issues, "concurrency must be >= 0")
	}
	if c.Retries < 0 {
		issues = append(issues, "retries must be >= 0")
	}

	switch c.Cutover {
	case CutoverStrict, CutoverLoose:
	default:
		issues = append(issues, fmt.Sprintf("cutover %q must be %q or %q", c.Cutover, CutoverStrict, CutoverLoose))
	}
	switch c.Arrival {
	case ArrivalModelUniform, ArrivalModelPoisson:
	default:
		issues = append(issues, fmt.Sprintf("arrival-model %q must be %q or %q", c.Arrival, ArrivalModelUniform, ArrivalModelPoisson))
	}
	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		issues = append(issues, fmt.Sprintf("output %q must be text, json or yaml", c.Output))
	}

	if _, err := threshold.ParseMultiple(c.Thresholds); err != nil {
		issues = append(issues, err.Error())
	}
	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// Warnings returns non-fatal notices about the configuration.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Rate > highRateWarning {
		warnings = append(warnings, fmt.Sprintf("high request rate configured (%g RPS); ensure you have authorization to test the target system", c.Rate))
	}
	if c.Concurrency == 0 && c.Rate > highRateWarning {
		warnings = append(warnings, "in-flight requests are unbounded; consider --concurrency")
	}
	return warnings
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol %q must be grpc or http", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, "tracing sample rate must be between 0.0 and 1.0")
	}
	return issues
}

func isAllowedMethod(method string) bool {
	for _, m := range allowedMethods {
		if method == m {
			return true
		}
	}
	return false
}
