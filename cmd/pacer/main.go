package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/torosent/pacer/internal/config"
	"github.com/torosent/pacer/internal/httpclient"
	"github.com/torosent/pacer/internal/logging"
	"github.com/torosent/pacer/internal/output"
	"github.com/torosent/pacer/internal/runner"
	"github.com/torosent/pacer/internal/threshold"
	"github.com/torosent/pacer/internal/tracing"
)

const (
	baseRetryDelay  = 100 * time.Millisecond
	maxRetryDelay   = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

var errThresholdsFailed = errors.New("one or more thresholds failed")

type jitterSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes one load run. Failed requests are part of the report and do
// not make run return an error; a failed threshold does.
func run(args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, stderr)
	if err != nil {
		return err
	}
	for _, warning := range cfg.Warnings() {
		logger.Warn().Msg(warning)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	client := httpclient.NewClient(cfg.Timeout)
	defer client.CloseIdleConnections()

	var failures runner.FailureLogger
	if cfg.LogErrors {
		failures = logging.NewFailureLogger(logger)
	}
	sender := newSender(httpclient.NewSender(client, provider), cfg.Retries, failures)

	reporter := output.NewReporter(stdout, stderr, toOutputFormat(cfg.Output))
	r := runner.New(runner.Options{
		URL:           cfg.TargetURL,
		Method:        cfg.Method,
		RatePerSecond: cfg.Rate,
		TotalRequests: cfg.Total,
		Concurrency:   cfg.Concurrency,
		Cutover:       toRunnerCutover(cfg.Cutover),
		ArrivalModel:  toRunnerArrivalModel(cfg.Arrival),
		Sender:        sender,
		Reporter:      reporter,
	})

	logger.Debug().
		Str("url", cfg.TargetURL).
		Float64("rps", cfg.Rate).
		Int("requests", cfg.Total).
		Str("cutover", string(cfg.Cutover)).
		Msg("run starting")

	result, err := r.Run(ctx)
	logRunResult(logger, result)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if len(thresholds) > 0 && result.Record.Summary != nil {
		results := threshold.Evaluate(thresholds, *result.Record.Summary)
		reporter.Thresholds(results)
		if !threshold.AllPassed(results) {
			return errThresholdsFailed
		}
	}
	return nil
}

func logRunResult(logger zerolog.Logger, result runner.Result) {
	ev := logger.Debug()
	if result.Dropped > 0 {
		ev = logger.Info()
	}
	ev.Str("run", result.Record.ID).
		Int64("dispatched", result.Dispatched).
		Int64("completed", result.Completed).
		Int64("dropped", result.Dropped).
		Dur("duration", result.Duration).
		Msg("run finished")
}

// newSender applies retries before failure logging, so a tick whose retry
// succeeds logs nothing and a tick that fails logs its final attempt once.
func newSender(base runner.Sender, retries int, failures runner.FailureLogger) runner.Sender {
	sender := base
	if retries > 0 {
		sender = runner.WithRetry(sender, newRetryPolicy(retries))
	}
	if failures != nil {
		sender = runner.WithLogging(sender, failures)
	}
	return sender
}

func toRunnerCutover(policy config.CutoverPolicy) runner.CutoverPolicy {
	if policy == config.CutoverLoose {
		return runner.CutoverLoose
	}
	return runner.CutoverStrict
}

func toRunnerArrivalModel(model config.ArrivalModel) runner.ArrivalModel {
	if model == config.ArrivalModelPoisson {
		return runner.ArrivalModelPoisson
	}
	return runner.ArrivalModelUniform
}

func toOutputFormat(format config.OutputFormat) output.Format {
	switch format {
	case config.OutputJSON:
		return output.FormatJSON
	case config.OutputYAML:
		return output.FormatYAML
	default:
		return output.FormatText
	}
}

// newRetryPolicy retries transport errors, 429 and 5xx with exponential
// backoff plus jitter.
func newRetryPolicy(retries int) runner.RetryPolicy {
	source := &jitterSource{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}

	return runner.RetryPolicy{
		MaxAttempts: retries + 1,
		ShouldRetry: func(status int, err error) bool {
			if err == nil {
				return false
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false
			}
			if status == 0 {
				return true
			}
			return status == http.StatusTooManyRequests || status >= 500
		},
		DelayFunc: func(attempt int, err error) time.Duration {
			if attempt < 1 {
				attempt = 1
			}
			backoff := time.Duration(1<<uint(attempt-1)) * baseRetryDelay
			if backoff > maxRetryDelay {
				backoff = maxRetryDelay
			}
			return backoff + source.jitter(backoff/2)
		},
	}
}

func (j *jitterSource) jitter(max time.Duration) time.Duration {
	if j == nil || max <= 0 {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return time.Duration(j.rnd.Int63n(int64(max)))
}
