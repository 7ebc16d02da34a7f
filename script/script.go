// Package script runs a command-line program with the standard process
// setup: flags, env files, logging, optional OpenTelemetry export and
// signal-driven shutdown. The callback's error decides the exit code.
package script

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/amp-labs/amp-fsm/envutil"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/shutdown"
	"github.com/amp-labs/amp-fsm/telemetry"
)

const telemetryFlushTimeout = 5 * time.Second

// Option is a function that configures a Script.
type Option func(script *Script)

// Exit returns an error that will cause the script to exit with the given code.
// Use this to exit with a specific code without logging an error.
func Exit(code int) error {
	return &exitError{code: code}
}

// ExitWithError returns an error that will cause the script to exit with
// code 1 and log err.
func ExitWithError(err error) error {
	return &exitError{err: err, code: 1}
}

// ExitWithErrorMessage is ExitWithError with a formatted message.
func ExitWithErrorMessage(msg string, args ...any) error {
	return &exitError{
		err:  fmt.Errorf(msg, args...), //nolint:err113
		code: 1,
	}
}

type exitError struct {
	err  error
	code int
}

func (e *exitError) Error() string {
	msg := "exit " + strconv.FormatInt(int64(e.code), 10)

	if e.err != nil {
		return msg + ": " + e.err.Error()
	}

	return msg
}

func (e *exitError) Unwrap() error {
	return e.err
}

// LogLevel sets the minimum log level for the script's logger.
func LogLevel(lvl slog.Level) Option {
	return func(script *Script) {
		script.loggerOpts = append(script.loggerOpts, func(options *logger.Options) {
			options.MinLevel = lvl
		})
	}
}

// LogOutput sets the output writer for the script's logger.
func LogOutput(writer io.Writer) Option {
	return func(script *Script) {
		script.loggerOpts = append(script.loggerOpts, func(options *logger.Options) {
			options.Output = writer
		})
	}
}

// EnableFlagParse controls whether flag.Parse() is called before running
// the script. Defaults to true.
func EnableFlagParse(enabled bool) Option {
	return func(script *Script) {
		script.flagParseEnable = enabled
	}
}

// WithEnvFiles loads the given files into the process environment before
// anything reads it. Later files override earlier ones; missing files are
// skipped.
func WithEnvFiles(paths ...string) Option {
	return func(script *Script) {
		script.envFiles = append(script.envFiles, paths...)
	}
}

// WithTelemetry turns on OTLP trace and log export, configured from the
// OTEL_* variables.
func WithTelemetry(environment string) Option {
	return func(script *Script) {
		script.telemetryEnv = environment
	}
}

// Script represents a runnable program with configured logging and signal
// handling.
type Script struct {
	name            string
	flagParseEnable bool
	envFiles        []string
	telemetryEnv    string
	loggerOpts      []logger.Option
}

// New creates a new Script with the given name and options.
func New(scriptName string, opts ...Option) *Script {
	script := &Script{
		name:            scriptName,
		flagParseEnable: true,
	}

	for _, opt := range opts {
		opt(script)
	}

	return script
}

// Run executes f and exits the process with the resulting code. The context
// passed to f is canceled on SIGINT or SIGTERM, after shutdown hooks ran.
func (r *Script) Run(f func(ctx context.Context) error) {
	os.Exit(r.run(context.Background(), f))
}

func (r *Script) run(parent context.Context, callback func(ctx context.Context) error) int {
	if r.flagParseEnable {
		flag.Parse()
	}

	loadErrs := loadEnvFiles(r.envFiles)

	base, stop := context.WithCancel(logger.WithSubsystem(parent, r.name))
	root := shutdown.SetupHandler(base)

	// Returning normally runs the shutdown hooks too.
	defer func() {
		stop()
		<-root.Done()
	}()

	ctx := root

	opts := r.loggerOpts

	if r.telemetryEnv != "" {
		extra, err := startTelemetry(ctx, r.telemetryEnv)
		if err != nil {
			loadErrs = append(loadErrs, err)
		} else if extra != nil {
			opts = append([]logger.Option{logger.WithExtraHandler(extra)}, opts...)
		}
	}

	_ = logger.ConfigureLogging(ctx, r.name, opts...)

	log := logger.Get(ctx)

	for _, err := range loadErrs {
		log.Warn("startup problem, continuing", "error", err)
	}

	if callback == nil {
		log.Error("callback is nil")

		return 1
	}

	return exitCode(log, callback(ctx))
}

func exitCode(log *slog.Logger, err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exitError

	if errors.As(err, &exitErr) {
		if exitErr.code != 0 {
			log.Error("error running script", "error", err)
		}

		return exitErr.code
	}

	log.Error("error running script", "error", err)

	return 1
}

func loadEnvFiles(paths []string) []error {
	var errs []error

	for _, path := range paths {
		vars, err := envutil.LoadEnvFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("loading %s: %w", path, err))
			}

			continue
		}

		for key, value := range vars {
			if err := os.Setenv(key, value); err != nil {
				errs = append(errs, fmt.Errorf("setting %s from %s: %w", key, path, err))
			}
		}
	}

	return errs
}

func startTelemetry(ctx context.Context, environment string) (slog.Handler, error) {
	cfg, err := telemetry.LoadConfigFromEnv(ctx, environment)
	if err != nil {
		return nil, err
	}

	if err := telemetry.Initialize(ctx, cfg); err != nil {
		return nil, err
	}

	handler, err := telemetry.InitializeLogs(ctx, cfg)
	if err != nil {
		return nil, err
	}

	shutdown.BeforeShutdown("telemetry", func(ctx context.Context) {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryFlushTimeout)
		defer cancel()

		if err := telemetry.Shutdown(flushCtx); err != nil {
			logger.Get(ctx).Warn("telemetry shutdown failed", "error", err)
		}
	})

	return handler, nil
}
