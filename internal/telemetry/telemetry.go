// Package telemetry installs the global OpenTelemetry log and trace
// providers. Records and spans are written as JSON lines to the
// diagnostics writer, next to the slog output.
package telemetry

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	once   sync.Once
	out    = &switchWriter{w: io.Discard}
	lp     *sdklog.LoggerProvider
	tp     *sdktrace.TracerProvider
	setErr error
)

// Setup points the global providers at w. The providers are installed on
// the first call; later calls only redirect their output.
func Setup(w io.Writer) error {
	once.Do(func() {
		logExp, err := stdoutlog.New(stdoutlog.WithWriter(out))
		if err != nil {
			setErr = err
			return
		}
		traceExp, err := stdouttrace.New(stdouttrace.WithWriter(out))
		if err != nil {
			setErr = err
			return
		}
		lp = sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(logExp)))
		tp = sdktrace.NewTracerProvider(sdktrace.WithSyncer(traceExp))
		global.SetLoggerProvider(lp)
		otel.SetTracerProvider(tp)
	})
	if setErr != nil {
		return setErr
	}
	out.set(w)
	return nil
}

// Shutdown flushes the providers.
func Shutdown(ctx context.Context) error {
	if lp == nil {
		return nil
	}
	return errors.Join(tp.ForceFlush(ctx), lp.ForceFlush(ctx))
}

// switchWriter lets the exporters outlive the file they were created for.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
