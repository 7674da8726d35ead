// Package browser opens URLs for command side effects.
package browser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	pkgbrowser "github.com/pkg/browser"
)

// mu guards the package-level output writers of pkg/browser.
var mu sync.Mutex

// System opens URLs with the platform's default handler. Output from the
// handler is forwarded to Logger.
type System struct {
	Logger *slog.Logger
}

func (s System) Open(ctx context.Context, url string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &logWriter{ctx: ctx, logger: logger.With("url", url)}

	mu.Lock()
	defer mu.Unlock()
	pkgbrowser.Stdout, pkgbrowser.Stderr = w, w
	if err := pkgbrowser.OpenURL(url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	w.flush()
	return nil
}

// logWriter turns handler output into one debug record per line.
type logWriter struct {
	ctx    context.Context
	logger *slog.Logger
	buf    []byte
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *logWriter) flush() {
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *logWriter) emit(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	w.logger.DebugContext(w.ctx, "opener output", "line", string(line))
}

// Print writes URLs instead of opening them.
type Print struct {
	W io.Writer
}

func (p Print) Open(_ context.Context, url string) error {
	_, err := fmt.Fprintf(p.W, "abrir: %s\n", url)
	return err
}
