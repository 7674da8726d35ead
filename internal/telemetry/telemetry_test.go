package telemetry_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/fakeyudi/elizabet/internal/command"
	"github.com/fakeyudi/elizabet/internal/telemetry"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type failingOpener struct{}

func (failingOpener) Open(context.Context, string) error { return errors.New("no browser") }

type discardSink struct{}

func (discardSink) Append(string) {}

func TestResolverDiagnosticsReachWriter(t *testing.T) {
	first := &lockedBuffer{}
	if err := telemetry.Setup(first); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	r := command.New(command.Options{Opener: failingOpener{}, Log: discardSink{}})
	r.Dispatch(context.Background(), "pesquisar no youtube gatos")

	got := first.String()
	for _, want := range []string{"failed to open resource", "no browser", "dispatch command"} {
		if !strings.Contains(got, want) {
			t.Errorf("diagnostics missing %q:\n%s", want, got)
		}
	}

	// A second Setup redirects the already installed providers.
	second := &lockedBuffer{}
	if err := telemetry.Setup(second); err != nil {
		t.Fatalf("Setup again: %v", err)
	}
	r.Dispatch(context.Background(), "pesquisar no youtube cachorros")
	if !strings.Contains(second.String(), "failed to open resource") {
		t.Errorf("redirected diagnostics missing:\n%s", second.String())
	}
	if strings.Contains(first.String(), "cachorros") {
		t.Error("first writer still receives records after redirect")
	}
	if err := telemetry.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
