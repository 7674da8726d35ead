package settings_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"pgregory.net/rapid"

	"github.com/fakeyudi/elizabet/internal/settings"
)

// Feature: elizabet, settings persistence round-trip
func TestSettingsRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		fs := afero.NewMemMapFs()
		path := "/cfg/elizabet/settings.json"

		store, err := settings.Open(fs, path)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		values := rapid.MapOf(
			rapid.StringMatching(`[a-zA-Z]{1,12}`),
			rapid.String(),
		).Draw(t, "values")

		for k, v := range values {
			if err := store.Set(k, v); err != nil {
				t.Fatalf("Set(%q): %v", k, err)
			}
		}

		reopened, err := settings.Open(fs, path)
		if err != nil {
			t.Fatalf("reopen: %v", err)
		}
		for k, want := range values {
			got, ok := reopened.Get(k)
			if !ok {
				t.Fatalf("key %q missing after reopen", k)
			}
			if got != want {
				t.Fatalf("key %q: want %q, got %q", k, want, got)
			}
		}
	})
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	store, err := settings.Open(afero.NewMemMapFs(), "/nope/settings.json")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := store.Get("wakeWord"); ok {
		t.Error("expected no value in an empty store")
	}
}

func TestOpenMalformedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/s.json", []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := settings.Open(fs, "/s.json"); err == nil {
		t.Fatal("expected a parse error, got nil")
	}
}

func TestSetLeavesNoTempFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := settings.Open(fs, "/cfg/settings.json")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set("wakeWord", "jarvis"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	entries, err := afero.ReadDir(fs, "/cfg")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "settings.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("unexpected directory contents: %v", names)
	}
}

func TestReloadSeesExternalEdits(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := settings.Open(fs, "/s.json")
	if err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/s.json", []byte(`{"wakeWord":"computador"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if v, _ := store.Get("wakeWord"); v != "computador" {
		t.Errorf("want %q, got %q", "computador", v)
	}
}

func TestDefaultPathHonoursXDG(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	path, err := settings.DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(tmp, "elizabet", "settings.json"); path != want {
		t.Errorf("want %q, got %q", want, path)
	}
}

func TestWatchReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- settings.Watch(ctx, path, func() { changed <- struct{}{} })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(200 * time.Millisecond)

	store, err := settings.Open(afero.NewOsFs(), path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set("wakeWord", "jarvis"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported for the settings file")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch: %v", err)
	}
}
