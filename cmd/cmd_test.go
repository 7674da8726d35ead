package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/elizabet/internal/assistant"
	"github.com/fakeyudi/elizabet/internal/history"
)

// executeCommand runs a cobra command with the given args and captures combined output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// isolate points every config, data and state directory at a temp dir and
// resets flag variables left over from earlier runs.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", tmp+"/config")
	t.Setenv("XDG_DATA_HOME", tmp+"/data")
	t.Setenv("XDG_STATE_HOME", tmp+"/state")
	t.Chdir(tmp)

	historyFormat, historyLimit = "text", 0
	sayOpen = false
	listenEngine, listenPlain, listenNoOpen = "", false, false
	rootCmd.SetIn(strings.NewReader(""))
	return tmp
}

func TestWakewordDefaultAndSet(t *testing.T) {
	isolate(t)

	out, err := executeCommand(rootCmd, "wakeword")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != assistant.DefaultWakeWord {
		t.Errorf("default wake word: got %q", out)
	}

	out, err = executeCommand(rootCmd, "wakeword", "set", "  Jarvis ")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"jarvis"`) {
		t.Errorf("confirmation: got %q", out)
	}

	out, err = executeCommand(rootCmd, "wakeword")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "jarvis" {
		t.Errorf("persisted wake word: got %q", out)
	}
}

func TestWakewordSetRejectsBlank(t *testing.T) {
	isolate(t)
	_, err := executeCommand(rootCmd, "wakeword", "set", "   ")
	if !errors.Is(err, assistant.ErrEmptyWakeWord) {
		t.Fatalf("want ErrEmptyWakeWord, got %v", err)
	}
}

func TestSayTimeQuery(t *testing.T) {
	isolate(t)
	out, err := executeCommand(rootCmd, "say", "elizabet", "elizabet que horas são")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`Sistema: Ouvindo... Diga "elizabet" para ativar`,
		`Sistema: Palavra-chave "elizabet" detectada!`,
		"Você: que horas são",
		"Assistente: Agora são ",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSayVideoSearchPrintsURL(t *testing.T) {
	isolate(t)
	out, err := executeCommand(rootCmd, "say", "elizabet", "elizabet pesquisar no youtube gatos")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "abrir: https://www.youtube.com/results?search_query=gatos\n") {
		t.Errorf("search URL not printed:\n%s", out)
	}
}

func TestHistoryAfterSay(t *testing.T) {
	isolate(t)
	if _, err := executeCommand(rootCmd, "say", "elizabet", "elizabet"); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand(rootCmd, "history", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var entries []history.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("history output is not JSON: %v\n%s", err, out)
	}
	if len(entries) != 3 {
		t.Fatalf("want 3 entries, got %d: %+v", len(entries), entries)
	}
	if entries[2].Text != "Assistente: Comando vazio. O que deseja?" {
		t.Errorf("last entry: got %q", entries[2].Text)
	}

	historyFormat = "text"
	out, err = executeCommand(rootCmd, "history", "-n", "1")
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 1 || !strings.Contains(lines[0], "Comando vazio") {
		t.Errorf("limited history: got %q", out)
	}
}

func TestHistoryUnknownFormat(t *testing.T) {
	isolate(t)
	if _, err := executeCommand(rootCmd, "history", "--format", "pdf"); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}

func TestListenStdin(t *testing.T) {
	isolate(t)
	rootCmd.SetIn(strings.NewReader("~eli\nelizabet\n~que horas\nelizabet que horas são\n"))

	out, err := executeCommand(rootCmd, "listen", "--engine", "stdin")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"detectada!", "Você: que horas são", "Assistente: Agora são "} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatus(t *testing.T) {
	isolate(t)
	out, err := executeCommand(rootCmd, "status")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Wake word: elizabet", "Engine: stdin", "Language: pt-BR", "History entries: 0"} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q:\n%s", want, out)
		}
	}
}

func TestInvalidProjectConfig(t *testing.T) {
	isolate(t)
	if err := os.WriteFile(".elizabetconfig", []byte(`{"engine":"microphone"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := executeCommand(rootCmd, "status")
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("want invalid config error, got %v", err)
	}
}
