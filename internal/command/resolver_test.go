package command_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/elizabet/internal/assistant"
	"github.com/fakeyudi/elizabet/internal/command"
)

type recordSink struct{ entries []string }

func (r *recordSink) Append(text string) { r.entries = append(r.entries, text) }

type recordOpener struct {
	urls []string
	err  error
}

func (o *recordOpener) Open(_ context.Context, url string) error {
	o.urls = append(o.urls, url)
	return o.err
}

type memStore map[string]string

func (m memStore) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m memStore) Set(key, value string) error {
	m[key] = value
	return nil
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 9, 14, 5, 0, 0, time.Local)
}

func TestResolveTimeQuery(t *testing.T) {
	r := command.New(command.Options{Now: fixedNow})
	out := r.Resolve("Que horas são")
	if out.Rule != command.RuleTime {
		t.Fatalf("rule: want %q, got %q", command.RuleTime, out.Rule)
	}
	if out.Reply != "Assistente: Agora são 14h5" {
		t.Errorf("reply: got %q", out.Reply)
	}
	if out.URL != "" {
		t.Errorf("time query must not open anything, got %q", out.URL)
	}
}

func TestResolveVideoSearch(t *testing.T) {
	tests := []struct {
		command string
		phrase  string
	}{
		{"pesquisar no youtube gatos engraçados", "gatos engraçados"},
		{"procurar no yt receita de bolo", "receita de bolo"},
		{"tocar música relaxante no youtube", "música relaxante"},
		{"youtube gatos", "gatos"},
		{"procurar no YouTube: gatos", "gatos"},
		{"pesquisar no youtube, receita de bolo.", "receita de bolo"},
		{"tocar música relaxante no youtube.", "música relaxante"},
	}
	r := command.New(command.Options{})
	for _, tt := range tests {
		out := r.Resolve(tt.command)
		if out.Rule != command.RuleVideoSearch {
			t.Errorf("%q: rule %q", tt.command, out.Rule)
			continue
		}
		want := `Assistente: Pesquisando no YouTube: "` + tt.phrase + `"`
		if out.Reply != want {
			t.Errorf("%q: reply: want %q, got %q", tt.command, want, out.Reply)
		}
		if !strings.HasPrefix(out.URL, command.DefaultSearchURL) {
			t.Errorf("%q: url: got %q", tt.command, out.URL)
		}
	}
}

func TestResolveVideoSearchWithoutPhrase(t *testing.T) {
	r := command.New(command.Options{})
	out := r.Resolve("pesquisar no youtube")
	if out.Reply != "Assistente: O que deseja pesquisar no YouTube?" {
		t.Errorf("reply: got %q", out.Reply)
	}
	if out.URL != "" {
		t.Errorf("no URL expected, got %q", out.URL)
	}
}

func TestResolveUnrecognized(t *testing.T) {
	r := command.New(command.Options{})
	out := r.Resolve("abrir a janela")
	if out.Rule != command.RuleUnrecognized {
		t.Fatalf("rule: got %q", out.Rule)
	}
	if !strings.Contains(out.Reply, "não reconhecido") {
		t.Errorf("reply: got %q", out.Reply)
	}
}

func TestResolveRuleOrder(t *testing.T) {
	// Both patterns match; the time rule comes first.
	r := command.New(command.Options{Now: fixedNow})
	if out := r.Resolve("tocar no youtube a hora do show"); out.Rule != command.RuleTime {
		t.Errorf("rule: want %q, got %q", command.RuleTime, out.Rule)
	}
	rules := r.Rules()
	if len(rules) != 2 || rules[0].Name != command.RuleTime || rules[1].Name != command.RuleVideoSearch {
		t.Errorf("unexpected rule table: %+v", rules)
	}
}

func TestDispatchOpenFailureIsReported(t *testing.T) {
	sink := &recordSink{}
	opener := &recordOpener{err: errors.New("no browser")}
	r := command.New(command.Options{Opener: opener, Log: sink})

	r.Dispatch(context.Background(), "pesquisar no youtube gatos")

	if len(opener.urls) != 1 {
		t.Fatalf("expected one open attempt, got %d", len(opener.urls))
	}
	if len(sink.entries) != 2 || !strings.HasPrefix(sink.entries[1], "Erro:") {
		t.Errorf("expected reply followed by an error entry, got %q", sink.entries)
	}
}

// Feature: elizabet, video search phrases are percent-encoded into the URL.
func TestPropertySearchURLEncoding(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		phrase := rapid.StringMatching(`[bcdfgjklmn0-9&?#=çã]{1,8}( [bcdfgjklmn0-9&?#=çã]{1,8}){0,3}`).Draw(t, "phrase")
		opener := &recordOpener{}
		r := command.New(command.Options{Opener: opener, Log: &recordSink{}})

		r.Dispatch(context.Background(), "pesquisar no youtube "+phrase)

		if len(opener.urls) != 1 {
			t.Fatalf("expected one open, got %d", len(opener.urls))
		}
		query := strings.TrimPrefix(opener.urls[0], command.DefaultSearchURL)
		if strings.ContainsAny(query, " &?#=+") {
			t.Fatalf("query not encoded: %q", query)
		}
	})
}

// The time query reaches the resolver through the session.
func TestSessionTimeQuery(t *testing.T) {
	sink := &recordSink{}
	r := command.New(command.Options{Log: sink, Now: fixedNow})
	s := assistant.New(assistant.Options{Store: memStore{}, Log: sink, Dispatcher: r})

	s.OnTranscript(assistant.Final("elizabet que horas são"))
	if s.Snapshot().Mode != assistant.ModeActive {
		t.Fatal("expected active mode after the wake word")
	}
	s.OnTranscript(assistant.Final("elizabet que horas são"))

	want := []string{
		`Sistema: Palavra-chave "elizabet" detectada!`,
		"Você: que horas são",
		"Assistente: Agora são 14h5",
	}
	if strings.Join(sink.entries, "\n") != strings.Join(want, "\n") {
		t.Errorf("entries:\nwant %q\n got %q", want, sink.entries)
	}
	if !strings.Contains(sink.entries[2], "h") {
		t.Error("time report should contain the h separator")
	}
	if s.Snapshot().Mode != assistant.ModeWaiting {
		t.Error("expected waiting mode after dispatch")
	}
}

// The video search side effect is triggered with the phrase.
func TestSessionVideoSearch(t *testing.T) {
	sink := &recordSink{}
	opener := &recordOpener{}
	r := command.New(command.Options{Log: sink, Opener: opener})
	s := assistant.New(assistant.Options{Store: memStore{}, Log: sink, Dispatcher: r})

	s.OnTranscript(assistant.Final("elizabet"))
	s.OnTranscript(assistant.Final("elizabet pesquisar no youtube gatos engraçados"))

	wantURL := command.DefaultSearchURL + "gatos%20engra%C3%A7ados"
	if len(opener.urls) != 1 || opener.urls[0] != wantURL {
		t.Fatalf("opened: want [%q], got %q", wantURL, opener.urls)
	}
	last := sink.entries[len(sink.entries)-1]
	if last != `Assistente: Pesquisando no YouTube: "gatos engraçados"` {
		t.Errorf("searching entry: got %q", last)
	}
}
