// Package command resolves captured voice commands against an ordered
// table of pattern rules and performs their side effects.
package command

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultSearchURL is the video search endpoint the phrase is appended to.
const DefaultSearchURL = "https://www.youtube.com/results?search_query="

// Rule names reported in Outcome.Rule.
const (
	RuleTime         = "time"
	RuleVideoSearch  = "video-search"
	RuleUnrecognized = "unrecognized"
)

const (
	replyUnrecognized = `Assistente: Comando não reconhecido. Tente "que horas são" ou "pesquisar no YouTube"`
	replyAskSearch    = "Assistente: O que deseja pesquisar no YouTube?"
)

var (
	timePattern  = regexp.MustCompile(`\bhoras?\b`)
	videoPattern = regexp.MustCompile(`\b(?:youtube|yt)\b`)

	// leadIn strips everything up to and including the last search verb.
	leadIn   = regexp.MustCompile(`^.*\b(?:pesquisar|procurar|tocar|buscar)\b`)
	platform = regexp.MustCompile(`^(?:(?:no|na|em|do)\s+)?(?:youtube|yt)\b`)
	trailing = regexp.MustCompile(`\s+(?:(?:no|na|em|do)\s+)?(?:youtube|yt)$`)
)

// Opener opens an external resource such as a URL.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// Sink receives the replies produced by dispatch.
type Sink interface {
	Append(text string)
}

// Outcome is the result of resolving one command.
type Outcome struct {
	Rule  string
	Reply string
	// URL is the resource to open, empty when the rule has no side effect.
	URL string
}

// Rule is one entry of the dispatch table.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Handle  func(r *Resolver, command string) Outcome
}

// Options configures a Resolver.
type Options struct {
	Opener    Opener
	Log       Sink
	SearchURL string
	Language  language.Tag
	Now       func() time.Time
}

// Resolver applies the rules in order; the first match wins.
type Resolver struct {
	rules     []Rule
	opener    Opener
	log       Sink
	searchURL string
	tag       language.Tag
	now       func() time.Time
}

// New returns a Resolver with the default rule table.
func New(opts Options) *Resolver {
	r := &Resolver{
		opener:    opts.Opener,
		log:       opts.Log,
		searchURL: opts.SearchURL,
		tag:       opts.Language,
		now:       opts.Now,
	}
	if r.searchURL == "" {
		r.searchURL = DefaultSearchURL
	}
	if r.tag == language.Und {
		r.tag = language.BrazilianPortuguese
	}
	if r.now == nil {
		r.now = time.Now
	}
	r.rules = []Rule{
		{Name: RuleTime, Pattern: timePattern, Handle: (*Resolver).tellTime},
		{Name: RuleVideoSearch, Pattern: videoPattern, Handle: (*Resolver).searchVideo},
	}
	return r
}

// Rules returns the dispatch table in evaluation order.
func (r *Resolver) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Resolve matches command against the table without performing side effects.
func (r *Resolver) Resolve(command string) Outcome {
	normalized := strings.TrimSpace(cases.Lower(r.tag).String(command))
	for _, rule := range r.rules {
		if rule.Pattern.MatchString(normalized) {
			return rule.Handle(r, normalized)
		}
	}
	return Outcome{Rule: RuleUnrecognized, Reply: replyUnrecognized}
}

// Dispatch resolves command, appends the reply and opens the resulting
// resource, if any. Failures are logged and reported, never returned.
func (r *Resolver) Dispatch(ctx context.Context, command string) {
	ctx, span := tracer.Start(ctx, "dispatch command",
		trace.WithAttributes(attribute.Int("command.length", len(command))))
	defer span.End()

	out := r.Resolve(command)
	span.SetAttributes(attribute.String("command.rule", out.Rule))
	logger.DebugContext(ctx, "command resolved", "rule", out.Rule)

	if r.log != nil {
		r.log.Append(out.Reply)
	}
	if out.URL == "" || r.opener == nil {
		return
	}
	if err := r.opener.Open(ctx, out.URL); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open resource")
		logger.ErrorContext(ctx, "failed to open resource", "url", out.URL, "error", err)
		if r.log != nil {
			r.log.Append(fmt.Sprintf("Erro: Não foi possível abrir %s", out.URL))
		}
	}
}

func (r *Resolver) tellTime(string) Outcome {
	now := r.now()
	return Outcome{
		Rule:  RuleTime,
		Reply: fmt.Sprintf("Assistente: Agora são %dh%d", now.Hour(), now.Minute()),
	}
}

func (r *Resolver) searchVideo(command string) Outcome {
	phrase := SearchPhrase(command)
	if phrase == "" {
		return Outcome{Rule: RuleVideoSearch, Reply: replyAskSearch}
	}
	return Outcome{
		Rule:  RuleVideoSearch,
		Reply: fmt.Sprintf("Assistente: Pesquisando no YouTube: \"%s\"", phrase),
		URL:   r.searchURL + escapeComponent(phrase),
	}
}

// SearchPhrase extracts the search terms from a lowercased video search
// command by dropping the lead-in verb and the platform name.
func SearchPhrase(command string) string {
	phrase := trimSeparators(leadIn.ReplaceAllString(command, ""))
	phrase = trimSeparators(platform.ReplaceAllString(phrase, ""))
	return trimSeparators(trailing.ReplaceAllString(phrase, ""))
}

// trimSeparators drops the spaces and clause punctuation recognizers put
// around the platform name, as in "no youtube: gatos".
func trimSeparators(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(":;,.!-", r)
	})
}

// escapeComponent percent-encodes s for use as a query value, encoding
// spaces as %20.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
