package engine

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fakeyudi/elizabet/internal/assistant"
)

//go:embed relay.html
var relayPage []byte

// Relay message types exchanged with the browser page.
const (
	msgStart       = "start"
	msgStop        = "stop"
	msgResult      = "result"
	msgError       = "error"
	msgEnd         = "end"
	msgUnsupported = "unsupported"
)

type relayMessage struct {
	Type    string          `json:"type"`
	Results assistant.Batch `json:"results,omitempty"`
	Error   string          `json:"error,omitempty"`
	Lang    string          `json:"lang,omitempty"`
	// Session numbers the recognition run a message belongs to. The page
	// echoes the number it was started with.
	Session int64 `json:"session,omitempty"`
}

// Relay bridges the speech recognition of a browser page to the session.
// The page is served on "/" and talks to the relay over a WebSocket on
// "/ws". Only the most recent page connection is used.
type Relay struct {
	addr     string
	lang     string
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	conn    *websocket.Conn
	cb      assistant.Callbacks
	running bool
	gen     int64

	writeMu sync.Mutex
}

// NewRelay returns a relay that serves on addr and asks the page to
// recognize speech in lang.
func NewRelay(addr, lang string, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{addr: addr, lang: lang, logger: logger}
}

// URL is the address of the relay page.
func (r *Relay) URL() string {
	host, port, err := net.SplitHostPort(r.addr)
	if err != nil {
		return "http://" + r.addr + "/"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

// Handler returns the relay's HTTP routes.
func (r *Relay) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", otelhttp.NewHandler(http.HandlerFunc(servePage), "relay page"))
	mux.HandleFunc("/ws", r.serveSocket)
	return mux
}

// ListenAndServe serves the relay until ctx is cancelled.
func (r *Relay) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              r.addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		r.closeConn()
	}()

	r.logger.Info("relay listening", "url", r.URL())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("relay: %w", err)
	}
	return nil
}

// Start asks the connected page to begin recognition. Without a page the
// request stays pending until one connects. Messages the page sends for
// earlier runs are dropped from then on.
func (r *Relay) Start(cb assistant.Callbacks) error {
	r.mu.Lock()
	r.cb = cb
	r.running = true
	r.gen++
	gen := r.gen
	conn := r.conn
	r.mu.Unlock()

	if conn != nil {
		return r.send(conn, relayMessage{Type: msgStart, Lang: r.lang, Session: gen})
	}
	return nil
}

func (r *Relay) Stop() error {
	r.mu.Lock()
	r.running = false
	gen := r.gen
	conn := r.conn
	r.mu.Unlock()

	if conn != nil {
		return r.send(conn, relayMessage{Type: msgStop, Session: gen})
	}
	return nil
}

// Connected reports whether a page is attached.
func (r *Relay) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

func servePage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(relayPage)
}

func (r *Relay) serveSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("relay upgrade failed", "error", err)
		return
	}

	r.mu.Lock()
	previous := r.conn
	r.conn = conn
	running, gen := r.running, r.gen
	r.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	r.logger.Info("relay page connected", "remote", req.RemoteAddr)
	if running {
		if err := r.send(conn, relayMessage{Type: msgStart, Lang: r.lang, Session: gen}); err != nil {
			r.logger.Warn("relay start request failed", "error", err)
		}
	}

	r.readLoop(conn)
}

func (r *Relay) readLoop(conn *websocket.Conn) {
	defer func() {
		r.mu.Lock()
		current := r.conn == conn
		if current {
			r.conn = nil
		}
		cb, running := r.cb, r.running
		r.mu.Unlock()
		conn.Close()

		// A page that goes away mid-session ends recognition; the session
		// restarts and the start request waits for the next page.
		if current && running && cb.OnEnd != nil {
			cb.OnEnd()
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.logger.Debug("relay read ended", "error", err)
			}
			return
		}
		var msg relayMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			r.logger.Warn("relay message malformed", "error", err)
			continue
		}
		r.handle(conn, msg)
	}
}

func (r *Relay) handle(conn *websocket.Conn, msg relayMessage) {
	r.mu.Lock()
	cb, running, gen := r.cb, r.running, r.gen
	current := r.conn == conn
	r.mu.Unlock()
	if !current {
		return
	}
	// Support is a property of the page, not of a run.
	if msg.Type != msgUnsupported && msg.Session != gen {
		r.logger.Debug("relay message from earlier run dropped", "type", msg.Type, "session", msg.Session, "current", gen)
		return
	}

	switch msg.Type {
	case msgStart:
		if running && cb.OnStart != nil {
			cb.OnStart()
		}
	case msgResult:
		if running && cb.OnResult != nil {
			cb.OnResult(msg.Results)
		}
	case msgError:
		if cb.OnError != nil {
			cb.OnError(msg.Error)
		}
	case msgUnsupported:
		if cb.OnError != nil {
			cb.OnError(assistant.ReasonUnsupported)
		}
	case msgEnd:
		if cb.OnEnd != nil {
			cb.OnEnd()
		}
	default:
		r.logger.Debug("relay message ignored", "type", msg.Type)
	}
}

func (r *Relay) send(conn *websocket.Conn, msg relayMessage) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("relay %s: %w", msg.Type, err)
	}
	return nil
}

func (r *Relay) closeConn() {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}
