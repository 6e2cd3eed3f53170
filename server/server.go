// Package server exposes a running engine over HTTP: snapshot and delta
// ingestion, SVG export of the current frame, a websocket position stream
// and prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plexgraph/plexgraph/engine"
	"github.com/plexgraph/plexgraph/ingest"
	"github.com/plexgraph/plexgraph/models"
	"github.com/plexgraph/plexgraph/render"
	"github.com/plexgraph/plexgraph/telemetry"
)

// maxBodyBytes caps upload size; large snapshots should arrive compressed
// or be split into deltas.
const maxBodyBytes = 32 << 20

// Config holds server settings.
type Config struct {
	Port      int
	TickRate  time.Duration // frame interval for the internal loop
	DebugMode bool
}

// Server drives an engine from its own frame loop and serves it over HTTP.
type Server struct {
	cfg    Config
	eng    *engine.Engine
	proc   *ingest.SnapshotProcessor
	log    *slog.Logger
	promRg *prometheus.Registry

	upgrader websocket.Upgrader

	// engMu serializes engine frame-state access: the frame loop ticks
	// under it, and handlers that read visible-set or node state take it
	// so they never observe a tick mid-flight.
	engMu sync.Mutex

	mu      sync.Mutex // guards subscribers
	subs    map[*wsClient]struct{}
	httpSrv *http.Server
	done    chan struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// New builds a server around an engine config. The engine's metrics land in
// a dedicated prometheus registry served at /metrics.
func New(cfg Config, engCfg models.Config, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 16 * time.Millisecond
	}
	promRg := prometheus.NewRegistry()
	eng, err := engine.New(engCfg, render.NewBatchedBackend(), log,
		telemetry.NewRegistry(promRg))
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		eng:    eng,
		proc:   ingest.NewSnapshotProcessor(nil),
		log:    log,
		promRg: promRg,
		subs:   make(map[*wsClient]struct{}),
		done:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	eng.OnPositions(s.broadcastPositions)
	return s, nil
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", requireMethod(http.MethodPost, s.handleSnapshot))
	mux.HandleFunc("/delta", requireMethod(http.MethodPost, s.handleDelta))
	mux.HandleFunc("/visualize.svg", requireMethod(http.MethodGet, s.handleVisualize))
	mux.HandleFunc("/ws", requireMethod(http.MethodGet, s.handleWS))
	mux.HandleFunc("/healthz", requireMethod(http.MethodGet, s.handleHealth))
	mux.HandleFunc("/metrics", requireMethod(http.MethodGet, promhttp.HandlerFor(s.promRg, promhttp.HandlerOpts{}).ServeHTTP))
	return mux
}

// requireMethod enforces the HTTP method for a route, matching the 405
// behavior of method-qualified ServeMux patterns.
func requireMethod(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

// Start runs the frame loop and the HTTP listener. It blocks until the
// context is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go s.frameLoop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", s.httpSrv.Addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		s.Shutdown()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Shutdown stops the frame loop, disconnects clients and closes the
// listener. Idempotent.
func (s *Server) Shutdown() {
	select {
	case <-s.done:
		return
	default:
		close(s.done)
	}
	s.eng.Stop()
	s.mu.Lock()
	for c := range s.subs {
		close(c.send)
		delete(s.subs, c)
	}
	s.mu.Unlock()
	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(ctx)
	}
}

// frameLoop owns the engine: all Step calls happen here.
func (s *Server) frameLoop() {
	ticker := time.NewTicker(s.cfg.TickRate)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			// Step takes dt in nominal 60Hz frames.
			dt := now.Sub(last).Seconds() * 60
			last = now
			if dt > 6 {
				dt = 6 // clamp after stalls so the layout never explodes
			}
			if !s.tick(dt) {
				return
			}
		}
	}
}

// tick advances one frame under the engine mutex.
func (s *Server) tick(dt float64) bool {
	s.engMu.Lock()
	defer s.engMu.Unlock()
	return s.eng.Step(dt)
}

// handleSnapshot queues a graph replacement; the frame loop applies it
// between ticks, never from this goroutine.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	snap, err := s.proc.DecodeSnapshot(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.eng.QueueSnapshot(snap)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"nodes": len(snap.Nodes),
		"edges": len(snap.Edges),
	})
}

func (s *Server) handleDelta(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	d, err := s.proc.DecodeDelta(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.eng.ApplyDelta(d)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleVisualize(w http.ResponseWriter, r *http.Request) {
	// The export reads live node state, so it must not overlap a tick.
	s.engMu.Lock()
	svg := render.ExportSVG(s.eng.Visible(), s.eng.Viewport(), render.DefaultSVGOptions())
	s.engMu.Unlock()
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.eng.Telemetry().Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"ticks":     snap.Ticks,
		"fps":       snap.FPS,
		"backend":   s.eng.Pipeline().State().String(),
		"converged": s.eng.Simulator().Converged(),
	})
}

// handleWS upgrades the connection and streams position updates until the
// client goes away. Slow clients are dropped rather than backpressuring
// the frame loop.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, 16)}
	s.mu.Lock()
	s.subs[c] = struct{}{}
	s.mu.Unlock()
	s.log.Info("websocket client connected", "remote", r.RemoteAddr)

	go s.writePump(c)
	// Drain control frames; exit drops the subscription.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.dropClient(c)
}

func (s *Server) writePump(c *wsClient) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) dropClient(c *wsClient) {
	s.mu.Lock()
	if _, ok := s.subs[c]; ok {
		delete(s.subs, c)
		close(c.send)
	}
	s.mu.Unlock()
}

// broadcastPositions runs on the frame goroutine; encoding happens once per
// emission regardless of subscriber count.
func (s *Server) broadcastPositions(updates []models.PositionUpdate) {
	s.mu.Lock()
	n := len(s.subs)
	s.mu.Unlock()
	if n == 0 {
		return
	}
	msg, err := json.Marshal(map[string]any{
		"type":      "positions",
		"positions": updates,
	})
	if err != nil {
		return
	}
	s.mu.Lock()
	for c := range s.subs {
		select {
		case c.send <- msg:
		default:
			delete(s.subs, c)
			close(c.send)
			s.log.Warn("dropping slow websocket client")
		}
	}
	s.mu.Unlock()
}

// Engine exposes the underlying engine, mainly for tests.
func (s *Server) Engine() *engine.Engine { return s.eng }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
