package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kevinbdx35/rocket-telemetry/errors"
	"github.com/kevinbdx35/rocket-telemetry/health"
	"github.com/kevinbdx35/rocket-telemetry/metric"
	"github.com/kevinbdx35/rocket-telemetry/output"
	"github.com/kevinbdx35/rocket-telemetry/reading"
)

// Name labels this output in metrics and health.
const Name = "websocket"

// Option configures an Output.
type Option func(*Output)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Output) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMetrics registers the WebSocket metrics and records deliveries in the
// shared output counters.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(w *Output) {
		w.registry = registry
	}
}

// WithSource sets the envelope source, normally the sensor name.
func WithSource(source string) Option {
	return func(w *Output) {
		w.source = source
	}
}

// WithClock sets the source of envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Output) {
		if now != nil {
			w.now = now
		}
	}
}

// Output is a WebSocket server broadcasting readings to connected clients.
type Output struct {
	cfg       Config
	logger    *slog.Logger
	registry  *metric.MetricsRegistry
	metrics   *metric.Metrics
	wsMetrics *Metrics
	source    string
	now       func() time.Time
	upgrader  websocket.Upgrader

	clientsMu    sync.RWMutex
	clients      map[*client]struct{}
	nextClientID atomic.Uint64

	// Lifecycle management
	lifecycleMu sync.Mutex
	server      *http.Server
	listener    net.Listener
	running     atomic.Bool
	startTime   atomic.Int64 // unix nanos
	wg          sync.WaitGroup

	errMu    sync.Mutex
	serveErr error

	broadcasts atomic.Int64
	failures   atomic.Int64
	dropped    atomic.Int64
}

// New creates a WebSocket output. The server does not listen until Start;
// Handler can be mounted on another server instead.
func New(cfg Config, opts ...Option) (*Output, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &Output{
		cfg:     cfg,
		logger:  slog.Default(),
		now:     time.Now,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// dashboards are served from other origins
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "output", "output", Name)

	m, err := newMetrics(w.registry)
	if err != nil {
		return nil, errors.Wrap(err, "websocket", "New", "register metrics")
	}
	w.wsMetrics = m
	w.metrics = w.registry.CoreMetrics()
	return w, nil
}

// Handler returns the HTTP handler serving the upgrade endpoint.
func (w *Output) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(w.cfg.Path, w.handleWebSocket)
	return mux
}

// Start listens on the configured port and serves clients until Stop.
func (w *Output) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.WrapInvalid(errors.ErrInvalidData, "websocket", "Start", "nil context")
	}
	if err := ctx.Err(); err != nil {
		return errors.WrapTransient(err, "websocket", "Start", "check context")
	}

	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if w.running.Load() {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "websocket", "Start", "check running state")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", w.cfg.Port))
	if err != nil {
		return errors.WrapTransient(err, "websocket", "Start", "listen")
	}

	server := &http.Server{
		Handler:           w.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	w.server = server
	w.listener = listener
	w.startTime.Store(w.now().UnixNano())
	w.setServeErr(nil)
	w.running.Store(true)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.setServeErr(err)
			w.running.Store(false)
			w.logger.Error("WebSocket server failed", "error", err)
		}
	}()

	w.logger.Info("WebSocket output listening", "addr", listener.Addr().String(), "path", w.cfg.Path)
	return nil
}

func (w *Output) setServeErr(err error) {
	w.errMu.Lock()
	w.serveErr = err
	w.errMu.Unlock()
}

// Addr returns the listening address, or "" before Start.
func (w *Output) Addr() string {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()
	if w.listener == nil {
		return ""
	}
	return w.listener.Addr().String()
}

// Running reports whether the server is listening.
func (w *Output) Running() bool {
	return w.running.Load()
}

// Stop shuts the server down and disconnects every client. It is safe to call
// more than once and also closes clients attached through Handler.
func (w *Output) Stop(timeout time.Duration) error {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	var shutdownErr error
	if w.running.Swap(false) && w.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := w.server.Shutdown(ctx); err != nil {
			w.logger.Warn("HTTP server shutdown error", "error", err)
			shutdownErr = err
		}
		w.server = nil
		w.listener = nil
	}

	w.closeAllClients()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		return errors.WrapTransient(errors.ErrStopTimeout, "websocket", "Stop", "wait for client goroutines")
	}

	if shutdownErr != nil {
		return errors.WrapTransient(shutdownErr, "websocket", "Stop", "shutdown server")
	}
	return nil
}

func (w *Output) handleWebSocket(rw http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(rw, "websocket upgrade required", http.StatusBadRequest)
		return
	}

	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		// the upgrader already replied
		w.failures.Add(1)
		w.logger.Debug("WebSocket upgrade failed", "error", err)
		return
	}

	c, err := w.newClient(conn)
	if err != nil {
		_ = conn.Close()
		w.failures.Add(1)
		return
	}

	w.clientsMu.Lock()
	w.clients[c] = struct{}{}
	count := len(w.clients)
	w.clientsMu.Unlock()

	w.wsMetrics.recordConnect(count)
	w.logger.Info("Client connected", "client", c.id, "remote", r.RemoteAddr, "clients", count)

	w.wg.Add(2)
	go w.readPump(c)
	go w.writePump(c)
}

// removeClient detaches a client once; later calls are no-ops.
func (w *Output) removeClient(c *client, reason string) {
	if !c.close(reason) {
		return
	}

	w.clientsMu.Lock()
	delete(w.clients, c)
	count := len(w.clients)
	w.clientsMu.Unlock()

	w.wsMetrics.recordDisconnect(reason, count)
	w.logger.Info("Client disconnected", "client", c.id, "reason", reason,
		"sent", c.sent.Load(), "dropped", c.dropped.Load(), "clients", count)
}

func (w *Output) closeAllClients() {
	for _, c := range w.snapshot() {
		w.removeClient(c, reasonShutdown)
		// unblock readPump
		_ = c.conn.SetReadDeadline(time.Now())
	}
}

func (w *Output) snapshot() []*client {
	w.clientsMu.RLock()
	defer w.clientsMu.RUnlock()
	list := make([]*client, 0, len(w.clients))
	for c := range w.clients {
		list = append(list, c)
	}
	return list
}

// Clients returns the number of connected clients.
func (w *Output) Clients() int {
	w.clientsMu.RLock()
	defer w.clientsMu.RUnlock()
	return len(w.clients)
}

// Broadcast queues data for every connected client and returns how many
// clients accepted it.
func (w *Output) Broadcast(data []byte) int {
	w.wsMetrics.recordBroadcast(len(data))
	queued := 0
	for _, c := range w.snapshot() {
		if c.enqueue(data) {
			queued++
		}
	}
	w.broadcasts.Add(1)
	return queued
}

// Callback broadcasts one reading. Its signature matches processor.Callback.
func (w *Output) Callback(_ context.Context, r reading.Reading) error {
	data, err := output.EncodeReading(w.source, r, w.now())
	if err != nil {
		w.failures.Add(1)
		w.metrics.RecordOutputError(Name)
		return err
	}
	w.Broadcast(data)
	w.metrics.RecordPublished(Name)
	return nil
}

// Health reports the server state. Slow clients losing messages degrade it.
func (w *Output) Health() health.Status {
	component := "output-" + Name
	metrics := &health.Metrics{
		ErrorCount:        w.failures.Load(),
		ReadingsProcessed: w.broadcasts.Load(),
	}

	if !w.running.Load() {
		msg := "server not running"
		w.errMu.Lock()
		if w.serveErr != nil {
			msg = health.SanitizeMessage(w.serveErr.Error())
		}
		w.errMu.Unlock()
		return health.NewUnhealthy(component, msg).WithMetrics(metrics)
	}
	metrics.Uptime = w.now().Sub(time.Unix(0, w.startTime.Load()))

	clients := w.Clients()
	if dropped := w.dropped.Load(); dropped > 0 {
		return health.NewDegraded(component,
			fmt.Sprintf("%d clients connected, %d messages dropped for slow clients", clients, dropped)).
			WithMetrics(metrics)
	}
	return health.NewHealthy(component, fmt.Sprintf("%d clients connected", clients)).WithMetrics(metrics)
}
