package reviewlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aretw0/reviewlink/internal/config"
	"github.com/aretw0/reviewlink/internal/logging"
	"github.com/aretw0/reviewlink/pkg/adapters/clipboard"
	"github.com/aretw0/reviewlink/pkg/adapters/file"
	httpAdapter "github.com/aretw0/reviewlink/pkg/adapters/http"
	mcpAdapter "github.com/aretw0/reviewlink/pkg/adapters/mcp"
	"github.com/aretw0/reviewlink/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/reviewlink/pkg/adapters/redis"
	"github.com/aretw0/reviewlink/pkg/adapters/sqlite"
	"github.com/aretw0/reviewlink/pkg/adapters/tmux"
	"github.com/aretw0/reviewlink/pkg/live"
	"github.com/aretw0/reviewlink/pkg/observability"
	"github.com/aretw0/reviewlink/pkg/ports"
	"github.com/aretw0/reviewlink/pkg/review"
	"github.com/aretw0/reviewlink/pkg/transport"
	"github.com/aretw0/reviewlink/pkg/transport/agent"
	"github.com/aretw0/reviewlink/pkg/transport/manual"
	"github.com/aretw0/reviewlink/pkg/transport/terminal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App is a fully wired reviewlink instance.
type App struct {
	Config      config.Config
	Logger      *slog.Logger
	Metrics     *observability.Metrics
	Service     *transport.Service
	Broadcaster *live.Broadcaster
	Dispatcher  *review.Dispatcher
	Comments    ports.CommentRepository
	CopyBuffer  *clipboard.Buffer
	Hub         *mcpAdapter.Hub
	Relay       *redisAdapter.Relay

	registry *prometheus.Registry
	store    ports.ConfigStore
	stdout   io.Writer
	closers  []io.Closer
}

// Option defines a functional option for configuring the App.
type Option func(*App)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.Logger = logger
	}
}

// WithComments plugs in the comment storage. Defaults to an in-memory repository.
func WithComments(repo ports.CommentRepository) Option {
	return func(a *App) {
		a.Comments = repo
	}
}

// WithConfigStore bypasses the configured store backend.
func WithConfigStore(store ports.ConfigStore) Option {
	return func(a *App) {
		a.store = store
	}
}

// WithTerminal sets where OSC 52 clipboard sequences are written.
func WithTerminal(w io.Writer) Option {
	return func(a *App) {
		a.stdout = w
	}
}

// New wires every component from cfg. Call Close when done.
func New(cfg config.Config, opts ...Option) (*App, error) {
	a := &App{Config: cfg, stdout: os.Stdout}
	for _, opt := range opts {
		opt(a)
	}
	if a.Logger == nil {
		a.Logger = logging.NewNop()
	}
	if a.Comments == nil {
		a.Comments = memory.NewComments()
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = observability.NewMetrics(a.registry)

	if a.store == nil {
		store, err := a.openStore()
		if err != nil {
			return nil, err
		}
		a.store = store
	}

	reg, err := transport.NewRegistry(a.channels()...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Service = transport.NewService(reg, a.store,
		transport.WithLogger(a.Logger.With("component", "transport")),
		transport.WithMetrics(a.Metrics),
		transport.WithTimeouts(cfg.DiscoveryTimeout, cfg.SendTimeout),
	)

	a.Broadcaster = live.NewBroadcaster(
		live.WithLogger(a.Logger.With("component", "live")),
		live.WithMetrics(a.Metrics),
		live.WithHeartbeat(cfg.Heartbeat),
	)

	var publisher ports.EventPublisher = a.Broadcaster
	if cfg.Redis.Relay {
		client := a.redisClient()
		a.Relay = redisAdapter.NewRelay(client.Client(), a.Broadcaster,
			redisAdapter.WithChannel(cfg.Redis.Prefix+"events"),
			redisAdapter.WithRelayLogger(a.Logger.With("component", "relay")),
		)
		publisher = a.Relay
	}

	a.Dispatcher = review.NewDispatcher(a.Comments, a.Service, publisher,
		review.WithLogger(a.Logger.With("component", "review")),
	)
	return a, nil
}

func (a *App) openStore() (ports.ConfigStore, error) {
	switch a.Config.Store.Backend {
	case config.BackendMemory:
		return memory.NewStore(), nil
	case config.BackendFile:
		return file.New(a.Config.Store.Path), nil
	case config.BackendRedis:
		return a.redisClient(), nil
	case config.BackendSQLite:
		store, err := sqlite.Open(a.Config.Store.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", a.Config.Store.Backend)
}

// redisClient returns the shared Redis store, creating it on first use.
func (a *App) redisClient() *redisAdapter.Store {
	if s, ok := a.store.(*redisAdapter.Store); ok {
		return s
	}
	r := a.Config.Redis
	s := redisAdapter.New(r.Addr, r.Password, r.DB, redisAdapter.WithPrefix(r.Prefix))
	a.closers = append(a.closers, s)
	return s
}

func (a *App) channels() []ports.Transport {
	var out []ports.Transport
	cfg := a.Config

	if cfg.Tmux.Enabled {
		client := tmux.New(tmux.WithBinary(cfg.Tmux.Binary), tmux.WithSocket(cfg.Tmux.Socket))
		out = append(out, terminal.New(client, terminal.WithLogger(a.Logger.With("component", "tmux"))))
	}

	if cfg.MCP.Enabled {
		a.Hub = mcpAdapter.NewHub("reviewlink", Version, mcpAdapter.WithLogger(a.Logger.With("component", "mcp")))
		out = append(out, agent.New(a.Hub, agent.WithLogger(a.Logger.With("component", "agent"))))
	}

	a.CopyBuffer = clipboard.NewBuffer()
	sinks := []ports.ClipboardSink{a.CopyBuffer}
	if cfg.Clipboard.System {
		sinks = append(sinks, clipboard.NewSystem())
	}
	if cfg.Clipboard.Terminal {
		sinks = append(sinks, clipboard.NewOSC52(a.stdout))
	}
	out = append(out, manual.New(sinks, manual.WithLogger(a.Logger.With("component", "clipboard"))))
	return out
}

// Handler builds the HTTP handler, mounting the MCP endpoint when enabled.
func (a *App) Handler() http.Handler {
	deps := httpAdapter.Deps{
		Service:     a.Service,
		Sender:      a.Dispatcher,
		Broadcaster: a.Broadcaster,
		CopyBuffer:  a.CopyBuffer,
		Gatherer:    a.registry,
		Version:     Version,
		Logger:      a.Logger.With("component", "http"),
	}
	if a.Hub != nil {
		deps.MCPSSE, deps.MCPMessage = a.Hub.Handlers(a.baseURL(), "/mcp/sse", "/mcp/message")
	}
	return httpAdapter.NewHandler(deps)
}

func (a *App) baseURL() string {
	if a.Config.BaseURL != "" {
		return strings.TrimRight(a.Config.BaseURL, "/")
	}
	host, port, err := net.SplitHostPort(a.Config.Addr)
	if err != nil {
		return "http://" + a.Config.Addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Run loads the persisted transport config, starts the relay when enabled and
// serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if _, err := a.Service.Load(ctx); err != nil {
		return fmt.Errorf("failed to load transport config: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 2)
	if a.Relay != nil {
		go func() {
			if err := a.Relay.Run(ctx, nil); err != nil {
				errs <- fmt.Errorf("event relay: %w", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		a.Logger.Info("reviewlink listening", "address", srv.Addr, "version", strings.TrimSpace(Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	a.Logger.Info("Shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("could not stop server gracefully: %w", err)
	}
	return nil
}

// Close releases store connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
