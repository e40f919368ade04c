// Package gateway wires the bot together and runs it until a signal arrives.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/stellarlinkco/rosterbot/internal/bus"
	"github.com/stellarlinkco/rosterbot/internal/channel"
	"github.com/stellarlinkco/rosterbot/internal/chart"
	"github.com/stellarlinkco/rosterbot/internal/config"
	"github.com/stellarlinkco/rosterbot/internal/cron"
	"github.com/stellarlinkco/rosterbot/internal/lookup"
	"github.com/stellarlinkco/rosterbot/internal/session"
	"github.com/stellarlinkco/rosterbot/internal/sheet"
	"golang.org/x/sync/errgroup"
)

const (
	sweepJobName    = "session-sweep"
	shutdownTimeout = 5 * time.Second
)

// Options for creating a Gateway
type Options struct {
	Source     lookup.GridSource  // defaults to sheet.New(cfg.Source)
	BotFactory channel.BotFactory // defaults to the real Telegram API
	Logger     *slog.Logger
	SignalChan chan os.Signal // for testing signal handling
}

type Gateway struct {
	cfg        *config.Config
	bus        *bus.MessageBus
	logger     *slog.Logger
	cache      *session.Cache
	cron       *cron.Service
	telegram   *channel.TelegramChannel
	server     *channel.WebhookServer
	service    *lookup.Service
	dispatcher *dispatcher
	signalChan chan os.Signal
}

// New creates a Gateway with default options
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		cfg:        cfg,
		bus:        bus.NewMessageBus(config.DefaultBufSize),
		logger:     logger.With("component", "gateway"),
		signalChan: opts.SignalChan,
	}

	store, err := session.NewMemoryStore(cfg.Session.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}
	g.cache = session.NewCache(store, cfg.SessionTTL())

	source := opts.Source
	if source == nil {
		src, err := sheet.New(context.Background(), cfg.Source)
		if err != nil {
			return nil, fmt.Errorf("create source: %w", err)
		}
		source = src
	}

	var tg *channel.TelegramChannel
	if opts.BotFactory != nil {
		tg, err = channel.NewTelegramChannelWithFactory(cfg.Telegram, g.bus, opts.BotFactory)
	} else {
		tg, err = channel.NewTelegramChannel(cfg.Telegram, g.bus)
	}
	if err != nil {
		return nil, fmt.Errorf("create telegram channel: %w", err)
	}
	g.telegram = tg.WithLogger(logger)

	g.service = lookup.New(source, g.telegram, chart.NewRenderer(), g.cache, lookup.Options{
		Fields:         cfg.Fields,
		RequiredStatus: cfg.Search.RequiredStatus,
		PageSize:       cfg.Search.PageSize,
		RateLimit:      cfg.Search.RateLimit,
		Burst:          cfg.Search.Burst,
		Logger:         logger,
	})
	g.dispatcher = newDispatcher(g.service, g.logger)

	g.cron = cron.NewService().WithLogger(logger)
	if err := g.cron.AddJob(cron.Job{
		Name:     sweepJobName,
		Schedule: cfg.Session.Sweep,
		Run:      g.sweepSessions,
	}); err != nil {
		return nil, fmt.Errorf("schedule session sweep: %w", err)
	}

	addr := net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
	g.server = channel.NewWebhookServer(addr, g.telegram, logger).WithJobs(g.cron.Status)

	return g, nil
}

func (g *Gateway) sweepSessions(ctx context.Context) error {
	if n := g.cache.Sweep(time.Now()); n > 0 {
		g.logger.Info("expired sessions removed", "count", n)
	}
	return nil
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var start errgroup.Group
	start.Go(func() error {
		if err := g.telegram.Start(ctx); err != nil {
			return fmt.Errorf("start telegram: %w", err)
		}
		return nil
	})
	start.Go(func() error {
		return g.cron.Start(ctx)
	})
	if err := start.Wait(); err != nil {
		g.cron.Stop()
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := g.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	go g.processLoop(ctx)

	g.logger.Info("running", "host", g.cfg.Gateway.Host, "port", g.cfg.Gateway.Port, "mode", g.cfg.Telegram.Mode)

	// Use injected signal channel for testing, or create default
	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
	}

	var runErr error
	select {
	case <-sigCh:
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	g.logger.Info("shutting down")
	if err := g.Shutdown(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	cancel()
	if !g.dispatcher.wait(shutdownTimeout) {
		g.logger.Warn("timeout waiting for chat workers")
	}
	g.logger.Info("shutdown complete")
	return runErr
}

func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case ev := <-g.bus.Inbound:
			if ev.ID == "" {
				ev.ID = uuid.NewString()
			}
			g.logger.Debug("inbound", "event_id", ev.ID, "chat", ev.ChatID, "kind", ev.Kind.String())
			if err := g.dispatcher.Dispatch(ctx, ev); err != nil {
				g.logger.Warn("drop event", "event_id", ev.ID, "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown stops intake first: the channel, then the HTTP server, then cron.
func (g *Gateway) Shutdown() error {
	_ = g.telegram.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var err error
	if serr := g.server.Shutdown(ctx); serr != nil {
		err = fmt.Errorf("stop http server: %w", serr)
	}

	g.cron.Stop()
	return err
}
