package channel

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stellarlinkco/rosterbot/internal/config"
	"github.com/stellarlinkco/rosterbot/internal/cron"
)

// WebhookServer serves health checks and, in webhook mode, Telegram updates.
type WebhookServer struct {
	addr   string
	tg     *TelegramChannel
	logger *slog.Logger
	router chi.Router
	server *http.Server
	jobs   func() []cron.JobStatus
}

func NewWebhookServer(addr string, tg *TelegramChannel, logger *slog.Logger) *WebhookServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &WebhookServer{
		addr:   addr,
		tg:     tg,
		logger: logger.With("component", "http"),
	}
	s.router = s.setupRouter()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *WebhookServer) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(s.loggerMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/", s.handleHealth)
	r.Get("/healthz", s.handleHealth)

	if s.tg != nil && s.tg.mode == config.ModeWebhook {
		r.Post("/webhook", s.handleUpdate)
		r.Post("/webhook/{secret}", s.handleUpdate)
	}
	return r
}

// Start blocks serving until Shutdown. http.ErrServerClosed means a clean stop.
func (s *WebhookServer) Start() error {
	s.logger.Info("starting http server", "addr", s.addr)
	return s.server.ListenAndServe()
}

func (s *WebhookServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// WithJobs makes the health routes report scheduled job status.
func (s *WebhookServer) WithJobs(fn func() []cron.JobStatus) *WebhookServer {
	s.jobs = fn
	return s
}

// Router returns the chi router for testing.
func (s *WebhookServer) Router() chi.Router {
	return s.router
}

func (s *WebhookServer) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Debug("http request",
				"method", r.Method,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

type healthResponse struct {
	Status string           `json:"status"`
	Jobs   []cron.JobStatus `json:"jobs,omitempty"`
}

func (s *WebhookServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.jobs != nil {
		resp.Jobs = s.jobs()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("encode health response", "error", err)
	}
}

func (s *WebhookServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	secret := chi.URLParam(r, "secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.tg.webhookSecret)) != 1 {
		http.NotFound(w, r)
		return
	}
	if s.tg.bot == nil {
		http.Error(w, "bot not ready", http.StatusServiceUnavailable)
		return
	}

	update, err := s.tg.bot.HandleUpdate(r)
	if err != nil {
		s.logger.Warn("bad webhook payload", "error", err)
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	s.tg.HandleUpdate(r.Context(), *update)
	w.WriteHeader(http.StatusOK)
}
