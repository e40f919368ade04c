// Package lookup turns inbound chat events into searches, result pages,
// statistics and charts over the roster grid.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stellarlinkco/rosterbot/internal/bus"
	"github.com/stellarlinkco/rosterbot/internal/render"
	"github.com/stellarlinkco/rosterbot/internal/roster"
	"github.com/stellarlinkco/rosterbot/internal/session"
)

// ErrEmptySheet is returned when the grid has no data rows below the header.
var ErrEmptySheet = errors.New("sheet has no data rows")

// Transport is the chat side the service talks to.
type Transport interface {
	// SendText posts a new message and returns its id.
	SendText(ctx context.Context, msg bus.OutboundMessage) (int, error)
	EditText(ctx context.Context, messageID int, msg bus.OutboundMessage) error
	DeleteMessage(ctx context.Context, chatID string, messageID int) error
	SendImage(ctx context.Context, chatID string, png []byte, caption string) error
	SendAction(ctx context.Context, chatID string, action bus.ChatAction) error
}

// GridSource is satisfied by sheet.Source.
type GridSource interface {
	FetchGrid(ctx context.Context) ([][]string, error)
}

// ChartRenderer is satisfied by *chart.Renderer.
type ChartRenderer interface {
	Render(counts []roster.CategoryCount) ([]byte, error)
}

type Options struct {
	Fields         roster.FieldMap
	RequiredStatus string
	PageSize       int
	RateLimit      float64 // searches per second per chat, 0 disables
	Burst          int
	Logger         *slog.Logger
}

type Service struct {
	source    GridSource
	transport Transport
	charts    ChartRenderer
	cache     *session.Cache

	fields  roster.FieldMap
	active  roster.StatusPredicate
	matcher *roster.Matcher
	pager   render.Pager
	limiter *chatLimiter
	logger  *slog.Logger
}

func New(source GridSource, transport Transport, charts ChartRenderer, cache *session.Cache, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "lookup")
	active := roster.NewStatusPredicate(opts.RequiredStatus)

	return &Service{
		source:    source,
		transport: transport,
		charts:    charts,
		cache:     cache,
		fields:    opts.Fields,
		active:    active,
		matcher:   roster.NewMatcher(opts.Fields, active).WithLogger(logger),
		pager:     render.Pager{PageSize: opts.PageSize, Active: active},
		limiter:   newChatLimiter(opts.RateLimit, opts.Burst),
		logger:    logger,
	}
}

// Handle runs one inbound event to completion. Failures are reported to the
// user by the handlers and logged here; nothing is returned to the caller.
func (s *Service) Handle(ctx context.Context, ev bus.InboundEvent) {
	logger := s.logger.With(eventAttrs(ev)...)

	var err error
	switch ev.Kind {
	case bus.KindStart:
		err = s.Start(ctx, ev.ChatID)
	case bus.KindStats:
		err = s.Stats(ctx, ev.ChatID)
	case bus.KindChart:
		err = s.Chart(ctx, ev.ChatID)
	case bus.KindNavigate:
		err = s.Navigate(ctx, ev.ChatID, ev.Page)
	case bus.KindText:
		err = s.HandleText(ctx, ev.ChatID, ev.Text)
	default:
		logger.Warn("unhandled event")
		return
	}
	if err != nil {
		logger.Error("handle event", "error", err)
		return
	}
	logger.Debug("event handled")
}

func eventAttrs(ev bus.InboundEvent) []any {
	attrs := []any{"event_id", ev.ID, "chat", ev.ChatID, "kind", ev.Kind.String()}
	if ev.MessageID != 0 {
		attrs = append(attrs, "message_id", ev.MessageID)
	}
	if len(ev.Metadata) > 0 {
		meta := make([]any, 0, 2*len(ev.Metadata))
		for k, v := range ev.Metadata {
			meta = append(meta, k, v)
		}
		attrs = append(attrs, slog.Group("meta", meta...))
	}
	return attrs
}

// menuWords are the bare labels accepted besides the keyboard buttons.
var menuWords = map[string]string{
	"search":     bus.MenuSearch,
	"statistics": bus.MenuStats,
	"chart":      bus.MenuChart,
}

// HandleText routes main-menu labels and treats anything else as a query.
func (s *Service) HandleText(ctx context.Context, chatID, text string) error {
	label := strings.TrimSpace(text)
	if m, ok := menuWords[strings.ToLower(label)]; ok {
		label = m
	}
	switch label {
	case bus.MenuSearch:
		return s.reply(ctx, chatID, msgSearchPrompt)
	case bus.MenuStats:
		return s.Stats(ctx, chatID)
	case bus.MenuChart:
		return s.Chart(ctx, chatID)
	}
	return s.Search(ctx, chatID, text)
}

// Start resets the conversation and shows the main menu.
func (s *Service) Start(ctx context.Context, chatID string) error {
	unlock := s.cache.Lock(chatID)
	defer unlock()

	s.cache.StartSession(chatID)
	_, err := s.transport.SendText(ctx, bus.OutboundMessage{
		ChatID:   chatID,
		Content:  msgWelcome,
		Markdown: true,
		Menu:     true,
	})
	if err != nil {
		return fmt.Errorf("send welcome: %w", err)
	}
	return nil
}

// Search runs a new query and shows page 1 of its results. The previous page
// message of the chat, if any, is removed.
func (s *Service) Search(ctx context.Context, chatID, text string) error {
	query := strings.TrimSpace(text)
	if query == "" {
		return s.reply(ctx, chatID, msgEmptyQuery)
	}
	if !s.limiter.Allow(chatID) {
		s.logger.Info("search rate limited", "chat", chatID)
		return s.reply(ctx, chatID, msgRateLimited)
	}

	unlock := s.cache.Lock(chatID)
	defer unlock()

	s.action(ctx, chatID, bus.ActionTyping)

	grid, err := s.source.FetchGrid(ctx)
	if err != nil {
		return s.fail(ctx, chatID, msgSearchFailed, fmt.Errorf("fetch grid: %w", err))
	}

	results := s.matcher.Match(grid, query)
	if len(results) == 0 {
		s.clearDisplayed(ctx, chatID)
		return s.reply(ctx, chatID, msgNotFound)
	}

	page := s.pager.Render(results, 1)
	s.clearDisplayed(ctx, chatID)

	id, err := s.transport.SendText(ctx, pageMessage(chatID, page))
	if err != nil {
		return s.fail(ctx, chatID, msgSearchFailed, fmt.Errorf("send page: %w", err))
	}
	s.cache.StoreResults(chatID, query, results)
	s.cache.SetDisplayedMessage(chatID, id)

	s.logger.Info("search", "chat", chatID, "results", len(results), "pages", page.Total)
	return nil
}

// Navigate moves the chat's displayed page. It is a no-op without cached
// results or when the clamped page is already on screen.
func (s *Service) Navigate(ctx context.Context, chatID string, requested int) error {
	unlock := s.cache.Lock(chatID)
	defer unlock()

	st, ok := s.cache.Get(chatID)
	if !ok {
		return nil
	}
	page := s.pager.Render(st.Results, requested)
	if st.MessageID != 0 && page.Current == st.Page {
		return nil
	}

	msg := pageMessage(chatID, page)
	if st.MessageID != 0 {
		err := s.tryEditInPlace(ctx, st.MessageID, msg)
		if err == nil {
			s.cache.SetPage(chatID, page.Current)
			return nil
		}
		s.logger.Debug("edit failed, resending", "chat", chatID, "message_id", st.MessageID, "error", err)
	}
	return s.deleteAndResend(ctx, chatID, st.MessageID, msg, page.Current)
}

// Stats sends the per-category totals of the whole sheet.
func (s *Service) Stats(ctx context.Context, chatID string) error {
	unlock := s.cache.Lock(chatID)
	defer unlock()

	s.action(ctx, chatID, bus.ActionTyping)

	grid, err := s.fetchRows(ctx)
	if errors.Is(err, ErrEmptySheet) {
		return s.reply(ctx, chatID, msgEmptySheet)
	}
	if err != nil {
		return s.fail(ctx, chatID, msgStatsFailed, err)
	}

	report := roster.SummarizeByCategory(grid, s.fields.Category, s.fields.Status, s.active)
	s.clearDisplayed(ctx, chatID)
	if err := s.reply(ctx, chatID, render.FormatStats(report)); err != nil {
		return err
	}
	s.logger.Info("stats", "chat", chatID, "total", report.Overall.Total, "categories", len(report.Categories))
	return nil
}

// Chart sends the category distribution as a bar chart.
func (s *Service) Chart(ctx context.Context, chatID string) error {
	s.action(ctx, chatID, bus.ActionUploadPhoto)

	grid, err := s.fetchRows(ctx)
	if errors.Is(err, ErrEmptySheet) {
		return s.reply(ctx, chatID, msgNoChart)
	}
	if err != nil {
		return s.fail(ctx, chatID, msgChartFailed, err)
	}

	counts := roster.CountCategories(grid, s.fields.Category)
	if len(counts) == 0 {
		return s.reply(ctx, chatID, msgNoChart)
	}
	png, err := s.charts.Render(counts)
	if err != nil {
		return s.fail(ctx, chatID, msgChartFailed, fmt.Errorf("render chart: %w", err))
	}
	if err := s.transport.SendImage(ctx, chatID, png, chartCaption); err != nil {
		return s.fail(ctx, chatID, msgChartFailed, fmt.Errorf("send chart: %w", err))
	}
	s.logger.Info("chart", "chat", chatID, "bars", len(counts), "bytes", len(png))
	return nil
}

func (s *Service) fetchRows(ctx context.Context) ([][]string, error) {
	grid, err := s.source.FetchGrid(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch grid: %w", err)
	}
	if len(grid) <= 1 {
		return nil, ErrEmptySheet
	}
	return grid, nil
}

func (s *Service) reply(ctx context.Context, chatID, text string) error {
	_, err := s.transport.SendText(ctx, bus.OutboundMessage{
		ChatID:   chatID,
		Content:  text,
		Markdown: true,
	})
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// fail sends the apology and returns cause for logging.
func (s *Service) fail(ctx context.Context, chatID, apology string, cause error) error {
	if err := s.reply(ctx, chatID, apology); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (s *Service) action(ctx context.Context, chatID string, action bus.ChatAction) {
	if err := s.transport.SendAction(ctx, chatID, action); err != nil {
		s.logger.Debug("chat action", "chat", chatID, "action", string(action), "error", err)
	}
}

func pageMessage(chatID string, page render.Page) bus.OutboundMessage {
	return bus.OutboundMessage{
		ChatID:   chatID,
		Content:  page.Text,
		Markdown: true,
		Nav:      page.Nav,
	}
}
