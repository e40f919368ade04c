package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/stellarlinkco/rosterbot/internal/bus"
	"github.com/stellarlinkco/rosterbot/internal/config"
)

const (
	telegramChannelName = "telegram"

	// Telegram caps messages at 4096 characters; leave room for markup.
	maxMessageLen = 3900
)

var errBotNotInitialized = errors.New("telegram bot not initialized")

// TelegramBot interface for mocking telegram bot API
type TelegramBot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	// Request is for calls whose result is not a Message (delete, chat
	// action, callback answer, webhook setup).
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
	GetSelf() tgbotapi.User
}

// tgBotWrapper wraps tgbotapi.BotAPI to implement TelegramBot interface
type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return w.bot.GetUpdatesChan(config)
}

func (w *tgBotWrapper) StopReceivingUpdates() {
	w.bot.StopReceivingUpdates()
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return w.bot.Request(c)
}

func (w *tgBotWrapper) HandleUpdate(r *http.Request) (*tgbotapi.Update, error) {
	return w.bot.HandleUpdate(r)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

// BotFactory creates TelegramBot instances (allows mocking)
type BotFactory func(token, apiEndpoint string, client *http.Client) (TelegramBot, error)

// defaultBotFactory creates real telegram bot
var defaultBotFactory BotFactory = func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: bot}, nil
}

// TelegramChannel receives updates by long polling or webhook and implements
// the chat transport used by the lookup service.
type TelegramChannel struct {
	BaseChannel
	token         string
	proxy         string
	mode          string
	webhookURL    string
	webhookSecret string
	bot           TelegramBot
	cancel        context.CancelFunc
	botFactory    BotFactory
	logger        *slog.Logger
}

func NewTelegramChannel(cfg config.TelegramConfig, b *bus.MessageBus) (*TelegramChannel, error) {
	return NewTelegramChannelWithFactory(cfg, b, defaultBotFactory)
}

// NewTelegramChannelWithFactory creates a TelegramChannel with custom bot factory (for testing)
func NewTelegramChannelWithFactory(cfg config.TelegramConfig, b *bus.MessageBus, factory BotFactory) (*TelegramChannel, error) {
	if cfg.Token == "" {
		return nil, config.ErrNoToken
	}

	mode := cfg.Mode
	if mode == "" {
		mode = config.ModePolling
	}
	ch := &TelegramChannel{
		BaseChannel:   NewBaseChannel(telegramChannelName, b, cfg.AllowFrom),
		token:         cfg.Token,
		proxy:         cfg.Proxy,
		mode:          mode,
		webhookURL:    strings.TrimRight(cfg.WebhookURL, "/"),
		webhookSecret: cfg.WebhookSecret,
		botFactory:    factory,
		logger:        slog.Default().With("component", telegramChannelName),
	}
	return ch, nil
}

func (t *TelegramChannel) WithLogger(logger *slog.Logger) *TelegramChannel {
	if logger != nil {
		t.logger = logger.With("component", telegramChannelName)
	}
	return t
}

func (t *TelegramChannel) initBot() error {
	client := http.DefaultClient
	if t.proxy != "" {
		proxyURL, err := url.Parse(t.proxy)
		if err != nil {
			return fmt.Errorf("parse proxy url: %w", err)
		}
		client = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	bot, err := t.botFactory(t.token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	t.bot = bot
	t.logger.Info("authorized", "username", bot.GetSelf().UserName)
	return nil
}

func (t *TelegramChannel) Start(ctx context.Context) error {
	if err := t.initBot(); err != nil {
		return err
	}

	ctx, t.cancel = context.WithCancel(ctx)

	if t.mode == config.ModeWebhook {
		return t.registerWebhook()
	}

	if _, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		t.logger.Warn("delete webhook", "error", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				t.HandleUpdate(ctx, update)
			case <-ctx.Done():
				return
			}
		}
	}()

	t.logger.Info("polling started")
	return nil
}

func (t *TelegramChannel) registerWebhook() error {
	if t.webhookURL == "" {
		return errors.New("webhook mode requires telegram.webhookUrl")
	}
	wh, err := tgbotapi.NewWebhook(t.webhookURL + t.WebhookPath())
	if err != nil {
		return fmt.Errorf("build webhook: %w", err)
	}
	if _, err := t.bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	t.logger.Info("webhook registered", "url", t.webhookURL+"/webhook/***")
	return nil
}

// WebhookPath is the route Telegram posts updates to.
func (t *TelegramChannel) WebhookPath() string {
	if t.webhookSecret == "" {
		return "/webhook"
	}
	return "/webhook/" + t.webhookSecret
}

func (t *TelegramChannel) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}
	if t.bot != nil && t.mode != config.ModeWebhook {
		t.bot.StopReceivingUpdates()
	}
	t.logger.Info("stopped")
	return nil
}

// SetBot sets the bot (for testing)
func (t *TelegramChannel) SetBot(bot TelegramBot) {
	t.bot = bot
}

// HandleUpdate turns one Telegram update into a bus event.
func (t *TelegramChannel) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		t.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		t.handleMessage(ctx, update.Message)
	}
}

func (t *TelegramChannel) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	senderID := strconv.FormatInt(msg.From.ID, 10)

	if !t.IsAllowed(senderID) {
		t.logger.Info("rejected message", "sender", senderID, "username", msg.From.UserName)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	kind := bus.KindText
	if msg.IsCommand() {
		switch strings.ToLower(msg.Command()) {
		case "start", "help":
			kind = bus.KindStart
		case "stats", "stat":
			kind = bus.KindStats
		case "chart", "grafik":
			kind = bus.KindChart
		default:
			t.logger.Debug("unknown command", "command", msg.Command())
			return
		}
	}

	t.publish(ctx, bus.InboundEvent{
		SenderID:  senderID,
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		Kind:      kind,
		Text:      text,
		MessageID: msg.MessageID,
		Timestamp: time.Unix(int64(msg.Date), 0),
		Metadata: map[string]any{
			"username":   msg.From.UserName,
			"first_name": msg.From.FirstName,
		},
	})
}

// handleCallback answers the query right away so the client stops its
// spinner, then forwards valid page tokens.
func (t *TelegramChannel) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if _, err := t.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		t.logger.Debug("answer callback", "error", err)
	}
	if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	senderID := strconv.FormatInt(cq.From.ID, 10)
	if !t.IsAllowed(senderID) {
		t.logger.Info("rejected callback", "sender", senderID)
		return
	}

	page, ok := bus.ParseNavToken(cq.Data)
	if !ok {
		t.logger.Debug("ignored callback", "data", cq.Data)
		return
	}

	t.publish(ctx, bus.InboundEvent{
		SenderID:  senderID,
		ChatID:    strconv.FormatInt(cq.Message.Chat.ID, 10),
		Kind:      bus.KindNavigate,
		Page:      page,
		MessageID: cq.Message.MessageID,
		Timestamp: time.Now(),
	})
}

func (t *TelegramChannel) publish(ctx context.Context, ev bus.InboundEvent) {
	ev.ID = uuid.NewString()
	ev.Channel = telegramChannelName
	if err := t.bus.Publish(ctx, ev); err != nil {
		t.logger.Warn("drop event", "chat", ev.ChatID, "kind", ev.Kind.String(), "error", err)
	}
}

// SendText posts msg, split on line boundaries when it is too long. Page
// controls and the menu keyboard go on the last chunk, whose id is returned.
func (t *TelegramChannel) SendText(ctx context.Context, msg bus.OutboundMessage) (int, error) {
	chatID, err := t.target(ctx, msg.ChatID)
	if err != nil {
		return 0, err
	}

	chunks := splitMessage(msg.Content, maxMessageLen)
	var last tgbotapi.Message
	for i, chunk := range chunks {
		tgMsg := tgbotapi.NewMessage(chatID, chunk)
		if msg.Markdown {
			tgMsg.ParseMode = tgbotapi.ModeMarkdown
		}
		if i == len(chunks)-1 {
			if kb, ok := navKeyboard(msg.Nav); ok {
				tgMsg.ReplyMarkup = kb
			} else if msg.Menu {
				tgMsg.ReplyMarkup = menuKeyboard()
			}
		}

		last, err = t.bot.Send(tgMsg)
		if err != nil && tgMsg.ParseMode != "" {
			// Retry without Markdown parse mode
			t.logger.Debug("markdown rejected, sending plain", "chat", msg.ChatID, "error", err)
			tgMsg.ParseMode = ""
			last, err = t.bot.Send(tgMsg)
		}
		if err != nil {
			return 0, fmt.Errorf("send telegram message: %w", err)
		}
	}
	return last.MessageID, nil
}

// EditText replaces the text and page controls of a message. An edit that
// changes nothing counts as success.
func (t *TelegramChannel) EditText(ctx context.Context, messageID int, msg bus.OutboundMessage) error {
	chatID, err := t.target(ctx, msg.ChatID)
	if err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, msg.Content)
	if msg.Markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}
	if kb, ok := navKeyboard(msg.Nav); ok {
		edit.ReplyMarkup = &kb
	}
	if _, err := t.bot.Send(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("edit telegram message: %w", err)
	}
	return nil
}

func (t *TelegramChannel) DeleteMessage(ctx context.Context, chatID string, messageID int) error {
	id, err := t.target(ctx, chatID)
	if err != nil {
		return err
	}
	if _, err := t.bot.Request(tgbotapi.NewDeleteMessage(id, messageID)); err != nil {
		return fmt.Errorf("delete telegram message: %w", err)
	}
	return nil
}

func (t *TelegramChannel) SendImage(ctx context.Context, chatID string, png []byte, caption string) error {
	id, err := t.target(ctx, chatID)
	if err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(id, tgbotapi.FileBytes{Name: "chart.png", Bytes: png})
	photo.Caption = caption
	if _, err := t.bot.Send(photo); err != nil {
		return fmt.Errorf("send telegram photo: %w", err)
	}
	return nil
}

func (t *TelegramChannel) SendAction(ctx context.Context, chatID string, action bus.ChatAction) error {
	id, err := t.target(ctx, chatID)
	if err != nil {
		return err
	}
	name := tgbotapi.ChatTyping
	if action == bus.ActionUploadPhoto {
		name = tgbotapi.ChatUploadPhoto
	}
	if _, err := t.bot.Request(tgbotapi.NewChatAction(id, name)); err != nil {
		return fmt.Errorf("send chat action: %w", err)
	}
	return nil
}

// target checks that a call may go out and parses the chat id.
func (t *TelegramChannel) target(ctx context.Context, chatID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if t.bot == nil {
		return 0, errBotNotInitialized
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	return id, nil
}
