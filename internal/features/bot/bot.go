// Package bot exposes tracking lookups as Telegram chat commands.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"resi-tracker/internal/core/logger"
	"resi-tracker/internal/features/tracking/domain"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Tracker is the tracking operations the bot needs.
type Tracker interface {
	Lookup(ctx context.Context, carrier, waybill string) (*domain.LookupResult, error)
	IsKnown(carrier string) bool
	Expeditions() []string
}

// Config holds the bot settings.
type Config struct {
	Token       string
	PollTimeout time.Duration
	// Client performs Bot API calls; nil uses telebot's default client.
	Client *http.Client
	// Offline skips the getMe call on start-up.
	Offline bool
}

// Bot routes chat commands to the tracker.
type Bot struct {
	api     *tele.Bot
	tracker Tracker
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger

	mu      sync.Mutex
	polling bool
	stopped bool
}

// command is a published chat command.
type command struct {
	name        string
	description string
	handler     tele.HandlerFunc
}

// New creates a Bot and registers its handlers.
func New(cfg Config, tracker Tracker) (*Bot, error) {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}

	bot := &Bot{
		tracker: tracker,
		logger:  logger.Get(),
	}
	bot.ctx, bot.cancel = context.WithCancel(context.Background())

	pref := tele.Settings{
		Token:   cfg.Token,
		Poller:  &tele.LongPoller{Timeout: cfg.PollTimeout},
		Client:  cfg.Client,
		Offline: cfg.Offline,
		OnError: bot.onError,
	}

	api, err := tele.NewBot(pref)
	if err != nil {
		bot.cancel()
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot.api = api
	bot.register()
	return bot, nil
}

// commands lists the commands published to Telegram, in menu order.
func (b *Bot) commands() []command {
	return []command{
		{"cek_resi", "Cek resi dari berbagai ekspedisi", b.handleCekResi},
		{"cek_resi_cek_ekspedisi", "Cek ekspedisi tersedia", b.handleCekEkspedisi},
		{"hex2rgb", "convert hex color scheme to rgb", b.handleHexToRGB},
		{"caps", "uppercase text", b.handleCaps},
	}
}

func (b *Bot) register() {
	for _, cmd := range b.commands() {
		b.api.Handle("/"+cmd.name, cmd.handler)
	}
	b.api.Handle("/start", b.handleStart)

	// Unregistered commands fall through to OnText.
	b.api.Handle(tele.OnText, b.handleText)
	b.api.Handle(tele.OnQuery, b.handleInlineCaps)
}

// Start publishes the command menu and polls for updates until Stop is called.
// It returns immediately if Stop was called first.
func (b *Bot) Start() {
	if b.isStopped() {
		return
	}
	if err := b.publishCommands(); err != nil {
		b.logger.Error("Failed to publish bot commands", zap.Error(err))
	}

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.polling = true
	b.mu.Unlock()

	b.logger.Info("Bot started", zap.String("username", b.api.Me.Username))
	b.api.Start()
}

// Stop cancels in-flight lookups and stops polling. It is safe to call before Start.
func (b *Bot) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	polling := b.polling
	b.mu.Unlock()

	b.cancel()
	// telebot's Stop blocks until the poll loop receives it.
	if polling {
		b.api.Stop()
	}
}

func (b *Bot) isStopped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopped
}

func (b *Bot) publishCommands() error {
	cmds := b.commands()
	menu := make([]tele.Command, 0, len(cmds))
	for _, cmd := range cmds {
		menu = append(menu, tele.Command{Text: cmd.name, Description: cmd.description})
	}
	return b.api.SetCommands(menu)
}

func (b *Bot) onError(err error, c tele.Context) {
	fields := []zap.Field{zap.Error(err)}
	if c != nil && c.Chat() != nil {
		fields = append(fields, zap.Int64("chat_id", c.Chat().ID))
	}
	b.logger.Error("Bot handler failed", fields...)
}
