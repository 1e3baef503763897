// Package telegram adapts the dialogue engine to the Telegram bot API:
// update routing, middleware, keyboards and outbound delivery.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yairigal/train-coupon-bot/internal/config"
	"github.com/yairigal/train-coupon-bot/internal/conversation"
	"github.com/yairigal/train-coupon-bot/internal/logger"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Bot owns the telebot instance and delivers engine replies.
type Bot struct {
	cfg    *config.Config
	bot    *tele.Bot
	sender *sender
}

// New builds the bot without starting it.
func New(cfg *config.Config) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("telegram: nil config")
	}

	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: buildPoller(cfg),
		Client: buildHTTPClient(),
		OnError: func(err error, c tele.Context) {
			attrs := []slog.Attr{
				slog.String("event", "tg.handler"),
				slog.String("err", sanitizeErrorMessage(err)),
			}
			if c != nil {
				if user := c.Sender(); user != nil {
					attrs = append(attrs, slog.Int64("user_id", user.ID))
				}
			}
			logger.TG.LogAttrs(context.Background(), slog.LevelError, "handler error", attrs...)
		},
	}

	start := time.Now()
	bot, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	logger.TWire.Info("bot built",
		slog.String("event", "tg.build"),
		slog.Duration("duration", logger.Took(start)),
	)

	return &Bot{
		cfg:    cfg,
		bot:    bot,
		sender: newSender(senderOptions{MaxRetries: 2}),
	}, nil
}

// SendText delivers a plain message outside any exchange. Used by the
// broadcast fan-out.
func (b *Bot) SendText(userID int64, text string) error {
	return b.sender.do(context.Background(), "broadcast.text", func() error {
		_, err := b.bot.Send(&tele.User{ID: userID}, text)
		return err
	})
}

// Run wires middleware and routes for the engine and polls updates until
// the context is done.
func (b *Bot) Run(ctx context.Context, engine *conversation.Engine) error {
	if ctx == nil {
		ctx = context.Background()
	}

	b.bot.Use(recoverMiddleware)
	b.bot.Use(loggerMiddleware)
	if b.cfg.RateLimit.IntervalMS > 0 {
		b.bot.Use(rateLimitMiddleware(time.Duration(b.cfg.RateLimit.IntervalMS) * time.Millisecond))
	}

	b.bot.Handle("/start", func(c tele.Context) error {
		user := c.Sender()
		if user == nil {
			return nil
		}
		replies, err := engine.Start(contextOf(c), user.ID, user.Username)
		return b.deliver(c, replies, err)
	})

	b.bot.Handle("/stop", func(c tele.Context) error {
		user := c.Sender()
		if user == nil {
			return nil
		}
		replies, err := engine.Stop(contextOf(c), user.ID)
		return b.deliver(c, replies, err)
	})

	b.bot.Handle("/broadcast", func(c tele.Context) error {
		user := c.Sender()
		if user == nil {
			return nil
		}
		replies, err := engine.StartBroadcast(contextOf(c), user.ID)
		return b.deliver(c, replies, err)
	})

	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		user := c.Sender()
		if user == nil {
			return nil
		}
		replies, err := engine.Handle(contextOf(c), user.ID, c.Text())
		return b.deliver(c, replies, err)
	})

	b.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		user := c.Sender()
		cb := c.Callback()
		if user == nil || cb == nil {
			return nil
		}
		// Stop the client-side spinner before handling.
		_ = c.Respond(&tele.CallbackResponse{})
		input := strings.TrimPrefix(cb.Data, "\f")
		replies, err := engine.Handle(contextOf(c), user.ID, input)
		return b.deliver(c, replies, err)
	})

	if err := b.bot.SetCommands([]tele.Command{
		{Text: "start", Description: "Register and open the menu"},
		{Text: "stop", Description: "End the conversation"},
	}); err != nil {
		logger.TWire.Warn("set commands failed",
			slog.String("event", "tg.commands"),
			slog.String("err", sanitizeErrorMessage(err)),
		)
	}

	if strings.EqualFold(b.cfg.Telegram.RunMode, config.RunModeLongpoll) {
		if err := deleteWebhook(b.cfg.Telegram.Token); err != nil {
			logger.TG.Warn("failed to delete webhook",
				slog.String("event", "tg.delete_webhook"),
				slog.String("err", sanitizeErrorMessage(err)),
			)
		}
	}

	logger.TG.Info("bot started",
		slog.String("event", "tg.start"),
		slog.String("status", b.cfg.Telegram.RunMode),
	)

	done := make(chan struct{})
	go func() {
		b.bot.Start()
		close(done)
	}()

	select {
	case <-ctx.Done():
		b.bot.Stop()
		<-done
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return ctx.Err()
	case <-done:
		return nil
	}
}

// deliver sends the engine replies in order, then surfaces the engine error
// so it reaches the bot error hook.
func (b *Bot) deliver(c tele.Context, replies []conversation.Reply, engineErr error) error {
	ctx := contextOf(c)
	for _, r := range replies {
		var what any
		var opts []any

		switch {
		case len(r.Photo) > 0:
			what = &tele.Photo{File: tele.FromReader(bytes.NewReader(r.Photo))}
		default:
			what = r.Text
		}

		switch {
		case r.Keyboard != nil && r.Inline:
			opts = append(opts, inlineButtons(r.Keyboard))
		case r.Keyboard != nil:
			opts = append(opts, replyButtons(r.Keyboard))
		case r.RemoveKeyboard:
			opts = append(opts, removeMarkup())
		}

		sendErr := b.sender.do(ctx, "reply", func() error {
			return c.Send(what, opts...)
		})
		if sendErr != nil {
			return errors.Join(engineErr, sendErr)
		}
	}
	return engineErr
}

func buildPoller(cfg *config.Config) tele.Poller {
	if strings.EqualFold(cfg.Telegram.RunMode, config.RunModeWebhook) {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", cfg.Webhook.Listen, cfg.Webhook.Port),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}

	timeoutSec := cfg.Telegram.LongPollTimeoutSeconds
	if timeoutSec <= 0 {
		timeoutSec = 10
	}
	return &tele.LongPoller{Timeout: time.Duration(timeoutSec) * time.Second}
}

// deleteWebhook drops a leftover webhook registration before long polling,
// otherwise getUpdates is rejected by the API.
func deleteWebhook(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("empty token")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/deleteWebhook", token)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("drop_pending_updates=false"))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}
