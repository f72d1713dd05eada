// Package telegram is the chat front end: a retrying message client and the
// command bot built on it.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// ErrChatUnavailable means the user blocked the bot or the chat is gone;
// retrying will not help.
var ErrChatUnavailable = errors.New("telegram: chat unavailable")

// Sender delivers one request. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client sends messages with retry. Markdown that Telegram refuses to parse
// is resent as plain text.
type Client struct {
	sender         Sender
	maxRetries     int
	retryDelayBase time.Duration
	log            logrus.FieldLogger
}

func NewClient(sender Sender, maxRetries int, retryDelayBase time.Duration, log logrus.FieldLogger) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		sender:         sender,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		log:            log.WithField("component", "telegram"),
	}
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	return c.send(ctx, &msg.ParseMode, &msg)
}

func (c *Client) SendPNG(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	photo.Caption = caption
	return c.send(ctx, nil, photo)
}

func (c *Client) send(ctx context.Context, parseMode *string, msg tgbotapi.Chattable) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.sender.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		switch {
		case isForbidden(err):
			return fmt.Errorf("%w: %v", ErrChatUnavailable, err)
		case parseMode != nil && *parseMode != "" && isParseError(err):
			c.log.WithError(err).Debug("telegram: markdown rejected, resending as plain text")
			*parseMode = ""
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

func isForbidden(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Forbidden") || strings.Contains(msg, "chat not found")
}

func isParseError(err error) bool {
	return strings.Contains(err.Error(), "can't parse entities")
}
