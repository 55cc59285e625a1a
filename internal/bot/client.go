package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the outbound half of the chat transport.
type Sender interface {
	SendMessage(chatID int64, text string, markup any) error
	SendPhoto(chatID int64, name string, png []byte, caption string) error
	AnswerCallback(callbackID, text string) error
}

// Client wraps the Telegram Bot API.
type Client struct {
	api *tgbotapi.BotAPI
	log *zap.Logger
}

func NewClient(token string, log *zap.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	log = log.Named("telegram")
	log.Info("authorized", zap.String("bot", api.Self.UserName))
	return &Client{api: api, log: log}, nil
}

func (c *Client) SendMessage(chatID int64, text string, markup any) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err := c.api.Send(msg)
	return err
}

func (c *Client) SendPhoto(chatID int64, name string, png []byte, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: png})
	if caption != "" {
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeHTML
	}
	_, err := c.api.Send(photo)
	return err
}

func (c *Client) AnswerCallback(callbackID, text string) error {
	_, err := c.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// RegisterCommands publishes the slash commands shown in the Telegram menu.
func (c *Client) RegisterCommands() error {
	_, err := c.api.Request(tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Начать / главное меню"},
		tgbotapi.BotCommand{Command: "cancel", Description: "Отменить текущее действие"},
		tgbotapi.BotCommand{Command: "help", Description: "Справка"},
	))
	return err
}

// SetWebhook points Telegram at url; an empty url switches back to polling.
func (c *Client) SetWebhook(url string) error {
	if url == "" {
		_, err := c.api.Request(tgbotapi.DeleteWebhookConfig{})
		return err
	}
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return err
	}
	_, err = c.api.Request(wh)
	return err
}

// Poll long-polls for updates and forwards them to events until ctx ends.
func (c *Client) Poll(ctx context.Context, events chan<- Event) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.api.GetUpdatesChan(u)
	defer c.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case up, ok := <-updates:
			if !ok {
				return
			}
			ev, ok := EventFromUpdate(up)
			if !ok {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
