package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/suda/punchcard/internal/bot"
)

const maxUpdateBytes = 1 << 20

// TelegramWebhook accepts updates pushed by Telegram and queues them for the
// dispatcher loop. The endpoint is guarded by /tg/webhook?secret=...
func TelegramWebhook(secret string, events chan<- bot.Event, log *zap.Logger) http.HandlerFunc {
	log = log.Named("webhook")
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.URL.Query().Get("secret")
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		defer r.Body.Close()
		b, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBytes))
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		var up tgbotapi.Update
		if err := json.Unmarshal(b, &up); err != nil {
			log.Warn("undecodable update", zap.Error(err))
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		if ev, ok := bot.EventFromUpdate(up); ok {
			select {
			case events <- ev:
			case <-r.Context().Done():
				// Telegram retries when we do not answer 200
				http.Error(w, "busy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
