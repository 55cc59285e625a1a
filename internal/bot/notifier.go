package bot

import (
	"strconv"

	"go.uber.org/zap"
)

// Notifier delivers messages to other participants. Delivery failures are
// logged and dropped.
type Notifier struct {
	out Sender
	log *zap.Logger
}

func NewNotifier(out Sender, log *zap.Logger) *Notifier {
	return &Notifier{out: out, log: log.Named("notifier")}
}

// Notify sends text to a participant; private chat ids equal user ids.
func (n *Notifier) Notify(participantID, text string, markup any) {
	chatID, err := strconv.ParseInt(participantID, 10, 64)
	if err != nil {
		n.log.Warn("participant id is not a chat id", zap.String("participant", participantID))
		return
	}
	if err := n.out.SendMessage(chatID, text, markup); err != nil {
		n.log.Warn("notification failed", zap.String("participant", participantID), zap.Error(err))
	}
}
