// Package notify decides nothing itself: callers pick the channel and
// message, delivery is an external collaborator with no guarantee modeled.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Notifier dispatches a message to a recipient over a channel
// (email, sms, slack).
type Notifier interface {
	Send(ctx context.Context, channel, recipient, message string) error
}

// LogNotifier writes notifications to the log instead of delivering
// them. Used until a real delivery provider is wired in.
type LogNotifier struct {
	log *logrus.Entry
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logrus.WithField("component", "notify")}
}

func (n *LogNotifier) Send(ctx context.Context, channel, recipient, message string) error {
	n.log.WithFields(logrus.Fields{
		"channel":   channel,
		"recipient": recipient,
	}).Info(message)
	return nil
}
