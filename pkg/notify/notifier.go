// Package notify delivers developer-facing notifications. Desktop alerts go
// through beeep; delivery failures are logged and never propagate, since a
// missing notification daemon must not break the pipeline.
package notify

import (
	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"
)

// Notifier delivers a short developer notification
type Notifier interface {
	Notify(title, message string)
}

// DesktopNotifier sends notifications through the OS notification service
type DesktopNotifier struct {
	log zerolog.Logger
}

// NewDesktopNotifier creates a desktop notifier
func NewDesktopNotifier(log zerolog.Logger) *DesktopNotifier {
	return &DesktopNotifier{
		log: log.With().Str("component", "notify").Logger(),
	}
}

// Notify implements Notifier; failures are log-only
func (n *DesktopNotifier) Notify(title, message string) {
	if err := beeep.Notify(title, message, ""); err != nil {
		n.log.Debug().Err(err).Str("title", title).Msg("desktop notification failed")
	}
}

// LogNotifier writes notifications to the log only, for headless runs
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notify").Logger()}
}

// Notify implements Notifier
func (n *LogNotifier) Notify(title, message string) {
	n.log.Info().Str("title", title).Msg(message)
}
