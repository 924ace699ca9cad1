package services

import (
	"context"
	"log/slog"
	"time"
)

// Outcome is how a downstream channel answered a notification.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeRejected
	OutcomeUnresponsive
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeUnresponsive:
		return "unresponsive"
	}
	return "unknown"
}

// Notifier delivers an HTML message to the owner of an identifier. None of
// the outcomes is fatal to the operation that triggered it.
type Notifier interface {
	Notify(ctx context.Context, to, subject, bodyHTML string) (Outcome, error)
}

// LogNotifier writes notifications to the logger instead of delivering them.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, to, subject, bodyHTML string) (Outcome, error) {
	if n != nil && n.logger != nil {
		n.logger.InfoContext(ctx, "notification", "to", to, "subject", subject, "body", bodyHTML)
	}
	return OutcomeAccepted, nil
}

type multiNotifier struct {
	primary Notifier
	extra   []Notifier
	logger  *slog.Logger
}

// MultiNotifier sends through every channel. Only the primary channel's
// outcome and error are returned; extra channel failures are logged.
func MultiNotifier(logger *slog.Logger, primary Notifier, extra ...Notifier) Notifier {
	if len(extra) == 0 {
		return primary
	}
	return &multiNotifier{primary: primary, extra: extra, logger: logger}
}

func (m *multiNotifier) Notify(ctx context.Context, to, subject, bodyHTML string) (Outcome, error) {
	outcome, err := m.primary.Notify(ctx, to, subject, bodyHTML)
	for _, n := range m.extra {
		if o, e := n.Notify(ctx, to, subject, bodyHTML); e != nil || o != OutcomeAccepted {
			m.logger.WarnContext(ctx, "extra notification channel failed",
				"to", to, "subject", subject, "outcome", o.String(), "error", e)
		}
	}
	return outcome, err
}

// deliver sends on a context detached from the caller's cancellation and
// logs the outcome. It never returns a failure.
func deliver(ctx context.Context, n Notifier, logger *slog.Logger, timeout time.Duration, to, subject, body string) {
	if n == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	outcome, err := n.Notify(nctx, to, subject, body)
	if err != nil || outcome != OutcomeAccepted {
		logger.WarnContext(ctx, "notification not delivered",
			"to", to, "subject", subject, "outcome", outcome.String(), "error", err)
		return
	}
	logger.DebugContext(ctx, "notification sent", "to", to, "subject", subject)
}
