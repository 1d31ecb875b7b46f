package notify

import (
	"context"

	"github.com/dmitrijs2005/rooftop/internal/logging"
)

// LogNotifier renders messages and writes them to the log instead of
// sending them. It always accepts.
type LogNotifier struct {
	log logging.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, recipient, templateID string, vars map[string]string) (bool, error) {
	subject, _, err := Render(templateID, vars)
	if err != nil {
		return false, err
	}

	args := []any{"to", recipient, "template", templateID, "subject", subject}
	for k, v := range vars {
		args = append(args, k, v)
	}
	n.log.Info(ctx, "email not sent, smtp disabled", args...)
	return true, nil
}
