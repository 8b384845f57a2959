package notification

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Sender is the dispatcher contract, identical to service.Notifier.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Fanout sends every notice to all dispatchers.  One failing dispatcher
// does not stop the others; the joined error is returned.
type Fanout []Sender

// Send implements service.Notifier.
func (f Fanout) Send(ctx context.Context, to, subject, body string) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(ctx, to, subject, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log records notices in the application log.  It is the dispatcher of
// last resort and never fails.
type Log struct {
	log *zap.Logger
}

// NewLog returns a Log dispatcher.
func NewLog(log *zap.Logger) *Log { return &Log{log: log.Named("notice")} }

// Send implements service.Notifier.
func (l *Log) Send(_ context.Context, to, subject, body string) error {
	l.log.Info(subject, zap.String("to", to), zap.String("body", body))
	return nil
}
