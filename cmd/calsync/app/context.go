package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Context returns a context that is cancelled on SIGINT or SIGTERM so an
// in-flight reconciliation run can stop between tasks.
func Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
