// Package messagehandler provides a panic-safe wrapper for dispatching a single unit of work
// on one of the OSP's single-threaded executors, so a malformed input or a bug in a handler
// cannot kill the executor goroutine out from under every other pending tick.
package messagehandler

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "messagehandler")

// SafelyHandleMessage calls fn and recovers any panic it raises, logging the panic and its
// stack trace instead of propagating it. Per the error-handling model, a single bad input is
// dropped and the executor keeps running; there is no retry.
func SafelyHandleMessage(ctx context.Context, fn func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{
				"panic": fmt.Sprintf("%v", r),
				"stack": string(debug.Stack()),
			}).Error("Panic recovered in message handler")
		}
	}()

	if err := fn(ctx); err != nil {
		log.WithError(err).Error("Could not process message")
	}
}
