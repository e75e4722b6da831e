// Package async provides the detached-task primitive used for all
// fire-and-forget work. Failures are observed only through logging;
// callers never wait on the result.
package async

import (
	"github.com/wb-go/wbf/zlog"
)

// Detach runs fn in its own goroutine. A returned error or a panic is
// logged under the given task name and never reaches the caller.
func Detach(name string, fn func() error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				zlog.Logger.Error().
					Str("task", name).
					Interface("panic", r).
					Msg("detached task panicked")
			}
		}()

		if err := fn(); err != nil {
			zlog.Logger.Err(err).
				Str("task", name).
				Msg("detached task failed")
		}
	}()
}
