package cancel

import (
	"context"
	"log/slog"
	"os"

	"golang.org/x/term"
)

const escByte = 0x1b

// WatchEscKey puts stdin into raw mode (when it is a terminal) and
// requests cancellation on Token the moment ESC is read. It returns
// immediately if stdin is not a terminal (e.g. piped input, CI runs).
// The watcher goroutine exits when ctx is cancelled.
func WatchEscKey(ctx context.Context, token *Token, logger *slog.Logger) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		logger.Debug("could not enter raw terminal mode for cancellation watcher", "error", err)
		return
	}

	go func() {
		defer term.Restore(fd, oldState)

		buf := make([]byte, 1)
		for {
			if ctx.Err() != nil {
				return
			}
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n > 0 && buf[0] == escByte {
				logger.Info("cancellation requested via ESC")
				token.RequestCancel()
				return
			}
		}
	}()
}
