package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// runConsole reads administrative commands from in, one per line, until ctx
// is canceled or the input is exhausted. "exit" requests a graceful
// shutdown through cancel; "save" is a no-op, kept for symmetry with the
// write-through collection; anything else prints "Unknown command".
func (app *App) runConsole(ctx context.Context, cancel context.CancelFunc, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "exit":
			app.logger.Info(ctx, "console requested shutdown")
			cancel()
			return
		case "save":
			app.logger.Info(ctx, "console save requested (no-op under write-through persistence)")
		case "":
		default:
			fmt.Println("Unknown command")
		}
	}
}
