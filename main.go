// imgconv reads, writes and transforms 24-bit BMP images.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/anas-shakeel/imgconv/internal/cli"
	"github.com/anas-shakeel/imgconv/internal/logging"
)

var (
	GitSHA string = "NA"
)

func main() {
	ctx, cnc := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cnc()

	slog.SetDefault(logging.Logger(os.Stderr, false, slog.LevelInfo))
	ctx = logging.AppendCtx(ctx,
		slog.Group("imgconv",
			slog.String("git", GitSHA),
		))

	root, logs := cli.NewRoot(ctx, GitSHA)
	err := root.Execute()
	logs.Close()
	if err != nil {
		os.Exit(1)
	}
}
