package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/anas-shakeel/imgconv/internal/bmp"
	"github.com/anas-shakeel/imgconv/internal/config"
	"github.com/anas-shakeel/imgconv/internal/logging"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// app is the state shared by every command of one invocation
type app struct {
	cfg     config.Config
	closers []io.Closer
}

func (a *app) encodeOptions() *bmp.EncodeOptions {
	return &bmp.EncodeOptions{
		XPelsPerMeter: a.cfg.Encode.XPelsPerMeter,
		YPelsPerMeter: a.cfg.Encode.YPelsPerMeter,
	}
}

// Releases the log files opened during setup. Cobra skips post-run hooks
// when a command fails, so the caller closes after Execute returns.
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewRoot builds the command tree. The returned closer must be closed
// once Execute has returned, whatever its outcome.
func NewRoot(ctx context.Context, gitsha string) (*cobra.Command, io.Closer) {
	a := &app{cfg: config.Default()}

	cmd := &cobra.Command{
		Use:          "imgconv",
		Short:        "read, write and transform 24-bit BMP images",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd.OutOrStdout(), cmd, 0)
		},
	}
	cmd.AddCommand(
		NewVersionCmd(gitsha),
		NewInfoCmd(),
		NewPrintCmd(),
		NewCopyCmd(a),
		NewFilterCmd(a),
		NewCropCmd(a),
		NewFlipCmd(a),
		NewNewCmd(a),
	)
	pf := cmd.PersistentFlags()
	pf.String("config", "", "YAML configuration file")
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.Bool("log-json", false, "Log as JSON")
	pf.String("log-file", "", "Log to a rotated file instead of stderr")
	cmd.SetContext(ctx)
	return cmd, a
}

// Loads configuration, installs the default logger and tags the
// command context with a run id.
func (a *app) setup(cmd *cobra.Command) error {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON, _ = flags.GetBool("log-json")
	}
	if flags.Changed("log-file") {
		cfg.Log.File, _ = flags.GetString("log-file")
	}
	a.cfg = cfg

	out := cmd.ErrOrStderr()
	if cfg.Log.File != "" {
		fw := logging.FileWriter(logging.FileOptions{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		})
		a.closers = append(a.closers, fw)
		out = fw
	}

	var level slog.Level
	levelErr := level.UnmarshalText([]byte(strings.ToUpper(cfg.Log.Level)))
	if levelErr != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(logging.Logger(out, cfg.Log.JSON, level))

	ctx := logging.AppendCtx(cmd.Context(), slog.String("run", uuid.NewString()))
	cmd.SetContext(ctx)

	if levelErr != nil {
		slog.WarnContext(ctx, "Invalid log level, defaulting to INFO", "level", cfg.Log.Level, "error", levelErr)
	}
	return nil
}

func printCommandTree(w io.Writer, cmd *cobra.Command, indent int) {
	fmt.Fprintln(w, strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(w, subCmd, indent+1)
	}
}

func NewVersionCmd(gitsha string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), gitsha)
		},
	}
}
