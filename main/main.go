package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/pprof"
	"time"

	"github.com/spf13/cobra"

	"github.com/phil-mansfield/gogrid/io"
	"github.com/phil-mansfield/gogrid/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gogrid",
		Short: "Domain-decomposed grid and ring computations",
		Long: `gogrid splits a computation across a group of workers which exchange
boundary values every cycle and agree on when to stop.

Each mode reads a config file. Run 'gogrid example-config <mode>' to print
an annotated example.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("log-level", "info",
		"Log level: info, debug or trace")
	rootCmd.PersistentFlags().Duration("timeout", 0,
		"Abort the run after this long (0 means never)")

	rootCmd.AddCommand(
		newHeatCmd(),
		newNBodyCmd(),
		newWireCmd(),
		newExampleConfigCmd(),
	)
	return rootCmd
}

func newExampleConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "example-config <heat|nbody|wire>",
		Short:     "Print an example config file",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"heat", "nbody", "wire"},
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := io.ExampleConfig(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

// FileGroup holds the optional output files of a run.
type FileGroup struct {
	log, prof *os.File
}

// NewFileGroup opens the log and profile files named by con. Log records go
// to stderr when no log file is given.
func NewFileGroup(con *io.SharedConfig) (*FileGroup, error) {
	fg := &FileGroup{}
	if con.ValidLogFile() {
		f, err := os.Create(con.LogFile)
		if err != nil {
			return nil, err
		}
		fg.log = f
	}

	if con.ValidProfileFile() {
		f, err := os.Create(con.ProfileFile)
		if err != nil {
			fg.Close()
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			fg.Close()
			return nil, err
		}
		fg.prof = f
	}

	return fg, nil
}

// Logger returns a logger writing to the group's log file.
func (fg *FileGroup) Logger(level string) *slog.Logger {
	if fg.log != nil {
		return logging.NewLogger(level, fg.log)
	}
	return logging.NewLogger(level, os.Stderr)
}

func (fg *FileGroup) Close() error {
	var first error
	if fg.prof != nil {
		pprof.StopCPUProfile()
		first = fg.prof.Close()
		fg.prof = nil
	}
	if fg.log != nil {
		if err := fg.log.Close(); err != nil && first == nil {
			first = err
		}
		fg.log = nil
	}
	return first
}

// runContext returns the context a run executes under. A positive --timeout
// acts as a watchdog: the run is aborted once it expires.
func runContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout > 0 {
		return context.WithTimeout(cmd.Context(), timeout)
	}
	return context.WithCancel(cmd.Context())
}

// runMode opens con's files, runs f under a watchdog, and closes the files.
func runMode(
	cmd *cobra.Command, con *io.SharedConfig,
	f func(ctx context.Context, log *slog.Logger) error,
) (err error) {
	fg, err := NewFileGroup(con)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fg.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	level, _ := cmd.Flags().GetString("log-level")
	log := fg.Logger(level)

	ctx, cancel := runContext(cmd)
	defer cancel()

	start := time.Now()
	if err := f(ctx, log); err != nil {
		log.Error("run failed", "error", err)
		return err
	}
	log.Info("done", "elapsed", time.Since(start))
	return nil
}
