package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// WorkOptions holds flags for the work command.
type WorkOptions struct {
	*RootOptions
	Once bool
}

// WorkResult is the JSON payload of work --once.
type WorkResult struct {
	Processed int `json:"processed"`
}

// NewWorkCommand creates the work command.
func NewWorkCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WorkOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "work",
		Short: "Process queued poll and propagate tasks",
		Long: `Run the task worker until interrupted.

With --once, process one batch from every queue and exit.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWork(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Once, "once", false, "process one batch and exit")

	return cmd
}

func runWork(opts *WorkOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	a, err := openApp(opts.RootOptions, f, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	w := a.newWorker()

	if opts.Once {
		n, err := w.DrainOnce(cmd.Context())
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeDatabase, "failed to process tasks", err)
		}
		return f.Emit(WorkResult{Processed: n}, func(out io.Writer) {
			fmt.Fprintf(out, "processed %d task(s)\n", n)
		})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return f.Fail(ExitFailure, ErrCodeGeneric, "worker stopped", err)
	}
	return nil
}
