package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/syndicate/internal/model"
	"github.com/roach88/syndicate/internal/store"
)

// TasksOptions holds flags for the tasks command.
type TasksOptions struct {
	*RootOptions
	Dead bool
}

// NewTasksCommand creates the tasks command.
func NewTasksCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TasksOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tasks [queue]",
		Short: "List queued tasks",
		Long: `List pending tasks, optionally limited to one queue (propagate or poll).

With --dead, list tasks that failed permanently instead.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			queue := ""
			if len(args) == 1 {
				queue = args[0]
			}
			return runTasks(opts, queue, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Dead, "dead", false, "list dead-lettered tasks")

	return cmd
}

func runTasks(opts *TasksOptions, queue string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	if queue != "" && queue != model.QueuePropagate && queue != model.QueuePoll {
		return f.Fail(ExitCommandError, ErrCodeInvalid,
			fmt.Sprintf("unknown queue %q: must be %s or %s", queue, model.QueuePropagate, model.QueuePoll), nil)
	}

	a, err := openApp(opts.RootOptions, f, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.Dead {
		dead, err := a.store.ListDeadTasks(cmd.Context())
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to list dead tasks", err)
		}
		return f.Emit(dead, func(w io.Writer) { printDeadTasks(w, dead) })
	}

	tasks, err := a.store.ListTasks(cmd.Context(), queue)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to list tasks", err)
	}
	return f.Emit(tasks, func(w io.Writer) { printTasks(w, tasks) })
}

func printTasks(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tQUEUE\tURL\tPARAMS\tATTEMPTS\tNEXT RUN")
	for _, t := range tasks {
		params, _ := model.MarshalParams(t.Params)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			t.ID, t.Queue, t.URL, params, t.Attempts, t.NextRunAt.Format(time.RFC3339))
	}
	tw.Flush()
}

func printDeadTasks(w io.Writer, dead []store.DeadTask) {
	if len(dead) == 0 {
		fmt.Fprintln(w, "No dead tasks.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tQUEUE\tURL\tATTEMPTS\tFAILED AT\tERROR")
	for _, d := range dead {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			d.ID, d.Queue, d.URL, d.Attempts, d.FailedAt.Format(time.RFC3339), d.Error)
	}
	tw.Flush()
}
