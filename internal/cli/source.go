package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/syndicate/internal/model"
	"github.com/roach88/syndicate/internal/syndication"
)

// SourceAddOptions holds flags for the source add command.
type SourceAddOptions struct {
	*RootOptions
	Key string
}

// SourceResult is the JSON payload of source add.
type SourceResult struct {
	Source   model.Source `json:"source"`
	Messages []string     `json:"messages"`
}

// NewSourceCommand creates the source command group.
func NewSourceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Manage polled sources",
	}
	cmd.AddCommand(newSourceAddCommand(rootOpts))
	cmd.AddCommand(newSourceListCommand(rootOpts))
	return cmd
}

func newSourceAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SourceAddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <kind> <short-name> <name>",
		Short: "Add a source, or refresh it if the key exists",
		Long: `Add a source and queue its first poll.

If a source with the same key already exists it is updated in place and
polled again.

Examples:
  syndicate source add FakeSource fake "my fake account"
  syndicate source add TwitterSource twitter @me --key 1234`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSourceAdd(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Key, "key", "", "explicit source key (generated when empty)")

	return cmd
}

func runSourceAdd(opts *SourceAddOptions, args []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	a, err := openApp(opts.RootOptions, f, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	var msgs syndication.MessageSet
	src, err := a.pub.CreateNew(cmd.Context(), syndication.CreateRequest{
		Kind:      args[0],
		ShortName: args[1],
		Name:      args[2],
		Key:       opts.Key,
	}, &msgs)
	if err != nil {
		return failFor(f, "failed to add source", err)
	}

	result := SourceResult{Source: src, Messages: msgs.Messages()}
	return f.Emit(result, func(w io.Writer) {
		for _, m := range result.Messages {
			fmt.Fprintln(w, m)
		}
		fmt.Fprintf(w, "Source %s queued for polling.\n", src.DOMID())
	})
}

func newSourceListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List sources",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSourceList(rootOpts, cmd)
		},
	}
}

func runSourceList(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	a, err := openApp(opts, f, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	sources, err := a.store.ListSources(cmd.Context())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to list sources", err)
	}

	return f.Emit(sources, func(w io.Writer) {
		if len(sources) == 0 {
			fmt.Fprintln(w, "No sources.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tKIND\tSHORT NAME\tNAME\tLAST POLLED")
		for _, s := range sources {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Key, s.Kind, s.ShortName, s.Name, model.FormatPollTime(s.LastPolled))
		}
		tw.Flush()
	})
}
