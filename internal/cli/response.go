package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/syndicate/internal/model"
)

// ResponseSaveOptions holds flags for the response save command.
type ResponseSaveOptions struct {
	*RootOptions
	Source   string
	Payload  string
	Activity string
}

// NewResponseCommand creates the response command group.
func NewResponseCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "response",
		Short: "Manage stored responses",
	}
	cmd.AddCommand(newResponseSaveCommand(rootOpts))
	cmd.AddCommand(newResponseListCommand(rootOpts))
	return cmd
}

func newResponseSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResponseSaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save <key>",
		Short: "Save a response once and queue its propagation",
		Long: `Save a response unless one with the same key is already stored.

Only the first save of a key queues a propagate task; saving the same key
again prints the stored response and changes nothing.

Example:
  syndicate response save tag:example.com,2013:1_2_3 --source 1 \
    --payload '{"objectType":"comment","content":"nice post"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResponseSave(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Source, "source", "", "key of the source the response was found on (required)")
	_ = cmd.MarkFlagRequired("source")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "response JSON")
	cmd.Flags().StringVar(&opts.Activity, "activity", "", "JSON of the post the response belongs to")

	return cmd
}

func runResponseSave(opts *ResponseSaveOptions, key string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	a, err := openApp(opts.RootOptions, f, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	saved, err := a.pub.GetOrSave(cmd.Context(), model.Response{
		Key:          key,
		SourceKey:    opts.Source,
		ActivityJSON: opts.Activity,
		ResponseJSON: opts.Payload,
	})
	if err != nil {
		return failFor(f, "failed to save response", err)
	}

	return f.Emit(saved, func(w io.Writer) {
		fmt.Fprintf(w, "Response %s: type=%s source=%s status=%s\n", saved.Key, saved.Type, saved.SourceKey, saved.Status)
	})
}

func newResponseListCommand(rootOpts *RootOptions) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List responses",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts, f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			responses, err := a.store.ListResponses(cmd.Context(), source)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeDatabase, "failed to list responses", err)
			}
			return f.Emit(responses, func(w io.Writer) {
				if len(responses) == 0 {
					fmt.Fprintln(w, "No responses.")
					return
				}
				for _, r := range responses {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Key, r.Type, r.SourceKey, r.Status)
				}
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "only list responses of this source")
	return cmd
}
