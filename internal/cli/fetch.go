package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/syndicate/internal/syndication"
)

// NewFetchCommand creates the fetch command group.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch posts and comments from the activity backend",
	}
	cmd.AddCommand(newFetchPostCommand(rootOpts))
	cmd.AddCommand(newFetchCommentCommand(rootOpts))
	return cmd
}

func newFetchPostCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "post <id>",
		Short:         "Fetch a single post",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts, f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			post, err := syndication.NewFetcher(a.backend).GetPost(cmd.Context(), args[0])
			if err != nil {
				return fetchFailed(f, "failed to fetch post", err)
			}
			return f.Emit(post, func(w io.Writer) { writeIndentedJSON(w, post) })
		},
	}
}

func newFetchCommentCommand(rootOpts *RootOptions) *cobra.Command {
	var activityID string
	cmd := &cobra.Command{
		Use:           "comment <id>",
		Short:         "Fetch a single comment",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts, f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			comment, err := syndication.NewFetcher(a.backend).GetComment(cmd.Context(), args[0], activityID)
			if err != nil {
				return fetchFailed(f, "failed to fetch comment", err)
			}
			return f.Emit(comment, func(w io.Writer) { writeIndentedJSON(w, comment) })
		},
	}
	cmd.Flags().StringVar(&activityID, "activity", "", "id of the post the comment belongs to")
	return cmd
}

func fetchFailed(f *OutputFormatter, message string, err error) error {
	if syndication.IsNotFound(err) {
		return f.Fail(ExitFailure, ErrCodeNotFound, message, err)
	}
	return f.Fail(ExitFailure, ErrCodeBackend, message, err)
}

func writeIndentedJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
