package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/syndicate/internal/seed"
	"github.com/roach88/syndicate/internal/syndication"
)

// SeedResult is the JSON payload of the seed command.
type SeedResult struct {
	Sources   int      `json:"sources"`
	Responses int      `json:"responses"`
	Messages  []string `json:"messages"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Load sources and responses from a YAML file",
		Long: `Validate a YAML seed file and apply it.

Sources are created (or updated) and queued for polling; responses are saved
once and queued for propagation, exactly as if they had been polled.

Example file:
  sources:
    - key: "1"
      kind: FakeSource
      short_name: fake
      name: my fake account
  responses:
    - key: tag:fa.ke,2013:a1-b2-c3
      source: "1"
      payload: '{"objectType":"comment","content":"hi"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, args[0], cmd)
		},
	}
}

func runSeed(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	file, err := seed.Load(path)
	if err != nil {
		var verr *seed.ValidationError
		if errors.As(err, &verr) {
			return f.Fail(ExitFailure, ErrCodeSeed, "seed file rejected", err)
		}
		return failFor(f, "failed to load seed file", err)
	}
	f.VerboseLog("loaded %d source(s) and %d response(s) from %s", len(file.Sources), len(file.Responses), path)

	a, err := openApp(opts, f, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	var msgs syndication.MessageSet
	res, err := seed.Apply(cmd.Context(), a.pub, file, &msgs)
	if err != nil {
		return failFor(f, "failed to apply seed file", err)
	}

	result := SeedResult{Sources: res.Sources, Responses: res.Responses, Messages: msgs.Messages()}
	return f.Emit(result, func(w io.Writer) {
		for _, m := range result.Messages {
			fmt.Fprintln(w, m)
		}
		fmt.Fprintf(w, "Seeded %d source(s), %d response(s).\n", result.Sources, result.Responses)
	})
}
