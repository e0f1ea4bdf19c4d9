package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewTokenCommand creates the token command group.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the activity backend access token",
		Long: `Store or remove the access token sent to the activity backend.

The token lives in the system keyring under the activity.token_key setting.`,
	}
	cmd.AddCommand(newTokenSetCommand(rootOpts))
	cmd.AddCommand(newTokenDeleteCommand(rootOpts))
	return cmd
}

func newTokenSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "set <token>",
		Short:         "Store the access token",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(rootOpts, cmd, func(key string) (string, error) {
				if err := setToken(rootOpts, key, args[0]); err != nil {
					return "", err
				}
				return fmt.Sprintf("Token stored under %q.", key), nil
			})
		},
	}
}

func newTokenDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete",
		Short:         "Remove the access token",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(rootOpts, cmd, func(key string) (string, error) {
				creds, err := openCredentials(rootOpts)
				if err != nil {
					return "", err
				}
				if err := creds.Delete(key); err != nil {
					return "", err
				}
				return fmt.Sprintf("Token %q deleted.", key), nil
			})
		},
	}
}

func setToken(opts *RootOptions, key, value string) error {
	creds, err := openCredentials(opts)
	if err != nil {
		return err
	}
	return creds.Set(key, value)
}

// runToken resolves the configured token key and runs op against it.
func runToken(opts *RootOptions, cmd *cobra.Command, op func(key string) (string, error)) error {
	f := newFormatter(opts, cmd)
	cfg, err := loadConfig(opts, f)
	if err != nil {
		return err
	}
	key := cfg.Activity.TokenKey
	if key == "" {
		return f.Fail(ExitCommandError, ErrCodeConfig, "activity.token_key is not set", nil)
	}

	msg, err := op(key)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeCredential, "keyring operation failed", err)
	}
	return f.Emit(map[string]string{"key": key, "message": msg}, func(w io.Writer) {
		fmt.Fprintln(w, msg)
	})
}
