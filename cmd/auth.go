package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/allstonrat/eventdigest/internal/google"
	"github.com/allstonrat/eventdigest/internal/logging"
)

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize read access to the calendar",
		Long: `Run the interactive OAuth authorization and store the resulting token.

Open the printed URL, grant access, then paste the authorization code (or the
redirect URL) back into the terminal. Later runs, including scheduled ones,
reuse and refresh the stored token without prompting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flow := authFlow()
			flow.Interactive = true
			flow.In = cmd.InOrStdin()
			flow.Out = cmd.OutOrStdout()

			conf, err := flow.Config()
			if err != nil {
				return err
			}

			store := tokenStore()
			if _, err := google.Authorize(cmd.Context(), flow, conf, store); err != nil {
				return err
			}

			slog.Info("stored calendar credentials",
				logging.Operation("google.auth"),
				slog.String("path", store.Path),
				logging.Status(logging.StatusSuccess))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "\nCredentials stored to %s\n", store.Path)
			return err
		},
	}
}

// ensureCredentials fails early when no token is stored, since scheduled runs
// cannot prompt.
func ensureCredentials(store *google.FileTokenStore) error {
	if store.Exists() {
		return nil
	}
	return fmt.Errorf("%w at %s: run the auth command first", google.ErrNoToken, store.Path)
}
