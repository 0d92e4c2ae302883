package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qtally/setup"
)

func newInitCmd(a *app) *cobra.Command {
	var (
		reload       bool
		accountFile  string
		settingsFile string
		noPrompt     bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up the account token and settings file once",
		Long: `init stores an API token and writes a default settings file into the
setup directory, then records completion so later calls do nothing.
The token comes from $QTALLY_TOKEN, an existing account file, or a prompt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := a.setupDir()
			if err != nil {
				return err
			}
			opts := setup.Options{
				Dir:              dir,
				Reload:           reload,
				AccountFallback:  accountFile,
				SettingsFallback: settingsFile,
				Log:              a.log,
			}
			if !noPrompt {
				opts.Prompter = setup.HuhPrompter{}
			}
			rep, err := setup.Init(cmd.Context(), opts)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if rep.Skipped {
				fmt.Fprintf(w, "already initialized at %s (use --reload to redo)\n", rep.Marker.Completed.Local().Format("2006-01-02 15:04"))
				return nil
			}
			for _, s := range rep.Steps {
				fmt.Fprintf(w, "== %s: OK (%s)\n", s.Name, s.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reload, "reload", false, "run the setup steps again")
	cmd.Flags().StringVar(&accountFile, "account-file", "", "account file to copy when none exists")
	cmd.Flags().StringVar(&settingsFile, "settings-file", "", "settings file to copy when none exists")
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "fail instead of asking for a token")
	return cmd
}
