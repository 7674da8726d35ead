package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fakeyudi/elizabet/internal/assistant"
	"github.com/fakeyudi/elizabet/internal/browser"
	"github.com/fakeyudi/elizabet/internal/command"
	"github.com/fakeyudi/elizabet/internal/engine"
)

var sayOpen bool

var sayCmd = &cobra.Command{
	Use:   "say <utterance>...",
	Short: "Feed utterances to the assistant as final recognition results",
	Long: `Feed utterances to the assistant as final recognition results, one per
argument, and print the resulting action log entries.

  elizabet say "elizabet" "elizabet que horas são"

Without --open, URLs are printed instead of opened.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opener command.Opener = browser.Print{W: cmd.OutOrStdout()}
		if sayOpen {
			opener = browser.System{}
		}

		manual := engine.NewManual()
		a, err := newApp(appOptions{
			ctx:       cmd.Context(),
			newEngine: func() (assistant.Engine, error) { return manual, nil },
			opener:    opener,
		})
		if err != nil {
			return err
		}
		defer a.close()
		a.log.Subscribe(printEntry(cmd.OutOrStdout()))

		if err := a.session.Start(assistant.Config{}); err != nil {
			return err
		}

		for _, utterance := range args {
			manual.Emit(assistant.Final(utterance))
		}
		return nil
	},
}

func init() {
	sayCmd.Flags().BoolVar(&sayOpen, "open", false, "open URLs with the system browser")
	rootCmd.AddCommand(sayCmd)
}
