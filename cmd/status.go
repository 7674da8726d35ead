package cmd

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the assistant's configuration and saved state",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := GetConfig()
		a, err := newApp(appOptions{ctx: cmd.Context()})
		if err != nil {
			return err
		}
		defer a.close()

		cmd.Printf("Wake word: %s\n", a.session.Config().WakeWord)
		cmd.Printf("Engine: %s\n", conf.Engine)
		if conf.Engine == "relay" {
			cmd.Printf("Relay: %s\n", conf.RelayAddr)
		}
		cmd.Printf("Language: %s\n", conf.Language)
		cmd.Printf("Restart delay: %s\n", conf.RestartDelay)
		cmd.Printf("Settings: %s\n", a.settings.Path())
		if conf.ShouldPersistHistory() {
			cmd.Printf("History entries: %d\n", a.log.Len())
		} else {
			cmd.Println("History: not persisted")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
