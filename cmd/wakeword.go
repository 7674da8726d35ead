package cmd

import (
	"github.com/spf13/cobra"
)

var wakewordCmd = &cobra.Command{
	Use:   "wakeword",
	Short: "Show the wake word",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{ctx: cmd.Context()})
		if err != nil {
			return err
		}
		defer a.close()
		cmd.Println(a.session.Config().WakeWord)
		return nil
	},
}

var wakewordSetCmd = &cobra.Command{
	Use:   "set <word>",
	Short: "Change and save the wake word",
	Long:  "Change and save the wake word. A running listener restarts with it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{ctx: cmd.Context()})
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.session.SetWakeWord(args[0]); err != nil {
			return err
		}
		cmd.Printf("Wake word set to %q.\n", a.session.Config().WakeWord)
		return nil
	},
}

func init() {
	wakewordCmd.AddCommand(wakewordSetCmd)
	rootCmd.AddCommand(wakewordCmd)
}
