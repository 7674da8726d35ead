package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fakeyudi/elizabet/internal/history"
)

var (
	historyFormat string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the saved action log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		renderer, err := history.RendererFor(historyFormat)
		if err != nil {
			return err
		}
		store, err := history.NewDefaultStore()
		if err != nil {
			return err
		}
		entries, err := store.Load()
		if err != nil {
			return err
		}
		if historyLimit > 0 && len(entries) > historyLimit {
			entries = entries[len(entries)-historyLimit:]
		}

		out, err := renderer.Render(entries)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "text", `output format: "text", "markdown" or "json"`)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "show only the last n entries")
	rootCmd.AddCommand(historyCmd)
}
