package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-agecam/pkg/web"
)

var watchCmd = &cobra.Command{
	Use:   "watch [address]",
	Short: "Print the text stream of a running web viewer",
	Long: `Connects to a running agecam web viewer and prints the display text
of every frame. The address defaults to localhost:5000.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := "localhost:5000"
		if len(args) == 1 {
			addr = args[0]
		}
		url, err := web.TextURL(addr)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", url)
		return web.Watch(cmd.Context(), url, func(m web.TextMessage) {
			fmt.Fprintf(out, "\n--- frame %d ---\n%s\n", m.Seq, strings.Join(m.Lines, "\n"))
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
