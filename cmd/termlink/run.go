package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <command>...",
	Short: "Run a single command on the remote host",
	Long: `Run executes one command and prints its complete output. Single-shot
invocations do not need incremental output, so they go over the
request/response transport; use the shell for streamed output.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		out, err := client.Execute(cmd.Context(), strings.Join(args, " "), nil)
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stdout, out)
		return nil
	},
}
