package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the remote session",
}

var sessionEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End the current remote session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.EndSession(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "session ended")
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionEndCmd)
}
