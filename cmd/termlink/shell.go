package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open an interactive remote shell",
	Long: `Shell reads commands from stdin and streams their output as it
arrives. Ctrl-C interrupts the running remote command; "exit" or EOF
ends the session locally. History is kept across runs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		hist := client.History()
		if err := hist.Restore(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not restore history: %v\n", err)
		}
		defer func() {
			if err := hist.Persist(); err != nil {
				fmt.Fprintf(os.Stderr, "warning: could not persist history: %v\n", err)
			}
		}()

		// Ctrl-C forwards an interrupt to the remote command instead of
		// killing the shell.
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, os.Interrupt)
		defer signal.Stop(sigc)
		go func() {
			for range sigc {
				if err := client.Interrupt(context.Background()); err != nil {
					fmt.Fprintf(os.Stderr, "interrupt failed: %v\n", err)
				}
			}
		}()

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Fprint(os.Stdout, "> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "exit" {
				break
			}

			hist.AddCommand(line)

			streamed := false
			out, err := client.Execute(cmd.Context(), line, func(chunk string) {
				streamed = true
				fmt.Fprint(os.Stdout, chunk)
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			if !streamed {
				fmt.Fprint(os.Stdout, out)
			}
		}
		return scanner.Err()
	},
}
