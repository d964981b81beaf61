package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage files on the remote host",
}

var filesLsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a remote directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		path := ""
		if len(args) == 1 {
			path = args[0]
		}

		items, err := client.Files().List(cmd.Context(), path)
		if err != nil {
			return err
		}
		for _, item := range items {
			kind := "-"
			if item.IsDirectory {
				kind = "d"
			}
			fmt.Fprintf(os.Stdout, "%s %10d  %s  %s\n",
				kind, item.SizeBytes, item.ModifiedAt.Format("2006-01-02 15:04"), item.Name)
		}
		return nil
	},
}

var filesGetCmd = &cobra.Command{
	Use:   "get <remote-path> [local-path]",
	Short: "Download a remote file",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		data, err := client.Files().Download(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		local := filepath.Base(args[0])
		if len(args) == 2 {
			local = args[1]
		}
		if err := os.WriteFile(local, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "wrote %d bytes to %s\n", len(data), local)
		return nil
	},
}

var filesPutCmd = &cobra.Command{
	Use:   "put <local-path> [remote-dir]",
	Short: "Upload a file to the remote host",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		remote := ""
		if len(args) == 2 {
			remote = args[1]
		}

		msg, err := client.Files().Upload(cmd.Context(), data, filepath.Base(args[0]), remote)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, msg)
		return nil
	},
}

var filesMkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a remote directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		msg, err := client.Files().Mkdir(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, msg)
		return nil
	},
}

var filesRmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Delete a remote file or directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		msg, err := client.Files().Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, msg)
		return nil
	},
}

func init() {
	filesCmd.AddCommand(filesLsCmd)
	filesCmd.AddCommand(filesGetCmd)
	filesCmd.AddCommand(filesPutCmd)
	filesCmd.AddCommand(filesMkdirCmd)
	filesCmd.AddCommand(filesRmCmd)
}
