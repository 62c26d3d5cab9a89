package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/sheetgen/internal/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Export or import the application state file",
}

var stateExportCmd = &cobra.Command{
	Use:   "export <dest>",
	Short: "Write the stored state to a file (\"-\" for stdout)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store := state.NewStore(cfg.StateFile)

		if args[0] == "-" {
			return store.Export(cmd.OutOrStdout())
		}
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		if err := store.Export(f); err != nil {
			f.Close()
			os.Remove(args[0])
			return err
		}
		return f.Close()
	},
}

var stateImportCmd = &cobra.Command{
	Use:   "import <src>",
	Short: "Replace the stored state with a JSON file (\"-\" for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store := state.NewStore(cfg.StateFile)

		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		if err := store.Import(r, cfg.MaxUploadBytes); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "imported state into %s\n", store.Path())
		return nil
	},
}

func init() {
	stateCmd.AddCommand(stateExportCmd)
	stateCmd.AddCommand(stateImportCmd)
}
