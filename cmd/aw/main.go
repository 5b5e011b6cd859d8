package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

var (
	dataDirFlag string
	debugFlag   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aw",
		Short: "Half-duplex frame streaming between two paired nodes",
	}
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Data directory (default: ~/.airwire)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		runCmd(),
		profileCmd(),
		historyCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// versionCmd
// ---------------------------------------------------------------------------

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the aw version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("aw version %s\n", version)
		},
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func dataDir() string {
	if dataDirFlag != "" {
		return dataDirFlag
	}
	home := os.Getenv("HOME")
	if home == "" {
		fmt.Fprintln(os.Stderr, "[aw] WARNING: $HOME is not set, using /tmp/.airwire")
		return "/tmp/.airwire"
	}
	return filepath.Join(home, ".airwire")
}
