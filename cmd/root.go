// Package cmd implements the deepchat command line.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const (
	configFileName  = "config.json"
	historyFileName = "history.json"
)

var (
	dataDir string
	verbose bool
	version = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "deepchat",
	Short: "Streaming chat relay for OpenAI-compatible LLM providers",
	Long: `deepchat stores chat sessions on disk and relays each user message to an
OpenAI-compatible streaming completion API, streaming the reply back to the
browser over a WebSocket.

Quick Start:
  deepchat serve                          # listen on :8765, data in the current directory
  deepchat serve --data-dir ~/.deepchat   # keep config and history elsewhere
  deepchat export --format md --out ./out # export every session as Markdown`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// SetVersion sets the version reported by --version and the API banner.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding config.json, history.json and logs (env DATA_DIR, default .)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.SetVersionTemplate(`{{printf "deepchat %s\n" .Version}}`)
}

// resolveDataDir applies the flag, then DATA_DIR, then the working directory.
func resolveDataDir() (string, error) {
	dir := dataDir
	if dir == "" {
		dir = os.Getenv("DATA_DIR")
	}
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve data directory: %w", err)
	}
	return abs, nil
}
