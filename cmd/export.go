package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/deepchat/server/export"
	"github.com/deepchat/server/session"
	"github.com/spf13/cobra"
)

var (
	format    string
	outputDir string
	sessionID string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sessions to files",
	Long: `Export chat sessions from history.json to json, jsonl, md or yaml files.

Every session is exported unless --session selects one. The history file is
only read, so exporting while the server runs is safe.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		dir, err := resolveDataDir()
		if err != nil {
			return err
		}
		sessions, err := session.ReadFile(filepath.Join(dir, historyFileName))
		if err != nil {
			return fmt.Errorf("failed to read sessions: %w", err)
		}

		ids := make([]string, 0, len(sessions))
		for id := range sessions {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		if sessionID != "" {
			if _, ok := sessions[sessionID]; !ok {
				return fmt.Errorf("session not found: %s", sessionID)
			}
			ids = []string{sessionID}
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		for _, id := range ids {
			sess := sessions[id]
			sess.ID = id
			path := filepath.Join(outputDir, exportFileName(id, exporter.Extension()))
			if err := writeExport(path, sess, exporter); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s -> %s\n", id, path)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d session(s) exported\n", len(ids))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&format, "format", "f", "md", "export format: json, jsonl, md, yaml")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "exports", "output directory")
	exportCmd.Flags().StringVarP(&sessionID, "session", "s", "", "export only this session ID")
	rootCmd.AddCommand(exportCmd)
}

func exportFileName(id, ext string) string {
	return "session-" + strings.ReplaceAll(id, string(filepath.Separator), "_") + "." + ext
}

func writeExport(path string, sess session.Session, exporter export.Exporter) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := exporter.Export(sess, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to export session %s: %w", sess.ID, err)
	}
	return f.Close()
}
