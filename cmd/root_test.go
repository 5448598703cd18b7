package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommand_Version(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() {
		SetVersion("dev")
		if f := rootCmd.Flags().Lookup("version"); f != nil {
			f.Value.Set("false")
		}
	})

	var out bytes.Buffer
	rootCmd.SetArgs([]string{"--version"})
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "deepchat 1.2.3" {
		t.Errorf("got %q, want %q", got, "deepchat 1.2.3")
	}
}

func TestResolveDataDir(t *testing.T) {
	t.Cleanup(func() { dataDir = "" })

	t.Setenv("DATA_DIR", "")
	dataDir = ""
	got, err := resolveDataDir()
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("expected absolute path, got %q", got)
	}

	envDir := t.TempDir()
	t.Setenv("DATA_DIR", envDir)
	if got, _ := resolveDataDir(); got != envDir {
		t.Errorf("env data dir = %q, want %q", got, envDir)
	}

	flagDir := t.TempDir()
	dataDir = flagDir
	if got, _ := resolveDataDir(); got != flagDir {
		t.Errorf("flag data dir = %q, want %q", got, flagDir)
	}
}
