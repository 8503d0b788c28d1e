package cli

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"slices"
	"testing"

	"github.com/spf13/cobra"
)

func TestCompleteSnapshotNames(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "new", "Alpha", "--name", "alpha")
	mustRun(t, dir, "new", "Also", "--name", "also")
	mustRun(t, dir, "new", "Beta", "--name", "beta")

	c := New(io.Discard, LogInfo)
	c.name = defaultSnapshot
	c.storageURL = filepath.Join(dir, "snapshots")
	c.configPath = filepath.Join(dir, "config.toml")

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	tests := []struct {
		prefix string
		args   []string
		want   []string
	}{
		{"", nil, []string{"alpha", "also", "beta"}},
		{"al", nil, []string{"alpha", "also"}},
		{"al", []string{"alpha"}, []string{"also"}},
		{"z", nil, nil},
	}
	for _, tt := range tests {
		got, directive := c.completeSnapshotNames(cmd, tt.args, tt.prefix)
		if directive != cobra.ShellCompDirectiveNoFileComp {
			t.Errorf("completeSnapshotNames(%q) directive = %v", tt.prefix, directive)
		}
		slices.Sort(got)
		if !slices.Equal(got, tt.want) {
			t.Errorf("completeSnapshotNames(%q, %v) = %v, want %v", tt.prefix, tt.args, got, tt.want)
		}
	}
}

func TestCompletionScripts(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.toml")
	for shell := range shells {
		t.Run(shell, func(t *testing.T) {
			root := New(io.Discard, LogInfo).RootCommand()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs([]string{"completion", shell, "--config", cfg})
			if err := root.Execute(); err != nil {
				t.Fatalf("completion %s: %v", shell, err)
			}
			if !bytes.Contains(out.Bytes(), []byte(appName)) {
				t.Errorf("completion %s script does not mention %s", shell, appName)
			}
		})
	}
}
