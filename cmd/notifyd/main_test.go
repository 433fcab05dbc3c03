package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/grcwatch/notify-engine/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := rootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "scan", "purge", "migrate"})
}

func TestPrintResult(t *testing.T) {
	t.Cleanup(func() { outputFmt = "json" })

	var buf bytes.Buffer
	outputFmt = "json"
	require.NoError(t, printResult(&buf, notify.PurgeResult{Deleted: 3}))
	assert.JSONEq(t, `{"deleted":3}`, buf.String())

	buf.Reset()
	outputFmt = "yaml"
	require.NoError(t, printResult(&buf, map[string]int{"rulesSeeded": 2}))
	assert.Equal(t, "rulesSeeded: 2\n", buf.String())

	outputFmt = "xml"
	assert.Error(t, printResult(&buf, 1))
}

func TestMigrateAndScan_SQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
log:
  level: error
database:
  driver: sqlite
  dsn: `+filepath.Join(dir, "notify.db")+`
engine:
  timezone: UTC
`), 0o600))
	t.Cleanup(func() { configPath = ""; outputFmt = "json" })

	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"migrate", "--seed", "--config", cfg})
	require.NoError(t, root.Execute())
	assert.JSONEq(t, `{"migrated":true,"rulesSeeded":3}`, out.String())

	out.Reset()
	root = rootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"scan", "expirations", "--config", cfg})
	require.NoError(t, root.Execute())
	assert.JSONEq(t, `{"remindersSent":0,"sourceErrors":0}`, out.String())

	root = rootCmd()
	root.SetArgs([]string{"scan", "weekly", "--config", cfg})
	assert.Error(t, root.Execute())
}
