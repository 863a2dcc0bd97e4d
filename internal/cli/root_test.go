package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/lorekeeper/internal/config"
	"github.com/agenthands/lorekeeper/internal/core/model"
	"github.com/agenthands/lorekeeper/internal/store"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"serve", "scan", "ingest", "check", "export", "migrate", "version"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestCommandFlags(t *testing.T) {
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("rules-only"))

	flag := ingestCmd.Flags().Lookup("confidence")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)

	flag = exportCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "csv", flag.DefValue)

	require.NotNil(t, exportCmd.Flags().Lookup("webhook"))
	require.NotNil(t, exportCmd.Flags().Lookup("webhook-url"))

	flag = serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestLoadConfig(t *testing.T) {
	// a missing file at the default path falls back to defaults
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	c, err := loadConfig(defaultConfigPath)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Detection, c.Detection)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, Version+"\n", out.String())
}

func TestIngestAndExport_RulesOnly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[store]
driver = "sqlite"
database_url = "`+filepath.ToSlash(dbPath)+`"

[log]
level = "error"
`), 0o600))
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("DATABASE_URL", "")

	run := func(args ...string) string {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs(append([]string{"--config", cfgPath, "--rules-only"}, args...))
		require.NoError(t, rootCmd.Execute(), args)
		return out.String()
	}
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		rulesOnly, exportWebhook, exportWebhookURL = false, false, ""
	})

	run("migrate")
	run("ingest", "p1", "Nicky mains Hillbilly", "--confidence", "75")
	out := run("ingest", "p1", "Nicky mains Ghostface", "--confidence", "80")
	assert.Contains(t, out, `"group_id"`)

	out = run("export", "p1", "--format", "csv")
	assert.Contains(t, out, "Nicky mains Ghostface")
	assert.NotContains(t, out, "Nicky mains Hillbilly")

	var hits atomic.Int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits.Add(1) }))
	defer hook.Close()
	out = run("export", "p1", "--webhook", "--webhook-url", hook.URL)
	assert.Contains(t, out, `"sent": 1`)
	assert.Equal(t, int32(1), hits.Load())

	st, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	defer st.Close()
	facts, err := st.ListFacts(context.Background(), "p1", store.FactFilter{Status: model.StatusAmbiguous})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "Nicky mains Hillbilly", facts[0].Content)
}
