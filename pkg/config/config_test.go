package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Parlamentares.URL, cfg.Parlamentares.URL)
	assert.Equal(t, 30*time.Second, cfg.GetTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.GetIntervalo())
	assert.Equal(t, 12*time.Hour, cfg.GetTTL())
	assert.Equal(t, "emendas.db", cfg.Store.Path)
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emenda.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
parlamentares:
  url: http://localhost:9000/parlamentares
  ttl: 5m
store:
  path: /tmp/emendas-test.db
sessao:
  modo: emendaArtigoOndeCouber
logging:
  debug: true
  format: json
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/parlamentares", cfg.Parlamentares.URL)
	assert.Equal(t, 5*time.Minute, cfg.GetTTL())
	assert.Equal(t, 30*time.Second, cfg.GetTimeout(), "unset keys keep their defaults")
	assert.Equal(t, "/tmp/emendas-test.db", cfg.Store.Path)
	assert.Equal(t, "emendaArtigoOndeCouber", cfg.Sessao.Modo)
	assert.True(t, cfg.Logging.Debug)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"bad yaml":     "parlamentares: [",
		"bad duration": "parlamentares:\n  timeout: soon\n",
		"bad mode":     "sessao:\n  modo: livre\n",
		"bad format":   "logging:\n  format: xml\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "emenda.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EMENDA_DB", "/var/lib/emendas.db")
	t.Setenv("EMENDA_PARLAMENTARES_URL", "http://directory.local")
	t.Setenv("EMENDA_DEBUG", "1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/emendas.db", cfg.Store.Path)
	assert.Equal(t, "http://directory.local", cfg.Parlamentares.URL)
	assert.True(t, cfg.Logging.Debug)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "emenda.yaml")
	cfg := DefaultConfig()
	cfg.Sessao.LimiteHistorico = 7
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
