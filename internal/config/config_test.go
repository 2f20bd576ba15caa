package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flateze/flateze/internal/mailbox"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Flats = []FlatConfig{
		{ID: "flat-1", Mailbox: MailboxConfig{Host: "imap.example.com", TLS: true, Username: "bills@example.com", PasswordEnv: "FLAT1_PASSWORD"}},
	}
	cfg.Kafka.Brokers = []string{"localhost:9092"}

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Store, got.Store)
	assert.Equal(t, cfg.Ingest, got.Ingest)
	assert.Equal(t, cfg.Retry, got.Retry)
	assert.Equal(t, cfg.Server, got.Server)
	assert.Equal(t, []string{"localhost:9092"}, got.Kafka.Brokers)
	require.Len(t, got.Flats, 1)
	assert.Equal(t, cfg.Flats[0], got.Flats[0])
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "csv", cfg.Store.Type)
	assert.Equal(t, "data", cfg.Store.Dir)
	assert.Equal(t, "@every 1h", cfg.Ingest.Schedule)
	assert.Equal(t, 24*time.Hour, cfg.Ingest.Lookback)
	assert.Equal(t, 5*time.Minute, cfg.Ingest.Timeout)
	assert.Equal(t, 4, cfg.Ingest.Concurrency)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Flats)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingKeysTakeDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "csv", cfg.Store.Type)
	assert.Equal(t, 24*time.Hour, cfg.Ingest.Lookback)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default()))

	t.Setenv("FLATEZE_DATABASE_URL", "postgres://u:p@localhost/flateze")
	t.Setenv("FLATEZE_STORE_TYPE", "postgres")
	t.Setenv("FLATEZE_INGEST_LOOKBACK", "48h")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Type)
	assert.Equal(t, "postgres://u:p@localhost/flateze", cfg.Store.DatabaseURL)
	assert.Equal(t, 48*time.Hour, cfg.Ingest.Lookback)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "type: csv")
	assert.Contains(t, contents, "@every 1h")
	assert.Contains(t, contents, "lookback: 24h0m0s")
	assert.NotContains(t, contents, "database_url")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"unknown store", func(c *Config) { c.Store.Type = "mongo" }, `unknown store type "mongo"`},
		{"postgres without url", func(c *Config) { c.Store.Type = "postgres" }, "store.database_url"},
		{"zero concurrency", func(c *Config) { c.Ingest.Concurrency = 0 }, "ingest.concurrency"},
		{"flat without id", func(c *Config) {
			c.Flats = []FlatConfig{{Mailbox: MailboxConfig{Dir: "mail"}}}
		}, "id is required"},
		{"flat without mailbox", func(c *Config) {
			c.Flats = []FlatConfig{{ID: "a"}}
		}, "needs a host or a dir"},
		{"duplicate flat", func(c *Config) {
			c.Flats = []FlatConfig{{ID: "a", Mailbox: MailboxConfig{Dir: "x"}}, {ID: "a", Mailbox: MailboxConfig{Dir: "y"}}}
		}, `duplicate id "a"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mut(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestMailboxConfig_Dialer(t *testing.T) {
	d := MailboxConfig{Dir: "mail"}.Dialer()
	assert.Equal(t, mailbox.DirDialer{Dir: "mail"}, d)

	t.Setenv("FLAT1_PASSWORD", "s3cret")
	d = MailboxConfig{Host: "imap.example.com", TLS: true, Username: "u", PasswordEnv: "FLAT1_PASSWORD"}.Dialer()
	imap, ok := d.(mailbox.IMAPDialer)
	require.True(t, ok)
	assert.Equal(t, "imap.example.com:993", imap.Addr)
	assert.Equal(t, "s3cret", imap.Password)

	d = MailboxConfig{Host: "localhost", Port: 1143}.Dialer()
	assert.Equal(t, "localhost:1143", d.(mailbox.IMAPDialer).Addr)
}

func TestFlat(t *testing.T) {
	cfg := Default()
	cfg.Flats = []FlatConfig{{ID: "a"}, {ID: "b"}}
	f, ok := cfg.Flat("b")
	require.True(t, ok)
	assert.Equal(t, "b", f.ID)
	_, ok = cfg.Flat("c")
	assert.False(t, ok)
}
