package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/flateze/flateze/internal/billstore"
	"github.com/flateze/flateze/internal/config"
	"github.com/flateze/flateze/internal/extractor"
	"github.com/flateze/flateze/internal/flatlock"
	"github.com/flateze/flateze/internal/ingest"
	"github.com/flateze/flateze/internal/logger"
	"github.com/flateze/flateze/internal/mailbox"
	"github.com/flateze/flateze/internal/rules"
	"github.com/flateze/flateze/internal/runner"
)

// app holds the wired components for one CLI invocation.
type app struct {
	cfg       *config.Config
	root      string
	log       logger.Logger
	extractor *extractor.Extractor
	runner    *runner.Runner
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.log.Sync()
}

// loadConfig reads the config at path. Relative paths inside it resolve
// against the config file's directory, which is returned as root.
func loadConfig(path string) (*config.Config, string, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, "", fmt.Errorf("resolving config dir: %w", err)
	}
	return cfg, root, nil
}

func resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// loadExtractor uses the configured rules file, or the built-in rules when
// none is configured.
func loadExtractor(cfg *config.Config, root string) (*extractor.Extractor, error) {
	if cfg == nil || cfg.RulesFile == "" {
		return extractor.New(nil), nil
	}
	rs, err := rules.Load(resolve(root, cfg.RulesFile))
	if err != nil {
		return nil, err
	}
	return extractor.New(rs), nil
}

func newApp(ctx context.Context, cfg *config.Config, root string) (*app, error) {
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Dev)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, root: root, log: log}

	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	ex, err := loadExtractor(a.cfg, a.root)
	if err != nil {
		return err
	}
	a.extractor = ex

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if a.cfg.Store.Breaker {
		store = billstore.NewBreakerStore(store, billstore.DefaultBreakerConfig())
	}

	opts := []ingest.Option{ingest.WithLogger(a.log)}
	if len(a.cfg.Kafka.Brokers) > 0 {
		kn := ingest.NewKafkaNotifier(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic)
		a.closers = append(a.closers, func() { _ = kn.Close() })
		opts = append(opts, ingest.WithNotifier(kn))
	}
	in := ingest.New(ex, store, opts...)

	locker, err := a.openLocker(ctx)
	if err != nil {
		return err
	}

	a.runner = runner.New(a.cfg, in, locker,
		runner.WithLogger(a.log),
		runner.WithIngestLog(a.root),
		runner.WithDialer(func(f config.FlatConfig) mailbox.Dialer {
			f.Mailbox.Dir = resolve(a.root, f.Mailbox.Dir)
			return f.Mailbox.Dialer()
		}),
	)
	return nil
}

func (a *app) openStore(ctx context.Context) (billstore.Store, error) {
	switch a.cfg.Store.Type {
	case "postgres":
		pool, err := billstore.NewPostgresPool(ctx, a.cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		return billstore.NewPostgresStore(pool), nil
	case "csv":
		dir := resolve(a.root, a.cfg.Store.Dir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store dir: %w", err)
		}
		return billstore.NewCSVStore(dir), nil
	}
	return nil, fmt.Errorf("unknown store type %q", a.cfg.Store.Type)
}

func (a *app) openLocker(ctx context.Context) (flatlock.Locker, error) {
	if a.cfg.Redis.URL == "" {
		return flatlock.NewMemoryLocker(), nil
	}
	opt, err := redis.ParseURL(a.cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return flatlock.NewRedisLocker(rdb, a.cfg.Redis.LockTTL, a.log), nil
}

var errNoDatabase = errors.New("store.database_url is not set")
