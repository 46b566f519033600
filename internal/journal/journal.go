package journal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/vk/buildgraphgo/internal/graph"
)

// nodePrefix namespaces persisted node records inside the database.
var nodePrefix = []byte("node/")

// Config holds the settings for one journal database.
type Config struct {
	// Path is the directory for the database files. Required unless
	// InMemory is set.
	Path string
	// InMemory keeps the journal off disk, for tests.
	InMemory bool
	// SyncWrites forces durable writes on every commit.
	SyncWrites bool
	// Logger receives the database's internal log output. Nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns the production settings for a journal at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns settings for a throwaway in-memory journal.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Journal persists graph state across build invocations in an embedded
// BadgerDB. Reloaded values are not trusted blindly: the caller runs them
// through dirtiness checking before reuse.
type Journal struct {
	db *badger.DB
}

// Open creates or reopens the journal database.
func Open(cfg Config) (*Journal, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("journal: path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("journal: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close flushes and closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Save replaces the persisted graph snapshot with the given records.
func (j *Journal) Save(ctx context.Context, records []graph.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := j.db.DropPrefix(nodePrefix); err != nil {
		return fmt.Errorf("journal: clearing previous snapshot: %w", err)
	}

	batch := j.db.NewWriteBatch()
	defer batch.Cancel()
	for _, record := range records {
		data, err := encodeRecord(record)
		if err != nil {
			return err
		}
		storageKey := append(append([]byte(nil), nodePrefix...), record.Key.String()...)
		if err := batch.Set(storageKey, data); err != nil {
			return fmt.Errorf("journal: writing %s: %w", record.Key, err)
		}
	}
	if err := batch.Flush(); err != nil {
		return fmt.Errorf("journal: committing snapshot: %w", err)
	}
	return nil
}

// Load reads back every persisted node record.
func (j *Journal) Load(ctx context.Context) ([]graph.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []graph.Record
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = nodePrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(data []byte) error {
				record, err := decodeRecord(data)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("journal: loading snapshot: %w", err)
	}
	return records, nil
}

// badgerLogger adapts slog to the database's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
