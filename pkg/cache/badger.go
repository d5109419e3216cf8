package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps blobs in an embedded BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

type BadgerStoreOptions struct {
	// Dir is required unless InMemory is set.
	Dir      string
	InMemory bool
}

func NewBadgerStore(opts BadgerStoreOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("badger cache directory is required")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return val, err
}

func (s *BadgerStore) Put(_ context.Context, key string, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger forwards badger warnings and errors to the process logger.
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...any) {
	logger.Error("[Cache] badger: " + fmt.Sprintf(f, v...))
}

func (badgerLogger) Warningf(f string, v ...any) {
	logger.Warn("[Cache] badger: " + fmt.Sprintf(f, v...))
}

func (badgerLogger) Infof(string, ...any)  {}
func (badgerLogger) Debugf(string, ...any) {}
