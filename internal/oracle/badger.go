package oracle

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerCache persists scores on disk so repeated batches against the same
// model skip already scored sequences. Keys are namespaced so several models
// can share one directory.
type BadgerCache struct {
	Inner     Oracle
	Namespace string

	db *badger.DB
}

// OpenBadgerCache opens (or creates) a cache in dir. An empty dir keeps the
// cache in memory.
func OpenBadgerCache(inner Oracle, dir, namespace string) (*BadgerCache, error) {
	if inner == nil {
		return nil, errors.New("inner oracle is required")
	}
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir)
	}
	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open score cache: %w", err)
	}
	return &BadgerCache{Inner: inner, Namespace: namespace, db: db}, nil
}

func (c *BadgerCache) key(sequence string) []byte {
	return []byte(c.Namespace + "\x00" + sequence)
}

func (c *BadgerCache) ScoreMany(ctx context.Context, sequences []string) ([]float64, error) {
	out := make([]float64, len(sequences))
	var missing []string
	var missingIdx []int

	err := c.db.View(func(txn *badger.Txn) error {
		for i, seq := range sequences {
			item, err := txn.Get(c.key(seq))
			if errors.Is(err, badger.ErrKeyNotFound) {
				missing = append(missing, seq)
				missingIdx = append(missingIdx, i)
				continue
			}
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				if len(val) != 8 {
					return fmt.Errorf("corrupt cached score for %q", seq)
				}
				out[i] = math.Float64frombits(binary.BigEndian.Uint64(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read score cache: %w", err)
	}
	if len(missing) == 0 {
		return out, nil
	}

	scores, err := Score(ctx, c.Inner, missing)
	if err != nil {
		return nil, err
	}

	wb := c.db.NewWriteBatch()
	defer wb.Cancel()
	for j, seq := range missing {
		out[missingIdx[j]] = scores[j]
		val := make([]byte, 8)
		binary.BigEndian.PutUint64(val, math.Float64bits(scores[j]))
		if err := wb.Set(c.key(seq), val); err != nil {
			return nil, fmt.Errorf("write score cache: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return nil, fmt.Errorf("flush score cache: %w", err)
	}
	return out, nil
}

func (c *BadgerCache) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
