// Package store persists trial results across runs in a badger database.
package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v3"

	"github.com/vybium/vybium-stark-bench/internal/vybium-stark-bench/core"
)

const trialPrefix = "trial/"

// Store keeps TrialResults under trial/<runID>/<seq>
type Store struct {
	db *badgerdb.DB

	mu  sync.Mutex
	seq map[string]int
}

// Open opens (or creates) the database at path; an empty path keeps
// everything in memory
func Open(path string) (*Store, error) {
	opts := badgerdb.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, core.IOError(fmt.Sprintf("open result store %q", path), err)
	}
	return &Store{db: db, seq: make(map[string]int)}, nil
}

func trialKey(runID string, seq int) []byte {
	return []byte(fmt.Sprintf("%s%s/%08d", trialPrefix, runID, seq))
}

// nextSeq continues after the last stored trial of runID
func (s *Store) nextSeq(txn *badgerdb.Txn, runID string) int {
	if n, ok := s.seq[runID]; ok {
		return n
	}
	prefix := []byte(trialPrefix + runID + "/")
	opts := badgerdb.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		n++
	}
	return n
}

// Save appends a result to its run
func (s *Store) Save(r core.TrialResult) error {
	value, err := json.Marshal(r)
	if err != nil {
		return core.IOError("encode trial result", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.db.Update(func(txn *badgerdb.Txn) error {
		seq := s.nextSeq(txn, r.RunID)
		if err := txn.Set(trialKey(r.RunID, seq), value); err != nil {
			return err
		}
		s.seq[r.RunID] = seq + 1
		return nil
	})
	if err != nil {
		return core.IOError("save trial result", err)
	}
	return nil
}

// Load returns the results of a run in the order they were saved
func (s *Store) Load(runID string) ([]core.TrialResult, error) {
	var out []core.TrialResult
	prefix := []byte(trialPrefix + runID + "/")
	err := s.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var r core.TrialResult
			if err := json.Unmarshal(value, &r); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, core.IOError(fmt.Sprintf("load run %s", runID), err)
	}
	return out, nil
}

// Runs lists every stored run ID in key order
func (s *Store) Runs() ([]string, error) {
	var runs []string
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(trialPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := strings.TrimPrefix(string(it.Item().Key()), trialPrefix)
			runID := key[:strings.LastIndex(key, "/")]
			if len(runs) == 0 || runs[len(runs)-1] != runID {
				runs = append(runs, runID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, core.IOError("list runs", err)
	}
	return runs, nil
}

// Close closes the database
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return core.IOError("close result store", err)
	}
	return nil
}
