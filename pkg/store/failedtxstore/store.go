package failedtxstore

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "failed_tx/"

// FailedTx records a transaction hash whose detail fetch exhausted its retry
// budget during a run. The rescan command drains this store later; successful
// reprocessing removes the entry.
type FailedTx struct {
	Hash      string    `json:"hash"`
	Reason    string    `json:"reason"`
	Attempts  int       `json:"attempts"`
	LastTried time.Time `json:"last_tried"`
}

type Store struct {
	db *badger.DB
}

func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) key(hash string) []byte {
	return []byte(keyPrefix + hash)
}

// Record upserts a failed hash, bumping the attempt counter if it already exists.
func (s *Store) Record(hash, reason string) error {
	if hash == "" {
		return errors.New("hash is empty")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := FailedTx{Hash: hash, Reason: reason, Attempts: 1, LastTried: time.Now().UTC()}

		item, err := txn.Get(s.key(hash))
		if err == nil {
			var prev FailedTx
			if verr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &prev)
			}); verr == nil {
				entry.Attempts = prev.Attempts + 1
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return txn.Set(s.key(hash), data)
	})
}

// List returns all recorded failures.
func (s *Store) List() ([]FailedTx, error) {
	var result []FailedTx
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(keyPrefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			var entry FailedTx
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return err
			}
			result = append(result, entry)
		}
		return nil
	})
	return result, err
}

// Remove deletes a hash after it has been reprocessed successfully.
func (s *Store) Remove(hash string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(hash))
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}
