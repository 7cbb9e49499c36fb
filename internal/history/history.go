// Package history keeps finished transcripts in an embedded badger database.
package history

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/voicewin/voicewin/internal/events"
	"github.com/voicewin/voicewin/internal/pipeline"
)

const keyPrefix = "entry/"

type Entry struct {
	ID       string        `json:"id"`
	Time     time.Time     `json:"time"`
	Text     string        `json:"text"`
	Mode     pipeline.Mode `json:"mode"`
	Provider string        `json:"provider"`
	Elapsed  time.Duration `json:"elapsed"`
}

type Store struct {
	db    *badger.DB
	limit int
	now   func() time.Time
}

// Open opens (or creates) the store in dir. limit caps the number of kept
// entries; zero keeps everything.
func Open(dir string, limit int) (*Store, error) {
	return open(badger.DefaultOptions(dir), limit)
}

// OpenInMemory returns a store that lives only as long as the process.
func OpenInMemory(limit int) (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), limit)
}

func open(opts badger.Options, limit int) (*Store, error) {
	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	return &Store{db: db, limit: limit, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func entryKey(t time.Time, id string) []byte {
	// zero-padded nanoseconds sort lexically in time order
	return []byte(fmt.Sprintf("%s%020d/%s", keyPrefix, t.UnixNano(), id))
}

// Add stores a finished transcript and returns the stored entry.
func (s *Store) Add(r pipeline.Result) (Entry, error) {
	e := Entry{
		ID:       uuid.NewString(),
		Time:     s.now(),
		Text:     r.Text,
		Mode:     r.Mode,
		Provider: r.Provider,
		Elapsed:  r.Elapsed,
	}
	data, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("encode history entry: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(e.Time, e.ID), data)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("write history entry: %w", err)
	}

	if s.limit > 0 {
		if err := s.prune(s.limit); err != nil {
			log.Printf("history: prune failed: %v", err)
		}
	}
	return e, nil
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(append(prefix, 0xff)); it.ValidForPrefix(prefix); it.Next() {
			var e Entry
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &e)
			})
			if err != nil {
				return fmt.Errorf("decode history entry %s: %w", it.Item().Key(), err)
			}
			out = append(out, e)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) prune(keep int) error {
	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		n := 0
		for it.Seek(append(prefix, 0xff)); it.ValidForPrefix(prefix); it.Next() {
			n++
			if n > keep {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil || len(stale) == 0 {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Recorder stores every successful transcription it observes.
type Recorder struct {
	events.Base
	store *Store
}

func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) TranscriptionCompleted(result pipeline.Result) {
	if !result.Success || result.Text == "" {
		return
	}
	if _, err := r.store.Add(result); err != nil {
		log.Printf("history: %v", err)
	}
}
