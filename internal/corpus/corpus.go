package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

var (
	bucketSources = []byte("sources")
	bucketMeta    = []byte("meta")
	keyLastIngest = []byte("last_ingest")
)

// ErrClosed is returned by operations on a closed Store
var ErrClosed = errors.New("corpus closed")

// Store holds every ingested chunk in memory, grouped by source, and mirrors
// it to a bbolt file so the sparse index can be rebuilt after a restart.
type Store struct {
	db *bbolt.DB // nil for a memory-only store

	mu         sync.RWMutex
	bySource   map[string][]types.Chunk
	byID       map[string]types.Chunk
	lastIngest time.Time
	closed     bool
}

// Open opens or creates the corpus file at path. An empty path gives a
// memory-only store.
func Open(path string) (*Store, error) {
	s := &Store{
		bySource: make(map[string][]types.Chunk),
		byID:     make(map[string]types.Chunk),
	}
	if path == "" {
		return s, nil
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSources); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize corpus buckets: %w", err)
	}
	s.db = db
	return s, nil
}

// Load replaces the in-memory view with the persisted one
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.db == nil {
		return nil
	}

	bySource := make(map[string][]types.Chunk)
	var lastIngest time.Time
	err := s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketSources)
		err := root.ForEach(func(name, v []byte) error {
			if v != nil {
				return nil // not a nested bucket
			}
			var chunks []types.Chunk
			err := root.Bucket(name).ForEach(func(_, v []byte) error {
				var c types.Chunk
				if err := json.Unmarshal(v, &c); err != nil {
					return err
				}
				chunks = append(chunks, c)
				return nil
			})
			if err != nil {
				return fmt.Errorf("source %s: %w", name, err)
			}
			sortChunks(chunks)
			bySource[string(name)] = chunks
			return nil
		})
		if err != nil {
			return err
		}
		if raw := tx.Bucket(bucketMeta).Get(keyLastIngest); raw != nil {
			return lastIngest.UnmarshalText(raw)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	s.bySource = bySource
	s.byID = make(map[string]types.Chunk)
	for _, chunks := range bySource {
		for _, c := range chunks {
			s.byID[c.ID] = c
		}
	}
	s.lastIngest = lastIngest
	return nil
}

// Replace swaps every chunk of source for chunks. The file is written in a
// single transaction before the in-memory view changes, so a failed write
// leaves both untouched. An empty chunks slice removes the source.
func (s *Store) Replace(source string, chunks []types.Chunk) error {
	if source == "" {
		return fmt.Errorf("%w: empty source", types.ErrInvalidInput)
	}
	owned := make([]types.Chunk, len(chunks))
	copy(owned, chunks)
	sortChunks(owned)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	now := time.Now().UTC()
	if s.db != nil {
		if err := s.persist(source, owned, now); err != nil {
			return fmt.Errorf("failed to persist source %s: %w", source, err)
		}
	}

	for _, c := range s.bySource[source] {
		delete(s.byID, c.ID)
	}
	if len(owned) == 0 {
		delete(s.bySource, source)
	} else {
		s.bySource[source] = owned
	}
	for _, c := range owned {
		s.byID[c.ID] = c
	}
	s.lastIngest = now
	return nil
}

func (s *Store) persist(source string, chunks []types.Chunk, now time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketSources)
		name := []byte(source)
		if root.Bucket(name) != nil {
			if err := root.DeleteBucket(name); err != nil {
				return err
			}
		}
		if len(chunks) > 0 {
			b, err := root.CreateBucket(name)
			if err != nil {
				return err
			}
			for _, c := range chunks {
				data, err := json.Marshal(c)
				if err != nil {
					return err
				}
				if err := b.Put([]byte(c.ID), data); err != nil {
					return err
				}
			}
		}
		stamp, err := now.MarshalText()
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyLastIngest, stamp)
	})
}

// Lookup returns the chunk with the given id
func (s *Store) Lookup(id string) (types.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	return c, ok
}

// All returns every chunk ordered by source, path and ordinal
func (s *Store) All() []types.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Chunk, 0, len(s.byID))
	for _, source := range s.sourcesLocked() {
		out = append(out, s.bySource[source]...)
	}
	return out
}

// Sources returns the ingested sources in sorted order
func (s *Store) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sourcesLocked()
}

func (s *Store) sourcesLocked() []string {
	sources := make([]string, 0, len(s.bySource))
	for source := range s.bySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources
}

// Len returns the number of chunks
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// TagCounts returns the number of chunks per language
func (s *Store) TagCounts() map[types.LanguageTag]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[types.LanguageTag]int)
	for _, c := range s.byID {
		counts[c.Tag]++
	}
	return counts
}

// LastIngest returns the time of the most recent Replace, zero if none
func (s *Store) LastIngest() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastIngest
}

// Close releases the bbolt file. The in-memory view is dropped.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.bySource = nil
	s.byID = nil
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func sortChunks(chunks []types.Chunk) {
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Path != chunks[j].Path {
			return chunks[i].Path < chunks[j].Path
		}
		return chunks[i].Ordinal < chunks[j].Ordinal
	})
}
