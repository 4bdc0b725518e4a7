package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/quickhitters/clubhouse/models"
	bolt "go.etcd.io/bbolt"
)

const (
	bucketRosters    = "rosters"
	bucketScorecards = "scorecards"
	bucketRecipients = "recipients"
)

// BoltStore holds all mutable state: per-slot rosters, scorecard metadata
// and email recipients. Roster writes are broadcast to watchers so every
// viewer sees changes from any client.
type BoltStore struct {
	db *bolt.DB

	mu       sync.Mutex
	watchers map[chan models.RosterSnapshot]struct{}
}

func NewBoltStore(dbPath string) (*BoltStore, error) {
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketRosters, bucketScorecards, bucketRecipients} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("creating %s bucket: %w", name, err)
			}
		}

		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{
		db:       db,
		watchers: make(map[chan models.RosterSnapshot]struct{}),
	}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// GetRoster returns the stored player list for a slot key. found is false
// when the store has never seen the key.
func (s *BoltStore) GetRoster(key string) (players []string, found bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRosters))
		data := b.Get([]byte(key))

		if data == nil {
			return nil
		}

		found = true
		return json.Unmarshal(data, &players)
	})

	if err != nil {
		return nil, false, err
	}

	return players, found, nil
}

// Snapshot reads the whole roster collection.
func (s *BoltStore) Snapshot() (models.RosterSnapshot, error) {
	snapshot := make(models.RosterSnapshot)

	err := s.db.View(func(tx *bolt.Tx) error {
		return readSnapshot(tx, snapshot)
	})

	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// MutateRoster applies fn to the stored list for key inside a single write
// transaction and persists the result as a whole-list replacement. An error
// from fn aborts the transaction and nothing is written or broadcast. After
// a commit, watchers receive the new full snapshot.
func (s *BoltStore) MutateRoster(key string, fn func(players []string, found bool) ([]string, error)) error {
	snapshot := make(models.RosterSnapshot)

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRosters))

		var players []string
		found := false
		if data := b.Get([]byte(key)); data != nil {
			if err := json.Unmarshal(data, &players); err != nil {
				return fmt.Errorf("unmarshaling roster %s: %w", key, err)
			}
			found = true
		}

		next, err := fn(players, found)
		if err != nil {
			return err
		}

		if next == nil {
			next = []string{}
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshaling roster %s: %w", key, err)
		}

		if err := b.Put([]byte(key), data); err != nil {
			return err
		}

		return readSnapshot(tx, snapshot)
	})

	if err != nil {
		return err
	}

	s.broadcast(snapshot)
	return nil
}

// Watch returns a channel that receives the full roster snapshot after
// every committed write. The channel is closed when ctx is canceled. A
// watcher that falls behind misses intermediate snapshots; the next write
// delivers a current one.
func (s *BoltStore) Watch(ctx context.Context) <-chan models.RosterSnapshot {
	ch := make(chan models.RosterSnapshot, 8)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()

		s.mu.Lock()
		delete(s.watchers, ch)
		s.mu.Unlock()

		close(ch)
	}()

	return ch
}

func (s *BoltStore) broadcast(snapshot models.RosterSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.watchers {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func readSnapshot(tx *bolt.Tx, snapshot models.RosterSnapshot) error {
	b := tx.Bucket([]byte(bucketRosters))

	return b.ForEach(func(k, v []byte) error {
		var players []string
		if err := json.Unmarshal(v, &players); err != nil {
			return err
		}
		snapshot[string(k)] = players
		return nil
	})
}

func (s *BoltStore) SaveScorecard(card models.Scorecard) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketScorecards))

		data, err := json.Marshal(card)
		if err != nil {
			return fmt.Errorf("marshaling scorecard: %w", err)
		}

		return b.Put([]byte(card.Name), data)
	})
}

func (s *BoltStore) GetAllScorecards() ([]models.Scorecard, error) {
	var cards []models.Scorecard

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketScorecards))

		return b.ForEach(func(k, v []byte) error {
			var card models.Scorecard
			if err := json.Unmarshal(v, &card); err != nil {
				return err
			}
			cards = append(cards, card)
			return nil
		})
	})

	return cards, err
}

func (s *BoltStore) AddRecipient(recipient models.Recipient) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRecipients))

		data, err := json.Marshal(recipient)
		if err != nil {
			return fmt.Errorf("marshaling recipient: %w", err)
		}

		return b.Put([]byte(recipient.ID), data)
	})
}

func (s *BoltStore) GetAllRecipients() ([]models.Recipient, error) {
	var recipients []models.Recipient

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRecipients))

		return b.ForEach(func(k, v []byte) error {
			var recipient models.Recipient
			if err := json.Unmarshal(v, &recipient); err != nil {
				return err
			}
			recipients = append(recipients, recipient)
			return nil
		})
	})

	return recipients, err
}

func (s *BoltStore) GetActiveRecipients() ([]models.Recipient, error) {
	all, err := s.GetAllRecipients()
	if err != nil {
		return nil, err
	}

	var active []models.Recipient
	for _, r := range all {
		if r.IsActive {
			active = append(active, r)
		}
	}

	return active, nil
}

func (s *BoltStore) DeleteRecipient(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketRecipients))
		return b.Delete([]byte(id))
	})
}
