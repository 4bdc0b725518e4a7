package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/quickhitters/clubhouse/models"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()

	s, err := NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestMutateRosterAndGet(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.GetRoster("row-1")
	if err != nil {
		t.Fatalf("GetRoster() error = %v", err)
	}
	if found {
		t.Fatal("GetRoster() found an entry in an empty store")
	}

	err = s.MutateRoster("row-1", func(players []string, found bool) ([]string, error) {
		if found {
			t.Error("mutate fn: found = true for a fresh key")
		}
		return append(players, "Alice"), nil
	})
	if err != nil {
		t.Fatalf("MutateRoster() error = %v", err)
	}

	players, found, err := s.GetRoster("row-1")
	if err != nil {
		t.Fatalf("GetRoster() error = %v", err)
	}
	if !found {
		t.Fatal("GetRoster() did not find the written entry")
	}
	if !reflect.DeepEqual(players, []string{"Alice"}) {
		t.Errorf("players = %v, want [Alice]", players)
	}

	snapshot, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if !reflect.DeepEqual(snapshot, models.RosterSnapshot{"row-1": {"Alice"}}) {
		t.Errorf("snapshot = %v", snapshot)
	}
}

func TestMutateRosterAbortsOnError(t *testing.T) {
	s := newTestStore(t)

	if err := s.MutateRoster("row-1", func(players []string, found bool) ([]string, error) {
		return []string{"Alice"}, nil
	}); err != nil {
		t.Fatalf("MutateRoster() error = %v", err)
	}

	boom := errors.New("roster rejected")
	err := s.MutateRoster("row-1", func(players []string, found bool) ([]string, error) {
		return []string{"Alice", "Bob"}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("MutateRoster() error = %v, want the fn's error", err)
	}

	players, _, err := s.GetRoster("row-1")
	if err != nil {
		t.Fatalf("GetRoster() error = %v", err)
	}
	if !reflect.DeepEqual(players, []string{"Alice"}) {
		t.Errorf("aborted mutation changed the roster: %v", players)
	}
}

func TestMutateRosterEnforcesChecksAgainstStoredState(t *testing.T) {
	s := newTestStore(t)

	// The capacity check runs against what is actually stored, so a second
	// writer working from a stale read still cannot overfill the slot.
	signUp := func(name string) error {
		return s.MutateRoster("row-1", func(players []string, found bool) ([]string, error) {
			if len(players) >= models.MaxPlayers {
				return nil, errors.New("full")
			}
			return append(players, name), nil
		})
	}

	for _, name := range []string{"A", "B", "C", "D"} {
		if err := signUp(name); err != nil {
			t.Fatalf("signUp(%s) error = %v", name, err)
		}
	}

	if err := signUp("E"); err == nil {
		t.Fatal("fifth signup succeeded")
	}

	players, _, _ := s.GetRoster("row-1")
	if len(players) != models.MaxPlayers {
		t.Errorf("stored %d players, want %d", len(players), models.MaxPlayers)
	}
}

func TestWatchEmitsOnWrite(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Watch(ctx)

	err := s.MutateRoster("row-1", func(players []string, found bool) ([]string, error) {
		return []string{"Alice"}, nil
	})
	if err != nil {
		t.Fatalf("MutateRoster() error = %v", err)
	}

	select {
	case snapshot := <-ch:
		if !reflect.DeepEqual(snapshot["row-1"], []string{"Alice"}) {
			t.Errorf("watched snapshot = %v", snapshot)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot emitted after write")
	}

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// A buffered snapshot may still drain; the channel must close
			// shortly after.
			if _, ok := <-ch; ok {
				t.Error("watch channel still open after cancel")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}

func TestRecipients(t *testing.T) {
	s := newTestStore(t)

	active := models.Recipient{ID: "r1", Email: "danny@example.com", IsActive: true}
	inactive := models.Recipient{ID: "r2", Email: "gone@example.com", IsActive: false}

	for _, r := range []models.Recipient{active, inactive} {
		if err := s.AddRecipient(r); err != nil {
			t.Fatalf("AddRecipient() error = %v", err)
		}
	}

	got, err := s.GetActiveRecipients()
	if err != nil {
		t.Fatalf("GetActiveRecipients() error = %v", err)
	}
	if len(got) != 1 || got[0].Email != "danny@example.com" {
		t.Errorf("active recipients = %+v", got)
	}

	if err := s.DeleteRecipient("r1"); err != nil {
		t.Fatalf("DeleteRecipient() error = %v", err)
	}

	got, err = s.GetActiveRecipients()
	if err != nil {
		t.Fatalf("GetActiveRecipients() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("active recipients after delete = %+v", got)
	}
}

func TestScorecards(t *testing.T) {
	s := newTestStore(t)

	card := models.Scorecard{Name: "scorecard-x.jpg", Caption: "The Jug 2024", UploadedAt: time.Now()}
	if err := s.SaveScorecard(card); err != nil {
		t.Fatalf("SaveScorecard() error = %v", err)
	}

	cards, err := s.GetAllScorecards()
	if err != nil {
		t.Fatalf("GetAllScorecards() error = %v", err)
	}
	if len(cards) != 1 || cards[0].Caption != "The Jug 2024" {
		t.Errorf("scorecards = %+v", cards)
	}
}
