package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/quickhitters/clubhouse/client"
	"github.com/quickhitters/clubhouse/models"
)

// invalidDate is what the calendar shows when a sheet row carries a date
// string nothing can parse. The raw string is kept alongside it.
const invalidDate = "Invalid Date"

const displayLayout = "Mon, Jan 2, 2006"

// dateLayouts are the formats the tee sheet has used across revisions.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Loader fetches the tee sheet and keeps the last successfully built slot
// list. A failed refresh never touches the previous snapshot.
type Loader struct {
	client *client.FeedClient

	mu    sync.RWMutex
	slots []models.TeeSlot
}

func NewLoader(c *client.FeedClient) *Loader {
	return &Loader{client: c}
}

// Refresh fetches the feed and rebuilds the slot list. On any fetch or
// decode error the prior snapshot is left unchanged and the error is
// returned; there is no retry.
func (l *Loader) Refresh(ctx context.Context) error {
	rows, err := l.client.FetchRows(ctx)
	if err != nil {
		return fmt.Errorf("fetching tee sheet: %w", err)
	}

	slots := BuildSlots(rows)

	l.mu.Lock()
	l.slots = slots
	l.mu.Unlock()

	return nil
}

// Snapshot returns the most recently built slot list, in feed order.
func (l *Loader) Snapshot() []models.TeeSlot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.TeeSlot, len(l.slots))
	copy(out, l.slots)
	return out
}

// BuildSlots turns feed rows into TeeSlots. Ids are positional (1-based,
// feed order). The roster key is the feed's own row id when present so a
// reordered sheet does not reassign rosters; rows without one fall back to
// a namespaced positional key, which can never collide with a bare feed id.
func BuildSlots(rows []models.FeedRow) []models.TeeSlot {
	slots := make([]models.TeeSlot, 0, len(rows))

	for i, row := range rows {
		id := i + 1

		key := row.RowID
		if key == "" {
			key = "pos-" + strconv.Itoa(id)
		}

		rawDate := strings.TrimSpace(row.Date)
		date, formatted := normalizeDate(rawDate)

		slots = append(slots, models.TeeSlot{
			ID:            id,
			Key:           key,
			Date:          date,
			RawDate:       rawDate,
			FormattedDate: formatted,
			Time:          row.Time,
			Course:        row.Course,
			Players:       row.Players,
		})
	}

	return slots
}

// normalizeDate parses the sheet's date string at local midnight, so a
// date-only value never shifts a day in the viewer's timezone. Unparseable
// strings degrade to the "Invalid Date" sentinel instead of failing the load.
func normalizeDate(raw string) (time.Time, string) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, t.Format(displayLayout)
		}
	}

	return time.Time{}, invalidDate
}
