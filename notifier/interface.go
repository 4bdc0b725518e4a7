package notifier

import (
	"github.com/quickhitters/clubhouse/models"
)

const (
	ActionSignUp   = "signup"
	ActionWithdraw = "withdraw"
)

// Event describes one roster change. Slot reflects the state after the
// change was persisted.
type Event struct {
	Action string
	Player string
	Slot   models.TeeSlot
}

type Notifier interface {
	Notify(event Event) error
	GetType() string
}
