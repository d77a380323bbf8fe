/*
Package activity is the notification boundary of the engine.

PURPOSE:
  Workflow and billing operations emit human-readable activity records
  (the notification feed the admin UI consumes). Delivery is
  fire-and-forget: a notification outage must never fail or block a
  financial or approval operation, so emit errors are logged and
  swallowed here.

KEY COMPONENTS:
  Activity:     One notification record
  Notifier:     What domain code calls (Emit, no error return)
  Feed:         Storage contract (list, mark read, clear)
  FeedNotifier: Notifier that persists to a Feed and logs failures

ADMINISTRATIVE OPERATIONS:
  MarkRead / MarkAllRead / ClearAll act only on the feed; they have no
  effect on ledger or request state.
*/
package activity

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ACTIVITY - Notification record
// =============================================================================

type Type string

const (
	TypeStatusChangeRequested    Type = "STATUS_CHANGE_REQUESTED"
	TypeStatusChangeApproved     Type = "STATUS_CHANGE_APPROVED"
	TypeStatusChangeRejected     Type = "STATUS_CHANGE_REJECTED"
	TypeFrequencyChangeRequested Type = "FREQUENCY_CHANGE_REQUESTED"
	TypeFrequencyChangeApproved  Type = "FREQUENCY_CHANGE_APPROVED"
	TypeFrequencyChangeRejected  Type = "FREQUENCY_CHANGE_REJECTED"
	TypeAppointmentCompleted     Type = "APPOINTMENT_COMPLETED"
	TypeAppointmentReversed      Type = "APPOINTMENT_REVERSED"
	TypeAbonoRecorded            Type = "ABONO_RECORDED"
)

// Activity is one entry in the notification feed. Immutable after
// creation except for the Read flag.
type Activity struct {
	ID          string
	Type        Type
	Title       string
	Description string
	Date        time.Time
	Read        bool
	Metadata    map[string]string
}

// =============================================================================
// NOTIFIER - What domain code depends on
// =============================================================================

// Notifier delivers activities. Emit is fire-and-forget: implementations
// must not propagate delivery failures to the caller.
type Notifier interface {
	Emit(ctx context.Context, a Activity)
}

// Discard is a Notifier that drops everything. Useful in tests that do
// not assert on notifications.
type Discard struct{}

func (Discard) Emit(context.Context, Activity) {}

// =============================================================================
// FEED - Storage contract
// =============================================================================

type Feed interface {
	Save(ctx context.Context, a Activity) error
	List(ctx context.Context) ([]Activity, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	ClearAll(ctx context.Context) error
}

// =============================================================================
// FEED NOTIFIER - Persisting notifier with swallowed failures
// =============================================================================

type FeedNotifier struct {
	Feed Feed
}

func NewFeedNotifier(feed Feed) *FeedNotifier {
	return &FeedNotifier{Feed: feed}
}

// Emit stamps the activity and persists it. Failures are logged, never
// returned: the originating workflow operation already succeeded.
func (n *FeedNotifier) Emit(ctx context.Context, a Activity) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Date.IsZero() {
		a.Date = time.Now().UTC()
	}
	a.Read = false

	if err := n.Feed.Save(ctx, a); err != nil {
		log.Printf("activity: dropping %s notification: %v", a.Type, err)
	}
}
