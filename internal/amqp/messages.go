package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event kinds published after a committed write.
const (
	KindSnapshotChanged  = "snapshot.changed"
	KindCategoryChanged  = "category.changed"
	KindRestoreCompleted = "restore.completed"
)

// ChangeEvent is a lightweight notification that stored data changed. It carries keys only;
// consumers read the current state from the store.
type ChangeEvent struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Date       string    `json:"date,omitempty"`
	CategoryID string    `json:"categoryId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func newEvent(kind string) *ChangeEvent {
	return &ChangeEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

// NewSnapshotChanged reports an upsert or delete of the snapshot (date, categoryID).
func NewSnapshotChanged(date, categoryID string) *ChangeEvent {
	e := newEvent(KindSnapshotChanged)
	e.Date = date
	e.CategoryID = categoryID
	return e
}

// NewCategoryChanged reports a created, renamed, reordered or deleted category.
func NewCategoryChanged(categoryID string) *ChangeEvent {
	e := newEvent(KindCategoryChanged)
	e.CategoryID = categoryID
	return e
}

// NewRestoreCompleted reports that the dataset was replaced by a backup.
func NewRestoreCompleted() *ChangeEvent {
	return newEvent(KindRestoreCompleted)
}

// ToJSON converts the event to JSON bytes
func (e *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ChangeEventFromJSON decodes and checks an event.
func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Kind {
	case KindSnapshotChanged, KindCategoryChanged, KindRestoreCompleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.ID == "" {
		return nil, fmt.Errorf("event without id")
	}
	return &e, nil
}
