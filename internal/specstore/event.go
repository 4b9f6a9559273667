package specstore

import (
	"time"

	"github.com/google/uuid"

	"github.com/specloom/specloom/internal/spec"
)

// EventType classifies what a mutation did to the spec.
type EventType string

const (
	EventFeatureAdded    EventType = "feature_added"
	EventFeatureRemoved  EventType = "feature_removed"
	EventFeatureUpdated  EventType = "feature_updated"
	EventMetadataUpdated EventType = "metadata_updated"
	// EventRolledBack is the synthetic event emitted when a version
	// snapshot replaces the live spec.
	EventRolledBack EventType = "spec_rolled_back"
)

// ChangeEvent is created once per successful mutation and never modified
// afterwards. The snapshot is a post-mutation deep copy, so subscribers
// can hold it without racing later writes.
type ChangeEvent struct {
	ID                 string
	Type               EventType
	Author             string
	AffectedFeatureIDs []string
	Snapshot           *spec.Spec
	Diff               map[string]any
	Timestamp          time.Time
}

// newEvent stamps a fresh event with a unique ID and the current time.
func newEvent(t EventType, author string, affected []string, snapshot *spec.Spec, diff map[string]any) *ChangeEvent {
	return &ChangeEvent{
		ID:                 uuid.NewString(),
		Type:               t,
		Author:             author,
		AffectedFeatureIDs: affected,
		Snapshot:           snapshot,
		Diff:               diff,
		Timestamp:          time.Now(),
	}
}

// VersionSnapshot is a pre-mutation copy of the spec kept in the bounded
// in-memory history ring.
type VersionSnapshot struct {
	Timestamp time.Time
	Author    string
	Spec      *spec.Spec
	Summary   string
}
