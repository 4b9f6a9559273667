package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/specloom/specloom/internal/specstore"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func event(id string, typ specstore.EventType, affected []string, at time.Time) specstore.ChangeEvent {
	return specstore.ChangeEvent{
		ID:                 id,
		Type:               typ,
		Author:             "test",
		AffectedFeatureIDs: affected,
		Diff:               map[string]any{"added": affected},
		Timestamp:          at,
	}
}

func TestRecordAndRecent(t *testing.T) {
	t.Parallel()

	j := openJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"ev-1", "ev-2", "ev-3"} {
		ev := event(id, specstore.EventFeatureAdded, []string{"feature-a"}, base.Add(time.Duration(i)*time.Minute))
		if err := j.Record(ctx, ev); err != nil {
			t.Fatalf("Record(%s): %v", id, err)
		}
	}

	entries, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ID != "ev-3" || entries[1].ID != "ev-2" {
		t.Errorf("order = [%s %s], want newest first", entries[0].ID, entries[1].ID)
	}
	if entries[0].Author != "test" {
		t.Errorf("author = %q", entries[0].Author)
	}
	if !entries[0].OccurredAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("occurred_at = %v", entries[0].OccurredAt)
	}
}

func TestByFeature(t *testing.T) {
	t.Parallel()

	j := openJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	events := []specstore.ChangeEvent{
		event("ev-1", specstore.EventFeatureAdded, []string{"feature-auth"}, base),
		event("ev-2", specstore.EventFeatureAdded, []string{"feature-billing"}, base.Add(time.Minute)),
		event("ev-3", specstore.EventFeatureUpdated, []string{"feature-auth", "feature-billing"}, base.Add(2*time.Minute)),
	}
	for _, ev := range events {
		if err := j.Record(ctx, ev); err != nil {
			t.Fatalf("Record(%s): %v", ev.ID, err)
		}
	}

	entries, err := j.ByFeature(ctx, "feature-auth")
	if err != nil {
		t.Fatalf("ByFeature: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ID != "ev-1" || entries[1].ID != "ev-3" {
		t.Errorf("order = [%s %s], want oldest first", entries[0].ID, entries[1].ID)
	}
	if len(entries[1].Affected) != 2 {
		t.Errorf("affected = %v", entries[1].Affected)
	}
}

func TestRecordDuplicateID(t *testing.T) {
	t.Parallel()

	j := openJournal(t)
	ctx := context.Background()
	ev := event("ev-dup", specstore.EventFeatureAdded, nil, time.Now())

	if err := j.Record(ctx, ev); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	if err := j.Record(ctx, ev); err == nil {
		t.Error("duplicate event ID accepted")
	}
}

func TestOpenIdempotentSchema(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j1, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := j1.Record(ctx, event("ev-1", specstore.EventFeatureAdded, nil, time.Now())); err != nil {
		t.Fatalf("Record: %v", err)
	}
	j1.Close()

	j2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()

	entries, err := j2.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries after reopen, want 1", len(entries))
	}
}
