package specstore

import (
	"fmt"
	"log/slog"

	"github.com/specloom/specloom/internal/spec"
)

// Operation is the tagged union of spec mutations. The sealed interface
// forces Apply to handle every variant; external payload maps are adapted
// through PayloadToOps.
type Operation interface {
	// apply mutates the working copy and records the change in the tracker.
	apply(work *spec.Spec, tr *changeTracker) error
	// Summary is a one-line description used for version history entries.
	Summary() string
}

// AddFeature appends a feature to the spec. An empty ID is derived from
// the feature name.
type AddFeature struct {
	Feature spec.Feature
}

func (op AddFeature) Summary() string { return "add feature " + op.Feature.ID }

func (op AddFeature) apply(work *spec.Spec, tr *changeTracker) error {
	f := op.Feature.Clone()
	if f.ID == "" {
		f.ID = spec.FeatureID(f.Name)
	}
	if work.Feature(f.ID) != nil {
		return &ValidationError{Op: "add_feature", FeatureID: f.ID,
			Err: fmt.Errorf("feature ID already present")}
	}
	if f.Priority == "" {
		f.Priority = spec.PriorityMedium
	}
	if f.Status == "" {
		f.Status = spec.StatusPlanned
	}
	work.Features = append(work.Features, f)
	tr.added = append(tr.added, f.ID)
	return nil
}

// RemoveFeature deletes a feature by ID.
type RemoveFeature struct {
	ID string
}

func (op RemoveFeature) Summary() string { return "remove feature " + op.ID }

func (op RemoveFeature) apply(work *spec.Spec, tr *changeTracker) error {
	if !work.RemoveFeature(op.ID) {
		// The original behavior was a silent no-op; surfacing the miss
		// keeps callers from believing a stale ID was removed.
		return &ValidationError{Op: "remove_feature", FeatureID: op.ID, Err: ErrUnknownFeature}
	}
	tr.removed = append(tr.removed, op.ID)
	return nil
}

// UpdateFeature applies field-level changes to an existing feature.
// Recognized field keys: name, description, priority, status, requirements,
// acceptance_criteria, technical_details, dependencies. Unrecognized keys
// are ignored.
type UpdateFeature struct {
	ID     string
	Fields map[string]any
}

func (op UpdateFeature) Summary() string { return "update feature " + op.ID }

func (op UpdateFeature) apply(work *spec.Spec, tr *changeTracker) error {
	f := work.Feature(op.ID)
	if f == nil {
		return &ValidationError{Op: "update_feature", FeatureID: op.ID, Err: ErrUnknownFeature}
	}

	applied := make(map[string]any, len(op.Fields))
	for key, val := range op.Fields {
		switch key {
		case "name":
			f.Name = toString(val)
		case "description":
			f.Description = toString(val)
		case "priority":
			p := spec.Priority(toString(val))
			if !spec.ValidPriorities[p] {
				// Rejected values must not surface in the event diff.
				continue
			}
			f.Priority = p
		case "status":
			f.Status = spec.FeatureStatus(toString(val))
		case "requirements":
			f.Requirements = toStringSlice(val)
		case "acceptance_criteria":
			f.AcceptanceCriteria = toStringSlice(val)
		case "technical_details":
			f.TechnicalDetails = toAnyMap(val)
		case "dependencies":
			f.Dependencies = toStringSlice(val)
		default:
			continue
		}
		applied[key] = val
	}

	tr.recordUpdate(op.ID, applied)
	return nil
}

// SetMetadata overrides top-level spec fields. Recognized keys:
// project_name, version, overview, metadata (merged shallowly).
type SetMetadata struct {
	Fields map[string]any
}

func (op SetMetadata) Summary() string { return "update spec metadata" }

func (op SetMetadata) apply(work *spec.Spec, tr *changeTracker) error {
	for key, val := range op.Fields {
		switch key {
		case "project_name":
			work.ProjectName = toString(val)
		case "version":
			work.Version = toString(val)
		case "overview":
			work.Overview = toString(val)
		case "metadata":
			for k, v := range toAnyMap(val) {
				work.Metadata[k] = v
			}
		default:
			continue
		}
		tr.metadata[key] = val
	}
	return nil
}

// PayloadToOps adapts the loosely-typed external update payload into the
// operation union. Recognized top-level keys are add_feature,
// remove_feature, update_feature, and the direct spec fields; unknown keys
// are ignored for forward compatibility, logged at debug.
func PayloadToOps(payload map[string]any, logger *slog.Logger) []Operation {
	var ops []Operation
	meta := make(map[string]any)

	for key, val := range payload {
		switch key {
		case "add_feature":
			ops = append(ops, AddFeature{Feature: featureFromMap(toAnyMap(val))})
		case "remove_feature":
			ops = append(ops, RemoveFeature{ID: toString(val)})
		case "update_feature":
			m := toAnyMap(val)
			ops = append(ops, UpdateFeature{
				ID:     toString(m["id"]),
				Fields: toAnyMap(m["updates"]),
			})
		case "project_name", "version", "overview", "metadata":
			meta[key] = val
		default:
			if logger != nil {
				logger.Debug("ignoring unknown payload key", "key", key)
			}
		}
	}

	if len(meta) > 0 {
		ops = append(ops, SetMetadata{Fields: meta})
	}
	return ops
}

// featureFromMap builds a feature from payload fields.
func featureFromMap(m map[string]any) spec.Feature {
	f := spec.Feature{
		ID:                 toString(m["id"]),
		Name:               toString(m["name"]),
		Description:        toString(m["description"]),
		Priority:           spec.Priority(toString(m["priority"])),
		Status:             spec.FeatureStatus(toString(m["status"])),
		Requirements:       toStringSlice(m["requirements"]),
		AcceptanceCriteria: toStringSlice(m["acceptance_criteria"]),
		TechnicalDetails:   toAnyMap(m["technical_details"]),
		Dependencies:       toStringSlice(m["dependencies"]),
	}
	if f.ID == "" && f.Name != "" {
		f.ID = spec.FeatureID(f.Name)
	}
	return f
}

// changeTracker accumulates per-operation effects into the event diff.
type changeTracker struct {
	added    []string
	removed  []string
	updated  []string
	updates  map[string]map[string]any
	metadata map[string]any
}

func newChangeTracker() *changeTracker {
	return &changeTracker{
		updates:  make(map[string]map[string]any),
		metadata: make(map[string]any),
	}
}

func (tr *changeTracker) recordUpdate(id string, fields map[string]any) {
	if _, seen := tr.updates[id]; !seen {
		tr.updated = append(tr.updated, id)
		tr.updates[id] = make(map[string]any)
	}
	for k, v := range fields {
		tr.updates[id][k] = v
	}
}

// affected returns the union of touched feature IDs in operation order.
func (tr *changeTracker) affected() []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range [][]string{tr.added, tr.removed, tr.updated} {
		for _, id := range group {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// eventType picks the event classification: structural changes outrank
// field updates, which outrank metadata-only changes.
func (tr *changeTracker) eventType() EventType {
	switch {
	case len(tr.added) > 0:
		return EventFeatureAdded
	case len(tr.removed) > 0:
		return EventFeatureRemoved
	case len(tr.updated) > 0:
		return EventFeatureUpdated
	default:
		return EventMetadataUpdated
	}
}

// diff builds the event's change description map.
func (tr *changeTracker) diff() map[string]any {
	d := make(map[string]any)
	if len(tr.added) > 0 {
		d["added"] = append([]string(nil), tr.added...)
	}
	if len(tr.removed) > 0 {
		d["removed"] = append([]string(nil), tr.removed...)
	}
	if len(tr.updates) > 0 {
		updates := make(map[string]any, len(tr.updates))
		for id, fields := range tr.updates {
			updates[id] = fields
		}
		d["updated"] = updates
	}
	if len(tr.metadata) > 0 {
		d["metadata"] = tr.metadata
	}
	return d
}

// --- payload coercion helpers ---

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...)
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toAnyMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
