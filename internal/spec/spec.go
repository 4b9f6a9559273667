// Package spec defines the living specification model: a project overview
// plus an ordered list of features, together with the document codec that
// round-trips the model through its on-disk markdown form.
package spec

import (
	"maps"
	"regexp"
	"strings"
	"time"
)

// Priority classifies how urgent a feature is. Priorities map onto the
// numeric base scores consumed by the scheduler.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// ValidPriorities is the set of recognized priority values.
var ValidPriorities = map[Priority]bool{
	PriorityCritical: true,
	PriorityHigh:     true,
	PriorityMedium:   true,
	PriorityLow:      true,
}

// BaseScore returns the numeric weight of a priority on a 0-10 scale.
// Unrecognized values score as medium.
func (p Priority) BaseScore() int {
	switch p {
	case PriorityCritical:
		return 10
	case PriorityHigh:
		return 8
	case PriorityMedium:
		return 5
	case PriorityLow:
		return 2
	default:
		return 5
	}
}

// FeatureStatus represents the implementation progress of a feature.
type FeatureStatus string

const (
	StatusPlanned     FeatureStatus = "planned"
	StatusPartial     FeatureStatus = "partial"
	StatusImplemented FeatureStatus = "implemented"
)

// Feature is a named unit of product scope. Features are owned exclusively
// by the Spec that contains them; IDs are unique within one Spec.
type Feature struct {
	ID                 string
	Name               string
	Description        string
	Priority           Priority
	Status             FeatureStatus
	Requirements       []string
	AcceptanceCriteria []string
	TechnicalDetails   map[string]any
	Dependencies       []string // other feature IDs
}

// Clone returns a deep copy of the feature.
func (f Feature) Clone() Feature {
	out := f
	out.Requirements = append([]string(nil), f.Requirements...)
	out.AcceptanceCriteria = append([]string(nil), f.AcceptanceCriteria...)
	out.Dependencies = append([]string(nil), f.Dependencies...)
	if f.TechnicalDetails != nil {
		out.TechnicalDetails = maps.Clone(f.TechnicalDetails)
	}
	return out
}

// Spec is the single source of truth: the project overview plus the ordered
// feature list. Document order is display order.
type Spec struct {
	ProjectName string
	Version     string
	Overview    string
	Features    []Feature
	Metadata    map[string]any
	LastUpdated time.Time
}

// Default returns the built-in Spec used when no document exists yet.
func Default() *Spec {
	return &Spec{
		ProjectName: "Untitled Project",
		Version:     "0.1.0",
		Overview:    "",
		Metadata:    make(map[string]any),
		LastUpdated: time.Now(),
	}
}

// Clone returns a deep copy of the spec. Snapshots handed to subscribers
// and the version ring are always clones so later mutations cannot leak.
func (s *Spec) Clone() *Spec {
	out := &Spec{
		ProjectName: s.ProjectName,
		Version:     s.Version,
		Overview:    s.Overview,
		LastUpdated: s.LastUpdated,
		Features:    make([]Feature, len(s.Features)),
	}
	for i, f := range s.Features {
		out.Features[i] = f.Clone()
	}
	if s.Metadata != nil {
		out.Metadata = maps.Clone(s.Metadata)
	} else {
		out.Metadata = make(map[string]any)
	}
	return out
}

// Feature returns the feature with the given ID, or nil if absent.
func (s *Spec) Feature(id string) *Feature {
	for i := range s.Features {
		if s.Features[i].ID == id {
			return &s.Features[i]
		}
	}
	return nil
}

// FeatureIDs returns the IDs of all features in document order.
func (s *Spec) FeatureIDs() []string {
	ids := make([]string, len(s.Features))
	for i, f := range s.Features {
		ids[i] = f.ID
	}
	return ids
}

// RemoveFeature deletes the feature with the given ID, preserving the
// order of the remaining features. Returns false if the ID is unknown.
func (s *Spec) RemoveFeature(id string) bool {
	for i := range s.Features {
		if s.Features[i].ID == id {
			s.Features = append(s.Features[:i], s.Features[i+1:]...)
			return true
		}
	}
	return false
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9-]+`)

// FeatureID derives a stable feature ID from a display name: lower-cased,
// spaces collapsed to hyphens, non-alphanumerics stripped, "feature-" prefix.
func FeatureID(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	slug = nonAlnum.ReplaceAllString(slug, "")
	slug = strings.Trim(slug, "-")
	return "feature-" + slug
}
