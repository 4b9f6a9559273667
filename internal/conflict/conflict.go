// Package conflict provides operation-level conflict detection and
// resolution for concurrent spec edits. It is a standalone utility for
// collaborative-editing transports; the store's primary mutation path does
// not depend on it.
package conflict

import (
	"sort"
	"time"
)

// OpType classifies an edit operation.
type OpType string

const (
	OpInsert OpType = "insert"
	OpDelete OpType = "delete"
	OpUpdate OpType = "update"
	OpNoop   OpType = "no-op"
)

// Operation is a single edit against a feature, attributed and timestamped.
type Operation struct {
	Type      OpType
	FeatureID string
	Field     string // for updates: which feature field changed
	Position  int    // for inserts: target index in the feature list
	Data      any
	Author    string
	Timestamp time.Time
}

// Kind classifies a detected conflict.
type Kind string

const (
	// KindSameField marks two updates to the same feature field.
	KindSameField Kind = "same_field"
	// KindDependent marks a delete racing an update of the same feature.
	KindDependent Kind = "dependent"
)

// Conflict records one detected pair and how it was resolved.
type Conflict struct {
	Kind     Kind
	Local    Operation
	Remote   Operation
	Winner   Operation
	Resolved string // human-readable resolution rule
}

// Transform reconciles a local and a remote operation batch. Rules,
// checked pairwise:
//
//   - two updates on the same feature+field: same_field conflict, the
//     later timestamp wins (deterministic last-write-wins);
//   - a delete and an update on the same feature: dependent conflict,
//     the delete always wins;
//   - updates to different fields of the same feature: mergeable, both
//     survive, no conflict.
//
// The returned operations are the surviving set in a deterministic order;
// losers are dropped.
func Transform(local, remote []Operation) ([]Operation, []Conflict) {
	var conflicts []Conflict
	dropped := make(map[*Operation]bool)

	all := make([]*Operation, 0, len(local)+len(remote))
	localSet := make(map[*Operation]bool)
	for i := range local {
		all = append(all, &local[i])
		localSet[&local[i]] = true
	}
	for i := range remote {
		all = append(all, &remote[i])
	}

	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			a, b := all[i], all[j]
			// Only cross-batch pairs can conflict.
			if localSet[a] == localSet[b] {
				continue
			}
			if dropped[a] || dropped[b] {
				continue
			}
			if c, loser := detect(a, b); c != nil {
				conflicts = append(conflicts, *c)
				dropped[loser] = true
			}
		}
	}

	var resolved []Operation
	for _, op := range all {
		if !dropped[op] && op.Type != OpNoop {
			resolved = append(resolved, *op)
		}
	}
	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].Timestamp.Before(resolved[j].Timestamp)
	})
	return resolved, conflicts
}

// detect checks one pair and returns the conflict plus the losing
// operation, or nil when the pair is compatible.
func detect(a, b *Operation) (*Conflict, *Operation) {
	if a.FeatureID != b.FeatureID {
		return nil, nil
	}

	switch {
	case a.Type == OpUpdate && b.Type == OpUpdate:
		if a.Field != b.Field {
			// Different fields of the same feature merge shallowly.
			return nil, nil
		}
		winner, loser := a, b
		if b.Timestamp.After(a.Timestamp) {
			winner, loser = b, a
		}
		return &Conflict{
			Kind:     KindSameField,
			Local:    *a,
			Remote:   *b,
			Winner:   *winner,
			Resolved: "last write wins",
		}, loser

	case a.Type == OpDelete && b.Type == OpUpdate:
		return dependentConflict(a, b), b

	case a.Type == OpUpdate && b.Type == OpDelete:
		return dependentConflict(b, a), a
	}

	return nil, nil
}

func dependentConflict(del, upd *Operation) *Conflict {
	return &Conflict{
		Kind:     KindDependent,
		Local:    *del,
		Remote:   *upd,
		Winner:   *del,
		Resolved: "delete wins over update",
	}
}
