// Package interpret turns free-text instructions into spec update
// payloads. The baseline is deterministic pattern matching; richer
// implementations (an LLM-backed one, say) plug in behind the same
// interface.
package interpret

import (
	"regexp"
	"strings"

	"github.com/specloom/specloom/internal/spec"
)

// Interpreter parses an instruction against the current feature list and
// returns an update payload in the store's map contract. Implementations
// never error: uninterpretable input yields an empty payload.
type Interpreter interface {
	Parse(text string, current []spec.Feature) map[string]any
}

// Patterns is the deterministic baseline interpreter.
type Patterns struct{}

var (
	addRegex = regexp.MustCompile(`(?i)^(?:add|create)\s+(?:an?\s+)?(.+)$`)
	// "remove the auth feature", "delete search"
	removeRegex = regexp.MustCompile(`(?i)^(?:remove|delete|drop)\s+(?:the\s+)?(.+?)(?:\s+feature)?$`)
	// "make auth critical", "set search priority to high"
	priorityRegex = regexp.MustCompile(`(?i)^(?:make|set|mark)\s+(?:the\s+)?(.+?)\s+(?:priority\s+(?:to\s+)?|as\s+)?(critical|high|medium|low)(?:\s+priority)?$`)
	// leading priority adjective on an add: "add a critical payments feature"
	leadPriority = regexp.MustCompile(`(?i)^(critical|high|medium|low)(?:[- ]priority)?\s+(.+)$`)
	// "describe auth as handles login and sessions"
	describeRegex = regexp.MustCompile(`(?i)^describe\s+(?:the\s+)?(.+?)\s+as\s+(.+)$`)
)

// Parse maps an instruction to a payload. Recognized shapes:
//
//	add/create [a] <name>                      → add_feature (title-cased name)
//	remove/delete/drop [the] <name> [feature]  → remove_feature
//	make/set/mark <name> [priority to] <level> → update_feature priority
//	describe <name> as <text>                  → update_feature description
//
// Removal and priority updates resolve the named feature against the
// current list; an unresolvable name yields an empty payload rather than
// a guess.
func (Patterns) Parse(text string, current []spec.Feature) map[string]any {
	text = strings.TrimSpace(text)
	if text == "" {
		return map[string]any{}
	}

	if m := priorityRegex.FindStringSubmatch(text); m != nil {
		if f := resolve(m[1], current); f != nil {
			return map[string]any{
				"update_feature": map[string]any{
					"id":      f.ID,
					"updates": map[string]any{"priority": strings.ToLower(m[2])},
				},
			}
		}
	}

	if m := describeRegex.FindStringSubmatch(text); m != nil {
		if f := resolve(m[1], current); f != nil {
			return map[string]any{
				"update_feature": map[string]any{
					"id":      f.ID,
					"updates": map[string]any{"description": strings.TrimSpace(m[2])},
				},
			}
		}
	}

	if m := removeRegex.FindStringSubmatch(text); m != nil {
		if f := resolve(m[1], current); f != nil {
			return map[string]any{"remove_feature": f.ID}
		}
	}

	if m := addRegex.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(m[1])
		priority := string(spec.PriorityMedium)
		if pm := leadPriority.FindStringSubmatch(name); pm != nil {
			priority = strings.ToLower(pm[1])
			name = strings.TrimSpace(pm[2])
		}
		if name != "" {
			name = titleCase(name)
			return map[string]any{
				"add_feature": map[string]any{
					"id":       spec.FeatureID(name),
					"name":     name,
					"priority": priority,
				},
			}
		}
	}

	return map[string]any{}
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// resolve matches a spoken feature name against the current list: exact
// ID, derived ID, exact name (case-insensitive), then unique substring.
func resolve(name string, current []spec.Feature) *spec.Feature {
	name = strings.TrimSpace(strings.TrimSuffix(strings.ToLower(name), " feature"))
	if name == "" {
		return nil
	}
	derived := spec.FeatureID(name)

	for i := range current {
		f := &current[i]
		if f.ID == name || f.ID == derived || strings.ToLower(f.Name) == name {
			return f
		}
	}

	var match *spec.Feature
	for i := range current {
		f := &current[i]
		if strings.Contains(strings.ToLower(f.Name), name) || strings.Contains(f.ID, name) {
			if match != nil {
				return nil // ambiguous
			}
			match = f
		}
	}
	return match
}
