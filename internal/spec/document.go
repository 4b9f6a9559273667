package spec

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformed indicates the document does not match the heading grammar
// at all (no project heading). Individual malformed feature blocks are
// skipped rather than failing the whole parse.
var ErrMalformed = errors.New("document does not match the spec grammar")

var (
	projectRegex  = regexp.MustCompile(`^#\s+(.+?)\s*$`)
	featureRegex  = regexp.MustCompile(`^##\s+Feature\s+\d+:\s+(.+?)\s*$`)
	sectionRegex  = regexp.MustCompile(`^##\s+(.+?)\s*$`)
	priorityRegex = regexp.MustCompile(`^\*\*Priority:\*\*\s*(\w+)\s*$`)
	statusRegex   = regexp.MustCompile(`^\*\*Status:\*\*\s*(\w+)\s*$`)
	dependsRegex  = regexp.MustCompile(`^\*\*Depends on:\*\*\s*(.+?)\s*$`)
	bulletRegex   = regexp.MustCompile(`^[-*]\s+(.+?)\s*$`)
	checkboxRegex = regexp.MustCompile(`^[-*]\s+\[[ xX]\]\s+(.+?)\s*$`)
)

const overviewHeading = "Project Overview"

// Parse reads a spec document in the fixed heading grammar:
//
//	# <project name>
//	## Project Overview
//	## Feature N: <name>
//	  **Priority:** <word>
//	  ### Description
//	  ### Requirements      (bullet list)
//	  ### Acceptance Criteria  (checkbox bullet list)
//
// Missing subsections yield empty fields. A level-2 heading that matches
// neither the overview nor the feature pattern drops that entire block.
// A document with no project heading fails with ErrMalformed.
func Parse(data []byte) (*Spec, error) {
	lines := strings.Split(string(data), "\n")

	s := &Spec{
		Version:  "0.1.0",
		Metadata: make(map[string]any),
	}

	// Locate the project heading; everything before it is ignored.
	i := 0
	for ; i < len(lines); i++ {
		if m := projectRegex.FindStringSubmatch(lines[i]); m != nil {
			s.ProjectName = m[1]
			i++
			break
		}
	}
	if s.ProjectName == "" {
		return nil, ErrMalformed
	}

	// Walk level-2 sections.
	for i < len(lines) {
		line := lines[i]
		m := sectionRegex.FindStringSubmatch(line)
		if m == nil || strings.HasPrefix(line, "###") {
			i++
			continue
		}

		end := sectionEnd(lines, i+1)
		body := lines[i+1 : end]

		if m[1] == overviewHeading {
			s.Overview = strings.TrimSpace(strings.Join(body, "\n"))
		} else if fm := featureRegex.FindStringSubmatch(line); fm != nil {
			s.Features = append(s.Features, parseFeature(fm[1], body))
		}
		// Any other heading: block dropped without error.

		i = end
	}

	return s, nil
}

// sectionEnd returns the index of the next level-2 heading at or after
// start, or len(lines).
func sectionEnd(lines []string, start int) int {
	for j := start; j < len(lines); j++ {
		if strings.HasPrefix(lines[j], "## ") {
			return j
		}
	}
	return len(lines)
}

// parseFeature builds a Feature from the body of one "## Feature N:" block.
func parseFeature(name string, body []string) Feature {
	f := Feature{
		ID:               FeatureID(name),
		Name:             name,
		Priority:         PriorityMedium,
		Status:           StatusPlanned,
		TechnicalDetails: make(map[string]any),
	}

	section := ""
	var desc []string
	for _, line := range body {
		trimmed := strings.TrimSpace(line)
		switch {
		case priorityRegex.MatchString(trimmed):
			p := Priority(strings.ToLower(priorityRegex.FindStringSubmatch(trimmed)[1]))
			if ValidPriorities[p] {
				f.Priority = p
			}
		case statusRegex.MatchString(trimmed):
			f.Status = FeatureStatus(strings.ToLower(statusRegex.FindStringSubmatch(trimmed)[1]))
		case dependsRegex.MatchString(trimmed):
			for _, dep := range strings.Split(dependsRegex.FindStringSubmatch(trimmed)[1], ",") {
				if dep = strings.TrimSpace(dep); dep != "" {
					f.Dependencies = append(f.Dependencies, dep)
				}
			}
		case strings.HasPrefix(trimmed, "### "):
			section = strings.TrimSpace(strings.TrimPrefix(trimmed, "### "))
		default:
			switch section {
			case "Description":
				desc = append(desc, line)
			case "Requirements":
				if m := bulletRegex.FindStringSubmatch(trimmed); m != nil {
					f.Requirements = append(f.Requirements, m[1])
				}
			case "Acceptance Criteria":
				if m := checkboxRegex.FindStringSubmatch(trimmed); m != nil {
					f.AcceptanceCriteria = append(f.AcceptanceCriteria, m[1])
				} else if m := bulletRegex.FindStringSubmatch(trimmed); m != nil {
					// Tolerate plain bullets in the criteria list.
					f.AcceptanceCriteria = append(f.AcceptanceCriteria, m[1])
				}
			}
		}
	}
	f.Description = strings.TrimSpace(strings.Join(desc, "\n"))
	return f
}

// Marshal serializes a Spec back into its document form. Parse(Marshal(s))
// reproduces the same feature count, names, priorities, requirements, and
// acceptance criteria.
func Marshal(s *Spec) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", s.ProjectName)
	b.WriteString("## " + overviewHeading + "\n\n")
	if s.Overview != "" {
		b.WriteString(s.Overview + "\n\n")
	}

	for i, f := range s.Features {
		fmt.Fprintf(&b, "## Feature %d: %s\n\n", i+1, f.Name)
		fmt.Fprintf(&b, "**Priority:** %s\n", f.Priority)
		if f.Status != "" && f.Status != StatusPlanned {
			fmt.Fprintf(&b, "**Status:** %s\n", f.Status)
		}
		if len(f.Dependencies) > 0 {
			fmt.Fprintf(&b, "**Depends on:** %s\n", strings.Join(f.Dependencies, ", "))
		}
		b.WriteString("\n### Description\n\n")
		if f.Description != "" {
			b.WriteString(f.Description + "\n")
		}
		b.WriteString("\n### Requirements\n\n")
		for _, r := range f.Requirements {
			fmt.Fprintf(&b, "- %s\n", r)
		}
		b.WriteString("\n### Acceptance Criteria\n\n")
		for _, c := range f.AcceptanceCriteria {
			fmt.Fprintf(&b, "- [ ] %s\n", c)
		}
		b.WriteString("\n")
	}

	return []byte(b.String())
}
