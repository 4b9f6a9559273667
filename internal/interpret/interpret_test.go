package interpret

import (
	"testing"

	"github.com/specloom/specloom/internal/spec"
)

var features = []spec.Feature{
	{ID: "feature-auth", Name: "Auth", Priority: spec.PriorityHigh},
	{ID: "feature-search", Name: "Search", Priority: spec.PriorityMedium},
}

func TestParseAddFeature(t *testing.T) {
	t.Parallel()

	payload := Patterns{}.Parse("add authentication feature", nil)
	add, ok := payload["add_feature"].(map[string]any)
	if !ok {
		t.Fatalf("payload = %#v, want add_feature", payload)
	}
	if add["id"] != "feature-authentication-feature" {
		t.Errorf("id = %v", add["id"])
	}
	if add["name"] != "Authentication Feature" {
		t.Errorf("name = %v", add["name"])
	}
	if add["priority"] != "medium" {
		t.Errorf("priority = %v, want medium default", add["priority"])
	}
}

func TestParseAddWithPriority(t *testing.T) {
	t.Parallel()

	payload := Patterns{}.Parse("add a critical payments feature", nil)
	add, ok := payload["add_feature"].(map[string]any)
	if !ok {
		t.Fatalf("payload = %#v", payload)
	}
	if add["priority"] != "critical" {
		t.Errorf("priority = %v", add["priority"])
	}
	if add["name"] != "Payments Feature" {
		t.Errorf("name = %v", add["name"])
	}
}

func TestParseRemoveFeature(t *testing.T) {
	t.Parallel()

	for _, text := range []string{
		"remove the auth feature",
		"delete auth",
		"drop Auth",
	} {
		payload := Patterns{}.Parse(text, features)
		if payload["remove_feature"] != "feature-auth" {
			t.Errorf("Parse(%q) = %#v, want remove feature-auth", text, payload)
		}
	}
}

func TestParseSetPriority(t *testing.T) {
	t.Parallel()

	payload := Patterns{}.Parse("make search critical", features)
	upd, ok := payload["update_feature"].(map[string]any)
	if !ok {
		t.Fatalf("payload = %#v", payload)
	}
	if upd["id"] != "feature-search" {
		t.Errorf("id = %v", upd["id"])
	}
	updates := upd["updates"].(map[string]any)
	if updates["priority"] != "critical" {
		t.Errorf("updates = %v", updates)
	}
}

func TestParseDescribe(t *testing.T) {
	t.Parallel()

	payload := Patterns{}.Parse("describe auth as handles login and sessions", features)
	upd, ok := payload["update_feature"].(map[string]any)
	if !ok {
		t.Fatalf("payload = %#v", payload)
	}
	if upd["id"] != "feature-auth" {
		t.Errorf("id = %v", upd["id"])
	}
	updates := upd["updates"].(map[string]any)
	if updates["description"] != "handles login and sessions" {
		t.Errorf("updates = %v", updates)
	}
}

func TestParseUninterpretable(t *testing.T) {
	t.Parallel()

	for _, text := range []string{
		"",
		"   ",
		"what is the weather",
		"remove the nonexistent thing", // unresolvable name
	} {
		if payload := (Patterns{}).Parse(text, features); len(payload) != 0 {
			t.Errorf("Parse(%q) = %#v, want empty payload", text, payload)
		}
	}
}

func TestResolveAmbiguousName(t *testing.T) {
	t.Parallel()

	fs := []spec.Feature{
		{ID: "feature-user-login", Name: "User Login"},
		{ID: "feature-user-profile", Name: "User Profile"},
	}
	if payload := (Patterns{}).Parse("delete user", fs); len(payload) != 0 {
		t.Errorf("ambiguous name resolved anyway: %#v", payload)
	}
}
