package tasks

import (
	"testing"

	"rssingest/app/feed"
)

func TestHashSourceConfigStable(t *testing.T) {
	source := &feed.Source{Name: "news", URL: "https://example.com/feed.xml", Timeout: 60}

	first := hashSourceConfig(source)
	second := hashSourceConfig(source)
	if first == "" {
		t.Fatal("Expected non-empty hash")
	}
	if first != second {
		t.Error("Expected identical configs to hash identically")
	}
}

func TestHashSourceConfigDetectsEdits(t *testing.T) {
	source := &feed.Source{Name: "news", URL: "https://example.com/feed.xml", Timeout: 60}
	base := hashSourceConfig(source)

	edited := *source
	edited.Silent = true
	if hashSourceConfig(&edited) == base {
		t.Error("Expected option change to alter the hash")
	}

	renamed := *source
	renamed.TitleField = "description"
	if hashSourceConfig(&renamed) == base {
		t.Error("Expected title field change to alter the hash")
	}
}
