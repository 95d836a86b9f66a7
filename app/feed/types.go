package feed

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source processing types

// RawItem is the parser's view of a single feed entry: a field-addressable
// mapping plus the structured bits (publish time, enclosures) the resolver
// needs. Field values are strings for simple elements and string slices for
// repeated ones (e.g. categories).
type RawItem struct {
	Fields     map[string]any
	Published  *time.Time
	Enclosures []Enclosure
}

// GetString returns the named field when it is present and holds a
// non-empty string value.
func (i RawItem) GetString(name string) (string, bool) {
	v, ok := i.Fields[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Has reports whether the named field is present, regardless of type.
func (i RawItem) Has(name string) bool {
	_, ok := i.Fields[name]
	return ok
}

type Enclosure struct {
	Href   string
	Length string
	Type   string
}

type ParsedFeed struct {
	Title string
	Items []RawItem
}

// Entry is a normalized output item. Ownership transfers to the caller of
// the pipeline; nothing in this package mutates an Entry after emitting it.
type Entry struct {
	Title           string
	URL             string
	URLs            []string
	Size            int64
	Type            string
	Filename        string
	GUID            string
	Author          string
	Description     string
	TorrentInfoHash string
	PublishedAt     *time.Time
	Fields          map[string]string

	// Carried through for downstream fetch of the resolved link
	BasicAuthUsername string
	BasicAuthPassword string
}

// CacheState is the persisted conditional-fetch state for one source.
type CacheState struct {
	ETag         string
	LastModified string
	LastEntryID  string
}

// Configuration types

type Source struct {
	Name string // Derived from filename (without .yml extension)

	URL            string       `yaml:"url"`
	Username       string       `yaml:"username"`
	Password       string       `yaml:"password"`
	TitleField     string       `yaml:"title"`
	Link           LinkStrategy `yaml:"link"`
	OtherFields    FieldList    `yaml:"other_fields"`
	Silent         bool         `yaml:"silent"`
	ASCII          bool         `yaml:"ascii"`
	Filename       *bool        `yaml:"filename"`
	GroupLinks     bool         `yaml:"group_links"`
	AllEntries     bool         `yaml:"all_entries"`
	ExtractContent bool         `yaml:"extract_content"`
	Timeout        int          `yaml:"timeout"` // seconds
}

// GetTitleField returns the configured title field, defaulting to "title".
func (s *Source) GetTitleField() string {
	if s.TitleField == "" {
		return "title"
	}
	return s.TitleField
}

// FilenameEnabled reports whether enclosure filenames should be derived
// from URLs. Enabled unless explicitly switched off.
func (s *Source) FilenameEnabled() bool {
	return s.Filename == nil || *s.Filename
}

// GetTimeout returns the fetch timeout as time.Duration
func (s *Source) GetTimeout() time.Duration {
	if s.Timeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(s.Timeout) * time.Second
}

// HasAuth reports whether both basic auth credentials are configured.
func (s *Source) HasAuth() bool {
	return s.Username != "" && s.Password != ""
}

// LinkStrategy selects how an entry's primary URL is resolved: "auto"
// (single enclosure, then link, then guid), a single named field, or an
// ordered list of fields.
type LinkStrategy struct {
	Field  string
	Fields []string
}

func (l *LinkStrategy) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var field string
		if err := value.Decode(&field); err != nil {
			return err
		}
		l.Field = field
	case yaml.SequenceNode:
		var fields []string
		if err := value.Decode(&fields); err != nil {
			return err
		}
		l.Fields = fields
	default:
		return fmt.Errorf("link must be a field name or a list of field names")
	}
	return nil
}

// IsAuto reports whether automatic link detection is active (the default).
func (l LinkStrategy) IsAuto() bool {
	return len(l.Fields) == 0 && (l.Field == "" || l.Field == "auto")
}

// IsList reports whether an ordered list of fields was configured.
func (l LinkStrategy) IsList() bool {
	return len(l.Fields) > 0
}

// FieldMapping maps a feed field name to the output field it is copied to.
type FieldMapping struct {
	Source string
	Target string
}

// FieldList is the other_fields configuration: a list of field names or
// single-key name-to-output-name mappings.
type FieldList []FieldMapping

func (f *FieldList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("other_fields must be a list")
	}

	var mappings []FieldMapping
	for _, node := range value.Content {
		switch node.Kind {
		case yaml.ScalarNode:
			var name string
			if err := node.Decode(&name); err != nil {
				return err
			}
			mappings = append(mappings, FieldMapping{Source: normalizeFieldName(name), Target: strings.ToLower(name)})
		case yaml.MappingNode:
			var m map[string]string
			if err := node.Decode(&m); err != nil {
				return fmt.Errorf("other_fields mapping values must be strings: %w", err)
			}
			if len(m) != 1 {
				return fmt.Errorf("other_fields mappings must have exactly one key")
			}
			for k, v := range m {
				mappings = append(mappings, FieldMapping{Source: normalizeFieldName(k), Target: strings.ToLower(v)})
			}
		default:
			return fmt.Errorf("other_fields entries must be field names or single-key mappings")
		}
	}

	*f = mappings
	return nil
}

// normalizeFieldName folds a feed field name the way the parser exposes
// them: lower case, namespace separator replaced with an underscore.
func normalizeFieldName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, ":", "_"))
}
