package feed

import (
	"html"
	"log/slog"
	"net/url"
	"path"
	"slices"
	"strconv"
	"strings"
)

// fixedProjections are always copied from the raw item into the entry
// when present.
var fixedProjections = []FieldMapping{
	{Source: "guid", Target: "guid"},
	{Source: "author", Target: "author"},
	{Source: "description", Target: "description"},
	{Source: "infohash", Target: "torrent_info_hash"},
}

// Resolver turns raw feed items into normalized entries for a single
// ingestion run. It carries the run-scoped set of fields disabled after a
// type fault, so a misconfigured other_fields entry is complained about
// once instead of once per item.
type Resolver struct {
	source      *Source
	projections []FieldMapping
	disabled    map[string]bool
}

func NewResolver(source *Source) *Resolver {
	projections := make([]FieldMapping, 0, len(fixedProjections)+len(source.OtherFields))
	projections = append(projections, fixedProjections...)
	projections = append(projections, source.OtherFields...)

	return &Resolver{
		source:      source,
		projections: projections,
		disabled:    make(map[string]bool),
	}
}

// Title returns the cleaned title for an item, or false when the
// configured title field is missing or cleans down to nothing.
func (r *Resolver) Title(item RawItem) (string, bool) {
	title, ok := item.GetString(r.source.GetTitleField())
	if !ok {
		return "", false
	}

	title = stripZeroWidth(title)
	if r.source.ASCII {
		title = asciiFold(title)
	}
	if title == "" {
		return "", false
	}

	return title, true
}

// Fingerprint is the dedup watermark for an item: cleaned title plus guid.
// Not collision-resistant when guids are absent; feeds are expected to
// supply stable guids when that matters.
func (r *Resolver) Fingerprint(item RawItem) (string, bool) {
	title, ok := r.Title(item)
	if !ok {
		return "", false
	}
	guid, _ := item.GetString("guid")
	return title + guid, true
}

// Resolve produces zero or more entries for a raw item. The second return
// is false when the item was skipped for lack of a title or URL; enclosure
// fan-out never counts as skipped, even when no enclosure had a href.
func (r *Resolver) Resolve(item RawItem) ([]Entry, bool) {
	title, ok := r.Title(item)
	if !ok {
		slog.Debug("Skipping item without title", "source", r.source.Name)
		return nil, false
	}

	// More than one enclosure fans out into one entry per enclosure; the
	// parent item itself is not emitted.
	if len(item.Enclosures) > 1 && !r.source.GroupLinks {
		entries := make([]Entry, 0, len(item.Enclosures))
		for _, enc := range item.Enclosures {
			if enc.Href == "" {
				slog.Debug("Enclosure without URL", "source", r.source.Name, "title", title)
				continue
			}
			var entry Entry
			r.addEnclosureInfo(&entry, enc, true)
			r.fill(&entry, title, item)
			entries = append(entries, entry)
		}
		return entries, true
	}

	var entry Entry

	switch {
	case r.source.Link.IsList():
		for _, field := range r.source.Link.Fields {
			value, ok := item.GetString(field)
			if !ok {
				continue
			}
			if entry.URL == "" {
				entry.URL = value
			}
			if !slices.Contains(entry.URLs, value) {
				entry.URLs = append(entry.URLs, value)
			}
		}
	case r.source.Link.IsAuto():
		if len(item.Enclosures) == 1 && item.Enclosures[0].Href != "" {
			r.addEnclosureInfo(&entry, item.Enclosures[0], false)
		} else {
			for _, field := range []string{"link", "guid"} {
				if value, ok := item.GetString(field); ok {
					entry.URL = value
					break
				}
			}
		}
	default:
		if value, ok := item.GetString(r.source.Link.Field); ok {
			entry.URL = value
		}
	}

	if r.source.GroupLinks && entry.URL != "" {
		if len(entry.URLs) == 0 {
			entry.URLs = []string{entry.URL}
		}
		for _, enc := range item.Enclosures {
			if enc.Href != "" && !slices.Contains(entry.URLs, enc.Href) {
				entry.URLs = append(entry.URLs, enc.Href)
			}
		}
	}

	if entry.URL == "" {
		slog.Debug("Item has no link or enclosure", "source", r.source.Name, "title", title)
		return nil, false
	}

	r.fill(&entry, title, item)
	return []Entry{entry}, true
}

// addEnclosureInfo copies an enclosure's href, size and type into the
// entry, and derives a filename from the URL path when the enclosure has a
// size or is one of several.
func (r *Resolver) addEnclosureInfo(entry *Entry, enc Enclosure, multiple bool) {
	entry.URL = enc.Href

	if enc.Length != "" {
		size, err := strconv.ParseInt(strings.TrimSpace(enc.Length), 10, 64)
		if err != nil {
			size = 0
		}
		entry.Size = size
	}
	if enc.Type != "" {
		entry.Type = enc.Type
	}

	if !r.source.FilenameEnabled() {
		return
	}
	parsed, err := url.Parse(entry.URL)
	if err != nil {
		return
	}
	basename := path.Base(parsed.Path)
	if basename == "." || basename == "/" {
		basename = ""
	}
	if entry.Size > 0 || (multiple && basename != "") {
		entry.Filename = basename
	}
}

// fill sets the title, projects configured fields, and attaches the
// publish time and credentials.
func (r *Resolver) fill(entry *Entry, title string, item RawItem) {
	entry.Title = title

	for _, mapping := range r.projections {
		if r.disabled[mapping.Source] {
			continue
		}
		value, ok := item.Fields[mapping.Source]
		if !ok {
			continue
		}

		text, isString := value.(string)
		if !isString {
			slog.Error("Cannot grab non-text field from feed",
				"source", r.source.Name, "field", mapping.Source)
			// Disable for the rest of the run to avoid repeated noise
			r.disabled[mapping.Source] = true
			continue
		}
		if text == "" {
			slog.Debug("Not grabbing blank field", "source", r.source.Name,
				"field", mapping.Source, "title", title)
			continue
		}

		decoded := html.UnescapeString(text)
		switch mapping.Target {
		case "guid":
			entry.GUID = decoded
		case "author":
			entry.Author = decoded
		case "description":
			entry.Description = decoded
		case "torrent_info_hash":
			entry.TorrentInfoHash = decoded
		default:
			if entry.Fields == nil {
				entry.Fields = make(map[string]string)
			}
			entry.Fields[mapping.Target] = decoded
		}
	}

	if item.Published != nil {
		published := *item.Published
		entry.PublishedAt = &published
	}

	if r.source.HasAuth() {
		entry.BasicAuthUsername = r.source.Username
		entry.BasicAuthPassword = r.source.Password
	}
}
