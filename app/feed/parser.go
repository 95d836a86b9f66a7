package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"
)

// Parser turns raw bytes into a ParsedFeed and classifies whatever fault
// the parse surfaced. Structural RSS/Atom/JSON-feed handling is delegated
// to gofeed; this layer decides what a failure means.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses the document. A non-nil ParsedFeed can come back together
// with a non-clean classification: encoding notices and recovered XML
// faults still carry entries.
func (p *Parser) Run(data []byte, contentType string) (*ParsedFeed, Classification) {
	validUTF8 := utf8.Valid(data)

	parsed, err := p.parse(data)
	if err == nil {
		return parsed, p.classifyClean(data, contentType, validUTF8, len(parsed.Items))
	}

	// Strict parse failed; probe whether a lenient pass still yields entries.
	if recovered := p.recover(data); recovered != nil && len(recovered.Items) > 0 {
		if !validUTF8 {
			return recovered, Classification{Kind: FaultUnicodeError,
				Message: fmt.Sprintf("invalid UTF-8 in document: %s", err)}
		}
		return recovered, Classification{Kind: FaultRecoverableXML, Message: err.Error()}
	}

	if isXMLError(err) {
		return nil, Classification{Kind: FaultFatalXML, Message: err.Error()}
	}
	return nil, Classification{Kind: FaultUnclassified, Message: err.Error()}
}

func (p *Parser) classifyClean(data []byte, contentType string, validUTF8 bool, entryCount int) Classification {
	if !isXMLContentType(contentType) {
		return Classification{Kind: FaultEncodingNotice,
			Message: fmt.Sprintf("feed served with content type %q", contentType)}
	}

	declared := declaredEncoding(data)
	headerCharset := contentTypeCharset(contentType)
	if declared != "" && headerCharset != "" && !strings.EqualFold(declared, headerCharset) {
		return Classification{Kind: FaultEncodingOverride,
			Message: fmt.Sprintf("document declares %s but was served as %s", declared, headerCharset)}
	}

	if !validUTF8 && entryCount > 0 {
		return Classification{Kind: FaultUnicodeError, Message: "invalid UTF-8 in document"}
	}

	return Classification{Kind: FaultNone}
}

func (p *Parser) parse(data []byte) (*ParsedFeed, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return p.convert(parsed), nil
}

// recover attempts progressively more invasive repairs: drop illegal
// bytes, escape bare ampersands, close off a truncated document.
func (p *Parser) recover(data []byte) *ParsedFeed {
	clean := sanitize(data)

	candidates := [][]byte{
		clean,
		escapeBareAmpersands(clean),
		repairTruncated(escapeBareAmpersands(clean)),
	}

	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		if parsed, err := p.parse(candidate); err == nil && len(parsed.Items) > 0 {
			return parsed
		}
	}

	return nil
}

func (p *Parser) convert(parsed *gofeed.Feed) *ParsedFeed {
	items := make([]RawItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		items = append(items, p.convertItem(item))
	}

	return &ParsedFeed{
		Title: parsed.Title,
		Items: items,
	}
}

// convertItem flattens a gofeed item into the field-addressable shape the
// resolver works with. Namespaced extension fields are exposed with the
// separator folded to an underscore (dc:creator -> dc_creator), matching
// how other_fields are normalized at configuration load.
func (p *Parser) convertItem(item *gofeed.Item) RawItem {
	fields := make(map[string]any)

	set := func(name, value string) {
		if value != "" {
			fields[name] = value
		}
	}

	set("title", item.Title)
	set("link", item.Link)
	set("guid", item.GUID)
	set("description", item.Description)
	set("content", item.Content)
	set("published", item.Published)
	set("updated", item.Updated)
	set("author", formatAuthor(item))

	if len(item.Categories) > 0 {
		fields["categories"] = item.Categories
	}
	if len(item.Links) > 1 {
		fields["links"] = item.Links
	}

	for name, value := range item.Custom {
		set(normalizeFieldName(name), value)
	}

	for prefix, extensions := range item.Extensions {
		for name, values := range extensions {
			key := normalizeFieldName(prefix + ":" + name)
			if _, taken := fields[key]; taken {
				continue
			}
			switch len(values) {
			case 0:
			case 1:
				set(key, values[0].Value)
			default:
				list := make([]string, 0, len(values))
				for _, v := range values {
					list = append(list, v.Value)
				}
				fields[key] = list
			}
		}
	}

	enclosures := make([]Enclosure, 0, len(item.Enclosures))
	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		enclosures = append(enclosures, Enclosure{
			Href:   enc.URL,
			Length: enc.Length,
			Type:   enc.Type,
		})
	}

	return RawItem{
		Fields:     fields,
		Published:  item.PublishedParsed,
		Enclosures: enclosures,
	}
}

func formatAuthor(item *gofeed.Item) string {
	var name, email string

	if len(item.Authors) > 0 && item.Authors[0] != nil {
		name = strings.TrimSpace(item.Authors[0].Name)
		email = strings.TrimSpace(item.Authors[0].Email)
	} else if item.Author != nil {
		name = strings.TrimSpace(item.Author.Name)
		email = strings.TrimSpace(item.Author.Email)
	}

	switch {
	case name != "" && email != "":
		return fmt.Sprintf("%s (%s)", email, name)
	case name != "":
		return name
	default:
		return email
	}
}

func isXMLError(err error) bool {
	var syntaxErr *xml.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}
	if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
		return true
	}
	return strings.Contains(err.Error(), "XML syntax error")
}
