package feed

import (
	"strings"
	"testing"
)

func TestParserCleanRSS(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
<title>Test Feed</title>
<link>https://example.com</link>
<item>
<title>First Item</title>
<link>https://example.com/first</link>
<guid>guid-1</guid>
<description>First description</description>
<pubDate>Wed, 05 Jul 2023 10:00:00 +0000</pubDate>
<category>news</category>
<category>tech</category>
<dc:creator>Jane Doe</dc:creator>
<enclosure url="https://example.com/first.mp3" length="1024" type="audio/mpeg"/>
</item>
<item>
<title>Second Item</title>
<link>https://example.com/second</link>
<guid>guid-2</guid>
</item>
</channel>
</rss>`)

	parser := NewParser()
	parsed, classification := parser.Run(data, "application/rss+xml; charset=utf-8")

	if !classification.IsClean() {
		t.Fatalf("Expected clean classification, got: %s (%s)", classification.Kind, classification.Message)
	}
	if parsed == nil {
		t.Fatal("Expected parsed feed")
	}
	if parsed.Title != "Test Feed" {
		t.Errorf("Expected feed title 'Test Feed', got: %q", parsed.Title)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(parsed.Items))
	}

	item := parsed.Items[0]
	checks := map[string]string{
		"title":       "First Item",
		"link":        "https://example.com/first",
		"guid":        "guid-1",
		"description": "First description",
		"dc_creator":  "Jane Doe",
	}
	for field, expected := range checks {
		got, ok := item.GetString(field)
		if !ok || got != expected {
			t.Errorf("Expected field %s=%q, got: %q (ok=%v)", field, expected, got, ok)
		}
	}

	if item.Published == nil {
		t.Error("Expected published timestamp to be parsed")
	}

	categories, ok := item.Fields["categories"].([]string)
	if !ok || len(categories) != 2 {
		t.Errorf("Expected 2 categories, got: %v", item.Fields["categories"])
	}

	if len(item.Enclosures) != 1 {
		t.Fatalf("Expected 1 enclosure, got: %d", len(item.Enclosures))
	}
	enc := item.Enclosures[0]
	if enc.Href != "https://example.com/first.mp3" || enc.Length != "1024" || enc.Type != "audio/mpeg" {
		t.Errorf("Unexpected enclosure: %+v", enc)
	}
}

func TestParserCleanAtomAuthor(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>Atom Feed</title>
<entry>
<title>Entry One</title>
<link href="https://example.com/one"/>
<id>atom-1</id>
<author><name>Jane Doe</name><email>jane@example.com</email></author>
<updated>2023-07-05T10:00:00Z</updated>
</entry>
</feed>`)

	parser := NewParser()
	parsed, classification := parser.Run(data, "application/atom+xml")

	if !classification.IsClean() {
		t.Fatalf("Expected clean classification, got: %s (%s)", classification.Kind, classification.Message)
	}
	if len(parsed.Items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(parsed.Items))
	}

	author, ok := parsed.Items[0].GetString("author")
	if !ok || author != "jane@example.com (Jane Doe)" {
		t.Errorf("Expected formatted author, got: %q", author)
	}
}

func TestParserHTMLPageIsFatal(t *testing.T) {
	data := []byte(`<html>
<head><title>Login Required</title></head>
<body><form action="/login">Please sign in</form></body>
</html>`)

	parser := NewParser()
	parsed, classification := parser.Run(data, "text/html")

	if parsed != nil {
		t.Error("Expected no parsed feed for an HTML page")
	}
	if !classification.IsFatal() {
		t.Fatalf("Expected fatal classification, got: %s", classification.Kind)
	}
	if classification.Kind != FaultFatalXML {
		t.Errorf("Expected fatal XML fault, got: %s", classification.Kind)
	}
	if classification.Message == "" {
		t.Error("Expected classification message to carry the parse error")
	}
}

func TestParserRecoversTruncatedDocument(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Truncated Feed</title>
<item>
<title>Complete One</title>
<guid>guid-1</guid>
</item>
<item>
<title>Complete Two</title>
<guid>guid-2</guid>
</item>
<item>
<title>Cut off mid-tra`)

	parser := NewParser()
	parsed, classification := parser.Run(data, "application/rss+xml")

	if classification.Kind != FaultRecoverableXML {
		t.Fatalf("Expected recoverable XML fault, got: %s (%s)", classification.Kind, classification.Message)
	}
	if classification.IsFatal() {
		t.Error("Recoverable fault must not be fatal")
	}
	if parsed == nil || len(parsed.Items) != 2 {
		t.Fatalf("Expected 2 recovered items, got: %+v", parsed)
	}

	title, _ := parsed.Items[0].GetString("title")
	if title != "Complete One" {
		t.Errorf("Expected first recovered item 'Complete One', got: %q", title)
	}
}

func TestParserInvalidUTF8YieldsUnicodeFault(t *testing.T) {
	head := `<?xml version="1.0"?>
<rss version="2.0">
<channel>
<title>Feed</title>
<item>
<title>Item `
	tail := ` One</title>
<guid>guid-1</guid>
</item>
<item>
<title>Item Two</title>
<guid>guid-2</guid>
</item>
</channel>
</rss>`
	data := append([]byte(head), 0xff, 0xfe)
	data = append(data, []byte(tail)...)

	parser := NewParser()
	parsed, classification := parser.Run(data, "application/rss+xml")

	if classification.Kind != FaultUnicodeError {
		t.Fatalf("Expected unicode fault, got: %s (%s)", classification.Kind, classification.Message)
	}
	if parsed == nil || len(parsed.Items) != 2 {
		t.Fatalf("Expected 2 items to survive, got: %+v", parsed)
	}
}

func TestParserNonXMLContentTypeNotice(t *testing.T) {
	data := []byte(`<?xml version="1.0"?>
<rss version="2.0">
<channel>
<title>Feed</title>
<item><title>Item</title><guid>g1</guid></item>
</channel>
</rss>`)

	parser := NewParser()
	parsed, classification := parser.Run(data, "text/html; charset=utf-8")

	if classification.Kind != FaultEncodingNotice {
		t.Fatalf("Expected encoding notice, got: %s", classification.Kind)
	}
	if classification.IsFatal() {
		t.Error("Encoding notice must not be fatal")
	}
	if parsed == nil || len(parsed.Items) != 1 {
		t.Fatal("Expected entries despite content type notice")
	}
	if !strings.Contains(classification.Message, "text/html") {
		t.Errorf("Expected content type in message, got: %q", classification.Message)
	}
}

func TestParserEncodingOverride(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="windows-1251"?>
<rss version="2.0">
<channel>
<title>Feed</title>
<item><title>Item</title><guid>g1</guid></item>
</channel>
</rss>`)

	parser := NewParser()
	parsed, classification := parser.Run(data, "application/rss+xml; charset=utf-8")

	if classification.Kind != FaultEncodingOverride {
		t.Fatalf("Expected encoding override, got: %s (%s)", classification.Kind, classification.Message)
	}
	if parsed == nil || len(parsed.Items) != 1 {
		t.Fatal("Expected entries despite encoding override")
	}
}

func TestParserEmptyDocumentIsFatal(t *testing.T) {
	parser := NewParser()
	parsed, classification := parser.Run([]byte("not a feed at all"), "")

	if parsed != nil {
		t.Error("Expected no parsed feed")
	}
	if !classification.IsFatal() {
		t.Errorf("Expected fatal classification, got: %s", classification.Kind)
	}
}
