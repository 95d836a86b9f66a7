package feed

import (
	"bytes"
	"mime"
	"regexp"
	"strings"
)

// FaultKind tags the outcome of a parse. The underlying library fails hard
// on malformed documents, so recoverable faults are the ones where a
// lenient re-parse still produced entries.
type FaultKind int

const (
	// FaultNone: document parsed without complaint.
	FaultNone FaultKind = iota
	// FaultEncodingNotice: served with a non-XML content type, parsed anyway.
	FaultEncodingNotice
	// FaultEncodingOverride: XML declaration charset contradicts the
	// Content-Type charset.
	FaultEncodingOverride
	// FaultUnicodeError: invalid UTF-8 bytes were dropped, entries survived.
	FaultUnicodeError
	// FaultRecoverableXML: well-formedness error, lenient pass produced entries.
	FaultRecoverableXML
	// FaultFatalXML: well-formedness error and no usable entries.
	FaultFatalXML
	// FaultUnclassified: unrecognized parse failure with no usable entries.
	FaultUnclassified
)

func (k FaultKind) String() string {
	switch k {
	case FaultNone:
		return "none"
	case FaultEncodingNotice:
		return "encoding_notice"
	case FaultEncodingOverride:
		return "encoding_override"
	case FaultUnicodeError:
		return "unicode_error"
	case FaultRecoverableXML:
		return "recoverable_xml"
	case FaultFatalXML:
		return "fatal_xml"
	case FaultUnclassified:
		return "unclassified"
	default:
		return "unknown"
	}
}

// Classification is the tagged fault outcome attached to a parse result.
type Classification struct {
	Kind    FaultKind
	Message string
}

// IsFatal reports whether the fault aborts the run. Both fatal kinds are
// only assigned when the document yielded zero entries.
func (c Classification) IsFatal() bool {
	return c.Kind == FaultFatalXML || c.Kind == FaultUnclassified
}

// IsClean reports the absence of any fault.
func (c Classification) IsClean() bool {
	return c.Kind == FaultNone
}

var xmlDeclEncodingRe = regexp.MustCompile(`(?i)<\?xml[^>]*encoding=["']([^"']+)["']`)

// declaredEncoding extracts the charset from the XML declaration, if any.
func declaredEncoding(data []byte) string {
	head := data
	if len(head) > 256 {
		head = head[:256]
	}
	m := xmlDeclEncodingRe.FindSubmatch(head)
	if m == nil {
		return ""
	}
	return string(m[1])
}

// contentTypeCharset extracts the charset parameter from a Content-Type
// header value.
func contentTypeCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// isXMLContentType reports whether the media type plausibly announces a
// feed document.
func isXMLContentType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = contentType
	}
	return strings.Contains(mt, "xml") || strings.Contains(mt, "rss") || strings.Contains(mt, "atom")
}

// sanitize drops invalid UTF-8 sequences and control bytes that XML 1.0
// forbids outright.
func sanitize(data []byte) []byte {
	clean := strings.ToValidUTF8(string(data), "")

	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		if r == 0x9 || r == 0xA || r == 0xD || r >= 0x20 {
			b.WriteRune(r)
		}
	}
	return []byte(b.String())
}

// escapeBareAmpersands fixes the most common well-formedness fault in the
// wild: a literal "& " that was never entity-encoded.
func escapeBareAmpersands(data []byte) []byte {
	return bytes.ReplaceAll(data, []byte("& "), []byte("&amp; "))
}

// repairTruncated closes off a document cut short mid-transfer after its
// last complete item. Returns nil when no complete item is present.
func repairTruncated(data []byte) []byte {
	lower := bytes.ToLower(data)

	if idx := bytes.LastIndex(lower, []byte("</item>")); idx != -1 {
		end := idx + len("</item>")
		repaired := make([]byte, 0, end+len("</channel></rss>"))
		repaired = append(repaired, data[:end]...)
		return append(repaired, []byte("</channel></rss>")...)
	}

	if idx := bytes.LastIndex(lower, []byte("</entry>")); idx != -1 {
		end := idx + len("</entry>")
		repaired := make([]byte, 0, end+len("</feed>"))
		repaired = append(repaired, data[:end]...)
		return append(repaired, []byte("</feed>")...)
	}

	return nil
}
