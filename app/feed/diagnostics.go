package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DumpInvalid saves a document that failed fatally so the operator can see
// what the feed host actually returned. Login and error pages are what
// usually ends up here. Best-effort: a failed write is logged, never
// escalated.
func DumpInvalid(receivedDir, sourceName string, data []byte) {
	if len(data) == 0 {
		slog.Error("Received empty page - no content", "source", sourceName)
		return
	}

	lower := bytes.ToLower(data)

	ext := "xml"
	if bytes.Contains(lower, []byte("<html>")) {
		slog.Error("Received content is an HTML page, not a feed", "source", sourceName)
		ext = "html"
	}
	if bytes.Contains(lower, []byte("login")) || bytes.Contains(lower, []byte("username")) {
		slog.Error("Received content looks like a login page", "source", sourceName)
	}

	if err := os.MkdirAll(receivedDir, 0o755); err != nil {
		slog.Error("Failed to create received directory", "dir", receivedDir, "error", err)
		return
	}

	filename := filepath.Join(receivedDir, fmt.Sprintf("%s.%s", sourceName, ext))
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		slog.Error("Failed to save invalid content", "file", filename, "error", err)
		return
	}

	slog.Error("Saved invalid content for review", "source", sourceName, "file", filename)
}
