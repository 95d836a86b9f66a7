package feed

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDumpInvalidHTMLExtension(t *testing.T) {
	dir := t.TempDir()

	DumpInvalid(dir, "broken", []byte("<HTML><body>Please log in</body></html>"))

	data, err := os.ReadFile(filepath.Join(dir, "broken.html"))
	if err != nil {
		t.Fatalf("Expected dump file: %v", err)
	}
	if len(data) == 0 {
		t.Error("Expected dump contents")
	}
}

func TestDumpInvalidXMLExtension(t *testing.T) {
	dir := t.TempDir()

	DumpInvalid(dir, "broken", []byte("<rss><channel><title>Cut off"))

	if _, err := os.Stat(filepath.Join(dir, "broken.xml")); err != nil {
		t.Errorf("Expected .xml dump file: %v", err)
	}
}

func TestDumpInvalidEmptyBody(t *testing.T) {
	dir := t.TempDir()

	DumpInvalid(dir, "broken", nil)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no file for empty body, got: %d", len(entries))
	}
}

func TestDumpInvalidCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "received")

	DumpInvalid(dir, "broken", []byte("<garbage"))

	if _, err := os.Stat(filepath.Join(dir, "broken.xml")); err != nil {
		t.Errorf("Expected directory created and file written: %v", err)
	}
}
