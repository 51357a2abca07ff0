package extract

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResumeText_MissingFile(t *testing.T) {
	if _, err := ResumeText("/does/not/exist.pdf"); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestResumeText_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.pdf")
	if err := os.WriteFile(path, []byte("plain text, not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ResumeText(path); err == nil {
		t.Fatalf("expected an error for a non-pdf file")
	}
}
