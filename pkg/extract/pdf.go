// Package extract pulls plain text out of resume documents so the session
// prompt can carry the candidate's background.
package extract

import (
	"fmt"
	"strings"

	"rsc.io/pdf"
)

// maxResumeChars caps how much resume text is fed into the system prompt.
const maxResumeChars = 12000

// ResumeText extracts the text of every page of the PDF at path, joined
// with blank lines between pages and truncated to a prompt-friendly size.
func ResumeText(path string) (string, error) {
	doc, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	total := doc.NumPage()
	pages := make([]string, 0, total)
	for n := 1; n <= total; n++ {
		p := doc.Page(n)
		if p.V.IsNull() {
			continue
		}
		content := p.Content()
		parts := make([]string, 0, len(content.Text))
		for _, text := range content.Text {
			if strings.TrimSpace(text.S) == "" {
				continue
			}
			parts = append(parts, text.S)
		}
		if len(parts) > 0 {
			pages = append(pages, strings.Join(parts, " "))
		}
	}
	out := strings.TrimSpace(strings.Join(pages, "\n\n"))
	if len(out) > maxResumeChars {
		out = out[:maxResumeChars]
	}
	return out, nil
}
