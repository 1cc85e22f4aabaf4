package pages

import (
	"path/filepath"
	"strings"
)

// BatchInput is one independent document in a multi-file conversion.
type BatchInput struct {
	Name    string
	Title   string
	Content []byte
}

// DetectBatch maps a list of independent documents to one page each, in
// input order. Titles come from the explicit title when given, else from
// the filename stem.
func (d *Detector) DetectBatch(inputs []BatchInput) []Source {
	srcs := make([]Source, 0, len(inputs))
	for i, in := range inputs {
		content := make([]byte, len(in.Content))
		copy(content, in.Content)
		title := in.Title
		if title == "" {
			title = TitleFromFilename(in.Name)
		}
		meta := map[string]string{"detection": DetectionBatch}
		if in.Name != "" {
			meta["source_file"] = in.Name
		}
		srcs = append(srcs, Source{
			Content:    content,
			Title:      title,
			Metadata:   meta,
			PageNumber: i + 1,
		})
	}
	return srcs
}

// TitleFromFilename turns "q3_sales-summary.svg" into "Q3 Sales Summary".
func TitleFromFilename(name string) string {
	if name == "" {
		return ""
	}
	stem := filepath.Base(name)
	if ext := filepath.Ext(stem); ext != "" {
		stem = strings.TrimSuffix(stem, ext)
	}
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	words := strings.Fields(stem)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
