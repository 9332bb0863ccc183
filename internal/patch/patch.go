// Package patch computes verified literal substitutions over recipe text.
// A patch either applies completely or not at all: every field's current
// value is located in the original text before any replacement happens, so a
// recipe that drifted since it was read is rejected instead of half-edited.
package patch

import (
	"fmt"
	"sort"
	"strings"
)

// Field is one substitution pair: the value currently in the text and the
// value that should replace it.
type Field struct {
	Old string
	New string
}

// Request carries everything needed to compute a patch for one file.
// BlobSHA is the content identity the file had when it was read; it travels
// with the patch so the eventual write can be made conditional on it.
type Request struct {
	Path    string
	Message string
	BlobSHA string
	Raw     string
	Fields  map[string]Field
}

// Patch is a fully substituted file ready to write. Content is the complete
// new raw text; encoding for transport is the writer's concern.
type Patch struct {
	Path    string
	Message string
	Content string
	BlobSHA string
}

// MissingFieldError reports the first field, in sorted order, whose current
// value could not be located in the text.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("current %s value not found in recipe text", e.Field)
}

// Build verifies every field's old value against the original text, then
// applies all replacements. Fields are processed in lexicographic name order
// in both passes, and each replacement applies to every occurrence. The
// first unlocatable field aborts the build before any substitution.
func Build(req Request) (*Patch, error) {
	fields := make([]string, 0, len(req.Fields))
	for name := range req.Fields {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	for _, name := range fields {
		if !strings.Contains(req.Raw, req.Fields[name].Old) {
			return nil, &MissingFieldError{Field: name}
		}
	}

	content := req.Raw
	for _, name := range fields {
		content = strings.ReplaceAll(content, req.Fields[name].Old, req.Fields[name].New)
	}

	return &Patch{
		Path:    req.Path,
		Message: req.Message,
		Content: content,
		BlobSHA: req.BlobSHA,
	}, nil
}
