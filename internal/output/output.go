// Package output minifies and writes the archived document.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/browser"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

var m *minify.M

func init() {
	m = minify.New()
	m.Add("text/html", &html.Minifier{
		KeepDefaultAttrVals: true,
		KeepDocumentTags:    true,
		KeepEndTags:         true,
		KeepQuotes:          true,
	})
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)
}

// Minify shrinks the document including its embedded CSS and JavaScript
func Minify(document string) (string, error) {
	s, err := m.String("text/html", document)
	if err != nil {
		return "", fmt.Errorf("failed to minify output: %w", err)
	}
	return s, nil
}

// Write stores document at path, or writes it to stdout when path is empty.
// It returns the path actually written, with ~ expanded.
func Write(document, path string, stdout io.Writer) (string, error) {
	if path == "" {
		if _, err := io.WriteString(stdout, document); err != nil {
			return "", fmt.Errorf("failed to write output: %w", err)
		}
		return "", nil
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand path %s: %w", path, err)
	}

	if dir := filepath.Dir(expanded); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := os.WriteFile(expanded, []byte(document), 0o644); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	return expanded, nil
}

// openFile is replaced in tests
var openFile = browser.OpenFile

// Open shows the written file in the default browser
func Open(path string) error {
	if err := openFile(path); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	return nil
}
