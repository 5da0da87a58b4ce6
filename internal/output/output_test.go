package output

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinify(t *testing.T) {
	doc := `<!DOCTYPE html>
<html>
  <head>
    <style type="text/css">
      .used   {   color : red ;  }
    </style>
    <script>
      var   answer   =   42 ;
    </script>
  </head>
  <body>
    <p   class="used">  hello   world  </p>
  </body>
</html>`

	got, err := Minify(doc)
	require.NoError(t, err)

	assert.Less(t, len(got), len(doc))
	assert.Contains(t, got, ".used{color:red}")
	assert.Contains(t, got, "answer=42")
	assert.Contains(t, got, `class="used"`)
	assert.Contains(t, got, "hello world")
	assert.Contains(t, got, "<html>")
}

func TestWriteStdout(t *testing.T) {
	var b strings.Builder
	path, err := Write("<p>x</p>", "", &b)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, "<p>x</p>", b.String())
}

func TestWriteFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "page.html")

	path, err := Write("<p>x</p>", target, nil)
	require.NoError(t, err)
	assert.Equal(t, target, path)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", string(data))
}

func TestOpen(t *testing.T) {
	orig := openFile
	defer func() { openFile = orig }()

	var opened string
	openFile = func(path string) error {
		opened = path
		return nil
	}
	require.NoError(t, Open("/tmp/page.html"))
	assert.Equal(t, "/tmp/page.html", opened)

	openFile = func(string) error { return errors.New("no browser") }
	assert.EqualError(t, Open("/tmp/page.html"), "failed to open /tmp/page.html: no browser")
}
