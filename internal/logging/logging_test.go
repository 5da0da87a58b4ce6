package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		quiet     bool
		wantInfo  bool
		wantDebug bool
	}{
		{name: "default", wantInfo: true},
		{name: "verbose", verbose: true, wantInfo: true, wantDebug: true},
		{name: "quiet", quiet: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(&buf, tt.verbose, tt.quiet)

			l.Info.Print("info line")
			l.Debug.Print("debug line")
			l.Error.Print("error line")

			out := buf.String()
			assert.Equal(t, tt.wantInfo, bytes.Contains([]byte(out), []byte("INFO: ")))
			assert.Equal(t, tt.wantDebug, bytes.Contains([]byte(out), []byte("DEBUG: ")))
			assert.Contains(t, out, "ERROR: ")
		})
	}
}
