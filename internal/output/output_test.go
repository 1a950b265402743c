package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostrand/lansweep/internal/scan"
)

func sampleResults() scan.Results {
	return scan.Results{
		ScanID:  "af0c2f7e-17b9-4a22-9f0a-2f0f60b6a001",
		Total:   256,
		Scanned: 256,
		Open:    2,
		Entries: []scan.Entry{
			{
				Address:   "192.168.1.50",
				Port:      22,
				Service:   "ssh",
				LatencyMS: 3,
				Banner:    "SSH-2.0-OpenSSH_9.8\r\n",
				Timestamp: "2026-08-29T10:00:00Z",
			},
			{
				Address:   "192.168.1.1",
				Port:      80,
				Service:   "http",
				LatencyMS: 1,
				Banner:    `HTTP server=nginx/1.25.3, title="Router Admin"`,
				Timestamp: "2026-08-29T10:00:01Z",
			},
		},
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	WriteTable(&buf, sampleResults())
	out := buf.String()

	assert.Contains(t, out, "192.168.1.1")
	assert.Contains(t, out, "192.168.1.50")
	assert.Contains(t, out, "ssh")
	assert.Contains(t, out, "http")
	assert.Contains(t, out, "2 open, 256 scanned of 256")

	// Sorted by address then port: the router row comes first.
	assert.Less(t, strings.Index(out, "192.168.1.1 "), strings.Index(out, "192.168.1.50"))
}

func TestWriteTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	WriteTable(&buf, scan.Results{Total: 10, Scanned: 10})
	assert.Contains(t, buf.String(), "0 open, 10 scanned of 10")
}

func TestWriteJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResults()))

	var decoded scan.Results
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, sampleResults(), decoded)
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, SaveJSON(path, sampleResults()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded scan.Results
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Entries, 2)
	assert.EqualValues(t, 2, decoded.Open)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "this is...", truncate("this is far too long", 10))
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	// Cut points landing inside a multibyte rune must back up to the
	// rune boundary instead of emitting a partial sequence.
	banner := strings.Repeat("é", 40)
	for max := 4; max < 20; max++ {
		got := truncate(banner, max)
		assert.True(t, utf8.ValidString(got), "max=%d produced invalid UTF-8: %q", max, got)
		assert.True(t, strings.HasSuffix(got, "..."), "max=%d missing ellipsis: %q", max, got)
	}
}
