package console

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestBannerAndLines(t *testing.T) {
	var out strings.Builder
	c := New(&out)

	c.Banner("STEP 1: AUTHENTICATION")
	c.Success("Selected: %s", "Acme")
	c.Failure("boom")
	c.RateLimitWait(1, 60*time.Second)

	s := out.String()
	assert.Contains(t, s, strings.Repeat("=", bannerWidth))
	assert.Contains(t, s, "STEP 1: AUTHENTICATION")
	assert.Contains(t, s, "✓ Selected: Acme")
	assert.Contains(t, s, "✗ boom")
	assert.Contains(t, s, "⚠ Rate limit reached. Waiting 60 seconds...")
}

func TestList(t *testing.T) {
	var out strings.Builder
	New(&out).List("Available projects", []Entry{{ID: "7", Name: "Tower"}, {ID: "8", Name: "Bridge"}})

	s := out.String()
	assert.Contains(t, s, "Available projects:")
	assert.Contains(t, s, "Tower")
	assert.Contains(t, s, "Bridge")
}

func TestWriteCSV(t *testing.T) {
	var out strings.Builder
	require.NoError(t, WriteCSV(&out, []Entry{{ID: "7", Name: "Tower"}, {ID: "8", Name: "Bridge"}}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "#,name,id", strings.ToLower(lines[0]))
	assert.Equal(t, "1,Tower,7", lines[1])
	assert.Equal(t, "2,Bridge,8", lines[2])
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "projects.csv")

	require.NoError(t, ExportCSV(path, []Entry{{ID: "7", Name: "Tower"}}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "1,Tower,7")

	names, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

func TestExportCSV_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "projects.csv")
	failing := func(w io.Writer, _ []Entry) error {
		io.WriteString(w, "#,name")
		return errors.New("disk full")
	}

	err := exportCSV(path, []Entry{{ID: "7", Name: "Tower"}}, failing)
	assert.ErrorContains(t, err, "disk full")

	names, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestExportCSV_FailureKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "projects.csv")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	err := exportCSV(path, nil, func(io.Writer, []Entry) error { return errors.New("boom") })
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KiB", FormatBytes(1536))
	assert.Equal(t, "2.0 MiB", FormatBytes(2*1024*1024))
}

func TestReporter(t *testing.T) {
	var out strings.Builder
	r := NewReporter(New(&out), false)

	r.FolderStarted("")
	r.FileStarted("", "root.pdf")
	assert.Nil(t, r.FileProgress(10))
	r.FileFinished("/tmp/mirror/Proj/root.pdf", 10, nil)
	r.FolderStarted("A/B")
	r.FileStarted("A/B", "x.pdf")
	r.FileFinished("/tmp/mirror/Proj/A/B/x.pdf", 0, errors.New("404"))
	r.FolderFailed("A/C", errors.New("500"))

	s := out.String()
	assert.Contains(t, s, "→ Downloading: /root.pdf")
	assert.Contains(t, s, "✓ Saved to: /tmp/mirror/Proj/root.pdf")
	assert.Contains(t, s, "📁 Processing folder: /A/B")
	assert.Contains(t, s, "✗ Failed to download: 404")
	assert.Contains(t, s, "✗ Error fetching folder /A/C: 500")
}

func TestReporterProgressBar(t *testing.T) {
	var out strings.Builder
	r := NewReporter(New(&out), true)

	w := r.FileProgress(4)
	require.NotNil(t, w)
	_, err := w.Write([]byte("data"))
	require.NoError(t, err)
	r.FileFinished("loc", 4, nil)
	assert.Contains(t, out.String(), "✓ Saved to: loc")
}
