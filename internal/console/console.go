// Package console renders the interactive output of a mirror run.
package console

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

const bannerWidth = 60

var (
	successColor = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed)
	warningColor = color.New(color.FgYellow)
	headingColor = color.New(color.Bold)
)

// Console writes human facing output.
type Console struct {
	out io.Writer
}

// New creates a Console writing to out.
func New(out io.Writer) *Console {
	return &Console{out: out}
}

// Writer returns the underlying writer.
func (c *Console) Writer() io.Writer {
	return c.out
}

// Banner prints a section heading between rules.
func (c *Console) Banner(title string) {
	rule := strings.Repeat("=", bannerWidth)
	fmt.Fprintf(c.out, "\n%s\n", rule)
	headingColor.Fprintln(c.out, title)
	fmt.Fprintf(c.out, "%s\n\n", rule)
}

// Success prints a ✓ line.
func (c *Console) Success(format string, args ...any) {
	successColor.Fprintf(c.out, "✓ "+format+"\n", args...)
}

// Failure prints a ✗ line.
func (c *Console) Failure(format string, args ...any) {
	failureColor.Fprintf(c.out, "✗ "+format+"\n", args...)
}

// Warning prints a ⚠ line.
func (c *Console) Warning(format string, args ...any) {
	warningColor.Fprintf(c.out, "⚠ "+format+"\n", args...)
}

// Println prints a plain line.
func (c *Console) Println(args ...any) {
	fmt.Fprintln(c.out, args...)
}

// Printf prints plain formatted text.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// RateLimitWait announces a rate limit wait.
func (c *Console) RateLimitWait(_ int, wait time.Duration) {
	c.Warning("Rate limit reached. Waiting %s...", formatWait(wait))
}

func formatWait(d time.Duration) string {
	if d >= time.Second && d%time.Second == 0 {
		return fmt.Sprintf("%d seconds", int(d/time.Second))
	}
	return d.Round(time.Millisecond).String()
}

// Entry is one row of a numbered listing.
type Entry struct {
	ID   string
	Name string
}

func entryTable(entries []Entry) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Name", "ID"})
	for i, e := range entries {
		t.AppendRow(table.Row{i + 1, e.Name, e.ID})
	}
	return t
}

// List prints entries as a numbered table, the numbers being the ones
// selection prompts accept.
func (c *Console) List(title string, entries []Entry) {
	fmt.Fprintf(c.out, "%s:\n", title)
	fmt.Fprintln(c.out, entryTable(entries).Render())
}

// WriteCSV exports entries as CSV.
func WriteCSV(w io.Writer, entries []Entry) error {
	_, err := fmt.Fprintln(w, entryTable(entries).RenderCSV())
	return err
}

// ExportCSV writes entries as CSV to path. The file is written next to path
// and renamed into place, so a failed export leaves no partial file.
func ExportCSV(path string, entries []Entry) error {
	return exportCSV(path, entries, WriteCSV)
}

func exportCSV(path string, entries []Entry, write func(io.Writer, []Entry) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".docmirror-*.csv.tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := tmp.Chmod(0644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := write(tmp, entries); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// SummaryRow is one line of a run summary.
type SummaryRow struct {
	Project    string
	Files      int
	Bytes      int64
	Skipped    int
	FileErrors int
	FolderErrs int
	Elapsed    time.Duration
}

// Summary prints the per project results of a run.
func (c *Console) Summary(rows []SummaryRow) {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Project", "Files", "Size", "Skipped", "File errors", "Folder errors", "Time"})
	for _, r := range rows {
		t.AppendRow(table.Row{
			r.Project, r.Files, FormatBytes(r.Bytes), r.Skipped,
			colorCount(r.FileErrors), colorCount(r.FolderErrs),
			r.Elapsed.Round(time.Second),
		})
	}
	fmt.Fprintln(c.out, t.Render())
}

func colorCount(n int) string {
	if n == 0 {
		return "0"
	}
	return failureColor.Sprint(n)
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
