package console

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/BgWv3/procore-doc-downloader/pkg/tree"
)

// Reporter prints walk progress. With Progress set, each file body is
// tracked by a progress bar.
type Reporter struct {
	console  *Console
	progress bool

	folder string
	bar    *progressbar.ProgressBar
}

// NewReporter creates a walk reporter.
func NewReporter(c *Console, progress bool) *Reporter {
	return &Reporter{console: c, progress: progress}
}

func (r *Reporter) FolderStarted(relPath string) {
	r.folder = relPath
	if relPath != "" {
		r.console.Printf("\n📁 Processing folder: %s\n", tree.Display(relPath))
	}
}

func (r *Reporter) FolderFailed(relPath string, err error) {
	r.console.Printf("  ")
	r.console.Failure("Error fetching folder %s: %v", tree.Display(relPath), err)
}

func (r *Reporter) FileStarted(relPath, name string) {
	r.console.Printf("  → Downloading: %s\n", tree.Display(tree.BuildChildPath(relPath, name)))
}

func (r *Reporter) FileProgress(size int64) io.Writer {
	if !r.progress {
		return nil
	}
	r.bar = progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(r.console.Writer()),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("    "),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return r.bar
}

func (r *Reporter) FileFinished(location string, _ int64, err error) {
	if r.bar != nil {
		r.bar.Finish()
		r.bar = nil
	}
	r.console.Printf("    ")
	if err != nil {
		r.console.Failure("Failed to download: %v", err)
		return
	}
	r.console.Success("Saved to: %s", location)
}
