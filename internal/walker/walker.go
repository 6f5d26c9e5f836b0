// Package walker mirrors one project's folder tree onto a storage backend.
package walker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/BgWv3/procore-doc-downloader/internal/logging"
	"github.com/BgWv3/procore-doc-downloader/internal/metrics"
	"github.com/BgWv3/procore-doc-downloader/internal/storage"
	"github.com/BgWv3/procore-doc-downloader/pkg/client"
	"github.com/BgWv3/procore-doc-downloader/pkg/models"
	"github.com/BgWv3/procore-doc-downloader/pkg/tree"
)

// FolderLister reads the listing of a folder. A nil id is the project root.
type FolderLister interface {
	FetchFolder(ctx context.Context, folderID *models.ID) (*models.FolderListing, error)
}

// Fetcher opens the body of a signed download URL.
type Fetcher interface {
	Download(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// Reporter receives progress events. Calls are made from the walking goroutine.
type Reporter interface {
	FolderStarted(relPath string)
	FolderFailed(relPath string, err error)
	FileStarted(relPath, name string)
	// FileProgress returns a writer that receives the file body as it is
	// stored, or nil. size is -1 when unknown.
	FileProgress(size int64) io.Writer
	FileFinished(location string, bytes int64, err error)
}

// NopReporter ignores all events.
type NopReporter struct{}

func (NopReporter) FolderStarted(string) {}
func (NopReporter) FolderFailed(string, error) {}
func (NopReporter) FileStarted(string, string) {}
func (NopReporter) FileProgress(int64) io.Writer { return nil }
func (NopReporter) FileFinished(string, int64, error) {}

// Failure records one folder or file that could not be mirrored.
type Failure struct {
	Path string
	Err  error
}

// Summary counts what a walk did.
type Summary struct {
	FilesDownloaded int
	BytesDownloaded int64
	FilesSkipped    int
	FileErrors      int
	FoldersListed   int
	FoldersCreated  int
	FolderErrors    int
	Failures        []Failure
	Elapsed         time.Duration
}

// Add accumulates other into s.
func (s *Summary) Add(other Summary) {
	s.FilesDownloaded += other.FilesDownloaded
	s.BytesDownloaded += other.BytesDownloaded
	s.FilesSkipped += other.FilesSkipped
	s.FileErrors += other.FileErrors
	s.FoldersListed += other.FoldersListed
	s.FoldersCreated += other.FoldersCreated
	s.FolderErrors += other.FolderErrors
	s.Failures = append(s.Failures, other.Failures...)
	s.Elapsed += other.Elapsed
}

// OK reports whether nothing failed.
func (s Summary) OK() bool {
	return s.FileErrors == 0 && s.FolderErrors == 0
}

// Config configures a Walker.
type Config struct {
	Lister   FolderLister
	Fetcher  Fetcher
	Backend  storage.Backend
	Base     string // storage key of the project directory
	Reporter Reporter
}

// Walker performs a depth-first mirror of one project.
type Walker struct {
	lister   FolderLister
	fetcher  Fetcher
	backend  storage.Backend
	base     string
	reporter Reporter
}

// New creates a Walker.
func New(cfg Config) *Walker {
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Walker{
		lister:   cfg.Lister,
		fetcher:  cfg.Fetcher,
		backend:  cfg.Backend,
		base:     cfg.Base,
		reporter: reporter,
	}
}

// frame is a pending folder on the work stack.
type frame struct {
	id      *models.ID
	relPath string
}

// Walk mirrors the project starting at its root folder. It returns after
// every reachable folder and file was attempted. Folder and file failures are
// counted in the summary; only an authorization failure or cancellation of
// ctx stops the walk early, in which case the partial summary is returned
// together with the error.
func (w *Walker) Walk(ctx context.Context) (sum Summary, err error) {
	start := time.Now()
	defer func() { sum.Elapsed = time.Since(start) }()

	if err := w.backend.MakeDir(ctx, w.base); err != nil {
		return sum, fmt.Errorf("create project directory: %w", err)
	}

	stack := []frame{{}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := w.visit(ctx, f, &sum)
		if err != nil {
			return sum, err
		}

		// Push in reverse so the first child is visited next.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	logging.WithContext(ctx).Info("walk complete",
		zap.String("base", w.base),
		zap.Int("files", sum.FilesDownloaded),
		zap.Int("file_errors", sum.FileErrors),
		zap.Int("folder_errors", sum.FolderErrors))
	return sum, nil
}

// visit processes one folder and returns its traversable subfolders.
// A non-nil error is fatal to the walk.
func (w *Walker) visit(ctx context.Context, f frame, sum *Summary) ([]frame, error) {
	if f.id != nil {
		if err := w.backend.MakeDir(ctx, tree.Key(w.base, f.relPath, "")); err != nil {
			w.folderFailed(ctx, f.relPath, err, sum)
			return nil, nil
		}
		sum.FoldersCreated++
	}
	w.reporter.FolderStarted(f.relPath)

	listing, err := w.lister.FetchFolder(ctx, f.id)
	if err != nil {
		if isFatal(ctx, err) {
			return nil, err
		}
		w.folderFailed(ctx, f.relPath, err, sum)
		return nil, nil
	}
	sum.FoldersListed++
	metrics.RecordFolder("listed")

	for _, file := range listing.Files {
		url, ok := file.DownloadURL()
		if !ok {
			sum.FilesSkipped++
			metrics.RecordFileSkipped()
			logging.WithContext(ctx).Debug("skipping file", zap.String("folder", tree.Display(f.relPath)), zap.String("name", file.Name))
			continue
		}

		target := models.DownloadTarget{URL: url, Key: tree.Key(w.base, f.relPath, file.Name)}
		w.reporter.FileStarted(f.relPath, file.Name)
		n, err := w.download(ctx, target)
		w.reporter.FileFinished(w.backend.Location(target.Key), n, err)
		if err != nil {
			metrics.RecordFileDownload(0, false)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			sum.FileErrors++
			sum.Failures = append(sum.Failures, Failure{Path: target.Key, Err: err})
			logging.WithContext(ctx).Warn("file download failed", zap.String("key", target.Key), zap.Error(err))
			continue
		}
		metrics.RecordFileDownload(n, true)
		sum.FilesDownloaded++
		sum.BytesDownloaded += n
	}

	var children []frame
	for _, folder := range listing.Folders {
		if !folder.Traversable() {
			continue
		}
		id := folder.ID
		children = append(children, frame{id: &id, relPath: tree.BuildChildPath(f.relPath, folder.Name)})
	}
	return children, nil
}

func (w *Walker) download(ctx context.Context, target models.DownloadTarget) (int64, error) {
	body, size, err := w.fetcher.Download(ctx, target.URL)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	cr := &countingReader{r: body}
	var r io.Reader = cr
	if sink := w.reporter.FileProgress(size); sink != nil {
		r = io.TeeReader(cr, sink)
	}

	if err := w.backend.PutObject(ctx, target.Key, r, size); err != nil {
		return cr.n, err
	}
	return cr.n, nil
}

func (w *Walker) folderFailed(ctx context.Context, relPath string, err error, sum *Summary) {
	sum.FolderErrors++
	sum.Failures = append(sum.Failures, Failure{Path: tree.Key(w.base, relPath, ""), Err: err})
	metrics.RecordFolder("failed")
	logging.WithContext(ctx).Warn("abandoning folder", zap.String("folder", tree.Display(relPath)), zap.Error(err))
	w.reporter.FolderFailed(relPath, err)
}

func isFatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, client.ErrUnauthorized)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
