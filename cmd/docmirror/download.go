package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/BgWv3/procore-doc-downloader/internal/console"
	"github.com/BgWv3/procore-doc-downloader/internal/logging"
	"github.com/BgWv3/procore-doc-downloader/internal/selection"
	"github.com/BgWv3/procore-doc-downloader/internal/storage"
	"github.com/BgWv3/procore-doc-downloader/internal/storage/local"
	s3backend "github.com/BgWv3/procore-doc-downloader/internal/storage/s3"
	"github.com/BgWv3/procore-doc-downloader/internal/walker"
	"github.com/BgWv3/procore-doc-downloader/pkg/client"
	"github.com/BgWv3/procore-doc-downloader/pkg/models"
	"github.com/BgWv3/procore-doc-downloader/pkg/tree"
)

var (
	companyID   string
	projectExpr string
	assumeYes   bool
	downloadDir string
	storageType string
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Select projects and mirror their documents",
	RunE:  runDownload,
}

func init() {
	addDownloadFlags(downloadCmd)
}

func addDownloadFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&companyID, "company-id", "", "company to use instead of asking")
	cmd.Flags().StringVar(&projectExpr, "projects", "", `projects to mirror, e.g. "3", "1,3-5" or "all"`)
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().StringVar(&downloadDir, "dir", "", "download directory (default from DOWNLOAD_DIR)")
	cmd.Flags().StringVar(&storageType, "storage", "", "storage backend: local or s3 (default from STORAGE_BACKEND)")
}

func runDownload(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if downloadDir != "" {
		cfg.DownloadDir = downloadDir
	}
	if storageType != "" {
		cfg.StorageBackend = storageType
	}

	backend, err := openBackend(ctx)
	if err != nil {
		return err
	}

	con.Banner("STEP 1: AUTHENTICATION")
	api, err := newAPIClient(ctx)
	if err != nil {
		return err
	}

	con.Banner("STEP 2: SELECT COMPANY")
	company, err := selectCompany(ctx, api)
	if err != nil {
		return err
	}

	con.Banner("STEP 3: SELECT PROJECT(S)")
	projects, err := selectProjects(ctx, api, company.ID)
	if err != nil {
		return err
	}

	return mirrorProjects(ctx, api, backend, company.ID, projects)
}

func openBackend(ctx context.Context) (storage.Backend, error) {
	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}
	backend, err := storage.Open(ctx, storage.Config{
		Type:  cfg.StorageBackend,
		Local: local.Config{RootPath: cfg.DownloadDir},
		S3: s3backend.BackendConfig{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return backend, nil
}

func entries[T models.Company | models.Project](items []T) []console.Entry {
	out := make([]console.Entry, len(items))
	for i, item := range items {
		switch v := any(item).(type) {
		case models.Company:
			out[i] = console.Entry{ID: v.ID.String(), Name: v.Name}
		case models.Project:
			out[i] = console.Entry{ID: v.ID.String(), Name: v.Name}
		}
	}
	return out
}

func selectCompany(ctx context.Context, api *client.Client) (models.Company, error) {
	companies, err := api.ListCompanies(ctx)
	if err != nil {
		con.Failure("Error fetching companies: %v", err)
		return models.Company{}, err
	}
	if len(companies) == 0 {
		con.Failure("No companies found")
		return models.Company{}, errors.New("no companies found")
	}

	if companyID != "" {
		for _, c := range companies {
			if c.ID.String() == companyID {
				con.Success("Selected: %s", c.Name)
				return c, nil
			}
		}
		return models.Company{}, fmt.Errorf("company %s is not accessible", companyID)
	}

	con.List("Available companies", entries(companies))
	idx, err := prompter.SelectOne("\nSelect company number: ", len(companies))
	if err != nil {
		return models.Company{}, err
	}
	con.Success("Selected: %s", companies[idx].Name)
	return companies[idx], nil
}

func selectProjects(ctx context.Context, api *client.Client, company models.ID) ([]models.Project, error) {
	projects, err := api.ListProjects(ctx, company)
	if err != nil {
		con.Failure("Error fetching projects: %v", err)
		return nil, err
	}
	if len(projects) == 0 {
		con.Failure("No projects found")
		return nil, errors.New("no projects found")
	}

	if projectExpr != "" {
		indices, err := selection.Parse(projectExpr, len(projects))
		if err != nil {
			return nil, fmt.Errorf("--projects: %w", err)
		}
		return pick(projects, indices), nil
	}

	con.List("Available projects", entries(projects))
	con.Println("\nSelection options:")
	con.Println("  - Enter a single number (e.g., '3')")
	con.Println("  - Enter multiple numbers separated by commas (e.g., '1,3,5')")
	con.Println("  - Enter a range (e.g., '1-5')")
	con.Println("  - Enter 'all' to select all projects")

	for {
		indices, err := prompter.SelectMany("\nSelect project(s): ", len(projects))
		if err != nil {
			return nil, err
		}
		selected := pick(projects, indices)

		con.Println()
		con.Success("Selected %d project(s):", len(selected))
		for _, p := range selected {
			con.Printf("  - %s\n", p.Name)
		}
		if assumeYes {
			return selected, nil
		}

		ok, err := prompter.Confirm("\nProceed with these projects?")
		if err != nil {
			return nil, err
		}
		if ok {
			return selected, nil
		}
		con.Println("\nLet's try again...")
	}
}

func pick(projects []models.Project, indices []int) []models.Project {
	out := make([]models.Project, len(indices))
	for i, idx := range indices {
		out[i] = projects[idx]
	}
	return out
}

func mirrorProjects(ctx context.Context, api *client.Client, backend storage.Backend, company models.ID, projects []models.Project) error {
	reporter := console.NewReporter(con, term.IsTerminal(int(os.Stdout.Fd())))

	var total walker.Summary
	var rows []console.SummaryRow
	for i, project := range projects {
		con.Banner(fmt.Sprintf("PROJECT %d/%d: %s", i+1, len(projects), project.Name))

		base := tree.ProjectDirName(project.Name)
		con.Printf("Download location: %s\n\nStarting download...\n", backend.Location(base))

		w := walker.New(walker.Config{
			Lister:   api.Project(company, project.ID),
			Fetcher:  api,
			Backend:  backend,
			Base:     base,
			Reporter: reporter,
		})

		ctx := logging.WithFields(ctx, zap.String("project", project.ID.String()))
		sum, err := w.Walk(ctx)
		total.Add(sum)
		rows = append(rows, console.SummaryRow{
			Project:    project.Name,
			Files:      sum.FilesDownloaded,
			Bytes:      sum.BytesDownloaded,
			Skipped:    sum.FilesSkipped,
			FileErrors: sum.FileErrors,
			FolderErrs: sum.FolderErrors,
			Elapsed:    sum.Elapsed,
		})
		if err != nil {
			con.Println()
			if errors.Is(err, client.ErrUnauthorized) {
				con.Failure("Authorization failed, run 'docmirror login': %v", err)
			} else {
				con.Failure("Download interrupted: %v", err)
			}
			con.Summary(rows)
			return err
		}

		con.Banner("✓ DOWNLOAD COMPLETE")
		con.Printf("All files saved to: %s\n", backend.Location(base))
	}

	con.Banner("✓ ALL PROJECTS COMPLETE")
	con.Summary(rows)
	if !total.OK() {
		con.Warning("%d file(s) and %d folder(s) could not be downloaded", total.FileErrors, total.FolderErrors)
		for _, f := range total.Failures {
			logging.Warn("not mirrored", zap.String("path", f.Path), zap.Error(f.Err))
		}
	}
	return nil
}
