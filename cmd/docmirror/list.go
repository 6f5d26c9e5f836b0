package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BgWv3/procore-doc-downloader/internal/console"
	"github.com/BgWv3/procore-doc-downloader/pkg/models"
)

var csvFile string

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List the companies you have access to",
	RunE: func(cmd *cobra.Command, _ []string) error {
		api, err := newAPIClient(cmd.Context())
		if err != nil {
			return err
		}
		companies, err := api.ListCompanies(cmd.Context())
		if err != nil {
			return fmt.Errorf("list companies: %w", err)
		}
		con.List("Companies", entries(companies))
		return nil
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List or export the projects of a company",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		api, err := newAPIClient(ctx)
		if err != nil {
			return err
		}

		company := models.ID(companyID)
		if company == "" {
			c, err := selectCompany(ctx, api)
			if err != nil {
				return err
			}
			company = c.ID
		}

		projects, err := api.ListProjects(ctx, company)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}

		if csvFile == "" {
			con.List("Projects", entries(projects))
			return nil
		}

		if err := console.ExportCSV(csvFile, entries(projects)); err != nil {
			return err
		}
		con.Success("Exported %d project(s) to %s", len(projects), csvFile)
		return nil
	},
}

func init() {
	projectsCmd.Flags().StringVar(&companyID, "company-id", "", "company to list projects of")
	projectsCmd.Flags().StringVar(&csvFile, "csv", "", "export the list to this CSV file")
}
