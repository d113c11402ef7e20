package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/construo/opsportal/internal/adapters/http"
	"github.com/construo/opsportal/internal/config"
	"github.com/construo/opsportal/internal/core/domain"
	"github.com/construo/opsportal/internal/core/usecase"
	"github.com/construo/opsportal/internal/infrastructure/report/excel"
	"github.com/construo/opsportal/internal/infrastructure/repository/postgres"
)

// The admin CLI runs inside the trusted perimeter; capability gates do not
// apply to it.
type allowAllAuthorizer struct{}

func (allowAllAuthorizer) HasPermission(context.Context, string, string) (bool, error) {
	return true, nil
}

func main() {
	root := &cobra.Command{
		Use:           "opsportal-admin",
		Short:         "Operational tooling for the contractor compliance portal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newExpireSweepCmd())
	root.AddCommand(newExportReportCmd())
	root.AddCommand(newGenTokenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newExpireSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire-sweep",
		Short: "Expire lapsed approved documents and re-aggregate their folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeDB, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			result, err := usecase.NewSweepUseCase(store).Sweep(cmd.Context(), time.Now().UTC())
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d documents, updated %d folders\n",
				result.DocumentsExpired, result.FoldersUpdated)
			return nil
		},
	}
}

func newExportReportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export-report <company-id>",
		Short: "Write a company compliance workbook to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			companyID := args[0]
			if out == "" {
				out = fmt.Sprintf("compliance-%s.xlsx", companyID)
			}

			store, closeDB, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			cfg := config.Load()
			checklist, err := config.LoadChecklist(cfg.ChecklistPath)
			if err != nil {
				return fmt.Errorf("load checklist: %w", err)
			}

			reporter := usecase.NewReportUseCase(store, allowAllAuthorizer{}, checklist)
			session := domain.Session{UserID: "admin-cli", CompanyID: companyID}
			report, err := reporter.CompanyReport(cmd.Context(), session, companyID)
			if err != nil {
				return fmt.Errorf("build report: %w", err)
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			defer f.Close()

			if err := excel.NewExporter().Export(report, f); err != nil {
				return fmt.Errorf("export workbook: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d dossiers)\n", out, len(report.Dossiers))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output path (default compliance-<company-id>.xlsx)")
	return cmd
}

func newGenTokenCmd() *cobra.Command {
	var (
		companyID   string
		permissions []string
		ttl         time.Duration
	)

	cmd := &cobra.Command{
		Use:   "gen-token <user-id>",
		Short: "Issue an access token for API testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is required")
			}
			if companyID == "" {
				return fmt.Errorf("--company is required")
			}

			grants := permissions
			if len(grants) == 1 && grants[0] == "all" {
				grants = []string{
					domain.CapabilityManageFolders,
					domain.CapabilityReviewDocuments,
					domain.CapabilityViewReports,
				}
			}

			token, err := httpadapter.GenerateToken(cfg.JWTSecret, args[0], companyID, grants, ttl)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&companyID, "company", "", "Company id the token is scoped to")
	cmd.Flags().StringSliceVar(&permissions, "permissions", []string{"all"},
		"Capability grants, comma separated ("+strings.Join([]string{
			domain.CapabilityManageFolders,
			domain.CapabilityReviewDocuments,
			domain.CapabilityViewReports,
		}, ", ")+", or 'all')")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}

func openStore(ctx context.Context) (*postgres.Store, func(), error) {
	cfg := config.Load()
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, func() { _ = db.Close() }, nil
}
