package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/intake/intake/internal/config"
	"github.com/intake/intake/internal/domain/concrete"
	"github.com/intake/intake/internal/domain/patient"
	"github.com/intake/intake/internal/platform/db"
	"github.com/intake/intake/internal/stats"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	good    = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
)

// section is one printable block of the report.
type section struct {
	Title         string
	Lines         []string
	Distributions []*stats.Distribution
	Relationships []*stats.Relationship
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print summary statistics for patient visits and concrete projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			constants, err := loadConstants(cfg.ConstantsFile)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBSchema)
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := zerolog.Nop()
			visits := patient.NewService(patient.NewVisitRepoPG(pool, cfg.DBTimeout), logger)
			projects := concrete.NewService(concrete.NewProjectRepoPG(pool, cfg.DBTimeout), constants, logger)

			sections := make([]*section, 2)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				s, err := visitSection(gctx, visits)
				sections[0] = s
				return err
			})
			g.Go(func() error {
				s, err := projectSection(gctx, projects)
				sections[1] = s
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			for _, s := range sections {
				printSection(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
	return cmd
}

func visitSection(ctx context.Context, svc *patient.Service) (*section, error) {
	ov, err := svc.Overview(ctx, patient.Filter{})
	if err != nil {
		return nil, fmt.Errorf("visit overview: %w", err)
	}
	s := &section{
		Title: "Patient visits",
		Lines: []string{fmt.Sprintf("%d visits (%d men, %d women)", ov.Total, ov.Men, ov.Women)},
	}

	for _, key := range []string{"imc", "tension_systolique"} {
		d, err := svc.Summarize(ctx, key, patient.Filter{})
		if err != nil {
			return nil, err
		}
		s.Distributions = append(s.Distributions, d)
	}
	for _, pair := range [][2]string{{"poids_kg", "taille_cm"}, {"imc", "tension_systolique"}} {
		r, err := svc.Correlate(ctx, pair[0], pair[1], patient.Filter{})
		if err != nil {
			return nil, err
		}
		s.Relationships = append(s.Relationships, r)
	}
	return s, nil
}

func projectSection(ctx context.Context, svc *concrete.Service) (*section, error) {
	ov, err := svc.Overview(ctx, concrete.Filter{})
	if err != nil {
		return nil, fmt.Errorf("project overview: %w", err)
	}
	s := &section{
		Title: "Concrete projects",
		Lines: []string{fmt.Sprintf("%d projects, %.1f m³, %.0f €", ov.Count, ov.TotalVolumeM3, ov.TotalCostEUR)},
	}
	if ov.MeanStrengthMPa != nil {
		s.Lines = append(s.Lines, fmt.Sprintf("mean strength %.1f MPa", *ov.MeanStrengthMPa))
	}

	for _, key := range []string{"volume_beton_m3", "cout_total_eur"} {
		d, err := svc.Summarize(ctx, key, concrete.Filter{})
		if err != nil {
			return nil, err
		}
		s.Distributions = append(s.Distributions, d)
	}
	for _, pair := range [][2]string{{"volume_beton_m3", "cout_total_eur"}, {"resistance_mpa", "marge_securite"}} {
		r, err := svc.Correlate(ctx, pair[0], pair[1], concrete.Filter{})
		if err != nil {
			return nil, err
		}
		s.Relationships = append(s.Relationships, r)
	}
	return s, nil
}

func printSection(w io.Writer, s *section) {
	heading.Fprintf(w, "== %s ==\n", s.Title)
	for _, l := range s.Lines {
		fmt.Fprintln(w, l)
	}
	for _, d := range s.Distributions {
		fmt.Fprintf(w, "%-40s %s\n", d.Label, describeSummary(d.Summary))
	}
	for _, r := range s.Relationships {
		line := fmt.Sprintf("%s ~ %s: %s", r.X, r.Y, describeCorrelation(r.Correlation))
		if r.Correlation.Status == stats.StatusOK {
			good.Fprintln(w, line)
		} else {
			warn.Fprintln(w, line)
		}
	}
	fmt.Fprintln(w)
}

func describeSummary(s stats.Summary) string {
	if s.Insufficient {
		return "no data"
	}
	return fmt.Sprintf("n=%d mean=%.2f median=%.2f min=%.2f max=%.2f sd=%.2f",
		s.Count, s.Mean, s.Median, s.Min, s.Max, s.StdDev)
}

func describeCorrelation(c stats.Correlation) string {
	switch c.Status {
	case stats.StatusInsufficientData:
		return fmt.Sprintf("not enough data (%d more needed)", c.Needed)
	case stats.StatusConstantInput:
		return "a variable is constant"
	}
	sig := "not significant"
	if c.Significant {
		sig = "significant"
	}
	return fmt.Sprintf("r=%.3f rho=%.3f p=%.4f, %s %s, %s (n=%d)",
		c.PearsonR, c.SpearmanRho, c.PearsonP, c.Strength, c.Direction, sig, c.N)
}

func printStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}
