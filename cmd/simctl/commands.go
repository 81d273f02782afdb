package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/campus-sim/internal/models"
	"github.com/noah-isme/campus-sim/internal/service"
	"github.com/noah-isme/campus-sim/pkg/config"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Regenerate the synthetic institution",
		Long: `Clear every simulator table and generate a fresh dataset for the
inclusive year range. The same seed and range always yield the same data.

Examples:
  simctl seed                      # SIM_YEAR_START..SIM_YEAR_END
  simctl seed --from 2019 --to 2021`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			from, _ := cmd.Flags().GetInt("from")
			to, _ := cmd.Flags().GetInt("to")
			if from == 0 {
				from = a.cfg.Simulation.YearStart
			}
			if to == 0 {
				to = a.cfg.Simulation.YearEnd
			}

			summary, err := a.seeds.Seed(cmd.Context(), service.SeedRequest{YearStart: from, YearEnd: to})
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}
			return printResult(cmd, summary, func(w io.Writer) {
				fmt.Fprintf(w, "Seeded %d-%d: %d periods, %d sections, %d students, %d registrations, %d credentials\n",
					from, to, summary.Periods, summary.Sections, summary.Students, summary.Registrations, summary.Credentials)
			})
		},
	}
	cmd.Flags().Int("from", 0, "First academic year (default SIM_YEAR_START)")
	cmd.Flags().Int("to", 0, "Last academic year (default SIM_YEAR_END)")
	return cmd
}

func newTickCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Advance the simulated clock",
		Long: `Run one or more weekly ticks. Stops at the first failure.

Examples:
  simctl tick            # one week
  simctl tick --weeks 8  # eight weeks in a row`,
		RunE: func(cmd *cobra.Command, args []string) error {
			weeks, _ := cmd.Flags().GetInt("weeks")
			if weeks < 1 {
				return fmt.Errorf("--weeks must be at least 1")
			}
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			results := make([]*models.TickResult, 0, weeks)
			for i := 0; i < weeks; i++ {
				res, err := a.ticks.AdvanceWeek(cmd.Context())
				if err != nil {
					return fmt.Errorf("tick %d failed: %w", i+1, err)
				}
				results = append(results, res)
			}
			return printResult(cmd, results, func(w io.Writer) {
				for _, res := range results {
					fmt.Fprintf(w, "%s  +%d adds  -%d drops  %d midterms  %d finals  %d closed\n",
						res.NewDate.Format(time.DateOnly), res.Added, res.Dropped,
						res.MidtermsGraded, res.FinalsGraded, res.PeriodsClosed)
				}
			})
		},
	}
	cmd.Flags().Int("weeks", 1, "Number of weeks to advance")
	return cmd
}

func newStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the simulated date and active period",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			view, err := a.queries.State(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(cmd, view, func(w io.Writer) {
				fmt.Fprintf(w, "Simulated date: %s\n", view.State.CurrentSimDate.Format(time.DateOnly))
				if view.ActivePeriod != nil {
					fmt.Fprintf(w, "Active period:  %s (%s)\n", view.ActivePeriod.Code, view.ActivePeriod.Status)
				} else {
					fmt.Fprintln(w, "Active period:  none")
				}
			})
		},
	}
}

func newExportCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Render reports to files",
	}

	risks := &cobra.Command{
		Use:   "risks",
		Short: "Write the student risk report of a period",
		Long: `Render the risk rows of one period as CSV or PDF.

Examples:
  simctl export risks --period 2020SP
  simctl export risks --period 2020FA --format pdf --out fall.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			period, _ := cmd.Flags().GetString("period")
			rawFormat, _ := cmd.Flags().GetString("format")
			out, _ := cmd.Flags().GetString("out")

			format, err := service.ParseFormat(rawFormat)
			if err != nil {
				return err
			}
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			exporter := service.NewExportService(a.store, nil, nil, service.ExportConfig{}, a.logger, nil, nil)
			data, rows, err := exporter.Render(cmd.Context(), period, format)
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s\n", rows, out)
			return nil
		},
	}
	risks.Flags().String("period", "", "Period code, e.g. 2020SP")
	risks.Flags().String("format", "csv", "csv or pdf")
	risks.Flags().String("out", "", "Output file (default stdout)")
	_ = risks.MarkFlagRequired("period")

	exportCmd.AddCommand(risks)
	return exportCmd
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			role, _ := cmd.Flags().GetString("role")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			auth := service.NewAuthService(nil, nil, service.AuthConfig{
				AccessTokenSecret: cfg.JWT.Secret,
				AccessTokenExpiry: cfg.JWT.Expiration,
				Issuer:            cfg.JWT.Issuer,
			})
			res, err := auth.IssueToken(subject, models.Role(strings.ToLower(role)))
			if err != nil {
				return err
			}
			return printResult(cmd, res, func(w io.Writer) {
				fmt.Fprintln(w, res.AccessToken)
			})
		},
	}
	cmd.Flags().String("subject", "simctl", "Token subject")
	cmd.Flags().String("role", string(models.RoleAdmin), "admin or viewer")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Long: `Hash an operator password. Reads the first line of stdin when no
argument is given so the password stays out of shell history.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			hash, err := service.HashPassword(password)
			if err != nil {
				return err
			}
			return printResult(cmd, map[string]string{"hash": hash}, func(w io.Writer) {
				fmt.Fprintln(w, hash)
			})
		},
	}
}
