package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ari/su-usage/internal/config"
	"github.com/ari/su-usage/internal/history"
	"github.com/ari/su-usage/internal/logging"
	"github.com/ari/su-usage/internal/query"
	"github.com/ari/su-usage/internal/sreport"
	"github.com/ari/su-usage/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	cfgPath   string
	days      int
	startDate string
	endDate   string
	inputCSV  string
	outputCSV string
	workers   int
	strict    bool
	debug     bool
	noHistory bool
}

// app holds what the commands share after config is loaded
type app struct {
	runner sreport.Runner
	flags  rootFlags
	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd(runner sreport.Runner) *cobra.Command {
	a := &app{runner: runner, logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "su-usage [user]",
		Short: "Report cluster service-unit usage per user",
		Long: `Query Slurm accounting (sreport) for the service units (billing hours) used
by one user, or by every user listed in the first column of a CSV file.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip config loading for help command
			if cmd.Name() == "help" {
				return nil
			}
			cfg, err := config.LoadConfig(a.flags.cfgPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			a.cfg = cfg
			a.logger = logging.NewLogger(cfg.LogLevel, a.flags.debug)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuery(cmd, args)
		},
	}

	f := rootCmd.Flags()
	f.IntVar(&a.flags.days, "days", query.DefaultDays, "Number of days from today backwards")
	f.StringVarP(&a.flags.startDate, "start-date", "s", "", "Start date for the report (format YYYY-MM-DD)")
	f.StringVarP(&a.flags.endDate, "end-date", "e", "", "End date for the report (format YYYY-MM-DD)")
	f.StringVarP(&a.flags.inputCSV, "input-csv", "i", "", "Input CSV file containing usernames in the first column")
	f.StringVarP(&a.flags.outputCSV, "output-csv", "o", "", "Output CSV file to write total SU usage")
	f.IntVarP(&a.flags.workers, "workers", "w", 0, "Concurrent sreport queries in batch mode (default from config, 1)")
	f.BoolVar(&a.flags.strict, "strict", false, "Exit non-zero if any sreport query fails")
	f.BoolVar(&a.flags.noHistory, "no-history", false, "Do not record queries in the history database")

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.flags.cfgPath, "config", "c", "", "Path to config file (default: ~/.su-usage/config.toml)")
	pf.BoolVarP(&a.flags.debug, "debug", "d", false, "Show debug output (sreport arguments, skipped rows)")

	rootCmd.AddCommand(a.infoCmd())
	rootCmd.AddCommand(a.historyCmd())
	return rootCmd
}

func (a *app) runQuery(cmd *cobra.Command, args []string) error {
	opts := query.Options{
		Days:      a.flags.days,
		StartDate: a.flags.startDate,
		EndDate:   a.flags.endDate,
		InputCSV:  a.flags.inputCSV,
		OutputCSV: a.flags.outputCSV,
		Workers:   a.cfg.Workers,
		Strict:    a.flags.strict,
	}
	if len(args) > 0 {
		opts.User = args[0]
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers = a.flags.workers
	}

	parser, err := sreport.NewParser(a.cfg.Sreport.HeaderLines, a.cfg.Sreport.Column, a.cfg.Sreport.ColumnName)
	if err != nil {
		return fmt.Errorf("invalid report layout: %w", err)
	}
	extractor := sreport.NewExtractor(
		sreport.WithRunner(a.runner),
		sreport.WithParser(parser),
		sreport.WithCommand(a.cfg.Sreport.Command),
		sreport.WithCluster(a.cfg.Sreport.Cluster),
		sreport.WithLogger(a.logger),
	)

	driverOpts := []query.DriverOption{
		query.WithOutput(cmd.OutOrStdout()),
		query.WithLogger(a.logger),
		query.WithHelp(cmd.Help),
	}
	if opts.Mode() != query.ModeHelp && a.cfg.History && !a.flags.noHistory {
		db, err := history.Open(a.cfg.GetDatabasePath())
		if err != nil {
			a.logger.Warn().Err(err).Msg("query history disabled")
		} else {
			defer db.Close()
			driverOpts = append(driverOpts, query.WithHistory(db))
		}
	}

	return query.NewDriver(opts, extractor, driverOpts...).Run(cmd.Context())
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show loaded configuration",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ui.DisplayConfig(cmd.OutOrStdout(), a.cfg)
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	var limit int
	var user string

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently queried usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := a.cfg.GetDatabasePath()
			if _, err := os.Stat(dbPath); os.IsNotExist(err) {
				// Nothing recorded yet
				ui.DisplayHistory(cmd.OutOrStdout(), nil, 0)
				return nil
			}

			db, err := history.Open(dbPath)
			if err != nil {
				return fmt.Errorf("error opening history database: %w", err)
			}
			defer db.Close()

			entries, err := db.Recent(cmd.Context(), user, limit)
			if err != nil {
				return fmt.Errorf("error reading history: %w", err)
			}
			recorded, err := db.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("error reading history: %w", err)
			}
			ui.DisplayHistory(cmd.OutOrStdout(), entries, recorded)
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().StringVarP(&user, "user", "u", "", "Only show queries for this user")
	return historyCmd
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(sreport.ExecRunner{}).ExecuteContext(ctx); err != nil {
		ui.Error(os.Stderr, err.Error())
		stop()
		os.Exit(1)
	}
}
