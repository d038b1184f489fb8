package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/robby/pflow/internal/auth"
	"github.com/robby/pflow/internal/config"
	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
	"github.com/robby/pflow/internal/logging"
	"github.com/robby/pflow/internal/pipeline"
	"github.com/robby/pflow/internal/store"
	"github.com/robby/pflow/internal/tui"
)

// configFlag is the optional config file; every other flag lives in viper.
var configFlag string

func main() {
	v := config.New()
	rootCmd := &cobra.Command{
		Use:   "pflow",
		Short: "Terminal sales pipeline and CRM",
		Long: `pflow is a terminal CRM built around a kanban sales pipeline.

Move deals between stages with the keyboard, browse contacts, companies,
quotes and sales orders, and keep an eye on stagnant deals.

Backends:
  graphql  The hosted record API (--endpoint). Needs a token from
           PFLOW_TOKEN or the token file in your config directory.
  sqlite   A local database file (--db), no account needed.
           Run 'pflow seed --backend sqlite' for sample data.

Settings may also come from a config file (--config, default ./.env) or
PFLOW_* environment variables.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFlag, "config", "", "Config file (yaml, toml, json or env). Defaults to ./.env when present.")
	flags.String("backend", "", "Record backend: graphql or sqlite")
	flags.String("endpoint", "", "GraphQL endpoint of the record API")
	flags.String("db", "", "SQLite database file for the sqlite backend")
	flags.String("screen", "", "Screen to open: "+fmt.Sprint(config.Screens))
	flags.String("log-file", "", "Log file (default under $XDG_STATE_HOME/pflow)")
	for key, name := range map[string]string{
		config.KeyBackend:  "backend",
		config.KeyEndpoint: "endpoint",
		config.KeyDB:       "db",
		config.KeyScreen:   "screen",
		config.KeyLogFile:  "log-file",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	rootCmd.AddCommand(
		seedCmd(v),
		dealsCmd(v),
		moveCmd(v),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.Load(v, configFlag)
	if err != nil {
		return err
	}

	logs, err := logging.Setup(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logs.Close()

	gw, closer, err := openGateway(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	start, err := tui.ParseScreen(cfg.Screen)
	if err != nil {
		return err
	}

	app := tui.NewAppModel(gw, cmd.Context(), tui.Options{
		Start:         start,
		PageSize:      cfg.PageSize,
		StagnantAfter: cfg.StagnantAfter(),
	})

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}

// openGateway resolves a token when the backend needs one and opens it.
func openGateway(cfg *config.Config) (*gateway.Gateway, io.Closer, error) {
	opts := gateway.Options{
		Backend:  cfg.Backend,
		Endpoint: cfg.Endpoint,
		Timeout:  cfg.Timeout,
		DBPath:   cfg.DB,
	}
	if cfg.Backend == gateway.BackendGraphQL {
		token, err := auth.GetToken(cfg.Token)
		if err != nil {
			return nil, nil, err
		}
		opts.Token = token
	}
	gw, closer, err := gateway.Open(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s backend: %w", cfg.Backend, err)
	}
	return gw, closer, nil
}

// batch loads config for a non-interactive command. Logging stays off
// unless a log file was asked for.
func batch(v *viper.Viper) (*config.Config, *gateway.Gateway, func(), error) {
	cfg, err := config.Load(v, configFlag)
	if err != nil {
		return nil, nil, nil, err
	}

	var logs io.Closer
	if cfg.LogFile != "" {
		if logs, err = logging.Setup(cfg.LogFile, cfg.LogLevel); err != nil {
			return nil, nil, nil, err
		}
	} else {
		logging.Discard()
	}
	closeLogs := func() {
		if logs != nil {
			logs.Close()
		}
	}

	gw, closer, err := openGateway(cfg)
	if err != nil {
		closeLogs()
		return nil, nil, nil, err
	}
	return cfg, gw, func() {
		closer.Close()
		closeLogs()
	}, nil
}

func seedCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Fill the sqlite backend with sample companies, contacts and deals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gw, done, err := batch(v)
			if err != nil {
				return err
			}
			defer done()
			if cfg.Backend != gateway.BackendSQLite {
				return errors.New("seed only writes to a local database; rerun with --backend sqlite")
			}

			if err := gateway.Seed(cmd.Context(), gw, time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded sample records into %s\n", cfg.DB)
			return nil
		},
	}
}

// openBoard loads the deal store and wraps it in a board.
func openBoard(cmd *cobra.Command, cfg *config.Config, gw *gateway.Gateway) (*pipeline.Board, error) {
	st := store.New(gw.Deals, gw.Contacts)
	if err := st.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return pipeline.New(st, gw.Deals, pipeline.WithStagnantAfter(cfg.StagnantAfter())), nil
}

func dealsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "deals",
		Short: "Print the pipeline columns and stagnant deals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gw, done, err := batch(v)
			if err != nil {
				return err
			}
			defer done()

			board, err := openBoard(cmd, cfg, gw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			columns := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("Stage", "Deals", "Value")
			for _, col := range board.Columns() {
				columns.Row(col.Label(), strconv.Itoa(col.Count), domain.FormatMoney(col.Value))
			}
			totals := pipeline.ActiveTotals(board.Store().All())
			fmt.Fprintln(out, columns.Render())
			fmt.Fprintf(out, "%d active deals worth %s\n", totals.ActiveDeals, domain.FormatMoney(totals.ActiveValue))

			stagnant := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "Deal", "Stage", "Days", "Contact")
			n := 0
			now := board.Now()
			for _, d := range board.Store().All() {
				if !board.Stagnant(d) {
					continue
				}
				n++
				stagnant.Row(d.ID, d.Title, d.Stage.Label(), strconv.Itoa(d.DaysInStage(now)), board.Store().ContactName(d.ContactID))
			}
			if n == 0 {
				fmt.Fprintln(out, "No stagnant deals")
				return nil
			}
			fmt.Fprintf(out, "\nStagnant for more than %d days:\n", cfg.StagnantDays)
			fmt.Fprintln(out, stagnant.Render())
			return nil
		},
	}
}

func moveCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "move <deal-id> <stage>",
		Short: "Move a deal to another pipeline stage",
		Long:  "Move a deal to another stage. Stage is one of lead, qualified, proposal, closed-won, closed-lost (labels work too).",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := domain.ParseStage(args[1])
			if err != nil {
				return err
			}
			cfg, gw, done, err := batch(v)
			if err != nil {
				return err
			}
			defer done()

			board, err := openBoard(cmd, cfg, gw)
			if err != nil {
				return err
			}
			changed, err := board.Move(cmd.Context(), args[0], to)
			if err != nil {
				return fmt.Errorf("failed to move deal %s: %w", args[0], err)
			}
			if !changed {
				fmt.Fprintf(cmd.OutOrStdout(), "Deal %s is already in %s\n", args[0], to.Label())
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deal %s moved to %s\n", args[0], to.Label())
			return nil
		},
	}
}
