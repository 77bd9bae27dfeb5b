package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vistecsol/ha-midea-ac/internal/auth"
	"github.com/vistecsol/ha-midea-ac/internal/device"
	"github.com/vistecsol/ha-midea-ac/internal/infrastructure/config"
	"github.com/vistecsol/ha-midea-ac/internal/infrastructure/database"
	"github.com/vistecsol/ha-midea-ac/internal/infrastructure/logging"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// configEnvVar overrides the default configuration path.
const configEnvVar = "MIDEA_BRIDGE_CONFIG"

// newRootCmd builds the command tree. A fresh tree per call keeps flag
// state out of package globals, which tests rely on.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "midea-bridge",
		Short: "Midea air conditioner bridge",
		Long: `Bridges Midea air conditioners to MQTT, a REST API and a WebSocket stream.

Each air conditioner on the account becomes a climate entity. State published
by one run is restored on the next so settings survive restarts.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to config file (default $"+configEnvVar+" or "+defaultConfigPath+")")

	resolve := func() string { return resolveConfigPath(configPath) }

	root.AddCommand(
		newServeCmd(resolve),
		newMigrateCmd(resolve),
		newDevicesCmd(resolve),
		newTokenCmd(resolve),
		newVersionCmd(),
	)
	return root
}

// resolveConfigPath picks the flag, then the environment, then the default.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

func newServeCmd(configPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath())
		},
	}
}

func newMigrateCmd(configPath func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQLite schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := openDatabase(cmd, configPath())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := openDatabase(cmd, configPath())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.MigrateDown(cmd.Context()); err != nil {
				return fmt.Errorf("rolling back migration: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "last migration rolled back")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := openDatabase(cmd, configPath())
			if err != nil {
				return err
			}
			defer db.Close()

			applied, pending, err := db.GetMigrationStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("reading migration status: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tSTATUS\tAPPLIED AT")
			for _, m := range applied {
				fmt.Fprintf(w, "%s\tapplied\t%s\n", m.Version, m.AppliedAt.Format(time.RFC3339))
			}
			for _, m := range pending {
				fmt.Fprintf(w, "%s\tpending\t-\n", m.Version)
			}
			return w.Flush()
		},
	})

	return cmd
}

func newDevicesCmd(configPath func() string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Inspect the device registry",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered appliances and their last published mode",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, log, err := openDatabase(cmd, configPath())
			if err != nil {
				return err
			}
			defer db.Close()

			registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
			registry.SetLogger(log)
			devices, err := registry.ListDevices(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing devices: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tHEALTH\tHVAC MODE\tTARGET")
			for _, d := range devices {
				fmt.Fprintf(w, "%s\t%s\t0x%02x\t%s\t%v\t%v\n",
					d.ID, d.Name, d.ApplianceType, d.HealthStatus,
					stateValue(d.State, "hvac_mode"), stateValue(d.State, "temperature"))
			}
			return w.Flush()
		},
	})

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune-history",
		Short: "Delete state history older than a duration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := openDatabase(cmd, configPath())
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := device.NewSQLiteStateHistoryRepository(db.DB).PruneHistory(cmd.Context(), olderThan)
			if err != nil {
				return fmt.Errorf("pruning history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d history entries\n", n)
			return nil
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Delete entries older than this")
	cmd.AddCommand(prune)

	return cmd
}

func newTokenCmd(configPath func() string) *cobra.Command {
	var (
		subject string
		scope   string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the command API",
		Long: `Issue an HS256 bearer token signed with api.auth.jwt_secret.

Tokens with the climate:control scope may POST to /api/v1/climates/{id}/commands.`,
		Example: `  midea-bridge token --subject home-assistant --ttl 720h`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cfg.API.Auth.JWTSecret == "" {
				return fmt.Errorf("api.auth.jwt_secret is not set; the command API is open")
			}

			token, err := auth.GenerateToken(subject, scope, cfg.API.Auth.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Who the token is issued to")
	cmd.Flags().StringVar(&scope, "scope", auth.ScopeControl, "Token scope")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "midea-bridge %s\ncommit: %s\nbuilt:  %s\n", version, commit, date)
		},
	}
}

// openDatabase loads the config and opens the SQLite database it names.
func openDatabase(cmd *cobra.Command, configPath string) (*database.DB, *logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(cfg.Logging, version)

	db, err := database.Open(cmd.Context(), database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return db, log, nil
}

func stateValue(state device.State, key string) any {
	if v, ok := state[key]; ok {
		return v
	}
	return "-"
}
