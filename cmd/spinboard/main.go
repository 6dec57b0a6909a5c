package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	"github.com/Black-And-White-Club/spinboard/app"
	authservice "github.com/Black-And-White-Club/spinboard/app/modules/auth/application"
	authdomain "github.com/Black-And-White-Club/spinboard/app/modules/auth/domain"
	authjwt "github.com/Black-And-White-Club/spinboard/app/modules/auth/infrastructure/jwt"
	"github.com/Black-And-White-Club/spinboard/app/modules/ledger/infrastructure/wallet"
	"github.com/Black-And-White-Club/spinboard/config"
	"github.com/Black-And-White-Club/spinboard/db/bundb"
	"github.com/Black-And-White-Club/spinboard/internal/observability"
)

func main() {
	cliApp := &cli.App{
		Name:  "spinboard",
		Usage: "recurring micro-stakes lottery",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				Usage:   "path to the configuration file",
				EnvVars: []string{"CONFIG_PATH"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			tokenCommand(),
			walletStubCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the round engine and its HTTP API",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			application := &app.App{}
			if err := application.Initialize(ctx, cfg); err != nil {
				if application.Observability != nil {
					application.Close()
				}
				return fmt.Errorf("failed to initialize app: %w", err)
			}
			defer application.Close()

			return application.Run(ctx)
		},
	}
}

func migrateCommand() *cli.Command {
	withMigrators := func(fn func(c *cli.Context, migrators map[string]*migrate.Migrator) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			db, err := bundb.Open(c.Context, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			return fn(c, bundb.Migrators(db))
		}
	}

	create := func(c *cli.Context, migrators map[string]*migrate.Migrator) (*migrate.Migrator, string, string, error) {
		moduleName := c.Args().First()
		migrator, ok := migrators[moduleName]
		if !ok {
			return nil, "", "", fmt.Errorf("invalid module name: %s", moduleName)
		}
		return migrator, moduleName, strings.Join(c.Args().Tail(), "_"), nil
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: withMigrators(func(c *cli.Context, migrators map[string]*migrate.Migrator) error {
					for moduleName, migrator := range migrators {
						fmt.Printf("Initializing migrations for module: %s\n", moduleName)
						if err := migrator.Init(c.Context); err != nil {
							return fmt.Errorf("module %s: %w", moduleName, err)
						}
					}
					return nil
				}),
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Action: withMigrators(func(c *cli.Context, migrators map[string]*migrate.Migrator) error {
					for moduleName, migrator := range migrators {
						if err := migrator.Init(c.Context); err != nil {
							return fmt.Errorf("module %s: %w", moduleName, err)
						}
						group, err := migrator.Migrate(c.Context)
						if err != nil {
							return fmt.Errorf("module %s: %w", moduleName, err)
						}
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", moduleName)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", moduleName, group)
						}
					}
					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Action: withMigrators(func(c *cli.Context, migrators map[string]*migrate.Migrator) error {
					for moduleName, migrator := range migrators {
						group, err := migrator.Rollback(c.Context)
						if err != nil {
							return fmt.Errorf("module %s: %w", moduleName, err)
						}
						if group.IsZero() {
							fmt.Printf("No groups to roll back for module: %s\n", moduleName)
						} else {
							fmt.Printf("Rolled back module: %s to %s\n", moduleName, group)
						}
					}
					return nil
				}),
			},
			{
				Name:      "create_go",
				Usage:     "create Go migration",
				ArgsUsage: "<module> <name...>",
				Action: withMigrators(func(c *cli.Context, migrators map[string]*migrate.Migrator) error {
					migrator, moduleName, name, err := create(c, migrators)
					if err != nil {
						return err
					}
					mf, err := migrator.CreateGoMigration(c.Context, name)
					if err != nil {
						return err
					}
					fmt.Printf("Created migration for module %s: %s (%s)\n", moduleName, mf.Name, mf.Path)
					return nil
				}),
			},
			{
				Name:      "create_sql",
				Usage:     "create up and down SQL migrations",
				ArgsUsage: "<module> <name...>",
				Action: withMigrators(func(c *cli.Context, migrators map[string]*migrate.Migrator) error {
					migrator, moduleName, name, err := create(c, migrators)
					if err != nil {
						return err
					}
					files, err := migrator.CreateSQLMigrations(c.Context, name)
					if err != nil {
						return err
					}
					for _, mf := range files {
						fmt.Printf("Created migration for module %s: %s (%s)\n", moduleName, mf.Name, mf.Path)
					}
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: withMigrators(func(c *cli.Context, migrators map[string]*migrate.Migrator) error {
					for moduleName, migrator := range migrators {
						ms, err := migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return fmt.Errorf("module %s: %w", moduleName, err)
						}
						fmt.Printf("Migrations for module: %s\n", moduleName)
						fmt.Printf("  %s\n", ms)
						fmt.Printf("  Applied: %s\n", ms.Applied())
						fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
					}
					return nil
				}),
			},
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue a bearer token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "identity", Required: true},
			&cli.StringFlag{Name: "role", Value: string(authdomain.RolePlayer)},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return fmt.Errorf("auth.secret must be set")
			}

			obs := observability.NewNoop()
			service := authservice.NewService(
				authjwt.NewProvider(cfg.Auth.Secret),
				authservice.Config{DefaultTTL: cfg.Auth.DefaultTTL, Operator: cfg.Game.Operator},
				obs.Logger,
				obs.Tracer,
			)

			resp, err := service.IssueToken(c.Context, c.String("identity"), authdomain.Role(c.String("role")))
			if err != nil {
				return err
			}
			fmt.Println(resp.Token)
			return nil
		},
	}
}

// walletStubCommand answers wallet requests from an in-memory ledger so the
// nats wallet mode can run without a real payment backend.
func walletStubCommand() *cli.Command {
	return &cli.Command{
		Name:  "wallet-stub",
		Usage: "serve wallet transfer requests from memory",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger := observability.NewLogger(os.Stdout, cfg.Observability.LogLevel, cfg.Observability.LogFormat)

			conn, err := nats.Connect(cfg.NATS.URL)
			if err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			defer conn.Close()

			stop, err := wallet.Serve(conn, cfg.Wallet.TransferSubject, cfg.Wallet.ReverseSubject, "wallet-stub", wallet.NewMemory())
			if err != nil {
				return err
			}
			defer func() {
				if err := stop(); err != nil {
					logger.Error("Error stopping wallet stub", "error", err)
				}
			}()

			logger.Info("Wallet stub serving",
				"transfer_subject", cfg.Wallet.TransferSubject,
				"reverse_subject", cfg.Wallet.ReverseSubject,
			)

			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()
			<-ctx.Done()
			return nil
		},
	}
}
