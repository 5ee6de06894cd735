package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"hopelink/internal/api"
	"hopelink/internal/caldav"
	"hopelink/internal/calsync"
	"hopelink/internal/config"
	"hopelink/internal/google"
	"hopelink/internal/models"
	"hopelink/internal/notify"
	"hopelink/internal/schedule"
	"hopelink/internal/storage"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "hopelink",
		Usage: "Care-schedule backend for caregivers of medically fragile children.",
		Commands: []*cli.Command{
			serveCommand(),
			authCommand(),
			syncCommand(),
			checkCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server and the reminder scheduler.",
		Action: func(c *cli.Context) error {
			cfg := config.New()
			logger := setupLogger(cfg.LogLevel)

			db, err := storage.NewDB(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()
			if err := db.Migrate(); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			var reconciler *calsync.Reconciler
			service, err := buildCalendarService(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			if service != nil {
				reconciler = calsync.NewReconciler(service, logger, false)
			} else {
				logger.Info("No calendar provider configured, external sync disabled.")
			}

			appointments := storage.NewAppointmentRepository(db)
			scheduler := notify.NewScheduler(appointments, &notify.LogNotifier{Logger: logger}, cfg.ReminderLead, logger)
			if err := scheduler.Start(); err != nil {
				return fmt.Errorf("failed to start reminder scheduler: %w", err)
			}
			defer scheduler.Stop()

			router := api.NewRouter(db, reconciler, cfg, logger)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Server starting", "port", cfg.Port)
				errCh <- router.Run(":" + cfg.Port)
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case sig := <-stop:
				logger.Info("Shutting down", "signal", sig.String())
				return nil
			}
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with Google to get a calendar API token.",
		Action: func(c *cli.Context) error {
			cfg := config.New()
			logger := setupLogger(cfg.LogLevel)
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(cfg.GoogleClientID, cfg.GoogleClientSecret)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			if err := google.SaveToken(cfg.GoogleTokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", cfg.GoogleTokenFile)
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Mirror unsynced upcoming appointments to the external calendar.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be synced without making changes."},
		},
		Action: func(c *cli.Context) error {
			cfg := config.New()
			logger := setupLogger(cfg.LogLevel)

			service, err := buildCalendarService(c.Context, cfg, logger)
			if err != nil {
				return err
			}
			if service == nil {
				return fmt.Errorf("CALENDAR_PROVIDER not set")
			}
			reconciler := calsync.NewReconciler(service, logger, c.Bool("dry-run"))

			db, err := storage.NewDB(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()
			if err := db.Migrate(); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			appointments := storage.NewAppointmentRepository(db)
			pending, err := appointments.ListPendingSync(c.Context, storage.Now())
			if err != nil {
				return fmt.Errorf("failed to list pending appointments: %w", err)
			}
			logger.Info("Found appointments pending sync.", "count", len(pending))

			var failed int
			for i := range pending {
				appt := &pending[i]
				decision := reconciler.Reconcile(c.Context, appt)
				switch {
				case decision.Failed():
					failed++
				case decision.Action == calsync.ActionCreate:
					if err := appointments.SetExternalID(c.Context, appt.ID, decision.ExternalID); err != nil {
						logger.Error("Failed to persist external id", "scheduleID", appt.ID, "error", err)
					}
				}
			}

			logger.Info("Sync finished.", "synced", len(pending)-failed, "failed", failed)
			return nil
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Detect schedule conflicts in a JSON appointment list.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Required: true, Usage: "Path to a JSON array of appointments."},
		},
		Action: func(c *cli.Context) error {
			data, err := os.ReadFile(c.String("file"))
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}

			var appointments []models.Appointment
			if err := json.Unmarshal(data, &appointments); err != nil {
				return fmt.Errorf("failed to parse appointments: %w", err)
			}

			report, err := schedule.BuildReport(appointments)
			if err != nil {
				return err
			}

			if report.Total == 0 {
				fmt.Println("No conflicts found.")
				return nil
			}

			fmt.Printf("%d conflict(s) found:\n", report.Total)
			for _, conflict := range report.Conflicts {
				fmt.Printf("  - %s [%s]\n", conflict.Warning(), conflict.Type)
			}
			return nil
		},
	}
}

// buildCalendarService constructs the configured external calendar backend,
// or returns nil when none is configured.
func buildCalendarService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (calsync.CalendarService, error) {
	switch cfg.CalendarProvider {
	case "":
		return nil, nil
	case "google":
		client, err := google.NewClient(ctx, logger, cfg.GoogleClientID, cfg.GoogleClientSecret,
			cfg.GoogleTokenFile, cfg.GoogleCalendarID, cfg.PrimaryTimezone)
		if err != nil {
			return nil, fmt.Errorf("failed to create google client: %w", err)
		}
		return client, nil
	case "caldav":
		client, err := caldav.NewClient(logger, cfg.CalDAVEndpoint, cfg.CalDAVUsername,
			cfg.CalDAVPassword, cfg.CalDAVCalendarName)
		if err != nil {
			return nil, fmt.Errorf("failed to create caldav client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown CALENDAR_PROVIDER %q", cfg.CalendarProvider)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
