package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/avelkin/linkvault/internal/archive"
	"github.com/avelkin/linkvault/internal/config"
	"github.com/avelkin/linkvault/internal/db"
	"github.com/avelkin/linkvault/internal/handler"
	"github.com/avelkin/linkvault/internal/importer"
	"github.com/avelkin/linkvault/internal/job"
	"github.com/avelkin/linkvault/internal/middleware"
	"github.com/avelkin/linkvault/internal/pocketbase"
	"github.com/avelkin/linkvault/internal/repo"
	"github.com/avelkin/linkvault/internal/schedule"
	"github.com/avelkin/linkvault/internal/service"
	"github.com/avelkin/linkvault/internal/staging"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "linkvault",
		Short: "linkvault import server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run linkvault server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(newImportCmd())

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("staging", cfg.Staging.Type),
	)

	runRepo := repo.NewRunRepo(conn)
	stagingStore, err := staging.New(cfg.Staging)
	if err != nil {
		return fmt.Errorf("init staging store: %w", err)
	}
	importService, err := service.NewImportService(runRepo, stagingStore, cfg.Import.KeepFinished)
	if err != nil {
		return fmt.Errorf("init import service: %w", err)
	}

	deps := handler.RouterDeps{
		Imports:     handler.NewImportHandler(importService, cfg.Import.MaxUploadSize),
		JWTSecret:   []byte(cfg.JWTSecret),
		StartWindow: time.Duration(cfg.Import.StartWindowSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewScheduler()
	retain := time.Duration(cfg.Import.RetainDays) * 24 * time.Hour
	if err := scheduler.AddJob(job.NewRunCleanupJob(runRepo, importService, retain), cfg.Import.CleanupSpec); err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}
	scheduler.Start(ctx)

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	scheduler.Stop()
	return nil
}

func newImportCmd() *cobra.Command {
	var (
		file     string
		archives string
		baseURL  string
		token    string
		userID   string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "run a legacy import from the command line",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" || baseURL == "" || token == "" || userID == "" {
				return fmt.Errorf("--file, --url, --token and --user are required")
			}
			logger.Init("", "info", 0, 0, 0, true)

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read export: %w", err)
			}
			source, closeSource, err := openArchives(archives)
			if err != nil {
				return err
			}
			if closeSource != nil {
				defer closeSource()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pipeline := importer.New(importer.Options{
				Data:     data,
				Store:    pocketbase.New(baseURL, token, nil),
				UserID:   userID,
				Archives: source,
			})
			pipeline.Start(ctx)
			return printEvents(pipeline.Events())
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the legacy export json")
	cmd.Flags().StringVar(&archives, "archives", "", "path to an archive bundle zip or directory")
	cmd.Flags().StringVar(&baseURL, "url", "", "destination store base url")
	cmd.Flags().StringVar(&token, "token", "", "destination store auth token")
	cmd.Flags().StringVar(&userID, "user", "", "destination user id")
	return cmd
}

func openArchives(path string) (archive.Source, func(), error) {
	if path == "" {
		return nil, nil, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("stat archives: %w", err)
	}
	if info.IsDir() {
		source, err := archive.Dir(path)
		return source, nil, err
	}
	source, err := archive.OpenZip(path)
	if err != nil {
		return nil, nil, err
	}
	return source, func() { _ = source.Close() }, nil
}

// printEvents renders progress to stdout, one line per whole percent, and
// returns a non-nil error if the run ends with an error event.
func printEvents(events <-chan importer.Event) error {
	lastWhole := make(map[string]int)
	var runErr error
	for event := range events {
		switch event.Type {
		case importer.EventProgress:
			whole := int(event.Progress)
			if whole > lastWhole[event.Category] {
				lastWhole[event.Category] = whole
				fmt.Printf("%-10s %3d%%\n", event.Category, whole)
			}
		case importer.EventError:
			runErr = fmt.Errorf("import failed: %s", event.Error)
		case importer.EventComplete:
			fmt.Println("import complete")
			if event.Report == nil {
				continue
			}
			for category, stats := range event.Report.Categories {
				fmt.Printf("%-10s total=%d created=%d skipped=%d failed=%d\n",
					category, stats.Total, stats.Created, stats.Skipped, stats.Failed)
			}
			for _, failure := range event.Report.Failures {
				fmt.Printf("failed %s pk=%d: %s\n", failure.Category, failure.SourcePK, failure.Reason)
			}
		}
	}
	return runErr
}
