package main

import (
	"context"
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

	"github.com/xxxsen/docqa/internal/config"
	"github.com/xxxsen/docqa/internal/handler"
	"github.com/xxxsen/docqa/internal/middleware"
)

func main() {
	var (
		configPath string
		envFile    string
		fileURL    string
		userID     string
		query      string
	)

	rootCmd := &cobra.Command{
		Use:          "docqa",
		Short:        "document question answering backend",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json (optional)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docqa http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(envFile, configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "extract, embed and store one document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(envFile, configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := buildApp(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()
			chunks, err := a.rag.Ingest(ctx, fileURL, userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %d chunks\n", chunks)
			return nil
		},
	}
	ingestCmd.Flags().StringVar(&fileURL, "file-url", "", "document url (http, https, s3 or file)")
	ingestCmd.Flags().StringVar(&userID, "user-id", "", "owner uuid")
	_ = ingestCmd.MarkFlagRequired("file-url")
	_ = ingestCmd.MarkFlagRequired("user-id")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "answer a question from a user's documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(envFile, configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := buildApp(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()
			answer, err := a.rag.Chat(ctx, userID, query)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	chatCmd.Flags().StringVar(&userID, "user-id", "", "owner uuid")
	chatCmd.Flags().StringVar(&query, "query", "", "question to answer")
	_ = chatCmd.MarkFlagRequired("user-id")
	_ = chatCmd.MarkFlagRequired("query")

	rootCmd.AddCommand(runCmd, ingestCmd, chatCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(envFile, configPath string) (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
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
	return cfg, nil
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler, err := a.startJobs(ctx, cfg)
	if err != nil {
		return fmt.Errorf("start jobs: %w", err)
	}
	if scheduler != nil {
		defer scheduler.Stop()
	}

	deps := handler.RouterDeps{
		RAG:    handler.NewRAGHandler(a.rag),
		Health: handler.NewHealthHandler(cfg.FaviconPath),
	}
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.Metrics(),
			middleware.CORS(cfg.CORSOrigins),
			middleware.RateLimit(time.Duration(cfg.RateLimitMs)*time.Millisecond),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
