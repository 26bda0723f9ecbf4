package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"saphira/server/internal/config"
	"saphira/server/internal/domain"
	"saphira/server/internal/engine"
	"saphira/server/internal/generator"
	"saphira/server/internal/llm"
	"saphira/server/internal/orchestrator"
	"saphira/server/internal/session"
	"saphira/server/internal/timeline"

	"github.com/spf13/cobra"
)

var Version = "dev"

var (
	flagConfig   string
	flagUseCases string
)

var rootCmd = &cobra.Command{
	Use:           "saphira",
	Short:         "Panel interview and presentation practice",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("saphira %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "server/configs/saphira.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&flagUseCases, "use-cases", "", "override the built-in use case catalog (YAML)")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(practiceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// loadConfig 配置文件不存在时退回默认配置，方便直接 go run。
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(flagConfig); err != nil {
		log.Printf("[Main] ⚠️  config %s not found, using defaults", flagConfig)
		return config.Default(), nil
	}
	return config.Load(flagConfig)
}

// setupLogging output 为 stdout/stderr 或文件路径；level 为 quiet 时关闭组件日志。
func setupLogging(cfg config.LoggingConfig) (io.Closer, error) {
	if cfg.Level == "quiet" {
		log.SetOutput(io.Discard)
		return nil, nil
	}
	switch cfg.Output {
	case "", "stdout":
		log.SetOutput(os.Stdout)
	case "stderr":
		log.SetOutput(os.Stderr)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(f)
		return f, nil
	}
	return nil, nil
}

type app struct {
	cfg       *config.Config
	orch      *orchestrator.Orchestrator
	persister *session.RedisStore
}

func (a *app) Close() {
	a.orch.Close()
	if a.persister != nil {
		_ = a.persister.Close()
	}
}

// buildApp 组装 目录 → 生成器 → 引擎 → 编排器；Redis 连不上时只用内存。
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	catalog := domain.Default()
	if flagUseCases != "" {
		c, err := domain.LoadUseCases(flagUseCases)
		if err != nil {
			return nil, err
		}
		catalog = c
	}

	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if client == nil {
		log.Printf("[Main] LLM disabled, questions come from the template bank")
	}
	gen := generator.New(client, catalog, generator.Options{
		Timeout:               cfg.LLM.Timeout,
		ConversationWindow:    cfg.Engine.ConversationWindow,
		PreviousQuestionLimit: cfg.Engine.PreviousQuestionLimit,
	})
	eng := engine.New(cfg.Engine, catalog, gen, time.Now)

	a := &app{cfg: cfg}
	var persister session.Store
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rs, err := session.NewRedisStoreFromConfig(pingCtx, cfg.Redis)
	if err != nil {
		log.Printf("[Main] ⚠️  %v, continuing without persistence", err)
	} else if rs != nil {
		a.persister = rs
		persister = rs
		log.Printf("[Main] ✅ sessions persisted to redis %s", cfg.Redis.Addr)
	}

	a.orch = orchestrator.New(eng, session.NewInMemoryStore(), persister, timeline.NewInMemoryStore(), time.Now, nil)
	return a, nil
}
