package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/parthardas/helpdesk/internal/observability"
	"github.com/parthardas/helpdesk/pkg/conversation"
	"github.com/parthardas/helpdesk/pkg/decision"
	"github.com/parthardas/helpdesk/pkg/gateway"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the helpdesk HTTP gateway",
	Long: `Start the helpdesk gateway server. It exposes the chat endpoint,
session readback, websocket chat, health and Prometheus metrics for every
enabled domain.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lg, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer lg.Close()
	log := lg.GetZerolog()

	provider, err := buildProvider(cfg, log)
	if err != nil {
		return err
	}

	bundles, err := buildBundles(cfg, provider, log)
	if err != nil {
		return err
	}
	defer closeBundles(bundles)

	store := conversation.NewStore()

	// Durable transcripts: Redis when configured, JSONL archive otherwise.
	var history conversation.History
	if cfg.Sessions.RedisURL != "" {
		rdb, err := conversation.DialRedis(cfg.Sessions.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		history = conversation.NewRedisHistory(rdb,
			time.Duration(cfg.Sessions.RedisTTLMinutes)*time.Minute,
			cfg.Sessions.MaxHistory)
		log.Info().Msg("Using Redis transcript history")
	} else {
		archiver, err := conversation.NewArchiver(cfg.Sessions.ArchiveDir)
		if err != nil {
			return err
		}
		history = archiver
	}

	// Hot-reload keyword rules for the default domain when a file is set.
	if cfg.Routing.RulesFile != "" {
		keyword := bundles[cfg.Domains.Default].Keyword
		// The fallback label stays bound to the domain's handlers.
		rules, _, err := decision.LoadRules(cfg.Routing.RulesFile)
		if err != nil {
			return err
		}
		keyword.SetRules(rules)

		if cfg.Routing.Watch {
			watcher, err := decision.NewWatcher(cfg.Routing.RulesFile, keyword, log)
			if err != nil {
				return err
			}
			defer watcher.Close()
			log.Info().Str("path", cfg.Routing.RulesFile).Msg("Watching routing rules file")
		}
	}

	// Periodic idle-session sweeps.
	maxIdle := time.Duration(cfg.Sessions.MaxIdleMinutes) * time.Minute
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Sessions.SweepSchedule, func() {
		removed := store.Sweep(maxIdle)
		observability.SetActiveSessions(store.Len())
		if removed > 0 {
			log.Info().Int("removed", removed).Msg("Swept idle sessions")
		}
	}); err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	server, err := gateway.NewServer(gateway.Config{
		Host:               cfg.Server.Host,
		Port:               cfg.Server.Port,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		MaxConcurrent:      cfg.Server.MaxConcurrent,
		ReadTimeout:        time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout:       time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		DefaultDomain:      cfg.Domains.Default,
		Bundles:            bundles,
		Store:              store,
		History:            history,
		Logger:             log,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
