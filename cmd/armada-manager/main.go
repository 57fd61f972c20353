package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	dg "github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/glotchimo/armada/internal/api"
	"github.com/glotchimo/armada/internal/jobs"
	"github.com/glotchimo/armada/internal/master"
	"github.com/glotchimo/armada/internal/shards"
	"github.com/glotchimo/armada/internal/utils"
)

type config struct {
	Token  string `env:"BOT_TOKEN,required"`
	BotBin string `env:"BOT_BIN" envDefault:"./armada-bot"`
	Debug  bool   `env:"DEBUG" envDefault:"false"`

	APIPort   int    `env:"API_PORT" envDefault:"4000"`
	APISecret string `env:"API_SECRET,required"`

	ServersPerShard int `env:"SERVERS_PER_SHARD" envDefault:"1000"`
	RPCBasePort     int `env:"SHARD_RPC_BASE_PORT" envDefault:"5100"`

	ClusteringEnabled     bool   `env:"CLUSTERING_ENABLED" envDefault:"false"`
	ClusteringShardCount  int    `env:"CLUSTERING_SHARD_COUNT" envDefault:"1"`
	ClusteringCallbackURL string `env:"CLUSTERING_CALLBACK_URL"`
	MasterAPIURL          string `env:"MASTER_API_URL"`
	MasterAPIToken        string `env:"MASTER_API_TOKEN"`

	BotSitesFile         string `env:"BOT_SITES_FILE"`
	ServerCountSchedule  string `env:"JOB_SERVER_COUNT_SCHEDULE" envDefault:"*/10 * * * *"`
	ServerCountLog       bool   `env:"JOB_SERVER_COUNT_LOG" envDefault:"false"`
	ServerCountOnce      bool   `env:"JOB_SERVER_COUNT_ONCE" envDefault:"false"`
	ServerCountDelaySecs int    `env:"JOB_SERVER_COUNT_DELAY_SECS" envDefault:"60"`
	ServerCountStreamURL string `env:"JOB_SERVER_COUNT_STREAM_URL"`
}

func main() {
	godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		slog.Error("failed to parse config", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	session, err := dg.New("Bot " + cfg.Token)
	if err != nil {
		log.Error("failed to build session", "error", err)
		os.Exit(1)
	}

	required, err := shards.RequiredShardCount(session)
	if err != nil {
		log.Error("failed to compute required shard count", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Standalone fleets run every shard themselves; clustered fleets take
	// their assignment from the coordinator.
	var (
		shardList   []int
		totalShards int
		coordinator *master.Client
	)
	if cfg.ClusteringEnabled {
		coordinator = master.NewClient(cfg.MasterAPIURL, cfg.MasterAPIToken, log)
		if err := coordinator.Register(ctx, cfg.ClusteringShardCount, cfg.ClusteringCallbackURL, cfg.APISecret); err != nil {
			log.Error("cluster registration failed", "error", err)
			os.Exit(1)
		}

		login, err := coordinator.Login(ctx)
		if err != nil {
			log.Error("cluster login failed", "error", err)
			os.Exit(1)
		}

		shardList = login.ShardList
		totalShards = login.TotalShards
		if totalShards < required {
			totalShards = required
		}
	} else {
		recommended, err := shards.RecommendedShardCount(session, cfg.ServersPerShard)
		if err != nil {
			log.Error("failed to compute shard count", "error", err)
			os.Exit(1)
		}
		totalShards = recommended
		shardList = utils.Range(0, totalShards)
	}
	log.Info("shard plan computed", "shards", len(shardList), "total_shards", totalShards)

	mgr := shards.NewManager(shards.Options{
		BotPath:     cfg.BotBin,
		Token:       cfg.Token,
		TotalShards: totalShards,
		ShardList:   shardList,
		RPCBasePort: cfg.RPCBasePort,
	}, log)
	if err := mgr.Start(); err != nil {
		log.Error("failed to start fleet", "error", err)
		os.Exit(1)
	}

	jobSvc := jobs.NewService(log)
	if !cfg.ClusteringEnabled {
		sites, err := jobs.LoadSites(cfg.BotSitesFile)
		if err != nil {
			log.Error("failed to load bot sites", "error", err)
			os.Exit(1)
		}

		schedule, err := jobs.ParseCron(cfg.ServerCountSchedule)
		if err != nil {
			log.Error("invalid server count schedule", "error", err)
			os.Exit(1)
		}

		publisher := jobs.NewServerCountPublisher(mgr, sites, cfg.ServerCountStreamURL, log)
		jobSvc.Add(jobs.Job{
			Name:         "server-count",
			Schedule:     schedule,
			RunOnce:      cfg.ServerCountOnce,
			InitialDelay: time.Duration(cfg.ServerCountDelaySecs) * time.Second,
			Log:          cfg.ServerCountLog,
			Run:          publisher.Run,
		})
	}
	jobSvc.Start(ctx)

	srv := api.NewServer("armada", "glotchimo", cfg.APISecret, mgr, log, cfg.APIPort)
	go func() {
		if err := srv.Start(); err != nil {
			log.Error("control api failed", "error", err)
			os.Exit(1)
		}
	}()

	if coordinator != nil {
		go signalReady(ctx, coordinator, mgr, log)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("control api shutdown failed", "error", err)
	}
	mgr.Stop()
	jobSvc.Wait()
}

// signalReady tells the coordinator once every shard reports ready. A
// failure to deliver the signal is logged but never takes the fleet down.
func signalReady(ctx context.Context, coordinator *master.Client, mgr *shards.Manager, log *slog.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		allReady := true
		for _, st := range mgr.ShardStatuses(ctx) {
			if st.Err != nil || !st.Ready {
				allReady = false
				break
			}
		}
		if !allReady {
			continue
		}

		if err := coordinator.Ready(ctx); err != nil {
			log.Error("ready signal failed", "error", err)
		}
		return
	}
}
