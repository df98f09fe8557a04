package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mverkaik/stagehand/internal/api"
	"github.com/mverkaik/stagehand/internal/config"
	"github.com/mverkaik/stagehand/internal/events"
	"github.com/mverkaik/stagehand/internal/input"
	"github.com/mverkaik/stagehand/internal/media"
	"github.com/mverkaik/stagehand/internal/model"
	"github.com/mverkaik/stagehand/internal/playback"
	"github.com/mverkaik/stagehand/internal/storage/postgres"
	"github.com/mverkaik/stagehand/internal/version"
)

func main() {
	configPath := flag.String("config", "stagehand.yaml", "path to the engine config file")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "stagehand").Logger()

	cfg, err := config.LoadEngineConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
	}

	// Journal is optional: without Postgres the engine still runs, it
	// just loses the durable event trail and session restore.
	journal, err := postgres.Open(cfg.Presentation.ID)
	if err != nil {
		log.Warn().Err(err).Msg("postgres journal unavailable")
		api.SetPostgresConnected(false)
	} else {
		events.SetJournal(journal)
		api.SetPostgresConnected(true)
		defer journal.Close()
	}

	playlist, err := model.Load(cfg.PlaylistPath())
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.PlaylistPath()).Msg("failed to load playlist")
	}
	for _, f := range model.Validate(playlist) {
		log.Warn().Str("finding", f.String()).Msg("playlist validation")
	}

	stage := api.NewStageChannel(log)

	player, err := playback.NewPlayer(playback.PlayerConfig{
		Playlist:     playlist,
		Stage:        stage,
		Registry:     media.Builtin(),
		Log:          log,
		TickInterval: cfg.TickInterval(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct player")
	}

	if cfg.Playback.Restore && journal != nil {
		sess, err := playback.RestoreFromJournal(journal)
		if err != nil {
			log.Warn().Err(err).Msg("session restore failed")
		} else if sess != nil && sess.Active {
			player.Restore(sess)
			log.Info().Str("subject", sess.SubjectID).Msg("restored previous session")
		}
	}

	preloadCtx, cancel := context.WithTimeout(context.Background(), cfg.PreloadTimeout())
	if err := player.Preload(preloadCtx); err != nil {
		log.Warn().Err(err).Msg("media preload incomplete")
	}
	cancel()

	if broker := cfg.MQTTBroker(); broker != "" {
		client := input.NewClient(broker, "stagehand-"+cfg.Presentation.ID, log, api.SetMQTTConnected)
		listener := input.NewListener(client, player, cfg.Presentation.ID, log)
		if err := client.Connect(); err != nil {
			log.Warn().Err(err).Str("broker", broker).Msg("mqtt connect failed, retrying in background")
		}
		if err := listener.Start(); err != nil {
			log.Warn().Err(err).Msg("mqtt subscribe failed")
		}
		defer client.Disconnect()
	}

	api.InitAuth()
	api.InitTLS()
	api.InitMetrics()
	api.InitAlerts(cfg.Presentation.Name)

	srv := api.NewServer(player, stage, cfg.Presentation.Name, log)
	srv.Start(cfg.APIPort())
	srv.StartAlertMonitor(30 * time.Second)

	hostname, _ := os.Hostname()
	events.Emit("info", "system.startup", "stagehand starting", map[string]interface{}{
		"presentation": cfg.Presentation.ID,
		"version":      version.Version,
		"hostname":     hostname,
		"pid":          os.Getpid(),
	})
	log.Info().Int("port", cfg.APIPort()).Str("version", version.Version).Msg("stagehand ready")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	events.Emit("info", "system.shutdown", "stagehand stopping", map[string]interface{}{
		"presentation": cfg.Presentation.ID,
	})
	player.Stop()
	log.Info().Msg("stagehand stopped")
}
