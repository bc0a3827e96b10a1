package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"smart_switch/internal/config"
	"smart_switch/internal/handlers"
	"smart_switch/internal/logger"
	"smart_switch/internal/meter"
	"smart_switch/internal/mqtt"
	"smart_switch/internal/repository"
	"smart_switch/internal/repository/db"
	"smart_switch/internal/server"
	"smart_switch/internal/service"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the controller and the HTTP API",
		Long:  "Start the scheduler, safety monitor, device links and the HTTP/websocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	log := logger.Get(cfg.Log.Level)
	if cfg.Log.Level != logger.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Auth.SigningKey == config.DefaultSigningKey {
		log.Warnw("default_signing_key_in_use", "hint", "set auth.signing_key or SMARTSWITCH_AUTH_SIGNING_KEY")
	}

	svcCfg, err := cfg.ToService()
	if err != nil {
		return err
	}

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("init sqlite: %w", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos := repository.NewRepository(sqlDB)

	var extra []service.Notifier
	var bridge *mqtt.Bridge
	if cfg.MQTT.Enabled {
		conn, err := mqtt.Dial(mqtt.Options{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			StatusTopic: mqtt.StatusTopic(cfg.MQTT.TopicPrefix),
		}, log)
		if err != nil {
			log.Warnw("mqtt_unavailable", "broker", cfg.MQTT.Broker, "err", err)
		} else {
			bridge = mqtt.NewBridge(conn, repos.Store, cfg.MQTT.TopicPrefix, log)
			extra = append(extra, bridge)
		}
	}

	services := service.NewService(repos, svcCfg, log, extra...)

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				log.Errorw("component_stopped", "component", name, "err", err)
				stop()
			}
		}()
	}

	run("controller", services.Run)
	if bridge != nil {
		run("mqtt", bridge.Run)
	}
	if cfg.Meter.Enabled {
		client := meter.NewClient(cfg.Meter.URL, cfg.Meter.Speed, cfg.Meter.UnitID, cfg.Meter.Timeout)
		defer client.Close()
		run("meter", meter.NewPoller(client, repos.Store, cfg.Meter.Interval, log).Run)
	}

	if cfg.Simulator.Enabled {
		if bridge != nil || cfg.Meter.Enabled {
			log.Warnw("simulator_with_live_source", "mqtt", bridge != nil, "meter", cfg.Meter.Enabled)
		}
		run("simulator", func(ctx context.Context) error {
			return services.Simulator.Run(ctx, cfg.Simulator.Interval)
		})
	}

	apiHandler := handlers.NewHandler(services, log, handlers.Options{
		RateLimit: cfg.HTTP.RateLimit,
		RateBurst: cfg.HTTP.RateBurst,
		CacheTTL:  cfg.HTTP.CacheTTL,
	})
	srv := &server.Server{}
	go func() {
		if err := srv.Run(cfg.HTTP.Port, apiHandler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
	log.Infow("smartswitch_started", "port", cfg.HTTP.Port, "mqtt", bridge != nil, "meter", cfg.Meter.Enabled,
		"simulator", cfg.Simulator.Enabled)

	<-ctx.Done()
	log.Infow("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}

	wg.Wait()
	if bridge != nil {
		_ = bridge.Close()
	}
	return nil
}
