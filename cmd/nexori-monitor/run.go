package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/DesarrolloAlpha/Nexori-sub001/nexori"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/alerts"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/auth"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/effects"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/monitor"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/rest"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/settings"
)

const redisPingTimeout = 5 * time.Second

var (
	runBackground bool
	runShortcut   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect and follow panic alerts until interrupted",
	RunE:  runMonitor,
}

func init() {
	runCmd.Flags().BoolVar(&runBackground, "background", false, "treat the session as backgrounded (shows the quick-access shortcut)")
	runCmd.Flags().BoolVar(&runShortcut, "shortcut", false, "enable the quick-access shortcut setting before starting")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if err := loadEnv(envFile); err != nil {
		return err
	}
	fc, err := loadFileConfig(cfgFile)
	if err != nil {
		return err
	}
	zl, err := newZapLogger(fc.Log.Level, fc.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	logger := zapLogger{l: zl}

	cfg, err := fc.clientConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds := envCredentials()
	api := newAPI(fc)
	gate := auth.NewGate()
	if err := signIn(ctx, api, gate, creds); err != nil {
		return err
	}

	client := nexori.NewClient(cfg, nexori.WithCredentials(gate), nexori.WithLogger(logger))
	defer client.Close()
	client.OnStateChanged(func(ev nexori.StateEvent) {
		fields := map[string]any{"from": ev.OldState.String(), "to": ev.NewState.String()}
		if ev.Error != nil {
			fields["error"] = ev.Error.Error()
		}
		logger.Info("connection state", fields)
	})
	client.OnError(func(err error) {
		logger.Warn("server error", map[string]any{"error": err.Error()})
	})
	for _, room := range fc.Server.Rooms {
		client.JoinRoom(room)
	}

	store, closeStore, err := settingsStore(fc, creds)
	if err != nil {
		return err
	}
	defer closeStore()

	con := newConsole(cmd.OutOrStdout())
	opts := monitor.Options{
		Gate:        gate,
		Conn:        client,
		Settings:    store,
		Player:      con,
		Notifier:    con,
		Logger:      logger,
		DedupWindow: fc.Alerts.DedupWindow,
	}
	if api != nil {
		opts.Backend = api
	}
	m, err := monitor.New(opts)
	if err != nil {
		return err
	}

	defer m.Stop()
	if err := m.Start(ctx); err != nil {
		if client.State() != nexori.StateReconnecting {
			return err
		}
		// the client keeps retrying on its own
	}

	if runShortcut {
		if err := m.Settings().SetQuickAccessShortcut(ctx, true); err != nil {
			logger.Warn("could not save shortcut setting", map[string]any{"error": err.Error()})
		}
	}
	if runBackground {
		m.SetAppState(effects.Background)
	}

	m.Store().OnChange(func(v alerts.View) {
		logger.Info("alerts", map[string]any{
			"active":      v.Stats.Active,
			"in_progress": v.Stats.InProgress,
			"resolved":    v.Stats.Resolved,
		})
	})
	<-ctx.Done()
	logger.Info("shutting down", nil)
	return nil
}

func newAPI(fc *fileConfig) *rest.Client {
	if fc.Server.APIURL == "" {
		return nil
	}
	return rest.NewClient(fc.Server.APIURL)
}

func settingsStore(fc *fileConfig, creds credentials) (settings.Store, func(), error) {
	noop := func() {}
	switch fc.Settings.Store {
	case "memory":
		return settings.NewMemoryStore(), noop, nil
	case "file":
		dir := fc.Settings.Dir
		if dir == "" {
			base, err := os.UserConfigDir()
			if err != nil {
				return nil, noop, fmt.Errorf("settings dir: %w", err)
			}
			dir = filepath.Join(base, "nexori")
		}
		return settings.NewFileStore(dir), noop, nil
	case "redis":
		if fc.Settings.RedisAddr == "" {
			return nil, noop, nexori.NewError(nexori.ErrorInvalidConfig, "settings.redis_addr is required")
		}
		rs := settings.NewRedisStore(fc.Settings.RedisAddr, creds.RedisPassword, fc.Settings.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := rs.Client.Ping(ctx).Err(); err != nil {
			_ = rs.Close()
			return nil, noop, fmt.Errorf("redis ping: %w", err)
		}
		return rs, func() { _ = rs.Close() }, nil
	default:
		return nil, noop, nexori.NewError(nexori.ErrorInvalidConfig, "unknown settings store "+fc.Settings.Store)
	}
}
