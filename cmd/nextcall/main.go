package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nextcall/internal/camera"
	"nextcall/internal/config"
	"nextcall/internal/ics"
	appLog "nextcall/internal/log"
	"nextcall/internal/meeting"
	"nextcall/internal/notify"
	"nextcall/internal/poll"
	"nextcall/internal/web"
)

// lookback bounds how far into the past recurrence expansion reaches so
// that in-progress meetings stay in the occurrence set.
const lookback = 24 * time.Hour

type flagConfig struct {
	configPath string
	listen     string
	once       bool
}

func main() {
	appLog.Info("nextcall starting", "version", "0.1.0-dev")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"poll", conf.PollSpec,
		"alert_window_minutes", conf.AlertWindowMinutes,
		"horizon_hours", conf.HorizonHours,
		"camera_check", conf.CameraCheckEnabled(),
		"speech", conf.Speech.IsEnabled(),
		"ics_count", len(conf.ICS),
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if len(conf.ICS) == 0 {
		appLog.Warn("no ICS source configured", "config_path", flags.configPath)
		_ = notify.Send(ctx, "nextcall configuration", "",
			"WARNING: no ICS source configured, edit "+flags.configPath)
	}

	driver := buildDriver(conf)

	if flags.once {
		driver.RunCycle(ctx)
		appLog.Info("single cycle complete, exiting")
		return
	}

	if err := driver.Start(ctx, conf.PollSpec); err != nil {
		appLog.Error("failed to start poll driver", err, "poll", conf.PollSpec)
		os.Exit(1)
	}

	if err := web.StartServer(ctx, conf, driver); err != nil {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}

	appLog.Info("nextcall exiting")
}

// buildDriver wires fetcher -> feed source -> scheduler -> poll driver from
// the effective config.
func buildDriver(conf *config.Config) *poll.Driver {
	sources := make([]ics.Source, 0, len(conf.ICS))
	for _, src := range conf.ICS {
		sources = append(sources, ics.Source{ID: src.ID, URL: src.URL})
	}

	fetcher := ics.NewFetcher(conf.CacheDir)
	feed := ics.NewFeedSource(fetcher, sources, lookback, conf.Horizon())

	var oracle meeting.Oracle = camera.Disabled{}
	if conf.CameraCheckEnabled() {
		oracle = camera.New()
	}

	var speaker *notify.Speaker
	if conf.Speech.IsEnabled() {
		speaker = notify.NewSpeaker(conf.Speech.ElevenLabsKey, conf.Speech.Voice)
	}
	sink := notify.NewDesktop(speaker)

	sched := meeting.NewScheduler(oracle, sink, conf.MaxTrackedAge())

	return poll.NewDriver(feed, sched, conf.AlertWindow())
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", defaultConfigPath(), "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one poll cycle and exit")

	flag.Parse()

	return cfg
}

func defaultConfigPath() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home + "/.config/nextcall/config.yaml"
	}
	return "./nextcall.yaml"
}
