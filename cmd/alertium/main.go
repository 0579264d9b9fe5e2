package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alertium/alertium/discord"
	"github.com/alertium/alertium/optin"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "alertium",
		Usage:   "discord badge-alert and reaction-moderation daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     "discord-token",
			Usage:    "discord bot token",
			Required: true,
			EnvVars:  []string{"DISCORD_TOKEN"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		postOptInCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "announce-channel-id",
			Usage:    "channel where new-badge announcements are posted",
			Required: true,
			EnvVars:  []string{"DISCORD_CHANNEL_ID"},
		},
		&cli.StringFlag{
			Name:    "alert-role-id",
			Usage:   "role mentioned in announcements and granted via opt-in (disables opt-in handling when empty)",
			EnvVars: []string{"ALERT_ROLE_ID"},
		},
		&cli.StringFlag{
			Name:    "log-channel-id",
			Usage:   "channel for punishment log embeds (disables log embeds when empty)",
			EnvVars: []string{"LOG_CHANNEL_ID"},
		},
		&cli.StringFlag{
			Name:     "twitch-client-id",
			Required: true,
			EnvVars:  []string{"TWITCH_CLIENT_ID"},
		},
		&cli.StringFlag{
			Name:     "twitch-access-token",
			Required: true,
			EnvVars:  []string{"TWITCH_ACCESS_TOKEN"},
		},
		&cli.DurationFlag{
			Name:    "poll-interval",
			Usage:   "how often to poll the global badge catalog",
			Value:   30 * time.Second,
			EnvVars: []string{"POLL_INTERVAL"},
		},
		&cli.StringFlag{
			Name:    "forbidden-combos",
			Usage:   "';'-separated combos of ','-separated emoji tokens (built-in list when empty)",
			EnvVars: []string{"FORBIDDEN_COMBOS"},
		},
		&cli.StringFlag{
			Name:    "timeout-ladder",
			Usage:   "comma-separated escalating timeout durations, eg 1m,5m,15m,60m (built-in ladder when empty)",
			EnvVars: []string{"TIMEOUT_LADDER"},
		},
		&cli.DurationFlag{
			Name:    "punish-cooldown",
			Usage:   "per-user window during which repeat combos are suppressed",
			Value:   10 * time.Second,
			EnvVars: []string{"PUNISH_COOLDOWN"},
		},
		&cli.StringFlag{
			Name:    "snapshot-file",
			Usage:   "JSON snapshot of already-seen badge ids (used when no database-url)",
			Value:   "data/alertium/badges_snapshot.json",
			EnvVars: []string{"SNAPSHOT_FILE"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "sqlite:// or postgres:// URL for the seen-badge table; overrides snapshot-file",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis:// URL for reaction-tracking and offense counters (in-memory when empty)",
			EnvVars: []string{"REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "web hook URL to send punishment reports to",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "optin-title",
			Usage:   "embed title identifying the designated opt-in message",
			Value:   optin.DefaultTitleMarker,
			EnvVars: []string{"OPTIN_TITLE"},
		},
		&cli.StringFlag{
			Name:    "optin-emoji",
			Value:   optin.DefaultEmoji,
			EnvVars: []string{"OPTIN_EMOJI"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3989",
			EnvVars: []string{"ALERTIUM_METRICS_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlptrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			slog.Info("setting up trace exporter", "endpoint", ep)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			exp, err := otlptracehttp.New(ctx)
			if err != nil {
				log.Fatal("failed to create trace exporter", "error", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					slog.Error("failed to shutdown trace exporter", "error", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("alertium"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),         // DataDog
					attribute.String("environment", os.Getenv("ENVIRONMENT")), // Others
					attribute.Int64("ID", 1),
				)),
			)
			otel.SetTracerProvider(tp)
		}

		srv, err := NewServer(Config{
			Logger:            logger,
			DiscordToken:      cctx.String("discord-token"),
			AnnounceChannelID: cctx.String("announce-channel-id"),
			AlertRoleID:       cctx.String("alert-role-id"),
			LogChannelID:      cctx.String("log-channel-id"),
			OptInTitle:        cctx.String("optin-title"),
			OptInEmoji:        cctx.String("optin-emoji"),
			TwitchClientID:    cctx.String("twitch-client-id"),
			TwitchAccessToken: cctx.String("twitch-access-token"),
			PollInterval:      cctx.Duration("poll-interval"),
			ForbiddenCombos:   cctx.String("forbidden-combos"),
			TimeoutLadder:     cctx.String("timeout-ladder"),
			Cooldown:          cctx.Duration("punish-cooldown"),
			SnapshotFile:      cctx.String("snapshot-file"),
			DatabaseURL:       cctx.String("database-url"),
			RedisURL:          cctx.String("redis-url"),
			SlackWebhookURL:   cctx.String("slack-webhook-url"),
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run alert service: %w", err)
		}
		return nil
	},
}

var postOptInCmd = &cli.Command{
	Name:  "post-optin",
	Usage: "post the opt-in message to a channel and seed its reaction",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "channel-id",
			Usage:    "channel to post the opt-in message in",
			Required: true,
			EnvVars:  []string{"OPTIN_CHANNEL_ID"},
		},
		&cli.StringFlag{
			Name:    "optin-title",
			Value:   optin.DefaultTitleMarker,
			EnvVars: []string{"OPTIN_TITLE"},
		},
		&cli.StringFlag{
			Name:    "optin-emoji",
			Value:   optin.DefaultEmoji,
			EnvVars: []string{"OPTIN_EMOJI"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		notifier := &discord.Notifier{
			Logger: logger,
			Client: discord.NewClient(cctx.String("discord-token")),
		}
		msg, err := notifier.PostOptInMessage(ctx, cctx.String("channel-id"), cctx.String("optin-title"), cctx.String("optin-emoji"))
		if err != nil {
			return fmt.Errorf("failed to post opt-in message: %w", err)
		}
		logger.Info("posted opt-in message", "channel", msg.ChannelID, "message", msg.ID)
		return nil
	},
}
