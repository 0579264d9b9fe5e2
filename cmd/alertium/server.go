package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alertium/alertium/catalog"
	"github.com/alertium/alertium/discord"
	"github.com/alertium/alertium/moderation"
	"github.com/alertium/alertium/moderation/offensestore"
	"github.com/alertium/alertium/moderation/reactstore"
	"github.com/alertium/alertium/optin"
	"github.com/alertium/alertium/poller"
	"github.com/alertium/alertium/seenstore"
	"github.com/alertium/alertium/util"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	Logger *slog.Logger

	client   *discord.Client
	notifier *discord.Notifier
	poller   *poller.Poller
	engine   *moderation.Engine
	optin    *optin.Controller
	intents  int

	discordToken string
	botUserID    string
}

type Config struct {
	Logger *slog.Logger

	DiscordToken      string
	AnnounceChannelID string
	AlertRoleID       string
	LogChannelID      string
	OptInTitle        string
	OptInEmoji        string

	TwitchClientID    string
	TwitchAccessToken string
	PollInterval      time.Duration

	// ';'-separated combos of ','-separated emoji tokens; empty keeps the
	// built-in list
	ForbiddenCombos string
	// comma-separated escalating durations; empty keeps the built-in ladder
	TimeoutLadder string

	Cooldown     time.Duration
	SnapshotFile string
	DatabaseURL  string
	RedisURL     string

	SlackWebhookURL string
}

// reaction-tracking entries are short-lived by nature; a day is far past
// any plausible combo window
const trackingTTL = 24 * time.Hour

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if config.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %v", config.PollInterval)
	}

	combos := moderation.DefaultCombos()
	if config.ForbiddenCombos != "" {
		var err error
		combos, err = moderation.ParseCombos(config.ForbiddenCombos)
		if err != nil {
			return nil, fmt.Errorf("parsing forbidden combos: %w", err)
		}
	}
	ladder := moderation.DefaultTimeoutLadder
	if config.TimeoutLadder != "" {
		var err error
		ladder, err = moderation.ParseTimeoutLadder(config.TimeoutLadder)
		if err != nil {
			return nil, fmt.Errorf("parsing timeout ladder: %w", err)
		}
	}

	var seen seenstore.SeenStore
	if config.DatabaseURL != "" {
		db, err := util.SetupDatabase(config.DatabaseURL, 10)
		if err != nil {
			return nil, fmt.Errorf("setting up database: %w", err)
		}
		seen, err = seenstore.NewGormSeenStore(db)
		if err != nil {
			return nil, fmt.Errorf("initializing seen store: %w", err)
		}
		logger.Info("using database seen store", "url", config.DatabaseURL)
	} else {
		seen = seenstore.NewFileSeenStore(config.SnapshotFile)
		logger.Info("using snapshot file seen store", "path", config.SnapshotFile)
	}

	var reactions reactstore.ReactionStore
	var offenses offensestore.OffenseStore
	if config.RedisURL != "" {
		rs, err := reactstore.NewRedisReactionStore(config.RedisURL, trackingTTL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis reaction store: %w", err)
		}
		os, err := offensestore.NewRedisOffenseStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis offense store: %w", err)
		}
		reactions = rs
		offenses = os
		logger.Info("using redis moderation stores", "url", config.RedisURL)
	} else {
		reactions = reactstore.NewMemReactionStore(50_000, trackingTTL)
		offenses = offensestore.NewMemOffenseStore()
	}

	client := discord.NewClient(config.DiscordToken)
	notifier := &discord.Notifier{
		Logger:            logger,
		Client:            client,
		AnnounceChannelID: config.AnnounceChannelID,
		AlertRoleID:       config.AlertRoleID,
		LogChannelID:      config.LogChannelID,
	}

	engine := &moderation.Engine{
		Logger:          logger,
		Reactions:       reactions,
		Offenses:        offenses,
		Combos:          combos,
		TimeoutLadder:   ladder,
		Cooldown:        config.Cooldown,
		Actor:           notifier,
		SlackWebhookURL: config.SlackWebhookURL,
	}

	optinCtrl := &optin.Controller{
		Logger:      logger,
		Messages:    notifier,
		Roles:       notifier,
		RoleID:      config.AlertRoleID,
		Emoji:       config.OptInEmoji,
		TitleMarker: config.OptInTitle,
	}

	badgePoller := &poller.Poller{
		Logger:   logger,
		Fetcher:  catalog.NewClient(config.TwitchClientID, config.TwitchAccessToken),
		Store:    seen,
		Notifier: notifier,
		Interval: config.PollInterval,
	}

	return &Server{
		Logger:       logger,
		client:       client,
		notifier:     notifier,
		poller:       badgePoller,
		engine:       engine,
		optin:        optinCtrl,
		intents:      discord.IntentGuilds | discord.IntentGuildMessageReactions,
		discordToken: config.DiscordToken,
	}, nil
}

func (s *Server) Run(ctx context.Context) error {
	gatewayURL, err := s.client.GetGatewayURL(ctx)
	if err != nil {
		return fmt.Errorf("resolving gateway URL: %w", err)
	}

	gw := &discord.Gateway{
		Logger:  s.Logger,
		Token:   s.discordToken,
		URL:     gatewayURL,
		Intents: s.intents,
		Callbacks: discord.GatewayCallbacks{
			Ready: func(user discord.User) error {
				s.botUserID = user.ID
				s.optin.BotUserID = user.ID
				s.Logger.Info("gateway session ready", "bot", user.Username, "id", user.ID)
				return nil
			},
			ReactionAdd: func(evt *discord.ReactionEvent) error {
				return s.handleReactionAdd(ctx, evt)
			},
			ReactionRemove: func(evt *discord.ReactionEvent) error {
				return s.handleReactionRemove(ctx, evt)
			},
		},
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return gw.Run(ctx) })
	eg.Go(func() error { return s.poller.Run(ctx) })
	return eg.Wait()
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}
