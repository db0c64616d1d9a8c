package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/beat22/storefront-core/internal/catalog"
	"github.com/beat22/storefront-core/internal/favorites"
	"github.com/beat22/storefront-core/internal/ledger"
	"github.com/beat22/storefront-core/internal/media"
	"github.com/beat22/storefront-core/internal/payment"
	"github.com/beat22/storefront-core/internal/playback"
	"github.com/beat22/storefront-core/internal/prefs"
	"github.com/beat22/storefront-core/pkg/config"
	"github.com/beat22/storefront-core/pkg/db"
	"github.com/beat22/storefront-core/pkg/kv"
	"github.com/beat22/storefront-core/pkg/logger"
	"github.com/beat22/storefront-core/pkg/metrics"
	"github.com/beat22/storefront-core/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"backend": cfg.Storage.Backend,
	})

	store, cleanup, err := buildStore(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap persistence", err)
		os.Exit(1)
	}
	defer cleanup()

	cat, err := loadCatalog(cfg)
	if err != nil {
		logg.Error(ctx, "failed to load catalog", err)
		os.Exit(1)
	}
	logg.Info(logg.WithField(ctx, "tracks", cat.Len()), "catalog loaded")

	registry := prometheus.NewRegistry()
	playbackMetrics := metrics.NewPlaybackMetrics(registry)
	commerceMetrics := metrics.NewCommerceMetrics(registry)

	prefsStore, err := prefs.NewStore(store, logg)
	if err != nil {
		logg.Error(ctx, "failed to create preferences store", err)
		os.Exit(1)
	}
	seedPreferences(ctx, store, prefsStore, cfg, logg)

	resolver, err := media.NewCatalogResolver(cat, cfg.Playback.FallbackPreviewURL)
	if err != nil {
		logg.Error(ctx, "failed to create media resolver", err)
		os.Exit(1)
	}

	engine, err := playback.NewEngine(ctx, resolver, prefsStore, logg, playbackMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create playback engine", err)
		os.Exit(1)
	}

	ledgerSvc, err := ledger.NewService(ctx, store, logg, commerceMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create ledger", err)
		os.Exit(1)
	}

	favoritesSvc, err := favorites.NewService(ctx, store, logg)
	if err != nil {
		logg.Error(ctx, "failed to create favorites", err)
		os.Exit(1)
	}

	gateway := payment.NewSimulatedGateway(
		payment.WithDelay(cfg.Payment.SimulatedDelay),
		payment.WithDecision(func(intent payment.Intent) (payment.Confirmation, error) {
			if !cfg.Payment.AutoConfirm {
				return payment.Confirmation{Approved: false}, nil
			}
			return payment.Confirmation{
				Approved:  true,
				Reference: fmt.Sprintf("sim-%s", intent.ID),
			}, nil
		}),
	)
	flow, err := payment.NewFlow(gateway, ledgerSvc, cat, logg, commerceMetrics, cfg.Payment.Currency)
	if err != nil {
		logg.Error(ctx, "failed to create payment flow", err)
		os.Exit(1)
	}

	if err := runDemo(ctx, logg, cat, engine, ledgerSvc, favoritesSvc, flow, cfg.Payment.Currency); err != nil {
		logg.Error(ctx, "demo session failed", err)
		os.Exit(1)
	}
}

// buildStore selects the persistence backend from config and returns it with
// a cleanup function for whatever client backs it.
func buildStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (kv.Store, func(), error) {
	noop := func() {}
	switch strings.ToLower(cfg.Storage.Backend) {
	case config.StorageBackendMemory:
		return kv.NewMemory(), noop, nil

	case config.StorageBackendFile:
		store, err := kv.NewFile(cfg.Storage.Dir)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case config.StorageBackendSQLite:
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, noop, err
		}
		store, err := kv.NewSQLite(dbClient.DB(), cfg.DB.AutoMigrate)
		if err != nil {
			_ = dbClient.Close()
			return nil, noop, err
		}
		return store, func() {
			if err := dbClient.Close(); err != nil {
				logg.Error(ctx, "error closing database", err)
			}
		}, nil

	case config.StorageBackendRedis:
		redisClient, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		store, err := kv.NewRedis(redisClient)
		if err != nil {
			_ = redisClient.Close()
			return nil, noop, err
		}
		return store, func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(ctx, "error closing redis", err)
			}
		}, nil

	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.Path != "" {
		return catalog.LoadFile(cfg.Catalog.Path)
	}
	return catalog.New(demoTracks())
}

// demoTracks is the built-in catalog used when no catalog file is configured.
func demoTracks() []catalog.Track {
	return []catalog.Track{
		{ID: 1, Title: "Midnight Drive", Producer: "Nova Beats", BPM: "140", Key: "C# min", Genre: "Trap", Mood: "Dark", Price: 699, AudioURL: "https://cdn.beat22.example/audio/midnight-drive.mp3", DurationSeconds: 192},
		{ID: 2, Title: "Static Bloom", Producer: "Nova Beats", BPM: "128", Key: "A min", Genre: "House", Mood: "Hypnotic", Price: 899, AudioURL: "https://cdn.beat22.example/audio/static-bloom.mp3", DurationSeconds: 210},
		{ID: 3, Title: "Paper Lanterns", Producer: "KL Sounds", BPM: "90", Key: "F maj", Genre: "Lo-fi", Mood: "Warm", Price: 499, AudioURL: "https://cdn.beat22.example/audio/paper-lanterns.mp3", DurationSeconds: 174},
	}
}

// seedPreferences writes the configured default volume once, the first time
// the store has no preferences record. Later sessions keep the user's value.
func seedPreferences(ctx context.Context, store kv.Store, prefsStore *prefs.Store, cfg *config.Config, logg *logger.Logger) {
	if _, ok, err := store.Load(ctx, kv.KeyPreferences); err != nil || ok {
		return
	}
	if err := prefsStore.Save(ctx, prefs.Preferences{Volume: cfg.Playback.DefaultVolume}); err != nil {
		logg.Error(ctx, "seeding default preferences", err)
	}
}

type logListener struct {
	ctx  context.Context
	logg *logger.Logger
}

func (l *logListener) TrackChanged(track catalog.Track) {
	l.logg.Info(l.logg.WithTrackID(l.ctx, track.ID), fmt.Sprintf("now playing %q by %s", track.Title, track.Producer))
}

func (l *logListener) StateChanged(playing bool) {
	l.logg.Debug(l.logg.WithField(l.ctx, "playing", playing), "transport state changed")
}

// runDemo exercises one listening-and-buying session against the live wiring.
func runDemo(ctx context.Context, logg *logger.Logger, cat *catalog.Catalog, engine *playback.Engine, ledgerSvc ledger.Service, favoritesSvc favorites.Service, flow *payment.Flow, currency string) error {
	tracks := cat.List()
	if len(tracks) == 0 {
		return fmt.Errorf("catalog is empty")
	}
	engine.AddListener(&logListener{ctx: ctx, logg: logg})

	if err := engine.Play(ctx, tracks[0]); err != nil {
		return fmt.Errorf("starting playback: %w", err)
	}
	engine.Advance(30)
	if err := engine.Next(ctx, tracks); err != nil {
		return fmt.Errorf("skipping track: %w", err)
	}
	engine.Pause()

	if favored, err := favoritesSvc.Toggle(ctx, tracks[0]); err != nil {
		return fmt.Errorf("toggling favorite: %w", err)
	} else if favored {
		logg.Info(logg.WithTrackID(ctx, tracks[0].ID), "track saved to favorites")
	}

	var toBuy []int64
	var totalUnits int64
	for _, track := range tracks {
		if ledgerSvc.CanDownload(track.ID) {
			continue
		}
		if err := ledgerSvc.AddToCart(ctx, track); err != nil {
			return fmt.Errorf("adding track %d to cart: %w", track.ID, err)
		}
		toBuy = append(toBuy, track.ID)
		totalUnits += track.Price
		if len(toBuy) == 2 {
			break
		}
	}
	if len(toBuy) == 0 {
		logg.Info(ctx, "every catalog track is already owned, nothing to buy")
		return nil
	}
	logg.Info(logg.WithField(ctx, "total_units", ledgerSvc.CartTotal()), "cart ready for checkout")

	receipt, err := flow.Initiate(ctx, payment.InitiateInput{
		AmountMinor: totalUnits * payment.MinorUnitsPerPrice,
		Currency:    currency,
		TrackIDs:    toBuy,
		Payer: payment.Payer{
			ID:    "demo-user",
			Name:  "Demo User",
			Email: "demo@beat22.example",
		},
	})
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	checkoutCtx := logg.WithOrderID(ctx, receipt.OrderID.String())
	logg.Info(logg.WithField(checkoutCtx, "total_minor", receipt.TotalMinor), "checkout settled")
	for _, id := range toBuy {
		if !ledgerSvc.CanDownload(id) {
			return fmt.Errorf("track %d settled but is not downloadable", id)
		}
	}
	logg.Info(checkoutCtx, "all purchased tracks are downloadable")
	return nil
}
