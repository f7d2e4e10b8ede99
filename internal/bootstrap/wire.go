package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/AegisGuard-sahil/AegisGuard/internal/backup"
	"github.com/AegisGuard-sahil/AegisGuard/internal/classifier"
	"github.com/AegisGuard-sahil/AegisGuard/internal/config"
	"github.com/AegisGuard-sahil/AegisGuard/internal/cooldown"
	"github.com/AegisGuard-sahil/AegisGuard/internal/dispatcher"
	"github.com/AegisGuard-sahil/AegisGuard/internal/engine"
	"github.com/AegisGuard-sahil/AegisGuard/internal/gateway"
	"github.com/AegisGuard-sahil/AegisGuard/internal/ledger"
	"github.com/AegisGuard-sahil/AegisGuard/internal/logging"
	"github.com/AegisGuard-sahil/AegisGuard/internal/massmod"
	"github.com/AegisGuard-sahil/AegisGuard/internal/metrics"
	"github.com/AegisGuard-sahil/AegisGuard/internal/notifier"
	"github.com/AegisGuard-sahil/AegisGuard/internal/panicmode"
	"github.com/AegisGuard-sahil/AegisGuard/internal/quarantine"
	"github.com/AegisGuard-sahil/AegisGuard/internal/raid"
	"github.com/AegisGuard-sahil/AegisGuard/internal/store"
	"github.com/AegisGuard-sahil/AegisGuard/pkg/util"
)

// Wire builds the full component graph from configuration. Nothing is
// started; StartAll does that.
func Wire(cfg *config.Config) (*App, error) {
	logging.Info("wiring components...")

	s, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	clock := util.SystemClock{}
	stats := metrics.NewRegistry()

	session, err := gateway.NewSession(cfg.Bot.Token, stats)
	if err != nil {
		return nil, err
	}

	exec := gateway.NewExecutor(session.Discord())
	dir := gateway.NewDirectory(session.Discord())
	perms := gateway.NewPermissions(session.Discord(), cfg.Permissions)

	httpPool := dispatcher.NewHTTPPool(cfg.Network.HTTPPoolSize)
	rateLimiter := dispatcher.NewRateLimitMonitor()
	rest := dispatcher.NewRESTClient(httpPool, rateLimiter, cfg.Network.APIBaseURL, cfg.Bot.Token)
	disp := dispatcher.New(rest, cfg.Network.WorkerCount)

	led, err := ledger.New(s, clock)
	if err != nil {
		return nil, err
	}

	alerts := notifier.New(exec, cfg.Permissions.StaffChannels)

	panics := panicmode.NewController(
		time.Duration(cfg.Detection.NukeWindowSec)*time.Second,
		cfg.Detection.NukeThreshold,
		time.Duration(cfg.Detection.PanicTimeoutSec)*time.Second,
	)
	panics.OnDeactivate = func(communityID string) {
		if err := alerts.Alert(context.Background(), communityID, "Panic mode lifted."); err != nil {
			logging.Warn("panic-off alert for %s failed: %v", communityID, err)
		}
	}

	ccfg := classifier.Config{
		ForbiddenWords: cfg.AutoMod.ForbiddenWords,
		AllowedDomains: cfg.AutoMod.AllowedDomains,
		CapsRatio:      cfg.AutoMod.CapsRatio,
		MinCapsLength:  cfg.AutoMod.MinCapsLength,
		ZalgoLimit:     cfg.AutoMod.ZalgoLimit,
		RepeatLimit:    cfg.AutoMod.RepeatLimit,
	}

	eng := engine.New(engine.Deps{
		Config:      cfg,
		Classifier:  classifier.New(ccfg),
		Cooldowns:   cooldown.NewLimiter(time.Duration(cfg.Detection.ActionCooldownSec)*time.Second, clock),
		Raids:       raid.NewDetector(time.Duration(cfg.Detection.RaidWindowSec)*time.Second, cfg.Detection.RaidThreshold),
		Panics:      panics,
		Quarantines: quarantine.NewManager(s, exec, clock),
		Ledger:      led,
		Bulk:        massmod.NewService(exec),
		Alerts:      alerts,
		Executor:    exec,
		Permissions: perms,
		Enforcer:    &countingEnforcer{inner: disp, stats: stats},
		Store:       s,
		Clock:       clock,
	})
	session.AttachEngine(eng)

	app := &App{
		Config:     cfg,
		Store:      s,
		Session:    session,
		Engine:     eng,
		Backups:    backup.NewService(s, dir, clock),
		Dispatcher: disp,
		Stats:      stats,
		Reporter:   metrics.NewReporter(stats, reporterInterval),
	}

	logging.Info("components wired")
	return app, nil
}

// StartAll starts workers and opens the gateway connection.
func (a *App) StartAll() error {
	a.Dispatcher.Start()
	a.Reporter.Start()

	if err := a.Session.Connect(); err != nil {
		return err
	}

	logging.Info("all components started")
	return nil
}
