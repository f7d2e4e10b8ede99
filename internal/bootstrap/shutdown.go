package bootstrap

import "github.com/AegisGuard-sahil/AegisGuard/internal/logging"

// Shutdown stops components in reverse start order.
func (a *App) Shutdown() {
	logging.Info("shutting down...")

	if err := a.Session.Close(); err != nil {
		logging.Warn("gateway close failed: %v", err)
	}

	a.Reporter.Stop()
	a.Dispatcher.Stop()

	if err := a.Store.Close(); err != nil {
		logging.Warn("store close failed: %v", err)
	}

	logging.Info("shutdown complete")
}
