package dashboard

import (
	"context"

	"dashboard-observer/src/helpers"
	"dashboard-observer/src/models"
)

// -----------------------------------------------------------------------------

// GetPreferences loads the stored UI preferences, or the defaults.
func (s *Service) GetPreferences(ctx context.Context) models.MPreferences {
	if s.Preferences == nil {
		return s.currentPreferences()
	}

	prefs, found, err := s.Preferences.Load(ctx)
	if err != nil {
		s.Errors.Handle(err, "LoadPreferences")
		return s.currentPreferences()
	}
	if !found {
		return s.currentPreferences()
	}
	return prefs
}

// currentPreferences reflects the running state when nothing has been saved.
func (s *Service) currentPreferences() models.MPreferences {
	prefs := models.DefaultPreferences()
	prefs.Timeframe = s.Timeframe()
	prefs.LiveMode = false
	if s.Poller != nil {
		prefs.LiveMode = s.Poller.LiveMode()
	}
	return prefs
}

// -----------------------------------------------------------------------------

// UpdatePreferences stores prefs and applies the timeframe and live-mode parts.
// Dark mode is stored only; rendering is up to the client.
func (s *Service) UpdatePreferences(ctx context.Context, prefs models.MPreferences) (models.MPreferences, error) {
	tf, err := models.ParseTimeframe(string(prefs.Timeframe))
	if err != nil {
		return prefs, helpers.NewValidationError("%v", err)
	}
	prefs.Timeframe = tf

	if s.Preferences != nil {
		if err := s.Preferences.Save(ctx, prefs); err != nil {
			return prefs, err
		}
	}

	s.StartRealtimePolling(prefs.LiveMode)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.SetTimeframe(tf)
	}()
	return prefs, nil
}

// -----------------------------------------------------------------------------

func (s *Service) restorePreferences(ctx context.Context) {
	if s.Preferences == nil {
		return
	}

	prefs, found, err := s.Preferences.Load(ctx)
	if err != nil {
		s.Errors.Handle(err, "RestorePreferences")
		return
	}
	if !found {
		// keep the configured timeframe and live mode
		return
	}
	if tf, err := models.ParseTimeframe(string(prefs.Timeframe)); err == nil {
		s.mu.Lock()
		s.requestTimeframe(tf)
		s.mu.Unlock()
	}
	if s.Poller != nil {
		s.Poller.SetLiveMode(prefs.LiveMode)
	}
	s.Logger.Info("Restored preferences (timeframe=%s, live=%v, dark=%v)", prefs.Timeframe, prefs.LiveMode, prefs.DarkMode)
}
