package models

// MPreferences is dashboard UI state that outlives a session.
type MPreferences struct {
	DarkMode  bool       `json:"darkMode"`
	Timeframe MTimeframe `json:"timeframe"`
	LiveMode  bool       `json:"liveMode"`
}

func DefaultPreferences() MPreferences {
	return MPreferences{
		DarkMode:  false,
		Timeframe: TimeframeMonth,
		LiveMode:  true,
	}
}
