package database

// Predefined refresh rate constants (in seconds)
const (
	RefreshRate1Min   = 60
	RefreshRate5Min   = 300
	RefreshRate15Min  = 900
	RefreshRate30Min  = 1800
	RefreshRateHourly = 3600
	RefreshRate2Hours = 7200
	RefreshRate4Hours = 14400
	RefreshRateDaily  = 86400
)

// RefreshRateOption represents a user-friendly refresh rate option
type RefreshRateOption struct {
	Label   string `json:"label"`
	Value   int    `json:"value"`
	Default bool   `json:"default,omitempty"`
}

// GetRefreshRateOptions returns all available refresh rate options
func GetRefreshRateOptions() []RefreshRateOption {
	return []RefreshRateOption{
		{Label: "1 minute", Value: RefreshRate1Min},
		{Label: "5 minutes", Value: RefreshRate5Min},
		{Label: "15 minutes", Value: RefreshRate15Min},
		{Label: "30 minutes", Value: RefreshRate30Min, Default: true},
		{Label: "Hourly", Value: RefreshRateHourly},
		{Label: "Every 2 hours", Value: RefreshRate2Hours},
		{Label: "Every 4 hours", Value: RefreshRate4Hours},
		{Label: "Daily", Value: RefreshRateDaily},
	}
}
