package logging

// Component names for structured logging.
const (
	ComponentStartup  = "startup"
	ComponentDatabase = "database"
	ComponentAPISetup = "api-setup"
	ComponentDisplay  = "api-display"
	ComponentLogs     = "api-logs"
	ComponentScreens  = "screens"
	ComponentAuth     = "auth"
)
