package cli

import "database/sql"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// DaemonCommand runs the tracker and the local HTTP endpoint.
type DaemonCommand struct {
	Port     int    `long:"port" description:"Override daemon port"`
	LogLevel string `long:"log-level" description:"Override log level"`

	globals *GlobalFlags
	version string
}

// SummaryCommand prints accumulated time per address.
type SummaryCommand struct {
	Limit int `long:"limit" description:"Maximum addresses to show (0 for all)" default:"20"`

	globals *GlobalFlags
	version string
	api     daemonAPI // injectable for testing; nil means dial the configured daemon
}

// StatusCommand shows daemon health, the current address and database stats.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// ClearCommand resets every accumulated duration.
type ClearCommand struct {
	All   bool `long:"all" description:"Required flag to confirm clear intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	api     daemonAPI // injectable for testing
	db      *sql.DB   // injectable for testing; nil means open the configured DB
}
