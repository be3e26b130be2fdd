package cli

import "database/sql"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// StatusCommand — show index health, database stats, and daemon state.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// AddCommand — record a single visit into the history log.
type AddCommand struct {
	URL   string `long:"url" description:"Visited URL (required)"`
	Title string `long:"title" description:"Page title"`
	Time  string `long:"time" description:"Visit time in RFC3339 (default: now)"`

	globals *GlobalFlags
	version string
}

// ImportCommand — bulk-load visits from a JSON history export.
type ImportCommand struct {
	File string `long:"file" description:"Path to JSON visit export (required)"`

	globals *GlobalFlags
	version string
}

// IndexCommand — run one index build or incremental update.
type IndexCommand struct {
	Full bool `long:"full" description:"Rebuild the index from scratch"`

	globals *GlobalFlags
	version string
}

// SuggestCommand — print ranked related pages for a URL.
type SuggestCommand struct {
	URL   string `long:"url" description:"Current page URL (required)"`
	Limit int    `long:"limit" description:"Maximum suggestions (default: configured value)"`

	globals *GlobalFlags
	version string
}

// LikeCommand — mark a URL as liked so it ranks higher.
type LikeCommand struct {
	URL string `long:"url" description:"URL to like (required)"`

	globals *GlobalFlags
	version string
}

// UnlikeCommand — remove a URL from the liked list.
type UnlikeCommand struct {
	URL string `long:"url" description:"URL to unlike (required)"`

	globals *GlobalFlags
	version string
}

// BlockCommand — hide a URL or a whole domain from suggestions.
type BlockCommand struct {
	URL    string `long:"url" description:"URL to block"`
	Domain string `long:"domain" description:"Domain to block"`

	globals *GlobalFlags
	version string
}

// UnblockCommand — remove a URL or domain from the blocked lists.
type UnblockCommand struct {
	URL    string `long:"url" description:"URL to unblock"`
	Domain string `long:"domain" description:"Domain to unblock"`

	globals *GlobalFlags
	version string
}

// ServeCommand — start the histrail daemon (local HTTP service).
type ServeCommand struct {
	Port     int    `long:"port" description:"Override daemon port"`
	LogLevel string `long:"log-level" description:"Override log level"`

	globals *GlobalFlags
	version string
}

// PurgeCommand — delete ALL histrail data with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	db      *sql.DB // injectable for testing; nil means open configured DB
}
