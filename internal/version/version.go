package version

// Build-time variables set by ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info returns version, commit and build date.
func Info() (string, string, string) {
	return Version, Commit, BuildDate
}

// UserAgent identifies barscan in outgoing HTTP requests.
func UserAgent() string {
	return "barscan/" + Version
}
