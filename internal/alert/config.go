package alert

// Config defines a webhook alert destination.
type Config struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["violation", "terminated", "fullscreen_rejected"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// DefaultEvents is used when a destination lists no events.
var DefaultEvents = []string{"violation", "terminated"}

// Event is the payload sent to webhook endpoints.
type Event struct {
	Timestamp  string `json:"timestamp"`
	Session    string `json:"session"`
	Type       string `json:"type"`
	Signal     string `json:"signal,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Risk       string `json:"risk"`
	Violations int    `json:"violations"`
	Phase      string `json:"phase"`
	EndReason  string `json:"end_reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ValidFormat reports whether format names a known payload layout.
// Empty means generic.
func ValidFormat(format string) bool {
	switch format {
	case "", "generic", "slack", "pagerduty":
		return true
	}
	return false
}
