package models

import (
	"net/url"
	"strings"
)

// JobPosting is the target of one automation run
type JobPosting struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Company  string            `json:"company"`
	ApplyURL string            `json:"apply_url"`
	Location string            `json:"location,omitempty"`
	Remote   bool              `json:"remote,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Domain returns the lower-cased hostname of the apply URL, or the raw value
// when it does not parse as a URL.
func (j *JobPosting) Domain() string {
	parsed, err := url.Parse(j.ApplyURL)
	if err != nil || parsed.Host == "" {
		return strings.ToLower(strings.TrimSpace(j.ApplyURL))
	}
	return strings.ToLower(parsed.Hostname())
}
