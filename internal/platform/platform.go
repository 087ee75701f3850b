// Package platform holds the adapters that translate a generic post into each
// social network's posting API and map the responses back into typed results.
package platform

import "strings"

type Platform string

const (
	Facebook  Platform = "facebook"
	Twitter   Platform = "twitter"
	LinkedIn  Platform = "linkedin"
	Instagram Platform = "instagram"
)

// All lists every platform the service knows about, in display order.
var All = []Platform{Facebook, Twitter, LinkedIn, Instagram}

// Parse maps a user supplied name onto a known platform. "x" is accepted as
// an alias for twitter.
func Parse(name string) (Platform, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "facebook":
		return Facebook, true
	case "twitter", "x":
		return Twitter, true
	case "linkedin":
		return LinkedIn, true
	case "instagram":
		return Instagram, true
	}
	return "", false
}

func (p Platform) String() string {
	return string(p)
}
