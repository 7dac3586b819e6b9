package catalog

import (
	"time"
)

// Config holds configuration for the catalog feature.
type Config struct {
	// NavigationTTLSeconds bounds how stale a navigation snapshot may get
	// when no save invalidates it first.
	NavigationTTLSeconds int `mapstructure:"navigation_ttl_seconds" default:"300"`
	// ImageExpiryMinutes is the lifetime of presigned image links.
	ImageExpiryMinutes int `mapstructure:"image_expiry_minutes" default:"15"`
}

// NavigationTTL returns the snapshot TTL as a duration.
func (c Config) NavigationTTL() time.Duration {
	return time.Duration(c.NavigationTTLSeconds) * time.Second
}

// ImageExpiry returns the presigned link lifetime as a duration.
func (c Config) ImageExpiry() time.Duration {
	return time.Duration(c.ImageExpiryMinutes) * time.Minute
}
