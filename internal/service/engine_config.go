package service

import (
	"math/rand/v2"
	"time"
)

// EngineConfig is the explicit configuration of the session engine, built once
// at startup from config.Config.
type EngineConfig struct {
	// Location is the zone exam dates and clock times are written in.
	Location *time.Location
	// CacheGrace is added to a session's remaining time to get its cache TTL.
	CacheGrace time.Duration
	// MaxCASAttempts bounds retries of a conflicting compare-and-set.
	MaxCASAttempts int
	// Now is the server clock. Always UTC.
	Now func() time.Time
	// Shuffle randomizes presentation order of the selected questions.
	Shuffle func(n int, swap func(i, j int))
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.CacheGrace <= 0 {
		c.CacheGrace = 30 * time.Minute
	}
	if c.MaxCASAttempts <= 0 {
		c.MaxCASAttempts = 5
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}
	if c.Shuffle == nil {
		c.Shuffle = rand.Shuffle
	}
	return c
}
