package model

import (
	"fmt"
	"time"
)

// Source is one configured AirLink-compatible sensor unit. The ordinal
// defines the failover order; sources are built once at startup and never
// mutated afterwards.
type Source struct {
	Ordinal  int           `json:"ordinal"`
	Enable   bool          `json:"enable"`
	Hostname string        `json:"hostname"`
	Port     int           `json:"port"`
	Timeout  time.Duration `json:"timeout"`
}

// Addr returns the host:port pair used for logging and metric labels.
func (s Source) Addr() string {
	return fmt.Sprintf("%s:%d", s.Hostname, s.Port)
}
