package server

import "time"

// Config defines session table and lifecycle timing.
type Config struct {
	// Node labels logs and metrics.
	Node string
	// InactivityTimeout evicts sessions idle for longer; <= 0 disables
	// timeout eviction and only closed connections are dropped.
	InactivityTimeout time.Duration
	SweepInterval     time.Duration
	TickInterval      time.Duration
	ShutdownTimeout   time.Duration
	// ReadBufferSize is the chunk size of one connection read.
	ReadBufferSize int
	WriteTimeout   time.Duration
	// MaxConns caps concurrently served connections; <= 0 means no cap.
	MaxConns int
}

func DefaultConfig() Config {
	return Config{
		Node:              "framewired",
		InactivityTimeout: 5 * time.Second,
		SweepInterval:     time.Second,
		TickInterval:      time.Second,
		ShutdownTimeout:   10 * time.Second,
		ReadBufferSize:    4096,
		WriteTimeout:      5 * time.Second,
	}
}

// WithDefaults fills unset fields. InactivityTimeout is left alone since
// zero is meaningful.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Node == "" {
		c.Node = d.Node
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteTimeout < 0 {
		c.WriteTimeout = 0
	}
	if c.MaxConns < 0 {
		c.MaxConns = 0
	}
	return c
}
