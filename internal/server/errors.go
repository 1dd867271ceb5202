package server

import (
	"errors"

	"github.com/danmuck/framewire/internal/runnable"
)

var (
	ErrSessionNotFound = errors.New("server: session not found")
	ErrServerClosed    = errors.New("server: closed")
	ErrNoListener      = errors.New("server: no listener")
	ErrNilSession      = errors.New("server: factory returned nil session")
	ErrConnClosed      = errors.New("server: connection closed")
	ErrAlreadyRunning  = runnable.ErrAlreadyRunning
)
