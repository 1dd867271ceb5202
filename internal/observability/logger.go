package observability

import (
	"github.com/danmuck/framewire/internal/logging"
	"github.com/rs/zerolog"
)

// NodeLogger returns the component logger tagged with the node name used as
// the metrics label, so log lines and series can be joined.
func NodeLogger(component, node string) zerolog.Logger {
	return logging.For(component).With().Str("node", node).Logger()
}
