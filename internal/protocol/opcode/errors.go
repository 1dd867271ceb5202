package opcode

import (
	"errors"
	"fmt"

	"github.com/danmuck/framewire/internal/protocol/buffer"
)

var (
	// ErrDecode is the root of every decode failure.
	ErrDecode = errors.New("opcode: decode failed")
	// ErrShortBuffer means more bytes are needed; the input was left untouched.
	ErrShortBuffer = fmt.Errorf("%w: short buffer", ErrDecode)
	ErrType        = buffer.ErrType
)
