package packet

import (
	"errors"
	"fmt"

	"github.com/danmuck/framewire/internal/protocol/opcode"
)

var (
	ErrMalformed        = fmt.Errorf("%w: malformed packet", opcode.ErrDecode)
	ErrChecksumMismatch = fmt.Errorf("%w: checksum mismatch", opcode.ErrDecode)
	ErrPayloadTooLarge  = fmt.Errorf("%w: payload too large", opcode.ErrDecode)
	ErrUnbound          = errors.New("packet: header not bound to a packet")
	ErrNoHeader         = errors.New("packet: missing header")
)
