package supervisor

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ControlOp is the one-byte opcode of a control frame, per spec.md §6.
type ControlOp byte

const (
	ControlStart   ControlOp = 0x01
	ControlStop    ControlOp = 0x02
	ControlRestart ControlOp = 0x03
)

func (op ControlOp) String() string {
	switch op {
	case ControlStart:
		return "start"
	case ControlStop:
		return "stop"
	case ControlRestart:
		return "restart"
	default:
		return fmt.Sprintf("op(0x%02x)", byte(op))
	}
}

// controlFrameSize is the fixed wire size of a control command: one
// opcode byte followed by a little-endian u64 ServiceID.
const controlFrameSize = 9

// ControlCommand is a decoded control frame.
type ControlCommand struct {
	Op ControlOp
	ID ServiceID
}

func decodeControlFrame(frame []byte) (ControlCommand, error) {
	op := ControlOp(frame[0])
	switch op {
	case ControlStart, ControlStop, ControlRestart:
	default:
		return ControlCommand{}, errors.Errorf("unknown opcode 0x%02x", frame[0])
	}
	id := binary.LittleEndian.Uint64(frame[1:controlFrameSize])
	return ControlCommand{Op: op, ID: ServiceID(id)}, nil
}

// controlChannel reads fixed-size command frames from a named pipe, per
// spec.md §4.C. It holds both ends of the FIFO open itself so that a
// transient absence of external writers never delivers EOF to the
// reader.
type controlChannel struct {
	path    string
	readFD  int
	writeFD int
	buf     []byte
}

func newControlChannel(path string) (*controlChannel, error) {
	if err := unix.Mkfifo(path, 0o600); err != nil && !errors.Is(err, unix.EEXIST) {
		return nil, errors.Wrap(err, "create control fifo")
	}

	readFD, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "open control fifo for reading")
	}

	writeFD, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		unix.Close(readFD)
		return nil, errors.Wrap(err, "open control fifo for writing")
	}

	return &controlChannel{path: path, readFD: readFD, writeFD: writeFD}, nil
}

func (c *controlChannel) FD() int {
	return c.readFD
}

// drain reads all currently available bytes, appends them to the
// internal buffer, and decodes every complete 9-byte frame it can. A
// malformed opcode drops just that one frame (resynchronizing at the
// next 9-byte boundary, since frames are fixed-size) and is reported as
// an error alongside any successfully decoded commands.
func (c *controlChannel) drain() ([]ControlCommand, []error) {
	chunk := make([]byte, 4096)
	for {
		n, err := unix.Read(c.readFD, chunk)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				break
			}
			return nil, []error{errors.Wrap(err, "read control fifo")}
		}
		if n <= 0 {
			break
		}
		c.buf = append(c.buf, chunk[:n]...)
	}

	var cmds []ControlCommand
	var errs []error
	for len(c.buf) >= controlFrameSize {
		frame := c.buf[:controlFrameSize]
		c.buf = c.buf[controlFrameSize:]

		cmd, err := decodeControlFrame(frame)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cmds = append(cmds, cmd)
	}

	return cmds, errs
}

func (c *controlChannel) Close() error {
	unix.Close(c.writeFD)
	return unix.Close(c.readFD)
}
