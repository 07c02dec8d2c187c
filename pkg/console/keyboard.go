package console

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Keyboard exposes the non-blocking keystroke poll the verification loop
// and the blocking single-key read the prompt stages need. Keys are pulled
// from stdin by a background reader; Poll never blocks, which keeps
// cancellation strictly cooperative.
type Keyboard struct {
	keys    chan byte
	restore func()
}

// NewKeyboard puts the terminal into unbuffered, no-echo mode (keeping
// output processing intact) and starts draining stdin one key at a time.
// A non-terminal stdin still works: keys arrive until EOF, after which
// reads report no key.
func NewKeyboard() *Keyboard {
	k := &Keyboard{keys: make(chan byte, 8)}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		if tio, err := unix.IoctlGetTermios(fd, unix.TCGETS); err == nil {
			saved := *tio
			tio.Lflag &^= unix.ICANON | unix.ECHO
			tio.Cc[unix.VMIN] = 1
			tio.Cc[unix.VTIME] = 0
			if err := unix.IoctlSetTermios(fd, unix.TCSETS, tio); err == nil {
				k.restore = func() {
					_ = unix.IoctlSetTermios(fd, unix.TCSETS, &saved)
				}
			}
		}
	}

	go func() {
		defer close(k.keys)
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 0 {
				continue
			}
			select {
			case k.keys <- buf[0]:
			default:
				// Drop keys nobody is waiting for.
			}
		}
	}()

	return k
}

// Poll returns a pending keystroke without blocking.
func (k *Keyboard) Poll() (byte, bool) {
	select {
	case c, ok := <-k.keys:
		return c, ok
	default:
		return 0, false
	}
}

// Read blocks until a keystroke arrives. ok is false when stdin is gone,
// which callers treat as a refusal rather than stalling forever.
func (k *Keyboard) Read() (byte, bool) {
	c, ok := <-k.keys
	return c, ok
}

// Drain discards any keystrokes typed ahead of a prompt.
func (k *Keyboard) Drain() {
	for {
		if _, ok := k.Poll(); !ok {
			return
		}
	}
}

// Close restores the terminal state.
func (k *Keyboard) Close() {
	if k.restore != nil {
		k.restore()
	}
}
