// Package input decodes raw terminal bytes into key presses and mouse clicks.
package input

import (
	"bufio"
	"bytes"
	"strconv"
)

// Click is a left button press at a 1-based terminal position.
type Click struct {
	Col, Row int
}

// Input represents the presses decoded since the previous read.
type Input struct {
	Quit     bool
	Up       bool
	Down     bool
	Left     bool
	Right    bool
	Space    bool
	Enter    bool
	Escape   bool
	Mute     bool
	Settings bool
	Digits   []int
	Clicks   []Click
	Pressed  []byte

	// Closed is set once the underlying reader has failed.
	Closed bool
}

// Any reports whether anything was pressed.
func (in Input) Any() bool {
	return len(in.Pressed) > 0
}

// Confirm reports space or enter.
func (in Input) Confirm() bool {
	return in.Space || in.Enter
}

// Stream delivers input bytes via a channel.
type Stream struct {
	ch      chan byte
	pending []byte // incomplete escape sequence from the previous read
	closed  bool
}

// StartStream spawns a goroutine that reads from r and sends bytes to the stream.
func StartStream(r *bufio.Reader) *Stream {
	s := &Stream{ch: make(chan byte, 256)}
	go func() {
		for {
			b, err := r.ReadByte()
			if err != nil {
				close(s.ch)
				return
			}
			s.ch <- b
		}
	}()
	return s
}

// ReadInput drains all available bytes from the stream (non-blocking).
func ReadInput(s *Stream) Input {
	buf := s.pending
	s.pending = nil
	for !s.closed {
		select {
		case b, ok := <-s.ch:
			if !ok {
				s.closed = true
				continue
			}
			buf = append(buf, b)
			continue
		default:
		}
		break
	}

	in, rest := Parse(buf)
	if len(rest) > 0 && !s.closed {
		s.pending = append([]byte(nil), rest...)
	}
	in.Closed = s.closed
	return in
}

// Parse decodes buf. A trailing escape sequence that may still be arriving
// is returned unconsumed in rest.
func Parse(buf []byte) (in Input, rest []byte) {
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if b != '\x1b' {
			applyByte(&in, b)
			in.Pressed = append(in.Pressed, b)
			continue
		}

		// Lone ESC at the end of the buffer
		if i+1 >= len(buf) {
			in.Escape = true
			in.Pressed = append(in.Pressed, b)
			continue
		}
		if buf[i+1] != '[' {
			in.Escape = true
			in.Pressed = append(in.Pressed, b)
			continue
		}
		if i+2 >= len(buf) {
			return in, buf[i:]
		}

		switch buf[i+2] {
		case 'A':
			in.Up = true
		case 'B':
			in.Down = true
		case 'C':
			in.Right = true
		case 'D':
			in.Left = true
		case '<':
			n, click, complete := parseSGRMouse(buf[i+3:])
			if !complete {
				return in, buf[i:]
			}
			if click != nil {
				in.Clicks = append(in.Clicks, *click)
			}
			in.Pressed = append(in.Pressed, buf[i:i+3+n]...)
			i += 2 + n
			continue
		default:
			// Unknown CSI: skip to its final byte
			j := i + 2
			for j < len(buf) && (buf[j] < 0x40 || buf[j] > 0x7e) {
				j++
			}
			if j >= len(buf) {
				return in, buf[i:]
			}
			i = j
			continue
		}
		in.Pressed = append(in.Pressed, buf[i:i+3]...)
		i += 2
	}
	return in, nil
}

// parseSGRMouse decodes "b;x;yM" (press) or "b;x;ym" (release) and returns
// the bytes consumed. Only left button presses produce a click.
func parseSGRMouse(buf []byte) (n int, click *Click, complete bool) {
	end := bytes.IndexAny(buf, "Mm")
	if end < 0 {
		if len(buf) > 32 {
			// Garbage; drop it
			return len(buf), nil, true
		}
		return 0, nil, false
	}
	parts := bytes.Split(buf[:end], []byte{';'})
	if len(parts) != 3 {
		return end + 1, nil, true
	}
	var vals [3]int
	for k, p := range parts {
		v, err := strconv.Atoi(string(p))
		if err != nil {
			return end + 1, nil, true
		}
		vals[k] = v
	}
	button := vals[0]
	press := buf[end] == 'M'
	// Low bits select the button; 32 is motion, 64 is the wheel.
	if press && button&3 == 0 && button&(32|64) == 0 {
		click = &Click{Col: vals[1], Row: vals[2]}
	}
	return end + 1, click, true
}

// applyByte maps a single key to the input fields.
func applyByte(in *Input, b byte) {
	switch b {
	case 'q', 'Q', 3: // Ctrl+C
		in.Quit = true
	case 'k', 'K', 'w', 'W':
		in.Up = true
	case 'j', 'J':
		in.Down = true
	case 'h', 'H', 'a', 'A':
		in.Left = true
	case 'l', 'L', 'd', 'D':
		in.Right = true
	case ' ':
		in.Space = true
	case '\n', '\r':
		in.Enter = true
	case 'm', 'M':
		in.Mute = true
	case 's', 'S':
		in.Settings = true
	case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		in.Digits = append(in.Digits, int(b-'0'))
	}
}
