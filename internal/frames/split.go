package frames

import (
	"bufio"
	"bytes"

	"termreel/internal/model"
)

// Split returns a bufio.SplitFunc that yields one token per complete frame.
//
// With FramingStart the delimiter opens a frame: bytes before the first
// delimiter are a preamble and are dropped, and a frame is complete once the
// next delimiter arrives. With FramingEnd the delimiter closes a frame. With
// FramingCursor the delimiter is ignored and frames are cut at cursor
// positioning, see splitCursor. In all modes trailing bytes without a closing
// boundary are dropped at EOF.
func Split(delim []byte, framing model.Framing) bufio.SplitFunc {
	switch framing {
	case model.FramingEnd:
		return splitEnd(delim)
	case model.FramingCursor:
		return splitCursor()
	default:
		return splitStart(delim)
	}
}

func splitEnd(delim []byte) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if i := bytes.Index(data, delim); i >= 0 {
			return i + len(delim), data[:i], nil
		}
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
}

// splitStart finds the opening and the closing delimiter in one call so a
// frame that arrived whole is returned before the scanner reads again.
func splitStart(delim []byte) bufio.SplitFunc {
	inFrame := false
	return func(data []byte, atEOF bool) (int, []byte, error) {
		skip := 0
		if !inFrame {
			i := bytes.Index(data, delim)
			if i < 0 {
				if atEOF {
					return len(data), nil, nil
				}
				// Keep a possible delimiter prefix at the tail.
				if keep := len(delim) - 1; len(data) > keep {
					return len(data) - keep, nil, nil
				}
				return 0, nil, nil
			}
			inFrame = true
			skip = i + len(delim)
		}
		if j := bytes.Index(data[skip:], delim); j >= 0 {
			return skip + j + len(delim), data[skip : skip+j], nil
		}
		if atEOF {
			return len(data), nil, nil
		}
		return skip, nil, nil
	}
}

// splitCursor cuts frames at cursor positioning sequences (CSI row;col H or
// CSI row;col f). Renderers such as mpv's tct output position every row
// absolutely, so a frame begins where the positioned row does not advance
// past the previous one. The positioning sequence stays in the frame data.
// Bytes before the first positioning sequence are a preamble and are dropped.
func splitCursor() bufio.SplitFunc {
	var (
		inFrame bool
		start   int // offset of the pending frame in data
		scanned int // offset up to which data has been examined
		row     int // last row positioned in the pending frame
	)
	return func(data []byte, atEOF bool) (int, []byte, error) {
		for {
			i, end, r, st := findCursorPos(data[scanned:])
			if st == csiFound {
				i, end = i+scanned, end+scanned
				switch {
				case !inFrame:
					inFrame, start, row, scanned = true, i, r, end
				case r <= row:
					tok := data[start:i]
					start, row, scanned = 0, r, end-i
					return i, tok, nil
				default:
					row, scanned = r, end
				}
				continue
			}

			stop := len(data)
			if st == csiPartial {
				stop = scanned + i
			}
			if atEOF {
				inFrame, start, scanned = false, 0, 0
				return len(data), nil, nil
			}
			if !inFrame {
				scanned = 0
				return stop, nil, nil
			}
			scanned = stop
			return 0, nil, nil
		}
	}
}

type csiState int

const (
	csiNone    csiState = iota
	csiPartial          // a sequence may be cut off at the end of b
	csiFound
)

// maxRow caps parsed row numbers; real terminals are far smaller.
const maxRow = 1 << 20

// findCursorPos locates the first cursor positioning sequence in b. It
// returns the sequence bounds and its row, where an omitted row means 1.
func findCursorPos(b []byte) (start, end, row int, st csiState) {
	for i := 0; i < len(b); i++ {
		if b[i] != 0x1b {
			continue
		}
		if i+1 == len(b) {
			return i, 0, 0, csiPartial
		}
		if b[i+1] != '[' {
			continue
		}
		j := i + 2
		row, digits, semis := 0, 0, 0
		for ; j < len(b); j++ {
			c := b[j]
			if c == ';' {
				semis++
				continue
			}
			if c < '0' || c > '9' {
				break
			}
			if semis == 0 && row < maxRow {
				row = row*10 + int(c-'0')
				digits++
			}
		}
		if j == len(b) {
			return i, 0, 0, csiPartial
		}
		if (b[j] == 'H' || b[j] == 'f') && semis <= 1 {
			if digits == 0 {
				row = 1
			}
			return i, j + 1, row, csiFound
		}
	}
	return -1, 0, 0, csiNone
}
