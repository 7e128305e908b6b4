package protocol

import "bytes"

// Framer reassembles newline-delimited documents from raw transport chunks.
// A chunk may hold several complete lines, a fragment of one, or both; the
// fragment is carried over until its terminating newline arrives in a later
// chunk. Returned lines are whitespace-trimmed copies, so CRLF terminators
// are handled and callers may retain lines freely.
//
// Framer is not safe for concurrent use; the reader goroutine owns it.
type Framer struct {
	buf []byte
}

// NewFramer returns a Framer with an empty carry-over buffer.
func NewFramer() *Framer {
	return &Framer{}
}

// Push appends chunk to the carry-over buffer and returns every line
// completed by it, in arrival order. Lines that are empty after trimming are
// dropped.
func (f *Framer) Push(chunk []byte) [][]byte {
	if len(chunk) == 0 {
		return nil
	}
	f.buf = append(f.buf, chunk...)

	var lines [][]byte
	for {
		idx := bytes.IndexByte(f.buf, '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimSpace(f.buf[:idx])
		f.buf = f.buf[idx+1:]
		if len(line) > 0 {
			lines = append(lines, append([]byte(nil), line...))
		}
	}
	if len(f.buf) == 0 {
		f.buf = nil
	}
	return lines
}

// Flush returns the unterminated remainder, if any, and resets the buffer.
// Called when the stream ends so a final document without a trailing newline
// is still surfaced.
func (f *Framer) Flush() []byte {
	line := bytes.TrimSpace(f.buf)
	f.buf = nil
	if len(line) == 0 {
		return nil
	}
	return append([]byte(nil), line...)
}

// Pending reports how many bytes are buffered awaiting a newline.
func (f *Framer) Pending() int {
	return len(f.buf)
}
