package stream

// readers.go wraps input readers with the hygiene transforms every
// conversion needs before tokenizing: UTF-8 BOM removal, invalid-byte
// sanitization, and byte counting for progress reporting. All three operate
// in constant memory regardless of input size.

import (
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// bomReader skips a leading UTF-8 BOM, a common artifact of files exported
// from Windows tools. Bytes read while probing for the BOM are replayed if
// the input turns out not to carry one.
type bomReader struct {
	r       io.Reader
	checked bool
	held    []byte
}

// NewBOMReader returns a reader that transparently drops a leading UTF-8 BOM.
func NewBOMReader(r io.Reader) io.Reader {
	return &bomReader{r: r}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		probe := make([]byte, len(utf8BOM))
		n, err := io.ReadFull(b.r, probe)
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if n == len(utf8BOM) && probe[0] == utf8BOM[0] && probe[1] == utf8BOM[1] && probe[2] == utf8BOM[2] {
			// BOM found, nothing to replay.
		} else {
			b.held = probe[:n]
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
	}

	if len(b.held) > 0 {
		n := copy(p, b.held)
		b.held = b.held[n:]
		return n, nil
	}

	return b.r.Read(p)
}

// sanitizeReader replaces bytes that do not form valid UTF-8 with '?'.
// A multi-byte sequence split across two reads is held back until its
// remaining bytes arrive, so chunk boundaries never cause false replacements.
type sanitizeReader struct {
	r       io.Reader
	pending []byte
	eof     bool
}

// NewSanitizingReader returns a reader that rewrites invalid UTF-8 bytes to
// '?' on the fly. The single-byte replacement keeps output length bounded by
// input length, which matters for in-place streaming.
func NewSanitizingReader(r io.Reader) io.Reader {
	return &sanitizeReader{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *sanitizeReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	off := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[off:])
	n += off
	if err == io.EOF {
		s.eof = true
	}
	if n == 0 {
		return 0, err
	}

	// Hold back a trailing sequence that may complete on the next read.
	if !s.eof {
		if k := incompleteTail(p[:n]); k > 0 {
			s.pending = append(s.pending, p[n-k:n]...)
			n -= k
		}
	}

	return sanitize(p[:n]), err
}

// sanitize rewrites data in place, replacing each invalid byte with '?'.
// Valid runes keep their length, so the write cursor never passes the read
// cursor and the returned length equals the input length.
func sanitize(data []byte) int {
	if utf8.Valid(data) {
		return len(data)
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			data[i] = '?'
			i++
			continue
		}
		i += size
	}
	return len(data)
}

// incompleteTail returns how many bytes at the end of data begin a multi-byte
// UTF-8 sequence that data does not finish.
func incompleteTail(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b&0xC0 == 0x80 {
			continue // continuation byte, keep scanning left
		}
		if b < 0x80 {
			return 0 // ASCII, sequence is complete
		}
		if want := seqLen(b); want > i {
			return i
		}
		return 0
	}
	return 0
}

// seqLen returns the declared length of a UTF-8 sequence whose lead byte is b,
// or 0 for a byte that cannot lead a sequence.
func seqLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

// CountingReader tracks bytes read from the underlying reader.
// Used for byte-based progress when the total input size is known.
type CountingReader struct {
	r         io.Reader
	BytesRead int64
	Total     int64
}

// NewCountingReader wraps r with byte counting. Pass 0 for total when the
// input size is unknown; Percent then reports 0.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{r: r, Total: total}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.BytesRead += int64(n)
	return n, err
}

// Percent returns read progress as 0-100, or 0 when the total is unknown.
func (c *CountingReader) Percent() int {
	if c.Total <= 0 {
		return 0
	}
	return int(c.BytesRead * 100 / c.Total)
}

// Wrap layers the standard input transforms: BOM skipping first, then UTF-8
// sanitization, then byte counting on the outside for progress.
func Wrap(r io.Reader, total int64) *CountingReader {
	return NewCountingReader(NewSanitizingReader(NewBOMReader(r)), total)
}
