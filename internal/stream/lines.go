// Package stream provides streaming input plumbing for the conversion
// pipeline: linefeed-delimited reassembly of arbitrarily chunked input, and
// io.Reader wrappers for BOM skipping, UTF-8 sanitization, and byte counting.
package stream

import "bytes"

// LineBuffer reassembles complete lines from arbitrarily sized input chunks.
//
// The accumulator is explicit: callers feed chunks in arrival order and
// receive every line completed by that chunk, then drain the trailing
// partial line with Flush at end of input. Concatenating all chunks and
// splitting on '\n' yields exactly the lines Feed and Flush emit, regardless
// of where the chunk boundaries fall.
//
// The zero value is ready to use.
type LineBuffer struct {
	partial []byte
}

// Feed appends a chunk and returns the lines it completed, in order,
// without their terminating linefeed. A chunk that completes no line
// returns nil and leaves the remainder buffered.
func (b *LineBuffer) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}

	data := chunk
	if len(b.partial) > 0 {
		data = append(b.partial, chunk...)
	}

	var lines []string
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(data[:i]))
		data = data[i+1:]
	}

	// Copy the remainder: data may alias the caller's chunk.
	b.partial = append(b.partial[:0], data...)
	return lines
}

// Flush returns the trailing partial line buffered since the last linefeed.
// The boolean is false when there is no unterminated content. Flush resets
// the buffer, so it reports the partial line at most once.
func (b *LineBuffer) Flush() (string, bool) {
	if len(b.partial) == 0 {
		return "", false
	}
	line := string(b.partial)
	b.partial = b.partial[:0]
	return line, true
}
