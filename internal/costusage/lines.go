package costusage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tidwall/gjson"
)

const (
	maxLineBytes   = 256 * 1024
	readChunkBytes = 64 * 1024
)

// Line is one newline-terminated record. Bytes is only valid for the
// duration of the callback. Oversized lines are delivered with Truncated set
// and no bytes so callers can count them without decoding a fragment.
type Line struct {
	Bytes     []byte
	Truncated bool
}

// ScanLines streams f from offset and calls fn for every complete line. It
// returns the offset just past the last consumed line. A trailing fragment
// without a newline is left unconsumed unless it is already a complete JSON
// document, so a record that is still being written is read again, whole, on
// the next pass.
func ScanLines(f *os.File, offset int64, maxLine, chunk int, fn func(Line)) (int64, error) {
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek %s: %w", f.Name(), err)
	}
	if chunk < 16 {
		chunk = 16
	}
	r := bufio.NewReaderSize(f, chunk)

	committed := offset
	var buf []byte
	var pending int64
	oversized := false

	for {
		part, err := r.ReadSlice('\n')
		pending += int64(len(part))

		switch {
		case err == nil:
			if oversized || len(buf)+len(part)-1 > maxLine {
				fn(Line{Truncated: true})
			} else if len(buf) > 0 {
				buf = append(buf, part...)
				fn(Line{Bytes: trimEOL(buf)})
			} else {
				fn(Line{Bytes: trimEOL(part)})
			}
			committed += pending
			pending = 0
			buf = buf[:0]
			oversized = false

		case errors.Is(err, bufio.ErrBufferFull):
			if oversized {
				continue
			}
			if len(buf)+len(part) > maxLine {
				oversized = true
				buf = buf[:0]
				continue
			}
			buf = append(buf, part...)

		case errors.Is(err, io.EOF):
			if oversized || len(part)+len(buf) == 0 {
				return committed, nil
			}
			tail := append(buf, part...)
			if len(tail) <= maxLine && gjson.ValidBytes(bytes.TrimSpace(tail)) {
				fn(Line{Bytes: trimEOL(tail)})
				committed += pending
			}
			return committed, nil

		default:
			return committed, fmt.Errorf("read %s: %w", f.Name(), err)
		}
	}
}

func trimEOL(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte{'\n'})
	return bytes.TrimSuffix(b, []byte{'\r'})
}
