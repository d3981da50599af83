package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/formcheck/formcheck/pkg/types"
)

// maxLineBytes bounds a single JSON line.
const maxLineBytes = 1 << 20

// Decoder yields frames from a JSON-lines stream.
type Decoder struct {
	sc   *bufio.Scanner
	line int
	last time.Time

	// Skipped counts lines that were dropped as malformed or out of order.
	Skipped int

	// now stamps frames that arrive without a timestamp. Overridable in tests.
	now func() time.Time
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Decoder{sc: sc, now: time.Now}
}

// Next returns the next valid frame. It returns io.EOF at the end of input.
func (d *Decoder) Next() (types.Frame, error) {
	for d.sc.Scan() {
		d.line++
		b := d.sc.Bytes()
		if len(bytes.TrimSpace(b)) == 0 {
			continue
		}

		var f types.Frame
		if err := json.Unmarshal(b, &f); err != nil {
			d.Skipped++
			slog.Warn("source: skipping malformed line", "line", d.line, "err", err)
			continue
		}
		if f.Timestamp.IsZero() {
			f.Timestamp = d.now().UTC()
		}
		if f.Timestamp.Before(d.last) {
			d.Skipped++
			slog.Warn("source: skipping out-of-order frame",
				"line", d.line, "ts", f.Timestamp, "last", d.last)
			continue
		}
		d.last = f.Timestamp
		return f, nil
	}
	if err := d.sc.Err(); err != nil {
		return types.Frame{}, fmt.Errorf("source: read line %d: %w", d.line+1, err)
	}
	return types.Frame{}, io.EOF
}

// Run decodes frames into out until EOF, a read error, or ctx cancellation.
// out is closed on return. EOF is reported as a nil error.
func (d *Decoder) Run(ctx context.Context, out chan<- types.Frame) error {
	defer close(out)
	for {
		f, err := d.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		select {
		case out <- f:
		case <-ctx.Done():
			return nil
		}
	}
}

