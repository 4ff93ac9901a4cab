// Package script replays user events from a JSON Lines file. Each line holds
// one event in the same wire format the Kafka events topic carries.
package script

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/crime-flowers/internal/domain"
)

const maxLineBytes = 1 << 20

// Reader implements pipeline.BatchExtractor over a line-oriented event
// script. Blank lines and lines starting with '#' are skipped.
type Reader struct {
	name    string
	scanner *bufio.Scanner
	closer  io.Closer
	line    int64
	logger  *slog.Logger
}

// Open opens an event script file.
func Open(path string, logger *slog.Logger) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	r := NewReader(f, path, logger)
	r.closer = f
	return r, nil
}

// NewReader reads events from r. name is reported as the topic of each
// event.
func NewReader(r io.Reader, name string, logger *slog.Logger) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Reader{name: name, scanner: sc, logger: logger}
}

// ExtractBatch returns up to batchSize events. io.EOF is returned with the
// final, possibly empty, batch.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	var batch []domain.RawEvent
	for len(batch) < batchSize {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return batch, fmt.Errorf("read script line %d: %w", r.line+1, err)
			}
			r.logger.Debug("event script finished", "script", r.name, "lines", r.line)
			return batch, io.EOF
		}
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		batch = append(batch, domain.RawEvent{
			Value:  []byte(text),
			Topic:  r.name,
			Offset: r.line,
		})
	}
	return batch, nil
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
