package worker

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/pable/go-pitch-stream/internal/element"
)

// FileSource replays newline-delimited JSON elements from a reader, e.g. a
// recorded sensor dump. Lines that fail to decode are logged and skipped so
// one bad record does not end the replay.
type FileSource struct {
	r   io.Reader
	log *slog.Logger
	ch  chan *element.Element
}

func NewFileSource(r io.Reader, log *slog.Logger) *FileSource {
	return &FileSource{r: r, log: log, ch: make(chan *element.Element, 64)}
}

func (s *FileSource) Elements() <-chan *element.Element { return s.ch }

// Run decodes until EOF, then closes the element channel.
func (s *FileSource) Run() error {
	defer close(s.ch)
	sc := bufio.NewScanner(s.r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		e, err := element.Unmarshal(line)
		if err != nil {
			s.log.Warn("skipping undecodable line", "line", lineNo, "err", err)
			continue
		}
		s.ch <- e
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
