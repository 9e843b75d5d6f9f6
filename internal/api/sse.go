package api

import (
	"bufio"
	"bytes"
	"io"
	"sync"
)

// EventStream reads server-sent events from a progress stream.
// Only data fields are surfaced; comments and other fields are skipped.
type EventStream struct {
	body      io.ReadCloser
	reader    *bufio.Reader
	closeOnce sync.Once
	closeErr  error
}

func newEventStream(body io.ReadCloser) *EventStream {
	return &EventStream{body: body, reader: bufio.NewReader(body)}
}

// Next blocks until the next event and returns its data payload. Multi-line
// data is joined with "\n". It returns io.EOF when the stream ends; a trailing
// event without its blank-line terminator is discarded.
func (s *EventStream) Next() ([]byte, error) {
	var data [][]byte
	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")

		if len(line) == 0 {
			if data == nil {
				continue
			}
			return bytes.Join(data, []byte("\n")), nil
		}
		if line[0] == ':' {
			continue
		}

		field, value, _ := bytes.Cut(line, []byte(":"))
		if string(field) != "data" {
			continue
		}
		value = bytes.TrimPrefix(value, []byte(" "))
		data = append(data, append([]byte(nil), value...))
	}
}

// Close releases the underlying connection. Calling it again is a no-op.
func (s *EventStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
