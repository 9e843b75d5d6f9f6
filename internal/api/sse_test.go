package api

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackingBody struct {
	io.Reader
	closed int
}

func (b *trackingBody) Close() error {
	b.closed++
	return nil
}

func readAll(t *testing.T, s *EventStream) []string {
	t.Helper()
	var out []string
	for {
		data, err := s.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, string(data))
	}
}

func TestEventStream_Framing(t *testing.T) {
	raw := ": keepalive\n" +
		"data: {\"type\":\"start\"}\n\n" +
		"event: progress\n" +
		"id: 7\n" +
		"data: line one\r\n" +
		"data:line two\r\n" +
		"\r\n" +
		"\n\n" +
		"retry: 1000\n\n" +
		"data: unterminated"

	s := newEventStream(&trackingBody{Reader: strings.NewReader(raw)})
	got := readAll(t, s)

	assert.Equal(t, []string{`{"type":"start"}`, "line one\nline two"}, got)
}

func TestEventStream_EmptyDataField(t *testing.T) {
	s := newEventStream(&trackingBody{Reader: strings.NewReader("data\n\n")})
	got := readAll(t, s)
	assert.Equal(t, []string{""}, got)
}

func TestEventStream_CloseIsIdempotent(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("")}
	s := newEventStream(body)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, body.closed)
}
