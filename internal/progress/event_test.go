package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"type":"project_start","project":"P1","current_step":1,"total_steps":4,"message":"Processing P1"}`))
	require.NoError(t, err)
	assert.Equal(t, EventProjectStart, ev.Type)
	assert.Equal(t, "P1", ev.Project)
	assert.Equal(t, 1, ev.CurrentStep)
	assert.Equal(t, 4, ev.TotalSteps)

	ev, err = DecodeEvent([]byte(`{"type":"complete","summary":{"server":3,"volume":1}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"server": 3, "volume": 1}, ev.Summary)
	assert.True(t, ev.Type.Terminal())

	_, err = DecodeEvent([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestChanEmitter_Emit_SetsTimestampWhenZero(t *testing.T) {
	ch := make(chan Event, 1)
	emitter := &ChanEmitter{Ch: ch}

	emitter.Emit(Event{Type: EventStart, Message: "test"})

	got := <-ch
	assert.False(t, got.Timestamp.IsZero())
	assert.Equal(t, "test", got.Message)
}

func TestChanEmitter_Emit_PreservesTimestamp(t *testing.T) {
	ch := make(chan Event, 1)
	emitter := &ChanEmitter{Ch: ch}

	ts := time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)
	emitter.Emit(Event{Type: EventProgress, Timestamp: ts})

	got := <-ch
	assert.True(t, got.Timestamp.Equal(ts))
}

func TestChanEmitter_Emit_DropsWhenFull(t *testing.T) {
	ch := make(chan Event, 1)
	emitter := &ChanEmitter{Ch: ch}

	emitter.Emit(Event{Message: "first"})
	emitter.Emit(Event{Message: "dropped"})

	got := <-ch
	assert.Equal(t, "first", got.Message)
	select {
	case ev := <-ch:
		t.Fatalf("expected empty channel, got %q", ev.Message)
	default:
	}
}

func TestResourceTypeLabel(t *testing.T) {
	assert.Equal(t, "Floating IPs", ResourceTypeLabel("floating_ips"))
	assert.Equal(t, "Load balancers", ResourceTypeLabel("load_balancer"))
	assert.Equal(t, "dns_zones", ResourceTypeLabel("dns_zones"))
}
