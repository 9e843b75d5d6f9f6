package progress

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyAll(m Model, events ...Event) (Model, []Intent) {
	var intents []Intent
	for _, ev := range events {
		var out []Intent
		m, out = Apply(m, ev)
		intents = append(intents, out...)
	}
	return m, intents
}

func TestApply_FullSession(t *testing.T) {
	events := []Event{
		{Type: EventStart, Message: "Starting refresh"},
		{Type: EventProjectStart, CurrentStep: 1, TotalSteps: 2, Project: "P1"},
		{Type: EventResourceStart, Project: "P1", ResourceType: "servers"},
		{Type: EventResourceComplete, Project: "P1", ResourceType: "servers", Count: 3},
		{Type: EventProjectComplete, Project: "P1", Count: 3},
		{Type: EventProjectStart, CurrentStep: 2, TotalSteps: 2, Project: "P2"},
		{Type: EventProjectComplete, Project: "P2", Count: 0},
		{Type: EventComplete, Summary: map[string]int{"server": 3}},
	}

	m, intents := applyAll(NewModel("session_1"), events...)

	assert.Equal(t, 100, m.Percent)
	require.NotNil(t, m.Project("P1"))
	assert.Equal(t, StatusSuccess, m.Project("P1").Status)
	servers := m.Project("P1").Resources["servers"]
	assert.Equal(t, StatusSuccess, servers.Status)
	assert.Contains(t, servers.Message, "3")
	require.NotNil(t, m.Project("P2"))
	assert.Equal(t, StatusSuccess, m.Project("P2").Status)
	assert.True(t, m.Terminal)
	assert.False(t, m.Failed)
	assert.Equal(t, map[string]int{"server": 3}, m.Summary)
	assert.Equal(t, []string{"P1", "P2"}, m.ProjectOrder)

	assert.Contains(t, intents, Intent{Kind: IntentCloseStream})
	assert.Contains(t, intents, Intent{Kind: IntentScheduleReload, Delay: ReloadDelay})
}

func TestApply_ResourceNeverRegresses(t *testing.T) {
	m, _ := applyAll(NewModel("s"),
		Event{Type: EventResourceStart, Project: "P", ResourceType: "volumes"},
		Event{Type: EventResourceComplete, Project: "P", ResourceType: "volumes", Count: 2},
		Event{Type: EventResourceError, Project: "P", ResourceType: "volumes", Message: "late failure"},
		Event{Type: EventResourceStart, Project: "P", ResourceType: "volumes"},
	)
	got := m.Project("P").Resources["volumes"]
	assert.Equal(t, StatusSuccess, got.Status)
	assert.Equal(t, "2 found", got.Message)
	assert.Equal(t, []string{"volumes"}, m.Project("P").ResourceOrder)
}

func TestApply_ProjectNeverRegresses(t *testing.T) {
	m, _ := applyAll(NewModel("s"),
		Event{Type: EventProjectStart, CurrentStep: 1, TotalSteps: 1, Project: "P"},
		Event{Type: EventProjectError, Project: "P", Message: "quota"},
		Event{Type: EventProjectComplete, Project: "P", Count: 9},
		Event{Type: EventProjectStart, CurrentStep: 1, TotalSteps: 1, Project: "P"},
	)
	assert.Equal(t, StatusError, m.Project("P").Status)
	assert.Equal(t, "quota", m.Project("P").Message)
}

func TestApply_ImplicitEntities(t *testing.T) {
	m, _ := Apply(NewModel("s"), Event{Type: EventResourceError, Project: "ghost", ResourceType: "routers"})

	p := m.Project("ghost")
	require.NotNil(t, p)
	assert.Equal(t, StatusInProgress, p.Status)
	assert.Equal(t, StatusError, p.Resources["routers"].Status)
	assert.Equal(t, "Error", p.Resources["routers"].Message)
}

func TestApply_IgnoresEmptyProjectAndUnknownType(t *testing.T) {
	start := NewModel("s")
	m, intents := Apply(start, Event{Type: "heartbeat", Message: "ping"})
	assert.Equal(t, start, m)
	assert.Nil(t, intents)

	m, _ = Apply(start, Event{Type: EventProjectComplete, Count: 1})
	assert.Empty(t, m.Projects)

	m, _ = Apply(start, Event{Type: EventProjectStart, CurrentStep: 1, TotalSteps: 0, Project: "P"})
	assert.Equal(t, 0, m.Percent)
	assert.NotNil(t, m.Project("P"))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	m, _ := Apply(NewModel("s"), Event{Type: EventProjectStart, CurrentStep: 1, TotalSteps: 3, Project: "P"})
	before := m.Clone()

	_, _ = Apply(m, Event{Type: EventResourceStart, Project: "P", ResourceType: "servers"})
	_, _ = Apply(m, Event{Type: EventProjectComplete, Project: "P", Count: 1})

	assert.Equal(t, before, m)
}

func TestApply_TerminalSessionIgnoresLaterEvents(t *testing.T) {
	m, intents := applyAll(NewModel("s"),
		Event{Type: EventStart},
		Event{Type: EventError, Message: "keystone unreachable"},
	)
	assert.True(t, m.Terminal)
	assert.True(t, m.Failed)
	assert.Equal(t, 100, m.Percent)
	assert.Equal(t, "Error: keystone unreachable", m.Message)
	assert.Equal(t, []Intent{{Kind: IntentCloseStream}}, intents)

	after, more := applyAll(m,
		Event{Type: EventComplete},
		Event{Type: EventProjectStart, CurrentStep: 1, TotalSteps: 1, Project: "late"},
	)
	assert.Equal(t, m, after)
	assert.Empty(t, more)
}

func TestApply_PercentIsMonotonic(t *testing.T) {
	events := []Event{
		{Type: EventStart},
		{Type: EventProgress},
		{Type: EventSummary},
	}
	for i := 1; i <= 6; i++ {
		events = append(events, Event{Type: EventProjectStart, CurrentStep: i, TotalSteps: 6, Project: string(rune('A' + i))})
	}

	rng := rand.New(rand.NewSource(7))
	for range 50 {
		shuffled := append([]Event(nil), events...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		m := NewModel("s")
		last := m.Percent
		for _, ev := range shuffled {
			m, _ = Apply(m, ev)
			require.GreaterOrEqual(t, m.Percent, last)
			last = m.Percent
		}
		assert.Equal(t, 95, m.Percent)
	}
}

func TestApply_ProjectStartPercent(t *testing.T) {
	m, _ := Apply(NewModel("s"), Event{Type: EventProjectStart, CurrentStep: 1, TotalSteps: 3, Project: "P"})
	assert.Equal(t, 37, m.Percent)
	assert.Equal(t, "[1/3] Processing P", m.Message)

	m, _ = Apply(m, Event{Type: EventProjectStart, CurrentStep: 3, TotalSteps: 3, Project: "Q"})
	assert.Equal(t, 90, m.Percent)
}

func TestModel_Counts(t *testing.T) {
	m, _ := applyAll(NewModel("s"),
		Event{Type: EventProjectStart, CurrentStep: 1, TotalSteps: 3, Project: "A"},
		Event{Type: EventProjectStart, CurrentStep: 2, TotalSteps: 3, Project: "B"},
		Event{Type: EventProjectStart, CurrentStep: 3, TotalSteps: 3, Project: "C"},
		Event{Type: EventProjectComplete, Project: "A"},
		Event{Type: EventProjectError, Project: "B"},
	)
	assert.Equal(t, map[Status]int{StatusSuccess: 1, StatusError: 1, StatusInProgress: 1}, m.Counts())
}
