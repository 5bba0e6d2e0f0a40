package childproc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, s *Supervisor, timeout time.Duration) []Event {
	t.Helper()
	var got []Event
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-deadline:
			t.Fatal("timed out waiting for events")
			return nil
		}
	}
}

func TestSupervisorHappyPath(t *testing.T) {
	script := `printf '%s\n' '{"type":"system","subtype":"init","session_id":"s1"}'
printf '%s\n' '{"type":"assistant","message":{"stop_reason":"end_turn","content":[{"type":"text","text":"hi"}]}}'
printf '%s\n' '{"type":"result","subtype":"success"}'
`
	s, err := New(Options{
		Command: "sh",
		Args:    []string{"-c", script},
		Dir:     t.TempDir(),
		Stdin:   "",
	}, nil)
	require.NoError(t, err)

	events := collect(t, s, 5*time.Second)
	require.Len(t, events, 3)
	require.Equal(t, KindSystemInit, events[0].Kind)
	require.Equal(t, "s1", events[0].SessionID)
	require.Equal(t, KindAssistantContent, events[1].Kind)
	require.Equal(t, KindResultSuccess, events[2].Kind)
}

func TestSupervisorHappyPathNeverDropsBufferedEvents(t *testing.T) {
	// Regression test: a child that emits its events and exits promptly
	// races cmd.Wait() against the buffered lines channel. Looping catches
	// a dropped-event bug that a single run has roughly even odds of
	// missing.
	script := `printf '%s\n' '{"type":"system","subtype":"init","session_id":"s1"}'
printf '%s\n' '{"type":"assistant","message":{"stop_reason":"end_turn","content":[{"type":"text","text":"hi"}]}}'
printf '%s\n' '{"type":"result","subtype":"success"}'
`
	for i := 0; i < 20; i++ {
		s, err := New(Options{
			Command: "sh",
			Args:    []string{"-c", script},
			Dir:     t.TempDir(),
		}, nil)
		require.NoError(t, err)

		events := collect(t, s, 5*time.Second)
		require.Len(t, events, 3, "iteration %d dropped a buffered event", i)
		require.Equal(t, KindResultSuccess, events[2].Kind)
	}
}

func TestSupervisorSkipsMalformedLines(t *testing.T) {
	script := `printf '%s\n' 'not json at all'
printf '%s\n' '{"type":"result","subtype":"success"}'
`
	s, err := New(Options{
		Command: "sh",
		Args:    []string{"-c", script},
		Dir:     t.TempDir(),
	}, nil)
	require.NoError(t, err)

	events := collect(t, s, 5*time.Second)
	require.Len(t, events, 1)
	require.Equal(t, KindResultSuccess, events[0].Kind)
}

func TestSupervisorSpawnErrorForMissingProgram(t *testing.T) {
	_, err := New(Options{
		Command: "definitely-not-a-real-program-xyz",
		Dir:     t.TempDir(),
	}, nil)
	require.Error(t, err)
}

func TestSupervisorInactivityTimeout(t *testing.T) {
	script := `printf '%s\n' '{"type":"system","subtype":"init","session_id":"s1"}'
sleep 5
`
	s, err := New(Options{
		Command:           "sh",
		Args:              []string{"-c", script},
		Dir:               t.TempDir(),
		InactivityTimeout: 200 * time.Millisecond,
		KillGrace:         100 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	events := collect(t, s, 5*time.Second)
	require.GreaterOrEqual(t, len(events), 2)
	last := events[len(events)-1]
	require.Equal(t, KindTimeout, last.Kind)
	require.Equal(t, TimeoutInactivity, last.Timeout)
}

func TestSupervisorCancelStopsChild(t *testing.T) {
	s, err := New(Options{
		Command:   "sh",
		Args:      []string{"-c", "sleep 30"},
		Dir:       t.TempDir(),
		KillGrace: 100 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	s.Cancel()

	select {
	case _, ok := <-s.Events():
		require.False(t, ok, "expected channel to close after cancel")
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor did not close events channel after cancel")
	}
}

func TestSupervisorWritesStdinAndClosesIt(t *testing.T) {
	script := `read -r line
printf '{"type":"error","error":{"message":"%s"}}\n' "$line"
`
	s, err := New(Options{
		Command: "sh",
		Args:    []string{"-c", script},
		Dir:     t.TempDir(),
		Stdin:   "hello-prompt\n",
	}, nil)
	require.NoError(t, err)

	events := collect(t, s, 5*time.Second)
	require.Len(t, events, 1)
	require.Equal(t, KindError, events[0].Kind)
	require.Equal(t, "hello-prompt", events[0].Message)
}
