package middleware

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docweave/docweave/state"
)

type recordingMiddleware struct {
	name       string
	calls      *[]string
	beforeErr  error
	afterErr   error
	afterPropose *state.Transaction
}

func (m *recordingMiddleware) BeforeDispatch(tr *state.Transaction) error {
	*m.calls = append(*m.calls, "before:"+m.name)
	return m.beforeErr
}

func (m *recordingMiddleware) AfterDispatch(newState *state.State, applied []*state.Transaction) (*state.Transaction, error) {
	*m.calls = append(*m.calls, "after:"+m.name)
	return m.afterPropose, m.afterErr
}

func TestStackRunsBeforeInOrderAndAfterInReverse(t *testing.T) {
	var calls []string
	s := NewStack()
	s.Add(&recordingMiddleware{name: "a", calls: &calls})
	s.Add(&recordingMiddleware{name: "b", calls: &calls})

	require.NoError(t, s.RunBefore(nil))
	_, err := s.RunAfter(nil, nil)
	require.NoError(t, err)

	require.Equal(t, []string{"before:a", "before:b", "after:b", "after:a"}, calls)
}

func TestStackRunBeforeStopsOnFirstError(t *testing.T) {
	var calls []string
	boom := require.AnError
	s := NewStack()
	s.Add(&recordingMiddleware{name: "a", calls: &calls, beforeErr: boom})
	s.Add(&recordingMiddleware{name: "b", calls: &calls})

	err := s.RunBefore(nil)
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"before:a"}, calls)
}
