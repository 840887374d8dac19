// Package middleware implements the before/after interceptor stack that
// wraps a Runtime's dispatch (spec.md §4.4, §9: "middleware wraps the whole
// dispatch, cross-cutting, can reject"), grounded on original_source's
// crates/core/src/middleware.rs Middleware trait and MiddlewareStack type.
package middleware

import "github.com/docweave/docweave/state"

// Middleware intercepts dispatch. BeforeDispatch runs in stack order before
// a transaction reaches primary apply; an error aborts the whole dispatch.
// AfterDispatch runs in reverse stack order once the new State exists; it
// may propose one additional transaction to be dispatched recursively
// under the same guard (spec.md §4.4 point 4).
type Middleware interface {
	BeforeDispatch(tr *state.Transaction) error
	AfterDispatch(newState *state.State, applied []*state.Transaction) (*state.Transaction, error)
}

// Stack holds an ordered list of Middleware, mirroring original_source's
// MiddlewareStack.
type Stack struct {
	items []Middleware
}

// NewStack returns an empty Stack.
func NewStack() *Stack {
	return &Stack{}
}

// Add appends m to the end of the stack.
func (s *Stack) Add(m Middleware) {
	s.items = append(s.items, m)
}

// Len reports how many middleware are installed.
func (s *Stack) Len() int { return len(s.items) }

// RunBefore runs BeforeDispatch across every middleware in stack order,
// stopping at the first error (spec.md §4.4 point 2).
func (s *Stack) RunBefore(tr *state.Transaction) error {
	for _, m := range s.items {
		if err := m.BeforeDispatch(tr); err != nil {
			return err
		}
	}
	return nil
}

// RunAfter runs AfterDispatch across every middleware in reverse stack
// order (spec.md §4.4 point 4). It returns the first additional
// transaction any middleware proposes; once one is found, remaining
// middleware still run (each still observes the same newState/applied) but
// their own proposals are discarded; spec.md describes exactly one
// recursive re-dispatch per dispatch round, not one per middleware.
func (s *Stack) RunAfter(newState *state.State, applied []*state.Transaction) (*state.Transaction, error) {
	var proposed *state.Transaction
	for i := len(s.items) - 1; i >= 0; i-- {
		tr, err := s.items[i].AfterDispatch(newState, applied)
		if err != nil {
			return nil, err
		}
		if tr != nil && proposed == nil {
			proposed = tr
		}
	}
	return proposed, nil
}
