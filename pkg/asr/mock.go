package asr

import (
	"context"
	"sync"
)

// Mock is a scripted Engine for testing.
// Each Start plays the next Script: its stale fragments, begin, its
// fragments (the final one flagged last unless Unfinished) and end with
// its reason.
type Mock struct {
	mu sync.Mutex

	Scripts []Script

	LoginErr error
	StartErr error

	Logins  int
	Starts  int
	Stops   int
	Logouts int

	next int
}

// Script is one scripted session.
type Script struct {
	Fragments []string
	Reason    int

	// Stale fragments arrive before OnBegin.
	Stale []string

	// Unfinished leaves every fragment unflagged.
	Unfinished bool

	// Hang leaves the session open without calling OnEnd, for timeout tests.
	Hang bool
}

// NewMock creates a mock that plays the given transcripts as normal sessions.
func NewMock(transcripts ...string) *Mock {
	m := &Mock{}
	for _, t := range transcripts {
		m.Scripts = append(m.Scripts, Script{Fragments: []string{t}})
	}
	return m
}

// Login implements Engine.
func (m *Mock) Login(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logins++
	return m.LoginErr
}

// Start implements Engine.
func (m *Mock) Start(_ context.Context, n Notifier) error {
	m.mu.Lock()
	m.Starts++
	if m.StartErr != nil {
		m.mu.Unlock()
		return m.StartErr
	}
	var s Script
	if m.next < len(m.Scripts) {
		s = m.Scripts[m.next]
		m.next++
	}
	m.mu.Unlock()

	go func() {
		for _, f := range s.Stale {
			n.OnResult(f, false)
		}
		n.OnBegin()
		for i, f := range s.Fragments {
			n.OnResult(f, !s.Unfinished && i == len(s.Fragments)-1)
		}
		if !s.Hang {
			n.OnEnd(s.Reason)
		}
	}()
	return nil
}

// Stop implements Engine.
func (m *Mock) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stops++
	return nil
}

// Logout implements Engine.
func (m *Mock) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logouts++
	return nil
}

// Calls returns the lifecycle call counts.
func (m *Mock) Calls() (logins, starts, stops, logouts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Logins, m.Starts, m.Stops, m.Logouts
}
