package health

import (
	"sort"
	"sync"
)

// Checker reports the current health of one component.
type Checker func() Status

// Monitor tracks the health of named components. Components either push a
// Status with Update or register a Checker that is polled on every Check.
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
	checkers map[string]Checker
}

// NewMonitor creates a new health monitor
func NewMonitor() *Monitor {
	return &Monitor{
		statuses: make(map[string]Status),
		checkers: make(map[string]Checker),
	}
}

// Register adds a checker polled on every Check. Registering the same name
// again replaces the previous checker.
func (m *Monitor) Register(name string, check Checker) {
	if check == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = check
	delete(m.statuses, name)
}

// Update records a pushed status for a named component
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	m.statuses[name] = status
	delete(m.checkers, name)
}

// Remove removes a component from monitoring
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.statuses, name)
	delete(m.checkers, name)
}

// Get returns the current status of one component.
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	check, ok := m.checkers[name]
	status, pushed := m.statuses[name]
	m.mu.RUnlock()

	if ok {
		s := check()
		s.Component = name
		return s, true
	}
	return status, pushed
}

// Check polls every checker and aggregates the results with pushed statuses.
// Checkers run outside the lock so they may take their own locks freely.
func (m *Monitor) Check(systemName string) Status {
	m.mu.RLock()
	subs := make([]Status, 0, len(m.statuses)+len(m.checkers))
	for _, s := range m.statuses {
		subs = append(subs, s)
	}
	checkers := make(map[string]Checker, len(m.checkers))
	for name, c := range m.checkers {
		checkers[name] = c
	}
	m.mu.RUnlock()

	for name, c := range checkers {
		s := c()
		s.Component = name
		subs = append(subs, s)
	}

	return Aggregate(systemName, subs)
}

// ListComponents returns the sorted names of all monitored components
func (m *Monitor) ListComponents() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.statuses)+len(m.checkers))
	for name := range m.statuses {
		names = append(names, name)
	}
	for name := range m.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of components being monitored
func (m *Monitor) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.statuses) + len(m.checkers)
}
