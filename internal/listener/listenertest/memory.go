// Package listenertest provides a Listener that captures notifications for
// tests.
package listenertest

import "sync"

// Event is one notification captured by Memory.
type Event struct {
	Kind           string
	Path           string
	Dependency     string
	Transformation string
	Parents        []string
}

// Event kinds.
const (
	KindInterpretedRecording = "interpreted-recording"
	KindMissingDependency    = "missing-dependency"
	KindUnknownFile          = "unknown-file"
)

// Memory keeps notifications in memory; callers inspect them with Events.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func (m *Memory) add(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *Memory) InterpretedRecording(new string, transformation string, parents []string) {
	m.add(Event{
		Kind:           KindInterpretedRecording,
		Path:           new,
		Transformation: transformation,
		Parents:        append([]string(nil), parents...),
	})
}

func (m *Memory) MissingDependencyForImage(dependency, path string) {
	m.add(Event{Kind: KindMissingDependency, Dependency: dependency, Path: path})
}

func (m *Memory) UnknownFile(path string) {
	m.add(Event{Kind: KindUnknownFile, Path: path})
}

// Events returns a copy of the captured notifications in arrival order.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}
