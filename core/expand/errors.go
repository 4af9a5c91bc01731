package expand

import "fmt"

// BadSubstitution is returned for malformed parameter expansions and
// redirections that don't expand to exactly one file.
type BadSubstitution struct {
	Text   string
	Reason string
}

func (e *BadSubstitution) Error() string {
	return fmt.Sprintf("%s: %s", e.Text, e.Reason)
}

// EventNotFound is returned when a history event doesn't match an entry.
type EventNotFound struct {
	Event string
}

func (e *EventNotFound) Error() string {
	return fmt.Sprintf("%s: event not found", e.Event)
}
