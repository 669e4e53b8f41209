package attendance

import (
	"iter"

	"github.com/classtrack/classtrack/internal/domain/shared"
)

// SubjectTally is the count of events for one grouping key.
// Count always equals len(EventIDs).
type SubjectTally struct {
	Subject  string
	Count    int
	EventIDs []string

	// Label is a display name captured from the first event of the group.
	// Empty for subject tallies; the student name for per-student tallies.
	Label string
}

// Tallies is an insertion-ordered mapping from key to tally.
// The zero value is an empty, usable mapping.
type Tallies struct {
	order []string
	index map[string]*SubjectTally
}

// NewTallies returns an empty mapping.
func NewTallies() *Tallies {
	return &Tallies{index: make(map[string]*SubjectTally)}
}

func (t *Tallies) add(key, label, eventID string) {
	if t.index == nil {
		t.index = make(map[string]*SubjectTally)
	}
	if tally, ok := t.index[key]; ok {
		tally.Count++
		tally.EventIDs = append(tally.EventIDs, eventID)
		return
	}
	t.order = append(t.order, key)
	t.index[key] = &SubjectTally{
		Subject:  key,
		Count:    1,
		EventIDs: []string{eventID},
		Label:    label,
	}
}

// Keys returns the keys in first-seen order.
func (t *Tallies) Keys() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Get returns a copy of the tally for key.
func (t *Tallies) Get(key string) (SubjectTally, bool) {
	tally, ok := t.index[key]
	if !ok {
		return SubjectTally{}, false
	}
	return tally.clone(), true
}

// All iterates tallies in first-seen order.
func (t *Tallies) All() iter.Seq2[string, SubjectTally] {
	return func(yield func(string, SubjectTally) bool) {
		for _, key := range t.order {
			if !yield(key, t.index[key].clone()) {
				return
			}
		}
	}
}

// List returns the tallies in first-seen order.
func (t *Tallies) List() []SubjectTally {
	out := make([]SubjectTally, 0, len(t.order))
	for _, tally := range t.All() {
		out = append(out, tally)
	}
	return out
}

// Len returns the number of distinct keys.
func (t *Tallies) Len() int {
	return len(t.order)
}

// Total returns the sum of all counts. It equals the number of aggregated events.
func (t *Tallies) Total() int {
	total := 0
	for _, key := range t.order {
		total += t.index[key].Count
	}
	return total
}

// EventIDs flattens every tally's ids, key by key in first-seen order.
func (t *Tallies) EventIDs() []string {
	out := make([]string, 0, t.Total())
	for _, key := range t.order {
		out = append(out, t.index[key].EventIDs...)
	}
	return out
}

func (s *SubjectTally) clone() SubjectTally {
	c := *s
	c.EventIDs = append([]string(nil), s.EventIDs...)
	return c
}

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATION
// ══════════════════════════════════════════════════════════════════════════════

// KeyFunc extracts the grouping key and its display label from an event.
type KeyFunc func(Event) (key, label string)

// Aggregate groups events by subject name in a single pass. An event with
// an empty subject fails the whole run with *shared.MalformedRecordError.
func Aggregate(events []Event) (*Tallies, error) {
	return AggregateBy(events, "class", func(e Event) (string, string) {
		return e.SubjectName, ""
	})
}

// AggregateByStudent groups a class's events per student id, labelling each
// tally with the first-seen student name.
func AggregateByStudent(events []Event) (*Tallies, error) {
	return AggregateBy(events, "student", func(e Event) (string, string) {
		return e.StudentID, e.StudentName
	})
}

// AggregateBy groups events by the key returned from fn. field names the
// relation reported when the key is empty.
func AggregateBy(events []Event, field string, fn KeyFunc) (*Tallies, error) {
	tallies := NewTallies()
	for _, e := range events {
		key, label := fn(e)
		if key == "" {
			return nil, &shared.MalformedRecordError{RecordID: e.ID, Field: field}
		}
		tallies.add(key, label, e.ID)
	}
	return tallies, nil
}
