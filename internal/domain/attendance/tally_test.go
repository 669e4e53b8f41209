package attendance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack/internal/domain/shared"
)

func ev(id, subject string) Event {
	return Event{ID: id, StudentID: "s1", SubjectName: subject}
}

func TestAggregate_PreservesFirstSeenOrder(t *testing.T) {
	events := []Event{ev("e1", "Math"), ev("e2", "Art"), ev("e3", "Math")}

	tallies, err := Aggregate(events)
	require.NoError(t, err)

	assert.Equal(t, []string{"Math", "Art"}, tallies.Keys())

	math, ok := tallies.Get("Math")
	require.True(t, ok)
	assert.Equal(t, 2, math.Count)
	assert.Equal(t, []string{"e1", "e3"}, math.EventIDs)

	art, ok := tallies.Get("Art")
	require.True(t, ok)
	assert.Equal(t, 1, art.Count)
	assert.Equal(t, []string{"e2"}, art.EventIDs)
}

func TestAggregate_Empty(t *testing.T) {
	tallies, err := Aggregate(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, tallies.Len())
	assert.Empty(t, tallies.Keys())
	assert.Equal(t, 0, tallies.Total())
}

func TestAggregate_MissingSubject(t *testing.T) {
	events := []Event{ev("e1", "Math"), ev("e2", "")}

	tallies, err := Aggregate(events)
	assert.Nil(t, tallies)
	require.Error(t, err)

	var malformed *shared.MalformedRecordError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "e2", malformed.RecordID)
	assert.Equal(t, "class", malformed.Field)
	assert.True(t, errors.Is(err, shared.ErrMalformedRecord))
}

func TestAggregate_CountsMatchEvents(t *testing.T) {
	subjects := []string{"Math", "Art", "Math", "History", "Art", "Math", "PE"}
	events := make([]Event, 0, len(subjects))
	for i, s := range subjects {
		events = append(events, ev(string(rune('a'+i)), s))
	}

	tallies, err := Aggregate(events)
	require.NoError(t, err)

	assert.Equal(t, len(events), tallies.Total())
	for subject, tally := range tallies.All() {
		assert.Equal(t, subject, tally.Subject)
		assert.Len(t, tally.EventIDs, tally.Count)
	}
	assert.Equal(t, []string{"a", "c", "f", "b", "e", "d", "g"}, tallies.EventIDs())
}

func TestAggregate_AllStopsEarly(t *testing.T) {
	tallies, err := Aggregate([]Event{ev("1", "A"), ev("2", "B"), ev("3", "C")})
	require.NoError(t, err)

	var seen []string
	for subject := range tallies.All() {
		seen = append(seen, subject)
		if subject == "B" {
			break
		}
	}
	assert.Equal(t, []string{"A", "B"}, seen)
}

func TestTallies_GetReturnsCopy(t *testing.T) {
	tallies, err := Aggregate([]Event{ev("e1", "Math")})
	require.NoError(t, err)

	got, _ := tallies.Get("Math")
	got.EventIDs[0] = "mutated"

	again, _ := tallies.Get("Math")
	assert.Equal(t, "e1", again.EventIDs[0])
}

func TestAggregateByStudent(t *testing.T) {
	events := []Event{
		{ID: "e1", StudentID: "u1", StudentName: "Ana", SubjectName: "Math"},
		{ID: "e2", StudentID: "u2", StudentName: "Ben", SubjectName: "Math"},
		{ID: "e3", StudentID: "u1", StudentName: "Ana", SubjectName: "Math"},
	}

	tallies, err := AggregateByStudent(events)
	require.NoError(t, err)

	assert.Equal(t, []string{"u1", "u2"}, tallies.Keys())
	ana, _ := tallies.Get("u1")
	assert.Equal(t, "Ana", ana.Label)
	assert.Equal(t, 2, ana.Count)

	_, err = AggregateByStudent([]Event{{ID: "x", SubjectName: "Math"}})
	var malformed *shared.MalformedRecordError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "student", malformed.Field)
}

func TestTallies_ZeroValue(t *testing.T) {
	var tallies Tallies
	assert.Equal(t, 0, tallies.Len())
	_, ok := tallies.Get("x")
	assert.False(t, ok)
	tallies.add("x", "", "1")
	assert.Equal(t, 1, tallies.Len())
}
