package booking

import (
	"fmt"
	"sort"
	"time"

	"github.com/example/facility-scheduler/internal/recurrence"
)

// Occurrence is one concrete candidate reservation instance: a calendar date
// plus a half-open [StartHour, EndHour) interval at whole-hour granularity.
type Occurrence struct {
	Date      time.Time
	StartHour int
	EndHour   int
}

// OccurrenceInput captures a caller supplied occurrence before assembly. End
// time is derived as StartHour + DurationHours.
type OccurrenceInput struct {
	Date          time.Time
	StartHour     int
	DurationHours int
}

func (in OccurrenceInput) occurrence() Occurrence {
	return Occurrence{
		Date:      recurrence.DateOnly(in.Date),
		StartHour: in.StartHour,
		EndHour:   in.StartHour + in.DurationHours,
	}
}

// DuplicateOccurrenceError reports two caller supplied occurrences resolving
// to the same date and start hour. The pair is rejected rather than merged
// because the two may carry different durations.
type DuplicateOccurrenceError struct {
	Date      time.Time
	StartHour int
}

// Error implements the error interface.
func (e *DuplicateOccurrenceError) Error() string {
	return fmt.Sprintf("booking: duplicate occurrence on %s at %02d:00", e.Date.Format("2006-01-02"), e.StartHour)
}

type occurrenceKey struct {
	date  time.Time
	start int
}

// Assemble merges the primary occurrence, the extra one-off occurrences, and
// the recurrence generated dates into one list ordered by date then start
// hour. Generated dates inherit the primary's start hour and duration.
//
// Deduplication key is (date, start hour): a generated date colliding with a
// caller supplied occurrence yields the caller's instance. Two caller
// supplied occurrences colliding on the key fail with
// DuplicateOccurrenceError since their durations may disagree.
func Assemble(primary OccurrenceInput, extras []OccurrenceInput, generated []time.Time) ([]Occurrence, error) {
	seen := make(map[occurrenceKey]struct{}, len(extras)+len(generated)+1)
	occurrences := make([]Occurrence, 0, len(extras)+len(generated)+1)

	supplied := make([]OccurrenceInput, 0, len(extras)+1)
	supplied = append(supplied, primary)
	supplied = append(supplied, extras...)

	for _, input := range supplied {
		occ := input.occurrence()
		key := occurrenceKey{date: occ.Date, start: occ.StartHour}
		if _, dup := seen[key]; dup {
			return nil, &DuplicateOccurrenceError{Date: occ.Date, StartHour: occ.StartHour}
		}
		seen[key] = struct{}{}
		occurrences = append(occurrences, occ)
	}

	for _, date := range generated {
		occ := OccurrenceInput{
			Date:          date,
			StartHour:     primary.StartHour,
			DurationHours: primary.DurationHours,
		}.occurrence()
		key := occurrenceKey{date: occ.Date, start: occ.StartHour}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		occurrences = append(occurrences, occ)
	}

	sort.Slice(occurrences, func(i, j int) bool {
		if occurrences[i].Date.Equal(occurrences[j].Date) {
			return occurrences[i].StartHour < occurrences[j].StartHour
		}
		return occurrences[i].Date.Before(occurrences[j].Date)
	})

	return occurrences, nil
}
