package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/facility-scheduler/internal/recurrence"
)

// ReasonKind enumerates why a batch request was rejected.
type ReasonKind string

const (
	// ReasonInvalidRequest marks missing or malformed required fields.
	ReasonInvalidRequest ReasonKind = "invalid_request"
	// ReasonDuplicateOccurrence marks two supplied occurrences colliding on
	// the same date and start hour.
	ReasonDuplicateOccurrence ReasonKind = "duplicate_occurrence"
	// ReasonTooManyOccurrences marks a rule exceeding the generation cap.
	ReasonTooManyOccurrences ReasonKind = "too_many_occurrences"
	// ReasonAvailabilityRejected marks occurrences outside configured windows.
	ReasonAvailabilityRejected ReasonKind = "availability_rejected"
	// ReasonConflictRejected marks occurrences overlapping existing commitments.
	ReasonConflictRejected ReasonKind = "conflict_rejected"
)

// maxDetailedOffences bounds how many offending dates a rejection message
// names before summarizing the remainder.
const maxDetailedOffences = 5

// Request is one batch reservation request: a primary seed occurrence, an
// optional recurrence rule expanding the primary, and optional one-off extra
// occurrences, all targeting one or more spaces.
type Request struct {
	SpaceIDs      []string
	Date          time.Time
	StartHour     int
	DurationHours int
	Rule          recurrence.Rule
	Extras        []OccurrenceInput
}

// Snapshot carries the read-only state the validator checks against: the
// availability window index and the commitment snapshot for the candidate
// date range, already filtered to live entries by the caller.
type Snapshot struct {
	Windows     *WindowIndex
	Commitments []Commitment
}

// Placement is one validated (space, occurrence) pair ready to persist.
type Placement struct {
	SpaceID    string
	Occurrence Occurrence
}

// Offence identifies one offending (space, date) pair in a rejection. Source
// is set for conflict rejections only.
type Offence struct {
	SpaceID   string
	Date      time.Time
	StartHour int
	Source    CommitmentSource
}

// Verdict is the validator's outcome: either an accepted list of placements
// or a rejection carrying a reason kind, a bounded human-readable detail
// message, and the complete offender list.
type Verdict struct {
	Accepted   bool
	Placements []Placement
	Reason     ReasonKind
	Detail     string
	Offending  []Offence
}

// Validator runs the batch validation pipeline. It performs no I/O and holds
// no mutable state; every call is a pure function of its inputs.
type Validator struct {
	engine *recurrence.Engine
}

// NewValidator constructs a validator around the provided recurrence engine.
// A nil engine falls back to the default occurrence cap.
func NewValidator(engine *recurrence.Engine) *Validator {
	if engine == nil {
		engine = recurrence.NewEngine(0)
	}
	return &Validator{engine: engine}
}

// Engine returns the recurrence engine the validator generates with.
func (v *Validator) Engine() *recurrence.Engine {
	return v.engine
}

// Validate runs the strict stage pipeline: preconditions, generation,
// assembly, window fit, then conflict detection. Each stage is exhaustive
// within itself but a rejection terminates the pipeline; no stage is skipped
// and there is no partial success.
//
// The verdict is advisory. The storage tier remains the authoritative
// arbiter at commit time, so a stale snapshot can only produce a late
// rejection there, never a double booking.
func (v *Validator) Validate(req Request, snap Snapshot) Verdict {
	if problems := v.checkPreconditions(req); len(problems) > 0 {
		return Verdict{
			Reason: ReasonInvalidRequest,
			Detail: strings.Join(problems, "; "),
		}
	}

	dates, err := v.engine.Generate(req.Date, req.Rule)
	if err != nil {
		if errors.Is(err, recurrence.ErrTooManyOccurrences) {
			return Verdict{
				Reason: ReasonTooManyOccurrences,
				Detail: fmt.Sprintf("the recurrence rule generates more than %d occurrences; shorten the range or widen the interval", v.engine.MaxOccurrences()),
			}
		}
		return Verdict{Reason: ReasonInvalidRequest, Detail: err.Error()}
	}

	primary := OccurrenceInput{
		Date:          req.Date,
		StartHour:     req.StartHour,
		DurationHours: req.DurationHours,
	}
	occurrences, err := Assemble(primary, req.Extras, dates)
	if err != nil {
		var dup *DuplicateOccurrenceError
		if errors.As(err, &dup) {
			return Verdict{
				Reason:    ReasonDuplicateOccurrence,
				Detail:    fmt.Sprintf("two occurrences were supplied for %s at %02d:00; remove one or change its time", dup.Date.Format("2006-01-02"), dup.StartHour),
				Offending: []Offence{{Date: dup.Date, StartHour: dup.StartHour}},
			}
		}
		return Verdict{Reason: ReasonInvalidRequest, Detail: err.Error()}
	}

	windows := snap.Windows
	if windows == nil {
		windows = NewWindowIndex(DefaultOpenHour, DefaultCloseHour)
	}
	if misfits := windows.Misfits(req.SpaceIDs, occurrences); len(misfits) > 0 {
		offences := make([]Offence, 0, len(misfits))
		for _, misfit := range misfits {
			offences = append(offences, Offence{
				SpaceID:   misfit.SpaceID,
				Date:      misfit.Occurrence.Date,
				StartHour: misfit.Occurrence.StartHour,
			})
		}
		return Verdict{
			Reason:    ReasonAvailabilityRejected,
			Detail:    "outside the space's availability: " + summarizeOffences(offences),
			Offending: offences,
		}
	}

	if conflicts := DetectConflicts(req.SpaceIDs, occurrences, snap.Commitments); len(conflicts) > 0 {
		offences := make([]Offence, 0, len(conflicts))
		internal, external := 0, 0
		for _, conflict := range conflicts {
			offences = append(offences, Offence{
				SpaceID:   conflict.SpaceID,
				Date:      conflict.Occurrence.Date,
				StartHour: conflict.Occurrence.StartHour,
				Source:    conflict.With.Source,
			})
			if conflict.With.Source == SourceExternalRental {
				external++
			} else {
				internal++
			}
		}
		return Verdict{
			Reason:    ReasonConflictRejected,
			Detail:    fmt.Sprintf("already booked (%s): %s", describeConflictSources(internal, external), summarizeOffences(offences)),
			Offending: offences,
		}
	}

	placements := make([]Placement, 0, len(req.SpaceIDs)*len(occurrences))
	for _, spaceID := range req.SpaceIDs {
		for _, occ := range occurrences {
			placements = append(placements, Placement{SpaceID: spaceID, Occurrence: occ})
		}
	}

	return Verdict{Accepted: true, Placements: placements}
}

func (v *Validator) checkPreconditions(req Request) []string {
	var problems []string

	if len(req.SpaceIDs) == 0 {
		problems = append(problems, "at least one space is required")
	}
	for _, spaceID := range req.SpaceIDs {
		if strings.TrimSpace(spaceID) == "" {
			problems = append(problems, "space ids must not be blank")
			break
		}
	}
	if req.Date.IsZero() {
		problems = append(problems, "seed date is required")
	}
	problems = append(problems, checkHours("primary", req.StartHour, req.DurationHours)...)

	for i, extra := range req.Extras {
		label := fmt.Sprintf("extra %d", i+1)
		if extra.Date.IsZero() {
			problems = append(problems, label+": date is required")
		}
		problems = append(problems, checkHours(label, extra.StartHour, extra.DurationHours)...)
	}

	if req.Rule.Frequency != recurrence.FrequencyNone {
		if req.Rule.Interval < 1 {
			problems = append(problems, "recurrence interval must be positive")
		}
		switch {
		case req.Rule.EndsOn == nil:
			problems = append(problems, "recurrence end date is required")
		case !req.Date.IsZero() && recurrence.DateOnly(*req.Rule.EndsOn).Before(recurrence.DateOnly(req.Date)):
			problems = append(problems, "recurrence end date precedes the seed date")
		}
		if req.Rule.Frequency == recurrence.FrequencyMonthlyByWeekday {
			if len(req.Rule.Ordinals) == 0 {
				problems = append(problems, "at least one ordinal is required for monthly-by-weekday rules")
			}
			if len(req.Rule.Weekdays) == 0 {
				problems = append(problems, "at least one weekday is required for monthly-by-weekday rules")
			}
		}
	}

	return problems
}

func checkHours(label string, startHour, durationHours int) []string {
	var problems []string
	if startHour < 0 || startHour > 23 {
		problems = append(problems, label+": start hour must be between 0 and 23")
	}
	if durationHours < 1 {
		problems = append(problems, label+": duration must be at least one hour")
	} else if startHour >= 0 && startHour+durationHours > 24 {
		problems = append(problems, label+": occurrence must end by midnight")
	}
	return problems
}

// summarizeOffences names up to maxDetailedOffences offending dates and
// summarizes the rest as a count, matching the "show a few, summarize the
// remainder" presentation contract.
func summarizeOffences(offences []Offence) string {
	ordered := make([]Offence, len(offences))
	copy(ordered, offences)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].SpaceID < ordered[j].SpaceID
		}
		return ordered[i].Date.Before(ordered[j].Date)
	})

	shown := len(ordered)
	if shown > maxDetailedOffences {
		shown = maxDetailedOffences
	}

	parts := make([]string, 0, shown+1)
	for _, offence := range ordered[:shown] {
		parts = append(parts, fmt.Sprintf("%s %02d:00 (%s)", offence.Date.Format("2006-01-02"), offence.StartHour, offence.SpaceID))
	}
	if remainder := len(ordered) - shown; remainder > 0 {
		parts = append(parts, fmt.Sprintf("and %d more", remainder))
	}
	return strings.Join(parts, ", ")
}

func describeConflictSources(internal, external int) string {
	switch {
	case internal > 0 && external > 0:
		return "existing reservations and external rentals"
	case external > 0:
		return "external rentals"
	default:
		return "existing reservations"
	}
}
