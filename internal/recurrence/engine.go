package recurrence

import (
	"errors"
	"sort"
	"time"
)

// Frequency represents supported recurrence cadences.
type Frequency int

const (
	// FrequencyNone produces only the seed date.
	FrequencyNone Frequency = iota
	// FrequencyDaily advances by whole days.
	FrequencyDaily
	// FrequencyWeekly advances by whole weeks.
	FrequencyWeekly
	// FrequencyMonthlyByDate advances by calendar months, clamping the day
	// of month to the target month's final valid day.
	FrequencyMonthlyByDate
	// FrequencyMonthlyByWeekday selects ordinal weekdays (first Monday,
	// last Saturday, ...) within each stepped month.
	FrequencyMonthlyByWeekday
)

// Ordinal identifies which occurrence of a weekday within a month is selected.
type Ordinal int

const (
	// OrdinalLast resolves to the final matching weekday of the month
	// regardless of how many occurrences the month holds.
	OrdinalLast Ordinal = -1
	// OrdinalFirst through OrdinalFourth select the nth matching weekday.
	OrdinalFirst  Ordinal = 1
	OrdinalSecond Ordinal = 2
	OrdinalThird  Ordinal = 3
	OrdinalFourth Ordinal = 4
)

// Rule describes a recurrence configuration for a reservation request.
type Rule struct {
	Frequency Frequency
	// Interval is the step between generated dates in units of the
	// frequency's period. Must be positive for any frequency other than
	// FrequencyNone.
	Interval int
	// EndsOn is the inclusive upper bound for generation. Required unless
	// Frequency is FrequencyNone.
	EndsOn *time.Time
	// Ordinals and Weekdays apply to FrequencyMonthlyByWeekday only.
	Ordinals []Ordinal
	Weekdays []time.Weekday
}

// DefaultMaxOccurrences bounds worst-case generation work. The limit protects
// downstream batch validation and persistence from runaway rules.
const DefaultMaxOccurrences = 100

var (
	// ErrInvalidFrequency indicates the rule frequency is not supported.
	ErrInvalidFrequency = errors.New("recurrence: invalid frequency")
	// ErrInvalidInterval indicates the rule interval is zero or negative.
	ErrInvalidInterval = errors.New("recurrence: interval must be positive")
	// ErrEndRequired indicates a recurring rule lacks an end date.
	ErrEndRequired = errors.New("recurrence: recurring rule requires an end date")
	// ErrEndBeforeSeed indicates the end date precedes the seed date.
	ErrEndBeforeSeed = errors.New("recurrence: end date precedes seed date")
	// ErrOrdinalsRequired indicates a monthly-by-weekday rule selected no ordinals.
	ErrOrdinalsRequired = errors.New("recurrence: at least one ordinal is required")
	// ErrWeekdaysRequired indicates a monthly-by-weekday rule selected no weekdays.
	ErrWeekdaysRequired = errors.New("recurrence: at least one weekday is required")
	// ErrInvalidOrdinal indicates an ordinal outside first through fourth or last.
	ErrInvalidOrdinal = errors.New("recurrence: invalid ordinal")
	// ErrTooManyOccurrences indicates generation would exceed the occurrence cap.
	ErrTooManyOccurrences = errors.New("recurrence: rule generates too many occurrences")
)

// Engine expands a seed date and a rule into concrete calendar dates.
type Engine struct {
	maxOccurrences int
}

// NewEngine constructs an Engine with the provided occurrence cap. A cap of
// zero or less falls back to DefaultMaxOccurrences.
func NewEngine(maxOccurrences int) *Engine {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	return &Engine{maxOccurrences: maxOccurrences}
}

// MaxOccurrences reports the configured generation cap.
func (e *Engine) MaxOccurrences() int {
	if e == nil || e.maxOccurrences <= 0 {
		return DefaultMaxOccurrences
	}
	return e.maxOccurrences
}

// Generate expands the seed date according to the rule and returns the
// resulting dates in ascending order without duplicates. Every returned date
// is normalized to midnight UTC; time-of-day on the seed is ignored.
//
// Generation fails with ErrTooManyOccurrences once the configured cap would
// be exceeded, and never returns a partial list.
func (e *Engine) Generate(seed time.Time, rule Rule) ([]time.Time, error) {
	seedDate := DateOnly(seed)

	if rule.Frequency == FrequencyNone {
		return []time.Time{seedDate}, nil
	}

	if rule.Interval < 1 {
		return nil, ErrInvalidInterval
	}
	if rule.EndsOn == nil {
		return nil, ErrEndRequired
	}
	endDate := DateOnly(*rule.EndsOn)
	if endDate.Before(seedDate) {
		return nil, ErrEndBeforeSeed
	}

	switch rule.Frequency {
	case FrequencyDaily:
		return e.generateByDays(seedDate, endDate, rule.Interval)
	case FrequencyWeekly:
		return e.generateByDays(seedDate, endDate, rule.Interval*7)
	case FrequencyMonthlyByDate:
		return e.generateMonthlyByDate(seedDate, endDate, rule.Interval)
	case FrequencyMonthlyByWeekday:
		return e.generateMonthlyByWeekday(seedDate, endDate, rule)
	default:
		return nil, ErrInvalidFrequency
	}
}

func (e *Engine) generateByDays(seed, end time.Time, stepDays int) ([]time.Time, error) {
	dates := make([]time.Time, 0, 8)
	for current := seed; !current.After(end); current = current.AddDate(0, 0, stepDays) {
		if len(dates) >= e.MaxOccurrences() {
			return nil, ErrTooManyOccurrences
		}
		dates = append(dates, current)
	}
	return dates, nil
}

func (e *Engine) generateMonthlyByDate(seed, end time.Time, interval int) ([]time.Time, error) {
	dates := make([]time.Time, 0, 8)
	for step := 0; ; step++ {
		current := addMonthsClamped(seed, step*interval)
		if current.After(end) {
			break
		}
		if len(dates) >= e.MaxOccurrences() {
			return nil, ErrTooManyOccurrences
		}
		dates = append(dates, current)
	}
	return dates, nil
}

func (e *Engine) generateMonthlyByWeekday(seed, end time.Time, rule Rule) ([]time.Time, error) {
	if len(rule.Ordinals) == 0 {
		return nil, ErrOrdinalsRequired
	}
	if len(rule.Weekdays) == 0 {
		return nil, ErrWeekdaysRequired
	}
	for _, ordinal := range rule.Ordinals {
		if ordinal != OrdinalLast && (ordinal < OrdinalFirst || ordinal > OrdinalFourth) {
			return nil, ErrInvalidOrdinal
		}
	}

	anchor := time.Date(seed.Year(), seed.Month(), 1, 0, 0, 0, 0, time.UTC)
	seen := make(map[time.Time]struct{})
	dates := make([]time.Time, 0, 8)

	for step := 0; ; step++ {
		monthStart := anchor.AddDate(0, step*rule.Interval, 0)
		if monthStart.After(end) {
			break
		}

		for _, weekday := range rule.Weekdays {
			for _, ordinal := range rule.Ordinals {
				date, ok := ordinalWeekdayInMonth(monthStart, weekday, ordinal)
				if !ok {
					continue
				}
				if date.Before(seed) || date.After(end) {
					continue
				}
				if _, dup := seen[date]; dup {
					continue
				}
				if len(dates) >= e.MaxOccurrences() {
					return nil, ErrTooManyOccurrences
				}
				seen[date] = struct{}{}
				dates = append(dates, date)
			}
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// DateOnly truncates a timestamp to its calendar date at midnight UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// addMonthsClamped advances a date by whole months, clamping the day of month
// to the target month's last valid day. January 31 plus one month yields
// February 28 (29 in leap years) rather than rolling into March.
func addMonthsClamped(date time.Time, months int) time.Time {
	firstOfTarget := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	day := date.Day()
	if last := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}

// ordinalWeekdayInMonth resolves the nth (or last) occurrence of a weekday
// within the month containing monthStart. The boolean result reports whether
// the month holds that occurrence at all.
func ordinalWeekdayInMonth(monthStart time.Time, weekday time.Weekday, ordinal Ordinal) (time.Time, bool) {
	first := time.Date(monthStart.Year(), monthStart.Month(), 1, 0, 0, 0, 0, time.UTC)

	if ordinal == OrdinalLast {
		last := first.AddDate(0, 1, -1)
		offset := (int(last.Weekday()) - int(weekday) + 7) % 7
		return last.AddDate(0, 0, -offset), true
	}

	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	date := first.AddDate(0, 0, offset+7*(int(ordinal)-1))
	if date.Month() != first.Month() {
		return time.Time{}, false
	}
	return date, true
}
