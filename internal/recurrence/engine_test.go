package recurrence

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func endsOn(t time.Time) *time.Time {
	return &t
}

func TestEngine_Generate_NoneReturnsSeedOnly(t *testing.T) {
	t.Parallel()

	engine := NewEngine(0)
	seed := time.Date(2025, time.June, 7, 10, 30, 0, 0, time.FixedZone("CET", 3600))

	dates, err := engine.Generate(seed, Rule{Frequency: FrequencyNone})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dates) != 1 {
		t.Fatalf("expected exactly one date, got %d", len(dates))
	}
	if !dates[0].Equal(date(2025, time.June, 7)) {
		t.Fatalf("expected seed date at midnight UTC, got %v", dates[0])
	}
}

func TestEngine_Generate_Daily(t *testing.T) {
	t.Parallel()

	engine := NewEngine(0)
	seed := date(2025, time.June, 2)

	dates, err := engine.Generate(seed, Rule{
		Frequency: FrequencyDaily,
		Interval:  3,
		EndsOn:    endsOn(date(2025, time.June, 12)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Time{
		date(2025, time.June, 2),
		date(2025, time.June, 5),
		date(2025, time.June, 8),
		date(2025, time.June, 11),
	}
	assertDates(t, dates, want)
}

func TestEngine_Generate_WeeklySpansBound(t *testing.T) {
	t.Parallel()

	engine := NewEngine(0)
	seed := date(2025, time.June, 7) // Saturday

	dates, err := engine.Generate(seed, Rule{
		Frequency: FrequencyWeekly,
		Interval:  1,
		EndsOn:    endsOn(date(2025, time.June, 28)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Time{
		date(2025, time.June, 7),
		date(2025, time.June, 14),
		date(2025, time.June, 21),
		date(2025, time.June, 28),
	}
	assertDates(t, dates, want)

	for _, d := range dates {
		if d.Weekday() != time.Saturday {
			t.Fatalf("expected every date on a Saturday, got %v on %v", d, d.Weekday())
		}
	}
}

func TestEngine_Generate_MonthlyClampsToShortMonths(t *testing.T) {
	t.Parallel()

	engine := NewEngine(0)
	seed := date(2025, time.January, 31)

	dates, err := engine.Generate(seed, Rule{
		Frequency: FrequencyMonthlyByDate,
		Interval:  1,
		EndsOn:    endsOn(date(2025, time.April, 30)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Time{
		date(2025, time.January, 31),
		date(2025, time.February, 28),
		date(2025, time.March, 31),
		date(2025, time.April, 30),
	}
	assertDates(t, dates, want)
}

func TestEngine_Generate_MonthlyClampsInLeapYear(t *testing.T) {
	t.Parallel()

	engine := NewEngine(0)
	seed := date(2024, time.January, 31)

	dates, err := engine.Generate(seed, Rule{
		Frequency: FrequencyMonthlyByDate,
		Interval:  1,
		EndsOn:    endsOn(date(2024, time.February, 29)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Time{
		date(2024, time.January, 31),
		date(2024, time.February, 29),
	}
	assertDates(t, dates, want)
}

func TestEngine_Generate_MonthlyByWeekday_FirstAndLastSaturday(t *testing.T) {
	t.Parallel()

	engine := NewEngine(0)
	seed := date(2025, time.June, 1)

	dates, err := engine.Generate(seed, Rule{
		Frequency: FrequencyMonthlyByWeekday,
		Interval:  1,
		EndsOn:    endsOn(date(2025, time.July, 31)),
		Ordinals:  []Ordinal{OrdinalFirst, OrdinalLast},
		Weekdays:  []time.Weekday{time.Saturday},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Time{
		date(2025, time.June, 7),
		date(2025, time.June, 28),
		date(2025, time.July, 5),
		date(2025, time.July, 26),
	}
	assertDates(t, dates, want)
}

func TestEngine_Generate_MonthlyByWeekday_FourthAndLastCoincide(t *testing.T) {
	t.Parallel()

	// February 2025 holds exactly four Fridays, so the fourth and the last
	// Friday are the same date and must be emitted once.
	engine := NewEngine(0)
	seed := date(2025, time.February, 1)

	dates, err := engine.Generate(seed, Rule{
		Frequency: FrequencyMonthlyByWeekday,
		Interval:  1,
		EndsOn:    endsOn(date(2025, time.February, 28)),
		Ordinals:  []Ordinal{OrdinalFourth, OrdinalLast},
		Weekdays:  []time.Weekday{time.Friday},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Time{date(2025, time.February, 28)}
	assertDates(t, dates, want)
}

func TestEngine_Generate_MonthlyByWeekday_SkipsDatesBeforeSeed(t *testing.T) {
	t.Parallel()

	engine := NewEngine(0)
	seed := date(2025, time.June, 15)

	dates, err := engine.Generate(seed, Rule{
		Frequency: FrequencyMonthlyByWeekday,
		Interval:  1,
		EndsOn:    endsOn(date(2025, time.June, 30)),
		Ordinals:  []Ordinal{OrdinalFirst, OrdinalLast},
		Weekdays:  []time.Weekday{time.Saturday},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The first Saturday (June 7) precedes the seed and must not appear.
	want := []time.Time{date(2025, time.June, 28)}
	assertDates(t, dates, want)
}

func TestEngine_Generate_CapOverflowFailsWithoutPartialResult(t *testing.T) {
	t.Parallel()

	engine := NewEngine(10)
	seed := date(2025, time.January, 1)

	dates, err := engine.Generate(seed, Rule{
		Frequency: FrequencyDaily,
		Interval:  1,
		EndsOn:    endsOn(date(2025, time.December, 31)),
	})
	if !errors.Is(err, ErrTooManyOccurrences) {
		t.Fatalf("expected ErrTooManyOccurrences, got %v", err)
	}
	if dates != nil {
		t.Fatalf("expected no partial result, got %d dates", len(dates))
	}
}

func TestEngine_Generate_CapBoundaryIsInclusive(t *testing.T) {
	t.Parallel()

	engine := NewEngine(10)
	seed := date(2025, time.January, 1)

	dates, err := engine.Generate(seed, Rule{
		Frequency: FrequencyDaily,
		Interval:  1,
		EndsOn:    endsOn(date(2025, time.January, 10)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dates) != 10 {
		t.Fatalf("expected 10 dates at the cap, got %d", len(dates))
	}
}

func TestEngine_Generate_RuleValidation(t *testing.T) {
	t.Parallel()

	engine := NewEngine(0)
	seed := date(2025, time.June, 7)
	end := endsOn(date(2025, time.July, 7))

	cases := []struct {
		name string
		rule Rule
		want error
	}{
		{
			name: "missing end date",
			rule: Rule{Frequency: FrequencyWeekly, Interval: 1},
			want: ErrEndRequired,
		},
		{
			name: "end before seed",
			rule: Rule{Frequency: FrequencyWeekly, Interval: 1, EndsOn: endsOn(date(2025, time.May, 1))},
			want: ErrEndBeforeSeed,
		},
		{
			name: "zero interval",
			rule: Rule{Frequency: FrequencyDaily, Interval: 0, EndsOn: end},
			want: ErrInvalidInterval,
		},
		{
			name: "monthly by weekday without ordinals",
			rule: Rule{Frequency: FrequencyMonthlyByWeekday, Interval: 1, EndsOn: end, Weekdays: []time.Weekday{time.Monday}},
			want: ErrOrdinalsRequired,
		},
		{
			name: "monthly by weekday without weekdays",
			rule: Rule{Frequency: FrequencyMonthlyByWeekday, Interval: 1, EndsOn: end, Ordinals: []Ordinal{OrdinalFirst}},
			want: ErrWeekdaysRequired,
		},
		{
			name: "ordinal out of range",
			rule: Rule{Frequency: FrequencyMonthlyByWeekday, Interval: 1, EndsOn: end, Ordinals: []Ordinal{Ordinal(5)}, Weekdays: []time.Weekday{time.Monday}},
			want: ErrInvalidOrdinal,
		},
		{
			name: "unknown frequency",
			rule: Rule{Frequency: Frequency(99), Interval: 1, EndsOn: end},
			want: ErrInvalidFrequency,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := engine.Generate(seed, tc.rule); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func assertDates(t *testing.T, got, want []time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d dates, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("date %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}
