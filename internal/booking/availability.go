package booking

import "time"

// Default opening hours applied when a space has no configured windows for a
// weekday. Unconfigured availability means "business hours open", not
// "closed"; callers should surface this policy to end users.
const (
	DefaultOpenHour  = 8
	DefaultCloseHour = 22
)

// Window is a configured open interval for a space on a given weekday.
type Window struct {
	Weekday   time.Weekday
	StartHour int
	EndHour   int
}

// WindowIndex is a per-space, per-weekday lookup table of availability
// windows. Multiple windows per weekday are allowed and need not be
// contiguous.
type WindowIndex struct {
	windows   map[string]map[time.Weekday][]Window
	openHour  int
	closeHour int
}

// NewWindowIndex constructs an empty index using the provided fallback hours
// for unconfigured weekdays. Non-positive or inverted bounds fall back to the
// package defaults.
func NewWindowIndex(defaultOpenHour, defaultCloseHour int) *WindowIndex {
	if defaultOpenHour < 0 || defaultCloseHour <= defaultOpenHour || defaultCloseHour > 24 {
		defaultOpenHour = DefaultOpenHour
		defaultCloseHour = DefaultCloseHour
	}
	return &WindowIndex{
		windows:   make(map[string]map[time.Weekday][]Window),
		openHour:  defaultOpenHour,
		closeHour: defaultCloseHour,
	}
}

// Add registers an availability window for a space.
func (idx *WindowIndex) Add(spaceID string, window Window) {
	if idx == nil || spaceID == "" {
		return
	}
	byWeekday, ok := idx.windows[spaceID]
	if !ok {
		byWeekday = make(map[time.Weekday][]Window)
		idx.windows[spaceID] = byWeekday
	}
	byWeekday[window.Weekday] = append(byWeekday[window.Weekday], window)
}

// WindowsFor returns the configured windows for a space and weekday, or the
// default business-hours window when none are configured.
func (idx *WindowIndex) WindowsFor(spaceID string, weekday time.Weekday) []Window {
	if idx == nil {
		return []Window{{Weekday: weekday, StartHour: DefaultOpenHour, EndHour: DefaultCloseHour}}
	}
	if byWeekday, ok := idx.windows[spaceID]; ok {
		if configured := byWeekday[weekday]; len(configured) > 0 {
			out := make([]Window, len(configured))
			copy(out, configured)
			return out
		}
	}
	return []Window{{Weekday: weekday, StartHour: idx.openHour, EndHour: idx.closeHour}}
}

// Fits reports whether the occurrence lies entirely inside a single
// availability window for the space on the occurrence's weekday. An
// occurrence spanning two adjacent windows does not fit even when the
// windows are contiguous.
func (idx *WindowIndex) Fits(spaceID string, occ Occurrence) bool {
	for _, window := range idx.WindowsFor(spaceID, occ.Date.Weekday()) {
		if occ.StartHour >= window.StartHour && occ.EndHour <= window.EndHour {
			return true
		}
	}
	return false
}

// Misfit pairs a space with an occurrence that falls outside its windows.
type Misfit struct {
	SpaceID    string
	Occurrence Occurrence
}

// Misfits checks the full cartesian product of spaces and occurrences and
// returns every pair that does not fit, in input order.
func (idx *WindowIndex) Misfits(spaceIDs []string, occurrences []Occurrence) []Misfit {
	var misfits []Misfit
	for _, spaceID := range spaceIDs {
		for _, occ := range occurrences {
			if !idx.Fits(spaceID, occ) {
				misfits = append(misfits, Misfit{SpaceID: spaceID, Occurrence: occ})
			}
		}
	}
	return misfits
}
