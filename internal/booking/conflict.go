package booking

import "time"

// CommitmentSource tags where an existing commitment originated. The tag is
// retained for messaging only; it never changes the conflict decision.
type CommitmentSource string

const (
	// SourceReservation marks a booking committed through this system.
	SourceReservation CommitmentSource = "reservation"
	// SourceExternalRental marks an entry from the external-rental ledger.
	SourceExternalRental CommitmentSource = "external_rental"
)

// Commitment is an already existing reservation supplied by the caller as a
// read-only snapshot. Cancelled or rejected entries must be filtered out
// before the snapshot reaches the detector.
type Commitment struct {
	SpaceID   string
	Date      time.Time
	StartHour int
	EndHour   int
	Source    CommitmentSource
}

// HoursOverlap reports whether the half-open hour intervals [s1,e1) and
// [s2,e2) intersect. Touching endpoints never conflict.
func HoursOverlap(s1, e1, s2, e2 int) bool {
	return s1 < e2 && e1 > s2
}

// Conflicts returns every commitment for the same space and date that
// overlaps the occurrence, regardless of source.
func Conflicts(spaceID string, occ Occurrence, commitments []Commitment) []Commitment {
	var conflicting []Commitment
	for _, commitment := range commitments {
		if commitment.SpaceID != spaceID || !commitment.Date.Equal(occ.Date) {
			continue
		}
		if HoursOverlap(occ.StartHour, occ.EndHour, commitment.StartHour, commitment.EndHour) {
			conflicting = append(conflicting, commitment)
		}
	}
	return conflicting
}

// Conflict pairs an occurrence with one existing commitment it overlaps.
type Conflict struct {
	SpaceID    string
	Occurrence Occurrence
	With       Commitment
}

// DetectConflicts checks the full cartesian product of spaces and
// occurrences against the commitment snapshot and returns every overlap
// found, not just the first, so the caller can report all problems in one
// pass.
func DetectConflicts(spaceIDs []string, occurrences []Occurrence, commitments []Commitment) []Conflict {
	var conflicts []Conflict
	for _, spaceID := range spaceIDs {
		for _, occ := range occurrences {
			for _, commitment := range Conflicts(spaceID, occ, commitments) {
				conflicts = append(conflicts, Conflict{
					SpaceID:    spaceID,
					Occurrence: occ,
					With:       commitment,
				})
			}
		}
	}
	return conflicts
}
