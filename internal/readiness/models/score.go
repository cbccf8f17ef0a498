package models

import "time"

// readyToFileThreshold is the minimum score at which a case may be filed.
const readyToFileThreshold = 80

// SeverityCounts tallies unresolved risks per severity.
type SeverityCounts struct {
	Critical int
	High     int
	Medium   int
	Low      int
}

// Total is the number of unresolved risks counted.
func (c SeverityCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low
}

// ReadinessScore is the derived 0-100 filing score. It is never hand-edited:
// the stored value is a cache of CalculateScore over the current unresolved
// risk counts, and invariant checks recompute and compare it.
type ReadinessScore struct {
	Score        int
	Status       ReadinessStatus
	Counts       SeverityCounts
	CalculatedAt time.Time
}

// CalculateScore implements gate-then-weight scoring:
//
//  1. Gate: any unresolved critical risk forces score 0 and status blocked,
//     regardless of everything else. A missing death certificate blocks
//     filing no matter how complete the rest of the case is.
//  2. Weights: otherwise 100 minus per-severity deductions, floored at 0.
//  3. Status: 80 or above is ready to file, below is in progress.
func CalculateScore(counts SeverityCounts, now time.Time) ReadinessScore {
	if counts.Critical > 0 {
		return ReadinessScore{
			Score:        0,
			Status:       StatusBlocked,
			Counts:       counts,
			CalculatedAt: now,
		}
	}

	score := 100 -
		counts.High*SeverityHigh.Deduction() -
		counts.Medium*SeverityMedium.Deduction() -
		counts.Low*SeverityLow.Deduction()
	if score < 0 {
		score = 0
	}

	status := StatusInProgress
	if score >= readyToFileThreshold {
		status = StatusReadyToFile
	}

	return ReadinessScore{
		Score:        score,
		Status:       status,
		Counts:       counts,
		CalculatedAt: now,
	}
}

// CanFile reports whether the case may proceed to filing.
func (s ReadinessScore) CanFile() bool {
	return s.Status == StatusReadyToFile
}
