package models

import (
	"fmt"
	"strings"
)

// BuildStrategy generates the recommended filing strategy text from the
// case's legal lens, the current score, and the risks that matter most.
// Deterministic: the same inputs always produce the same text, so strategy
// change detection is a plain string comparison.
func BuildStrategy(ctx SuccessionContext, score ReadinessScore, blocking []*RiskFlag, top []*RiskFlag) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("File %s in %s.", grantText(ctx), ctx.CourtJurisdiction().DisplayName()))

	switch score.Status {
	case StatusBlocked:
		b.WriteString(fmt.Sprintf(" Filing is blocked by %d critical issue(s); resolve these before anything else:", len(blocking)))
		for _, r := range blocking {
			b.WriteString(fmt.Sprintf(" [%s] %s.", r.Category, r.Description))
		}
	case StatusReadyToFile:
		b.WriteString(fmt.Sprintf(" The case is ready to file at %d/100.", score.Score))
		if open := score.Counts.Total(); open > 0 {
			b.WriteString(fmt.Sprintf(" %d minor issue(s) remain and can be addressed during proceedings.", open))
		}
	default:
		b.WriteString(fmt.Sprintf(" Readiness is %d/100; clear the outstanding issues below before filing.", score.Score))
		for _, r := range top {
			b.WriteString(fmt.Sprintf(" [%s/%s] %s.", r.Severity, r.Category, r.Description))
		}
	}

	for _, line := range counselLines(ctx) {
		b.WriteString(" " + line)
	}

	return b.String()
}

func grantText(ctx SuccessionContext) string {
	switch ctx.Regime {
	case RegimeTestate:
		return "a petition for a grant of probate"
	case RegimeIntestate:
		return "a petition for letters of administration intestate"
	case RegimePartiallyIntestate:
		return "a petition for letters of administration with the will annexed"
	default:
		return "a confirmation of customary succession"
	}
}

// counselLines adds context-specific guidance. Order is fixed so the
// generated text stays stable across recalculations.
func counselLines(ctx SuccessionContext) []string {
	var lines []string
	if ctx.Religion == ReligionIslamic {
		lines = append(lines, "Distribution follows Islamic law; the Law of Succession Act does not apply to the devolution of the estate.")
	}
	if ctx.MarriageType == MarriagePolygamous {
		lines = append(lines, "Establish each house and its members before distribution; shares devolve per house under section 40.")
	}
	if ctx.MinorsInvolved {
		lines = append(lines, "Secure guardianship arrangements for minor beneficiaries before confirmation of the grant.")
	}
	if ctx.DisabledDependants {
		lines = append(lines, "Reasonable provision for dependants with disabilities must be addressed in the mode of distribution.")
	}
	if ctx.EstateInsolvent {
		lines = append(lines, "The estate appears insolvent; administer creditor claims under the Insolvency Act before any distribution.")
	}
	if ctx.ForeignAssets {
		lines = append(lines, "Foreign assets require resealing or ancillary grants in the jurisdictions where they are situated.")
	}
	if priority := ctx.CasePriority(); priority == PriorityUrgent {
		lines = append(lines, "Treat this case as urgent.")
	}
	return lines
}
