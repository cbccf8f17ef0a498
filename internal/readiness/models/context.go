package models

import (
	dErrors "mirathi/pkg/domain-errors"
)

// Jurisdiction and priority thresholds, in Kenya shillings where monetary.
// The magistrate cap follows the pecuniary limit for chief magistrates under
// the Magistrates' Courts Act; the commercial threshold is the practice
// cutoff for routing business estates to the Commercial Division.
const (
	CommercialCourtValueKES  int64 = 50_000_000
	MagistrateValueCapKES    int64 = 20_000_000
	magistrateComplexityCap        = 3
	highComplexityFloor            = 7
	largeFamilyBeneficiaries       = 8
)

// SuccessionContextParams carries the raw facts for building a context.
type SuccessionContextParams struct {
	Regime             SuccessionRegime
	MarriageType       MarriageType
	Religion           Religion
	MinorsInvolved     bool
	DisputedAssets     bool
	EstateInsolvent    bool
	BusinessAssets     bool
	ForeignAssets      bool
	CharitableBequest  bool
	DisabledDependants bool
	ComplexityScore    int
	TotalBeneficiaries int
	EstateValueKES     *int64
}

// SuccessionContext is the legal lens of a case: which regime governs it,
// which court hears it, and which statutes apply. Immutable once constructed;
// updates replace the whole value.
type SuccessionContext struct {
	Regime             SuccessionRegime
	MarriageType       MarriageType
	Religion           Religion
	MinorsInvolved     bool
	DisputedAssets     bool
	EstateInsolvent    bool
	BusinessAssets     bool
	ForeignAssets      bool
	CharitableBequest  bool
	DisabledDependants bool
	ComplexityScore    int
	TotalBeneficiaries int
	EstateValueKES     *int64
}

// NewSuccessionContext validates and builds a succession context.
func NewSuccessionContext(p SuccessionContextParams) (SuccessionContext, error) {
	ctx := SuccessionContext{
		Regime:             p.Regime,
		MarriageType:       p.MarriageType,
		Religion:           p.Religion,
		MinorsInvolved:     p.MinorsInvolved,
		DisputedAssets:     p.DisputedAssets,
		EstateInsolvent:    p.EstateInsolvent,
		BusinessAssets:     p.BusinessAssets,
		ForeignAssets:      p.ForeignAssets,
		CharitableBequest:  p.CharitableBequest,
		DisabledDependants: p.DisabledDependants,
		ComplexityScore:    p.ComplexityScore,
		TotalBeneficiaries: p.TotalBeneficiaries,
	}
	if p.EstateValueKES != nil {
		v := *p.EstateValueKES
		ctx.EstateValueKES = &v
	}
	if err := ctx.validate(); err != nil {
		return SuccessionContext{}, err
	}
	return ctx, nil
}

// validate holds the invariants shared by the constructor and the
// persistence loader.
func (c SuccessionContext) validate() error {
	if !c.Regime.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown succession regime: "+string(c.Regime))
	}
	if !c.MarriageType.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown marriage type: "+string(c.MarriageType))
	}
	if !c.Religion.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown religion classification: "+string(c.Religion))
	}
	if c.Regime == RegimeCustomary && c.Religion != ReligionAfricanCustomary {
		return dErrors.New(dErrors.CodeInvariantViolation, "customary succession requires african customary religion classification")
	}
	if c.Religion == ReligionHindu && c.MarriageType == MarriagePolygamous {
		return dErrors.New(dErrors.CodeInvariantViolation, "hindu succession law does not recognize polygamous marriage")
	}
	if c.ComplexityScore < 1 || c.ComplexityScore > 10 {
		return dErrors.New(dErrors.CodeInvalidInput, "complexity score must be between 1 and 10")
	}
	if c.TotalBeneficiaries < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "an estate must have at least one beneficiary")
	}
	if c.EstateValueKES != nil && *c.EstateValueKES < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "estate value cannot be negative")
	}
	return nil
}

// CourtJurisdiction derives the filing court. Ordered decision list, first
// match wins; religious carve-outs take precedence over value-based routing.
func (c SuccessionContext) CourtJurisdiction() CourtJurisdiction {
	switch {
	case c.Religion == ReligionIslamic:
		return CourtKadhis
	case c.Religion == ReligionHindu:
		return CourtHigh
	case c.Religion == ReligionAfricanCustomary:
		return CourtCustomary
	case c.BusinessAssets && c.EstateValueKES != nil && *c.EstateValueKES > CommercialCourtValueKES:
		return CourtCommercial
	case c.MinorsInvolved || c.DisputedAssets:
		return CourtFamilyDivision
	case c.withinMagistrateJurisdiction():
		return CourtMagistrate
	default:
		return CourtHigh
	}
}

func (c SuccessionContext) withinMagistrateJurisdiction() bool {
	return c.EstateValueKES != nil &&
		*c.EstateValueKES <= MagistrateValueCapKES &&
		c.ComplexityScore <= magistrateComplexityCap &&
		!c.MinorsInvolved &&
		!c.DisputedAssets
}

// CasePriority derives how urgently the case needs attention. Ordered rules,
// first match wins.
func (c SuccessionContext) CasePriority() CasePriority {
	switch {
	case c.MinorsInvolved && c.EstateInsolvent:
		return PriorityUrgent
	case c.DisputedAssets && c.ComplexityScore >= highComplexityFloor:
		return PriorityUrgent
	case c.MinorsInvolved || c.DisabledDependants:
		return PriorityHigh
	case c.ComplexityScore >= highComplexityFloor:
		return PriorityHigh
	case c.Regime == RegimeIntestate && c.TotalBeneficiaries >= largeFamilyBeneficiaries:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

// ApplicableRegimes lists the statutes governing the case, most specific
// first. Islamic estates fall outside the Law of Succession Act entirely.
func (c SuccessionContext) ApplicableRegimes() []LegalRegime {
	var regimes []LegalRegime
	switch {
	case c.Religion == ReligionIslamic:
		regimes = append(regimes, RegimeIslamicLaw)
	case c.Regime == RegimeCustomary || c.Religion == ReligionAfricanCustomary:
		regimes = append(regimes, RegimeCustomaryLaw, RegimeLawOfSuccessionAct)
	default:
		regimes = append(regimes, RegimeLawOfSuccessionAct)
	}
	if c.MinorsInvolved || c.DisabledDependants {
		regimes = append(regimes, RegimeChildrenAct)
	}
	if c.MarriageType == MarriageMonogamous || c.MarriageType == MarriagePolygamous {
		regimes = append(regimes, RegimeMarriageAct)
	}
	if c.EstateInsolvent {
		regimes = append(regimes, RegimeInsolvencyAct)
	}
	return regimes
}

// Equal reports whether two contexts carry identical facts. Used by context
// updates to detect no-ops.
func (c SuccessionContext) Equal(other SuccessionContext) bool {
	if c.Regime != other.Regime ||
		c.MarriageType != other.MarriageType ||
		c.Religion != other.Religion ||
		c.MinorsInvolved != other.MinorsInvolved ||
		c.DisputedAssets != other.DisputedAssets ||
		c.EstateInsolvent != other.EstateInsolvent ||
		c.BusinessAssets != other.BusinessAssets ||
		c.ForeignAssets != other.ForeignAssets ||
		c.CharitableBequest != other.CharitableBequest ||
		c.DisabledDependants != other.DisabledDependants ||
		c.ComplexityScore != other.ComplexityScore ||
		c.TotalBeneficiaries != other.TotalBeneficiaries {
		return false
	}
	if (c.EstateValueKES == nil) != (other.EstateValueKES == nil) {
		return false
	}
	if c.EstateValueKES != nil && *c.EstateValueKES != *other.EstateValueKES {
		return false
	}
	return true
}

// clone returns a structurally independent copy.
func (c SuccessionContext) clone() SuccessionContext {
	out := c
	if c.EstateValueKES != nil {
		v := *c.EstateValueKES
		out.EstateValueKES = &v
	}
	return out
}

// Params converts the context back into constructor params, so callers can
// change one fact and rebuild through validation.
func (c SuccessionContext) Params() SuccessionContextParams {
	p := SuccessionContextParams{
		Regime:             c.Regime,
		MarriageType:       c.MarriageType,
		Religion:           c.Religion,
		MinorsInvolved:     c.MinorsInvolved,
		DisputedAssets:     c.DisputedAssets,
		EstateInsolvent:    c.EstateInsolvent,
		BusinessAssets:     c.BusinessAssets,
		ForeignAssets:      c.ForeignAssets,
		CharitableBequest:  c.CharitableBequest,
		DisabledDependants: c.DisabledDependants,
		ComplexityScore:    c.ComplexityScore,
		TotalBeneficiaries: c.TotalBeneficiaries,
	}
	if c.EstateValueKES != nil {
		v := *c.EstateValueKES
		p.EstateValueKES = &v
	}
	return p
}
