package models

import "time"

// Severity classifies how strongly a risk flag impedes filing.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// IsValid reports whether s is a recognized severity.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Deduction is the score penalty per unresolved risk of this severity.
// Critical carries no deduction: a single critical risk gates the whole
// score to zero before weighted deductions apply.
func (s Severity) Deduction() int {
	switch s {
	case SeverityHigh:
		return 20
	case SeverityMedium:
		return 10
	case SeverityLow:
		return 5
	}
	return 0
}

// PriorityWeight orders risks for display; higher means more severe.
func (s Severity) PriorityWeight() int {
	switch s {
	case SeverityCritical:
		return 10
	case SeverityHigh:
		return 7
	case SeverityMedium:
		return 4
	case SeverityLow:
		return 2
	}
	return 0
}

// AutoResolveWindow is how long an active risk of this severity stays open
// before the timeout sweep may close it absent contrary action.
func (s Severity) AutoResolveWindow() time.Duration {
	const day = 24 * time.Hour
	switch s {
	case SeverityCritical:
		return 30 * day
	case SeverityHigh:
		return 60 * day
	case SeverityMedium:
		return 90 * day
	}
	return 180 * day
}

// RiskStatus is the lifecycle state of a risk flag.
type RiskStatus string

const (
	RiskStatusActive     RiskStatus = "active"
	RiskStatusResolved   RiskStatus = "resolved"
	RiskStatusSuperseded RiskStatus = "superseded"
	RiskStatusExpired    RiskStatus = "expired"
	RiskStatusDisputed   RiskStatus = "disputed"
)

// IsValid reports whether s is a recognized risk status.
func (s RiskStatus) IsValid() bool {
	switch s {
	case RiskStatusActive, RiskStatusResolved, RiskStatusSuperseded, RiskStatusExpired, RiskStatusDisputed:
		return true
	}
	return false
}

// Unresolved reports whether a risk in this status still counts against the
// readiness score. A disputed risk is contested, not cleared.
func (s RiskStatus) Unresolved() bool {
	return s == RiskStatusActive || s == RiskStatusDisputed
}

// RiskCategory is the closed taxonomy of legal issues the engine tracks.
type RiskCategory string

const (
	RiskMissingDeathCertificate      RiskCategory = "missing_death_certificate"
	RiskMissingWill                  RiskCategory = "missing_will"
	RiskWillValidityChallenge        RiskCategory = "will_validity_challenge"
	RiskUnverifiedAsset              RiskCategory = "unverified_asset"
	RiskAssetOwnershipDispute        RiskCategory = "asset_ownership_dispute"
	RiskMinorWithoutGuardian         RiskCategory = "minor_without_guardian"
	RiskMissingMarriageCertificate   RiskCategory = "missing_marriage_certificate"
	RiskPolygamousHouseholdUnsettled RiskCategory = "polygamous_household_unresolved"
	RiskUnresolvedDependantClaim     RiskCategory = "unresolved_dependant_claim"
	RiskEstateDebtExceedsAssets      RiskCategory = "estate_debt_exceeds_assets"
	RiskMissingBeneficiaryID         RiskCategory = "missing_beneficiary_id"
	RiskTaxClearancePending          RiskCategory = "tax_clearance_pending"
	RiskForeignAssetCompliance       RiskCategory = "foreign_asset_compliance"
	RiskBusinessValuationPending     RiskCategory = "business_valuation_pending"
	RiskChiefLetterMissing           RiskCategory = "chief_letter_missing"
	RiskCourtOrderRequired           RiskCategory = "court_order_required"
	RiskDocumentAuthenticity         RiskCategory = "document_authenticity"
	RiskLimitationPeriod             RiskCategory = "limitation_period"
)

// IsValid reports whether c is a recognized risk category.
func (c RiskCategory) IsValid() bool {
	switch c {
	case RiskMissingDeathCertificate, RiskMissingWill, RiskWillValidityChallenge,
		RiskUnverifiedAsset, RiskAssetOwnershipDispute, RiskMinorWithoutGuardian,
		RiskMissingMarriageCertificate, RiskPolygamousHouseholdUnsettled,
		RiskUnresolvedDependantClaim, RiskEstateDebtExceedsAssets,
		RiskMissingBeneficiaryID, RiskTaxClearancePending, RiskForeignAssetCompliance,
		RiskBusinessValuationPending, RiskChiefLetterMissing, RiskCourtOrderRequired,
		RiskDocumentAuthenticity, RiskLimitationPeriod:
		return true
	}
	return false
}

// DocumentType enumerates the document kinds a gap can reference.
type DocumentType string

const (
	DocumentDeathCertificate    DocumentType = "death_certificate"
	DocumentOriginalWill        DocumentType = "original_will"
	DocumentMarriageCertificate DocumentType = "marriage_certificate"
	DocumentBirthCertificate    DocumentType = "birth_certificate"
	DocumentNationalID          DocumentType = "national_id"
	DocumentTitleDeed           DocumentType = "title_deed"
	DocumentBankStatement       DocumentType = "bank_statement"
	DocumentAssetValuation      DocumentType = "asset_valuation"
	DocumentTaxClearance        DocumentType = "tax_clearance"
	DocumentChiefsLetter        DocumentType = "chiefs_letter"
	DocumentGuardianshipOrder   DocumentType = "guardianship_order"
	DocumentCourtOrder          DocumentType = "court_order"
	DocumentAffidavit           DocumentType = "affidavit"
)

// IsValid reports whether t is a recognized document type.
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentDeathCertificate, DocumentOriginalWill, DocumentMarriageCertificate,
		DocumentBirthCertificate, DocumentNationalID, DocumentTitleDeed,
		DocumentBankStatement, DocumentAssetValuation, DocumentTaxClearance,
		DocumentChiefsLetter, DocumentGuardianshipOrder, DocumentCourtOrder,
		DocumentAffidavit:
		return true
	}
	return false
}

// SourceType identifies which system or channel detected a risk.
type SourceType string

const (
	SourceFamilyService       SourceType = "family_service"
	SourceGuardianshipService SourceType = "guardianship_service"
	SourceEstateService       SourceType = "estate_service"
	SourceWillService         SourceType = "will_service"
	SourceDocumentService     SourceType = "document_service"
	SourceExternalRegistry    SourceType = "external_registry"
	SourceComplianceEngine    SourceType = "compliance_engine"
	SourceUserInput           SourceType = "user_input"
)

// IsValid reports whether t is a recognized source type.
func (t SourceType) IsValid() bool {
	switch t {
	case SourceFamilyService, SourceGuardianshipService, SourceEstateService,
		SourceWillService, SourceDocumentService, SourceExternalRegistry,
		SourceComplianceEngine, SourceUserInput:
		return true
	}
	return false
}

// ResolutionMethod records how a risk flag was closed.
type ResolutionMethod string

const (
	ResolutionManual        ResolutionMethod = "manual"
	ResolutionExternalEvent ResolutionMethod = "external_event"
	ResolutionTimeout       ResolutionMethod = "timeout"
	ResolutionWaived        ResolutionMethod = "waived"
	ResolutionSuperseded    ResolutionMethod = "superseded"
)

// IsValid reports whether m is a recognized resolution method.
func (m ResolutionMethod) IsValid() bool {
	switch m {
	case ResolutionManual, ResolutionExternalEvent, ResolutionTimeout,
		ResolutionWaived, ResolutionSuperseded:
		return true
	}
	return false
}

// SuccessionRegime is the legal basis for distributing the estate.
type SuccessionRegime string

const (
	RegimeTestate            SuccessionRegime = "testate"
	RegimeIntestate          SuccessionRegime = "intestate"
	RegimePartiallyIntestate SuccessionRegime = "partially_intestate"
	RegimeCustomary          SuccessionRegime = "customary"
)

// IsValid reports whether r is a recognized succession regime.
func (r SuccessionRegime) IsValid() bool {
	switch r {
	case RegimeTestate, RegimeIntestate, RegimePartiallyIntestate, RegimeCustomary:
		return true
	}
	return false
}

// MarriageType is the deceased's marital situation.
type MarriageType string

const (
	MarriageMonogamous   MarriageType = "monogamous"
	MarriagePolygamous   MarriageType = "polygamous"
	MarriageCohabitation MarriageType = "cohabitation"
	MarriageSingle       MarriageType = "single"
	MarriageSeparated    MarriageType = "separated"
)

// IsValid reports whether m is a recognized marriage type.
func (m MarriageType) IsValid() bool {
	switch m {
	case MarriageMonogamous, MarriagePolygamous, MarriageCohabitation,
		MarriageSingle, MarriageSeparated:
		return true
	}
	return false
}

// Religion determines which body of succession law governs the case.
type Religion string

const (
	ReligionStatutory        Religion = "statutory"
	ReligionIslamic          Religion = "islamic"
	ReligionHindu            Religion = "hindu"
	ReligionAfricanCustomary Religion = "african_customary"
	ReligionChristian        Religion = "christian"
)

// IsValid reports whether r is a recognized religion classification.
func (r Religion) IsValid() bool {
	switch r {
	case ReligionStatutory, ReligionIslamic, ReligionHindu,
		ReligionAfricanCustomary, ReligionChristian:
		return true
	}
	return false
}

// CourtJurisdiction is the court a case should be filed in.
type CourtJurisdiction string

const (
	CourtKadhis         CourtJurisdiction = "kadhis_court"
	CourtHigh           CourtJurisdiction = "high_court"
	CourtCustomary      CourtJurisdiction = "customary_court"
	CourtCommercial     CourtJurisdiction = "commercial_court"
	CourtFamilyDivision CourtJurisdiction = "family_division"
	CourtMagistrate     CourtJurisdiction = "magistrates_court"
)

// DisplayName is the court's human-readable name for generated text.
func (c CourtJurisdiction) DisplayName() string {
	switch c {
	case CourtKadhis:
		return "the Kadhi's Court"
	case CourtCustomary:
		return "the customary tribunal"
	case CourtCommercial:
		return "the High Court (Commercial Division)"
	case CourtFamilyDivision:
		return "the High Court (Family Division)"
	case CourtMagistrate:
		return "the Magistrate's Court"
	}
	return "the High Court"
}

// CasePriority ranks how urgently a case needs attention.
type CasePriority string

const (
	PriorityUrgent CasePriority = "urgent"
	PriorityHigh   CasePriority = "high"
	PriorityNormal CasePriority = "normal"
	PriorityLow    CasePriority = "low"
)

// LegalRegime names a statute or body of law applicable to the case.
type LegalRegime string

const (
	RegimeLawOfSuccessionAct LegalRegime = "law_of_succession_act"
	RegimeIslamicLaw         LegalRegime = "islamic_law"
	RegimeCustomaryLaw       LegalRegime = "customary_law"
	RegimeChildrenAct        LegalRegime = "children_act"
	RegimeMarriageAct        LegalRegime = "marriage_act"
	RegimeInsolvencyAct      LegalRegime = "insolvency_act"
)

// ReadinessStatus is the filing state derived from the score.
type ReadinessStatus string

const (
	StatusInProgress  ReadinessStatus = "in_progress"
	StatusReadyToFile ReadinessStatus = "ready_to_file"
	StatusBlocked     ReadinessStatus = "blocked"
)

// IsValid reports whether s is a recognized readiness status.
func (s ReadinessStatus) IsValid() bool {
	switch s {
	case StatusInProgress, StatusReadyToFile, StatusBlocked:
		return true
	}
	return false
}
