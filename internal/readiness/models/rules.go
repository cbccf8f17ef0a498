package models

import (
	"time"

	"mirathi/pkg/domain"
)

// Inbound fact event names. External services emit these; risk flags list
// them as expected resolution events, and matching facts auto-resolve the
// flags.
const (
	FactAssetVerified            = "AssetVerified"
	FactGuardianAppointed        = "GuardianAppointed"
	FactDeathCertificateUploaded = "DeathCertificateUploaded"
	FactWillValidated            = "WillValidated"
	FactEstateValueUpdated       = "EstateValueUpdated"
)

// taxClearanceThresholdKES is the estate value above which the revenue
// authority expects a clearance before distribution.
const taxClearanceThresholdKES int64 = 5_000_000

// BaselineRisks evaluates the canonical compliance rules against a fresh
// case and returns the initial risk flags to seed the assessment with.
// Pure: same estate, context, and time always produce the same catalog.
func BaselineRisks(estateID domain.EstateID, ctx SuccessionContext, now time.Time) []RiskFlagParams {
	estate := estateID.String()
	src := func(basis string) RiskSource {
		return RiskSource{
			SourceType:       SourceComplianceEngine,
			SourceEntityID:   estate,
			SourceEntityType: "estate",
			DetectionMethod:  "baseline_context_scan",
			LegalBasis:       basis,
			DetectedAt:       now,
		}
	}

	var out []RiskFlagParams

	// Every filing starts with proof of death.
	out = append(out, RiskFlagParams{
		Severity:    SeverityCritical,
		Category:    RiskMissingDeathCertificate,
		Description: "No death certificate is on record for the deceased",
		Source:      src("Law of Succession Act (Cap 160) s.51; Births and Deaths Registration Act (Cap 149)"),
		LegalBasis:  "Law of Succession Act (Cap 160) s.51",
		MitigationSteps: []string{
			"Obtain a certified copy of the death certificate from the civil registry",
			"Upload the certificate for verification",
		},
		DocumentGap: &DocumentGap{
			Type:                  DocumentDeathCertificate,
			Severity:              SeverityCritical,
			Description:           "Certified death certificate of the deceased",
			LegalBasis:            "Law of Succession Act (Cap 160) s.51",
			ObtainingInstructions: "Apply at the civil registry office of the sub-county where the death was registered",
			EstimatedTimeDays:     14,
		},
		AffectedEntityIDs:        []string{estate},
		ExpectedResolutionEvents: []string{FactDeathCertificateUploaded},
		ImpactScore:              10,
		DetectionRuleID:          "baseline.missing_death_certificate",
	})

	if ctx.Regime == RegimeTestate || ctx.Regime == RegimePartiallyIntestate {
		out = append(out, RiskFlagParams{
			Severity:    SeverityCritical,
			Category:    RiskMissingWill,
			Description: "The original will has not been produced and validated",
			Source:      src("Law of Succession Act (Cap 160) ss.5-11"),
			LegalBasis:  "Law of Succession Act (Cap 160) ss.5-11",
			MitigationSteps: []string{
				"Locate and produce the original signed will",
				"Have the will validated against execution formalities",
			},
			DocumentGap: &DocumentGap{
				Type:                  DocumentOriginalWill,
				Severity:              SeverityCritical,
				Description:           "Original signed will of the deceased",
				LegalBasis:            "Law of Succession Act (Cap 160) s.11",
				ObtainingInstructions: "Retrieve from the deceased's advocate, bank, or personal records",
				EstimatedTimeDays:     21,
			},
			AffectedEntityIDs:        []string{estate},
			ExpectedResolutionEvents: []string{FactWillValidated},
			ImpactScore:              9,
			DetectionRuleID:          "baseline.missing_will",
		})
	}

	if ctx.Regime == RegimeIntestate || ctx.Regime == RegimeCustomary {
		out = append(out, RiskFlagParams{
			Severity:    SeverityMedium,
			Category:    RiskChiefLetterMissing,
			Description: "No letter from the area chief confirming the deceased's family is on record",
			Source:      src("Probate and Administration Rules, Form P&A 5"),
			LegalBasis:  "Probate and Administration Rules, Form P&A 5",
			MitigationSteps: []string{
				"Request a letter from the chief of the deceased's home area naming the survivors",
			},
			DocumentGap: &DocumentGap{
				Type:                  DocumentChiefsLetter,
				Severity:              SeverityMedium,
				Description:           "Chief's letter introducing the family and listing survivors",
				ObtainingInstructions: "Apply at the chief's office with the burial permit and identity documents",
				EstimatedTimeDays:     7,
				AlternativeOptions:    []string{"Sworn family affidavit accepted by some registries"},
				IsWaivable:            true,
			},
			AffectedEntityIDs: []string{estate},
			ImpactScore:       4,
			DetectionRuleID:   "baseline.chief_letter_missing",
		})
	}

	if ctx.MinorsInvolved {
		out = append(out, RiskFlagParams{
			Severity:    SeverityHigh,
			Category:    RiskMinorWithoutGuardian,
			Description: "Minor beneficiaries have no confirmed guardianship arrangement",
			Source:      src("Children Act, 2022; Law of Succession Act (Cap 160) s.41"),
			LegalBasis:  "Children Act, 2022",
			MitigationSteps: []string{
				"Identify every minor beneficiary and their current caregiver",
				"Apply for guardianship orders before confirmation of the grant",
			},
			DocumentGap: &DocumentGap{
				Type:                  DocumentGuardianshipOrder,
				Severity:              SeverityHigh,
				Description:           "Guardianship order for each minor beneficiary",
				LegalBasis:            "Children Act, 2022",
				ObtainingInstructions: "Petition the Children's Court in the minor's county of residence",
				EstimatedTimeDays:     45,
			},
			AffectedEntityIDs:        []string{estate},
			ExpectedResolutionEvents: []string{FactGuardianAppointed},
			ImpactScore:              8,
			DetectionRuleID:          "baseline.minor_without_guardian",
		})
	}

	if ctx.MarriageType == MarriagePolygamous && ctx.Religion != ReligionIslamic {
		out = append(out, RiskFlagParams{
			Severity:    SeverityHigh,
			Category:    RiskPolygamousHouseholdUnsettled,
			Description: "The houses of the polygamous household and their members are not yet established",
			Source:      src("Law of Succession Act (Cap 160) s.40; Marriage Act, 2014"),
			LegalBasis:  "Law of Succession Act (Cap 160) s.40",
			MitigationSteps: []string{
				"Document each house, its wife, and her children",
				"Collect marriage certificates or customary marriage evidence per house",
			},
			DocumentGap: &DocumentGap{
				Type:                  DocumentMarriageCertificate,
				Severity:              SeverityHigh,
				Description:           "Marriage certificate or customary marriage evidence per house",
				LegalBasis:            "Marriage Act, 2014",
				ObtainingInstructions: "Obtain from the registrar of marriages or through sworn customary evidence",
				EstimatedTimeDays:     30,
			},
			AffectedEntityIDs: []string{estate},
			ImpactScore:       7,
			DetectionRuleID:   "baseline.polygamous_household_unresolved",
		})
	} else if ctx.MarriageType == MarriageMonogamous {
		out = append(out, RiskFlagParams{
			Severity:    SeverityMedium,
			Category:    RiskMissingMarriageCertificate,
			Description: "The surviving spouse's marriage certificate is not on record",
			Source:      src("Marriage Act, 2014"),
			LegalBasis:  "Marriage Act, 2014",
			MitigationSteps: []string{
				"Obtain the marriage certificate from the registrar of marriages",
			},
			DocumentGap: &DocumentGap{
				Type:                  DocumentMarriageCertificate,
				Severity:              SeverityMedium,
				Description:           "Marriage certificate of the surviving spouse",
				LegalBasis:            "Marriage Act, 2014",
				ObtainingInstructions: "Request a certified copy from the registrar of marriages",
				EstimatedTimeDays:     10,
				AlternativeOptions:    []string{"Affidavit of marriage under customary law"},
				IsWaivable:            true,
			},
			AffectedEntityIDs: []string{estate},
			ImpactScore:       5,
			DetectionRuleID:   "baseline.missing_marriage_certificate",
		})
	}

	if ctx.EstateInsolvent {
		out = append(out, RiskFlagParams{
			Severity:    SeverityHigh,
			Category:    RiskEstateDebtExceedsAssets,
			Description: "Estate liabilities appear to exceed assets; creditor claims must be administered first",
			Source:      src("Insolvency Act, 2015"),
			LegalBasis:  "Insolvency Act, 2015",
			MitigationSteps: []string{
				"Compile a full statement of assets and liabilities",
				"Notify known creditors and administer claims before distribution",
			},
			AffectedEntityIDs: []string{estate},
			ImpactScore:       8,
			DetectionRuleID:   "baseline.estate_debt_exceeds_assets",
		})
	}

	if ctx.BusinessAssets {
		out = append(out, RiskFlagParams{
			Severity:    SeverityHigh,
			Category:    RiskBusinessValuationPending,
			Description: "Business interests in the estate have no current valuation",
			Source:      src("Probate and Administration Rules, asset disclosure"),
			LegalBasis:  "Probate and Administration Rules",
			MitigationSteps: []string{
				"Commission an independent valuation of each business interest",
			},
			DocumentGap: &DocumentGap{
				Type:                  DocumentAssetValuation,
				Severity:              SeverityHigh,
				Description:           "Independent valuation report for business interests",
				ObtainingInstructions: "Engage a registered valuer; file the report with the asset schedule",
				EstimatedTimeDays:     30,
			},
			AffectedEntityIDs: []string{estate},
			ImpactScore:       6,
			DetectionRuleID:   "baseline.business_valuation_pending",
		})
	}

	if ctx.EstateValueKES != nil && *ctx.EstateValueKES > taxClearanceThresholdKES {
		out = append(out, RiskFlagParams{
			Severity:    SeverityMedium,
			Category:    RiskTaxClearancePending,
			Description: "The estate's value requires a tax clearance before distribution",
			Source:      src("Tax Procedures Act, 2015"),
			LegalBasis:  "Tax Procedures Act, 2015",
			MitigationSteps: []string{
				"File the deceased's final returns and apply for clearance",
			},
			DocumentGap: &DocumentGap{
				Type:                  DocumentTaxClearance,
				Severity:              SeverityMedium,
				Description:           "Tax clearance certificate for the estate",
				LegalBasis:            "Tax Procedures Act, 2015",
				ObtainingInstructions: "Apply through the revenue authority's online portal under the estate's PIN",
				EstimatedTimeDays:     21,
			},
			AffectedEntityIDs: []string{estate},
			ImpactScore:       5,
			DetectionRuleID:   "baseline.tax_clearance_pending",
		})
	}

	if ctx.ForeignAssets {
		out = append(out, RiskFlagParams{
			Severity:    SeverityMedium,
			Category:    RiskForeignAssetCompliance,
			Description: "Assets situated outside the jurisdiction need resealing or ancillary grants",
			Source:      src("Law of Succession Act (Cap 160) s.4"),
			LegalBasis:  "Law of Succession Act (Cap 160) s.4",
			MitigationSteps: []string{
				"List every foreign asset and its jurisdiction",
				"Instruct counsel in each jurisdiction on resealing requirements",
			},
			AffectedEntityIDs: []string{estate},
			ImpactScore:       5,
			DetectionRuleID:   "baseline.foreign_asset_compliance",
		})
	}

	if ctx.DisputedAssets {
		out = append(out, RiskFlagParams{
			Severity:    SeverityHigh,
			Category:    RiskAssetOwnershipDispute,
			Description: "Ownership of one or more estate assets is contested",
			Source:      src("Law of Succession Act (Cap 160) s.47"),
			LegalBasis:  "Law of Succession Act (Cap 160) s.47",
			MitigationSteps: []string{
				"Identify the contested assets and the parties claiming them",
				"Pursue settlement or directions from the court before distribution",
			},
			AffectedEntityIDs:        []string{estate},
			ExpectedResolutionEvents: []string{FactAssetVerified},
			ImpactScore:              7,
			DetectionRuleID:          "baseline.asset_ownership_dispute",
		})
	}

	return out
}
