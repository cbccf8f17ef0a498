package e2e

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// RegisterSteps binds every step definition to the scenario's test context.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Step(`^the readiness service is running$`, tc.serviceIsRunning)

	// Assessment setup
	ctx.Step(`^a readiness assessment for an intestate monogamous estate$`, tc.createDefaultAssessment)
	ctx.Step(`^I open a second assessment for the same estate$`, tc.createSecondAssessment)

	// Risk mutation
	ctx.Step(`^I flag a "([^"]*)" "([^"]*)" risk resolvable by "([^"]*)"$`, tc.flagRiskResolvableBy)
	ctx.Step(`^I flag a "([^"]*)" "([^"]*)" risk$`, tc.flagRisk)
	ctx.Step(`^a flagged "([^"]*)" "([^"]*)" risk$`, tc.flagRiskChecked)
	ctx.Step(`^I flag the same risk again$`, tc.flagSameRiskAgain)
	ctx.Step(`^I resolve the "([^"]*)" risk as "([^"]*)" by "([^"]*)"$`, tc.resolveRisk)
	ctx.Step(`^I reopen the "([^"]*)" risk citing "([^"]*)"$`, tc.reopenRisk)

	// Context and completion
	ctx.Step(`^the estate's religion changes to "([^"]*)"$`, tc.changeReligion)
	ctx.Step(`^minors become involved in the estate$`, tc.minorsBecomeInvolved)
	ctx.Step(`^I resubmit the estate's current context$`, tc.resubmitContext)
	ctx.Step(`^I mark the assessment complete$`, tc.markComplete)

	// Assertions
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the filing score should be (\d+)$`, tc.filingScoreShouldBe)
	ctx.Step(`^the filing status should be "([^"]*)"$`, tc.filingStatusShouldBe)
	ctx.Step(`^the court jurisdiction should be "([^"]*)"$`, tc.courtJurisdictionShouldBe)
	ctx.Step(`^the case priority should be "([^"]*)"$`, tc.casePriorityShouldBe)
	ctx.Step(`^the assessment should list (\d+) blocking issues?$`, tc.blockingIssueCountShouldBe)
	ctx.Step(`^the assessment should be complete$`, tc.assessmentShouldBeComplete)
	ctx.Step(`^the assessment version should be unchanged$`, tc.versionShouldBeUnchanged)
}

func (tc *TestContext) serviceIsRunning(context.Context) error {
	if tc.Server == nil {
		return fmt.Errorf("test server not started")
	}
	return nil
}

func (tc *TestContext) createDefaultAssessment(context.Context) error {
	tc.EstateID = newEstateID()
	tc.Context = defaultContext()

	if err := tc.POST("/api/v1/assessments", map[string]any{
		"estate_id": tc.EstateID,
		"context":   tc.Context,
	}); err != nil {
		return err
	}
	if tc.LastStatus != http.StatusCreated {
		return fmt.Errorf("create assessment: status %d: %s", tc.LastStatus, tc.LastResponseBody)
	}

	rawID, err := tc.ResponseField("id")
	if err != nil {
		return err
	}
	assessmentID, ok := rawID.(string)
	if !ok || assessmentID == "" {
		return fmt.Errorf("create assessment: missing id in response")
	}
	tc.AssessmentID = assessmentID

	rawVersion, err := tc.ResponseField("version")
	if err != nil {
		return err
	}
	version, ok := rawVersion.(float64)
	if !ok {
		return fmt.Errorf("create assessment: missing version in response")
	}
	tc.LastVersion = version
	return nil
}

func (tc *TestContext) createSecondAssessment(context.Context) error {
	return tc.POST("/api/v1/assessments", map[string]any{
		"estate_id": tc.EstateID,
		"context":   defaultContext(),
	})
}

// riskPayload builds a deterministic detection so that repeating a category
// reproduces the same fingerprint.
func (tc *TestContext) riskPayload(severity, category string, resolutionEvents []string) map[string]any {
	payload := map[string]any{
		"severity":          severity,
		"category":          category,
		"description":       fmt.Sprintf("%s detected during case intake", category),
		"detection_rule_id": category + "-rule",
		"impact_score":      5,
		"source": map[string]any{
			"source_type":      "compliance_engine",
			"entity_id":        tc.EstateID,
			"entity_type":      "estate",
			"detection_method": "intake-scan",
		},
		"affected_entity_ids": []string{tc.EstateID},
	}
	if len(resolutionEvents) > 0 {
		payload["expected_resolution_events"] = resolutionEvents
	}
	return payload
}

func (tc *TestContext) flagRiskWith(severity, category string, resolutionEvents []string) error {
	payload := tc.riskPayload(severity, category, resolutionEvents)
	if err := tc.POST("/api/v1/assessments/"+tc.AssessmentID+"/risks", payload); err != nil {
		return err
	}
	tc.RiskPayloads[category] = payload
	if tc.LastStatus == http.StatusCreated {
		rawID, err := tc.ResponseField("id")
		if err != nil {
			return err
		}
		if riskID, ok := rawID.(string); ok {
			tc.RiskIDs[category] = riskID
		}
	}
	return nil
}

func (tc *TestContext) flagRisk(ctx context.Context, severity, category string) error {
	return tc.flagRiskWith(severity, category, nil)
}

func (tc *TestContext) flagRiskResolvableBy(ctx context.Context, severity, category, eventType string) error {
	return tc.flagRiskWith(severity, category, []string{eventType})
}

// flagRiskChecked is the Given form: the flag must be accepted.
func (tc *TestContext) flagRiskChecked(ctx context.Context, severity, category string) error {
	if err := tc.flagRiskWith(severity, category, nil); err != nil {
		return err
	}
	if tc.LastStatus != http.StatusCreated {
		return fmt.Errorf("flag %s risk: status %d: %s", category, tc.LastStatus, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) flagSameRiskAgain(context.Context) error {
	for _, payload := range tc.RiskPayloads {
		return tc.POST("/api/v1/assessments/"+tc.AssessmentID+"/risks", payload)
	}
	return fmt.Errorf("no risk flagged yet")
}

func (tc *TestContext) resolveRisk(ctx context.Context, category, method, resolvedBy string) error {
	riskID, ok := tc.RiskIDs[category]
	if !ok {
		return fmt.Errorf("no %s risk was flagged", category)
	}
	return tc.POST("/api/v1/assessments/"+tc.AssessmentID+"/risks/"+riskID+"/resolve", map[string]any{
		"method":      method,
		"resolved_by": resolvedBy,
	})
}

func (tc *TestContext) reopenRisk(ctx context.Context, category, reason string) error {
	riskID, ok := tc.RiskIDs[category]
	if !ok {
		return fmt.Errorf("no %s risk was flagged", category)
	}
	return tc.POST("/api/v1/assessments/"+tc.AssessmentID+"/risks/"+riskID+"/reopen", map[string]any{
		"reason": reason,
	})
}

func (tc *TestContext) updateContext() error {
	return tc.PUT("/api/v1/assessments/"+tc.AssessmentID+"/context", map[string]any{
		"context": tc.Context,
	})
}

func (tc *TestContext) changeReligion(ctx context.Context, religion string) error {
	tc.Context["religion"] = religion
	return tc.updateContext()
}

func (tc *TestContext) minorsBecomeInvolved(context.Context) error {
	tc.Context["minors_involved"] = true
	return tc.updateContext()
}

func (tc *TestContext) resubmitContext(context.Context) error {
	return tc.updateContext()
}

func (tc *TestContext) markComplete(context.Context) error {
	return tc.POST("/api/v1/assessments/"+tc.AssessmentID+"/complete", map[string]any{})
}

func (tc *TestContext) responseStatusShouldBe(ctx context.Context, expected int) error {
	if tc.LastStatus != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, tc.LastStatus, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) scoreField(field string) (any, error) {
	doc, err := tc.FetchAssessment()
	if err != nil {
		return nil, err
	}
	score, ok := doc["score"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("assessment has no score document")
	}
	value, ok := score[field]
	if !ok {
		return nil, fmt.Errorf("score has no %q field", field)
	}
	return value, nil
}

func (tc *TestContext) filingScoreShouldBe(ctx context.Context, expected int) error {
	raw, err := tc.scoreField("score")
	if err != nil {
		return err
	}
	if got := int(raw.(float64)); got != expected {
		return fmt.Errorf("expected filing score %d, got %d", expected, got)
	}
	return nil
}

func (tc *TestContext) filingStatusShouldBe(ctx context.Context, expected string) error {
	raw, err := tc.scoreField("status")
	if err != nil {
		return err
	}
	if got := raw.(string); got != expected {
		return fmt.Errorf("expected filing status %q, got %q", expected, got)
	}
	return nil
}

func (tc *TestContext) contextField(field string) (any, error) {
	doc, err := tc.FetchAssessment()
	if err != nil {
		return nil, err
	}
	caseContext, ok := doc["context"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("assessment has no context document")
	}
	value, ok := caseContext[field]
	if !ok {
		return nil, fmt.Errorf("context has no %q field", field)
	}
	return value, nil
}

func (tc *TestContext) courtJurisdictionShouldBe(ctx context.Context, expected string) error {
	raw, err := tc.contextField("court_jurisdiction")
	if err != nil {
		return err
	}
	if got := raw.(string); got != expected {
		return fmt.Errorf("expected court jurisdiction %q, got %q", expected, got)
	}
	return nil
}

func (tc *TestContext) casePriorityShouldBe(ctx context.Context, expected string) error {
	raw, err := tc.contextField("case_priority")
	if err != nil {
		return err
	}
	if got := raw.(string); got != expected {
		return fmt.Errorf("expected case priority %q, got %q", expected, got)
	}
	return nil
}

func (tc *TestContext) blockingIssueCountShouldBe(ctx context.Context, expected int) error {
	doc, err := tc.FetchAssessment()
	if err != nil {
		return err
	}
	issues, _ := doc["blocking_issues"].([]any)
	if len(issues) != expected {
		return fmt.Errorf("expected %d blocking issues, got %d: %v", expected, len(issues), issues)
	}
	return nil
}

func (tc *TestContext) assessmentShouldBeComplete(context.Context) error {
	doc, err := tc.FetchAssessment()
	if err != nil {
		return err
	}
	if complete, _ := doc["is_complete"].(bool); !complete {
		return fmt.Errorf("assessment is not complete")
	}
	return nil
}

func (tc *TestContext) versionShouldBeUnchanged(context.Context) error {
	doc, err := tc.FetchAssessment()
	if err != nil {
		return err
	}
	version, ok := doc["version"].(float64)
	if !ok {
		return fmt.Errorf("assessment has no version")
	}
	if version != tc.LastVersion {
		return fmt.Errorf("expected version %v, got %v", tc.LastVersion, version)
	}
	return nil
}
