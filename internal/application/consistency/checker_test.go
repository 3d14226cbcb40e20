package consistency

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-context-svc/internal/domain/entity"
)

type stubRule struct {
	name      string
	checkType entity.CheckType
	findings  []Finding
	err       error
	panics    bool
}

func (r *stubRule) Name() string { return r.name }

func (r *stubRule) CheckType() entity.CheckType { return r.checkType }

func (r *stubRule) Evaluate(_ context.Context, _ *CheckInput) ([]Finding, error) {
	if r.panics {
		panic("rule exploded")
	}
	return r.findings, r.err
}

func characterInput(text string) *CheckInput {
	return &CheckInput{ProjectID: "p1", Text: text}
}

func TestCheckerAggregatesFindings(t *testing.T) {
	checker := NewChecker(
		&stubRule{name: "a", checkType: entity.CheckTypeCharacter, findings: []Finding{
			{Kind: "unknown_speaker", Severity: entity.SeverityLow, Description: "x"},
		}},
		&stubRule{name: "b", checkType: entity.CheckTypeCharacter, findings: []Finding{
			{Kind: "character_ooc", Severity: entity.SeverityHigh, Description: "y", CharacterName: "林远"},
		}},
	)

	check := checker.Run(context.Background(), characterInput("正文"), entity.CheckTypeCharacter)

	require.Len(t, check.Issues, 2)
	assert.Equal(t, "p1", check.ProjectID)
	assert.Equal(t, entity.CheckTypeCharacter, check.CheckType)
	assert.Equal(t, "正文", check.Content)
	assert.InDelta(t, 0.75, check.OverallScore, 1e-9)
	assert.Equal(t, "林远", check.Issues[1].CharacterName)
}

func TestCheckerRunsOnlyMatchingType(t *testing.T) {
	plotRule := &stubRule{name: "plot", checkType: entity.CheckTypePlot, findings: []Finding{
		{Kind: "timeline_jump", Severity: entity.SeverityMedium},
	}}
	checker := NewChecker(plotRule)

	check := checker.Run(context.Background(), characterInput("正文"), entity.CheckTypeCharacter)
	assert.Empty(t, check.Issues)
	assert.Equal(t, 1.0, check.OverallScore)

	check = checker.Run(context.Background(), characterInput("正文"), entity.CheckTypePlot)
	assert.Len(t, check.Issues, 1)
}

func TestCheckerRecoversFailedRule(t *testing.T) {
	checker := NewChecker(
		&stubRule{name: "broken", checkType: entity.CheckTypeCharacter, err: fmt.Errorf("regex compile failed")},
		&stubRule{name: "healthy", checkType: entity.CheckTypeCharacter, findings: []Finding{
			{Kind: "unknown_speaker", Severity: entity.SeverityLow},
		}},
	)

	check := checker.Run(context.Background(), characterInput("正文"), entity.CheckTypeCharacter)

	// 失败规则零产出,健康规则不受影响
	require.Len(t, check.Issues, 1)
	assert.InDelta(t, 0.95, check.OverallScore, 1e-9)
}

func TestCheckerRecoversPanickingRule(t *testing.T) {
	checker := NewChecker(
		&stubRule{name: "volatile", checkType: entity.CheckTypePurity, panics: true},
		&stubRule{name: "healthy", checkType: entity.CheckTypePurity, findings: []Finding{
			{Kind: "mojibake", Severity: entity.SeverityCritical},
		}},
	)

	check := checker.Run(context.Background(), characterInput("正文"), entity.CheckTypePurity)

	require.Len(t, check.Issues, 1)
	assert.InDelta(t, 0.60, check.OverallScore, 1e-9)
}

func TestCheckerScoreFloorsAtZero(t *testing.T) {
	findings := []Finding{
		{Kind: "mojibake", Severity: entity.SeverityCritical},
		{Kind: "mojibake", Severity: entity.SeverityCritical},
		{Kind: "anachronism", Severity: entity.SeverityHigh},
		{Kind: "anachronism", Severity: entity.SeverityHigh},
	}
	checker := NewChecker(&stubRule{name: "all", checkType: entity.CheckTypeWorld, findings: findings})

	check := checker.Run(context.Background(), characterInput("正文"), entity.CheckTypeWorld)

	assert.Len(t, check.Issues, 4)
	assert.Equal(t, 0.0, check.OverallScore)
}

func TestCheckerCleanTextScoresFull(t *testing.T) {
	checker := NewChecker(&stubRule{name: "quiet", checkType: entity.CheckTypeCharacter})

	check := checker.Run(context.Background(), characterInput("夜色渐深。"), entity.CheckTypeCharacter)

	assert.Empty(t, check.Issues)
	assert.Equal(t, 1.0, check.OverallScore)
}
