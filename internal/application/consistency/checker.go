// Package consistency 对生成文本做规则化一致性与纯净度检查。
// 检查结果只作建议，从不阻断生成流程。
package consistency

import (
	"context"
	"fmt"

	"z-novel-context-svc/internal/domain/entity"
	"z-novel-context-svc/pkg/logger"
)

// CheckInput 一次检查的输入。
// Text 为清洗前的原始生成文本，纯净度规则需要看到污染本身。
type CheckInput struct {
	ProjectID string
	Text      string
	// Units 项目全部内容单元，规则各取所需
	Units []*entity.ContentUnit
}

// Finding 规则产出的单条问题
type Finding struct {
	Kind          string
	Severity      entity.IssueSeverity
	Description   string
	Suggestion    string
	CharacterName string
}

// Rule 可插拔的一致性规则
type Rule interface {
	// Name 规则名，用于日志定位
	Name() string

	// CheckType 规则所属的检查类型
	CheckType() entity.CheckType

	// Evaluate 评估文本并返回发现的问题
	Evaluate(ctx context.Context, input *CheckInput) ([]Finding, error)
}

// severityDeduction 各严重度对总分的扣减
var severityDeduction = map[entity.IssueSeverity]float64{
	entity.SeverityLow:      0.05,
	entity.SeverityMedium:   0.10,
	entity.SeverityHigh:     0.20,
	entity.SeverityCritical: 0.40,
}

// Checker 按检查类型执行规则集
type Checker struct {
	rules []Rule
}

// NewChecker 创建检查器，未传规则时使用内置规则集
func NewChecker(rules ...Rule) *Checker {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Checker{rules: rules}
}

// Run 执行指定类型的全部规则并汇总为检查记录。
// 单条规则失败只告警跳过，不影响其余规则的结论。
func (c *Checker) Run(ctx context.Context, input *CheckInput, checkType entity.CheckType) *entity.ConsistencyCheck {
	check := entity.NewConsistencyCheck(input.ProjectID, checkType, input.Text)
	score := 1.0
	for _, rule := range c.rules {
		if rule.CheckType() != checkType {
			continue
		}
		findings, err := evaluateRule(ctx, rule, input)
		if err != nil {
			logger.FromContext(ctx).Warn("consistency rule failed, skipping",
				"rule", rule.Name(),
				"check_type", string(checkType),
				"error", err,
			)
			continue
		}
		for _, f := range findings {
			check.AddIssue(f.Kind, f.Severity, f.Description, f.Suggestion, f.CharacterName)
			score -= severityDeduction[f.Severity]
		}
	}
	if score < 0 {
		score = 0
	}
	check.OverallScore = score
	return check
}

// evaluateRule 调用规则并吸收 panic
func evaluateRule(ctx context.Context, rule Rule, input *CheckInput) (findings []Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			findings = nil
			err = fmt.Errorf("rule panicked: %v", r)
		}
	}()
	return rule.Evaluate(ctx, input)
}
