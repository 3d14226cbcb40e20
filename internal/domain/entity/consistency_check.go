// Package entity 定义领域实体
package entity

import (
	"time"
)

// CheckType 一致性检查类型
type CheckType string

const (
	CheckTypeCharacter CheckType = "character_consistency"
	CheckTypePlot      CheckType = "plot_consistency"
	CheckTypeWorld     CheckType = "world_consistency"
	CheckTypePurity    CheckType = "language_purity"
)

// Valid 检查类型是否合法
func (t CheckType) Valid() bool {
	switch t {
	case CheckTypeCharacter, CheckTypePlot, CheckTypeWorld, CheckTypePurity:
		return true
	}
	return false
}

// IssueSeverity 问题严重度
type IssueSeverity string

const (
	SeverityLow      IssueSeverity = "low"
	SeverityMedium   IssueSeverity = "medium"
	SeverityHigh     IssueSeverity = "high"
	SeverityCritical IssueSeverity = "critical"
)

// ConsistencyIssue 单条一致性问题
type ConsistencyIssue struct {
	ID            string        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CheckID       string        `json:"check_id" gorm:"type:uuid;index;not null"`
	Kind          string        `json:"kind" gorm:"type:varchar(100)"`
	Severity      IssueSeverity `json:"severity" gorm:"type:varchar(20)"`
	Description   string        `json:"description" gorm:"type:text"`
	Suggestion    string        `json:"suggestion,omitempty" gorm:"type:text"`
	CharacterName string        `json:"character_name,omitempty" gorm:"type:varchar(255);index"`
	CreatedAt     time.Time     `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (ConsistencyIssue) TableName() string {
	return "consistency_issues"
}

// ConsistencyCheck 一次生成结果的一致性检查记录（追加不改）
type ConsistencyCheck struct {
	ID           string             `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID    string             `json:"project_id" gorm:"type:uuid;index;not null"`
	CheckType    CheckType          `json:"check_type" gorm:"type:varchar(50);not null"`
	Content      string             `json:"content" gorm:"type:text"`
	OverallScore float64            `json:"overall_score" gorm:"default:1"`
	Issues       []ConsistencyIssue `json:"issues,omitempty" gorm:"foreignKey:CheckID"`
	CreatedAt    time.Time          `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (ConsistencyCheck) TableName() string {
	return "consistency_checks"
}

// NewConsistencyCheck 创建检查记录
func NewConsistencyCheck(projectID string, checkType CheckType, content string) *ConsistencyCheck {
	return &ConsistencyCheck{
		ProjectID:    projectID,
		CheckType:    checkType,
		Content:      content,
		OverallScore: 1.0,
		Issues:       []ConsistencyIssue{},
		CreatedAt:    time.Now(),
	}
}

// AddIssue 追加一条问题
func (c *ConsistencyCheck) AddIssue(kind string, severity IssueSeverity, description, suggestion, characterName string) {
	c.Issues = append(c.Issues, ConsistencyIssue{
		Kind:          kind,
		Severity:      severity,
		Description:   description,
		Suggestion:    suggestion,
		CharacterName: characterName,
		CreatedAt:     time.Now(),
	})
}

// HasCritical 是否含 critical 级问题
func (c *ConsistencyCheck) HasCritical() bool {
	for _, issue := range c.Issues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
