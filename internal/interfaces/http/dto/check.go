// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"z-novel-context-svc/internal/domain/entity"
)

// RecordCheckRequest 一致性检查请求
type RecordCheckRequest struct {
	GeneratedText string `json:"generated_text" binding:"required"`
	CheckType     string `json:"check_type" binding:"required,max=50"`
}

// ConsistencyIssueResponse 一致性问题响应
type ConsistencyIssueResponse struct {
	ID            string    `json:"id,omitempty"`
	Kind          string    `json:"kind"`
	Severity      string    `json:"severity"`
	Description   string    `json:"description"`
	Suggestion    string    `json:"suggestion,omitempty"`
	CharacterName string    `json:"character_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ConsistencyCheckResponse 一致性检查记录响应
type ConsistencyCheckResponse struct {
	ID           string                      `json:"id"`
	ProjectID    string                      `json:"project_id"`
	CheckType    string                      `json:"check_type"`
	Content      string                      `json:"content,omitempty"`
	OverallScore float64                     `json:"overall_score"`
	Issues       []*ConsistencyIssueResponse `json:"issues"`
	CreatedAt    time.Time                   `json:"created_at"`
}

// ConsistencyCheckListResponse 检查记录列表响应。列表项不携带被检文本。
type ConsistencyCheckListResponse struct {
	Checks []*ConsistencyCheckResponse `json:"checks"`
}

// ToConsistencyCheckResponse 将领域实体转换为响应 DTO
func ToConsistencyCheckResponse(check *entity.ConsistencyCheck) *ConsistencyCheckResponse {
	if check == nil {
		return nil
	}

	issues := make([]*ConsistencyIssueResponse, 0, len(check.Issues))
	for _, issue := range check.Issues {
		issues = append(issues, &ConsistencyIssueResponse{
			ID:            issue.ID,
			Kind:          issue.Kind,
			Severity:      string(issue.Severity),
			Description:   issue.Description,
			Suggestion:    issue.Suggestion,
			CharacterName: issue.CharacterName,
			CreatedAt:     issue.CreatedAt,
		})
	}

	return &ConsistencyCheckResponse{
		ID:           check.ID,
		ProjectID:    check.ProjectID,
		CheckType:    string(check.CheckType),
		Content:      check.Content,
		OverallScore: check.OverallScore,
		Issues:       issues,
		CreatedAt:    check.CreatedAt,
	}
}

// ToConsistencyCheckListResponse 将领域实体列表转换为响应 DTO
func ToConsistencyCheckListResponse(checks []*entity.ConsistencyCheck) *ConsistencyCheckListResponse {
	resp := &ConsistencyCheckListResponse{
		Checks: make([]*ConsistencyCheckResponse, 0, len(checks)),
	}

	for _, check := range checks {
		item := ToConsistencyCheckResponse(check)
		item.Content = ""
		resp.Checks = append(resp.Checks, item)
	}

	return resp
}
