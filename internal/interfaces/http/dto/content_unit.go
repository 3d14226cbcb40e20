// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"z-novel-context-svc/internal/domain/entity"
)

// CreateContentUnitRequest 创建内容单元请求
type CreateContentUnitRequest struct {
	Kind          string   `json:"kind" binding:"required,max=50"`
	Body          string   `json:"body" binding:"required"`
	CharacterName string   `json:"character_name,omitempty" binding:"max=255"`
	Tags          []string `json:"tags,omitempty"`
	Importance    *int     `json:"importance,omitempty" binding:"omitempty,gte=0,lte=10"`
	Protected     bool     `json:"protected,omitempty"`
	ForeshadowID  *string  `json:"foreshadow_id,omitempty"`
	ResolutionID  *string  `json:"resolution_id,omitempty"`
}

// UpdateContentUnitRequest 更新内容单元请求
type UpdateContentUnitRequest struct {
	Body          *string  `json:"body,omitempty"`
	CharacterName *string  `json:"character_name,omitempty" binding:"omitempty,max=255"`
	Tags          []string `json:"tags,omitempty"`
	Importance    *int     `json:"importance,omitempty" binding:"omitempty,gte=0,lte=10"`
	Protected     *bool    `json:"protected,omitempty"`
	ForeshadowID  *string  `json:"foreshadow_id,omitempty"`
	ResolutionID  *string  `json:"resolution_id,omitempty"`
}

// ContentUnitResponse 内容单元响应
type ContentUnitResponse struct {
	ID            string     `json:"id"`
	ProjectID     string     `json:"project_id"`
	Kind          string     `json:"kind"`
	Body          string     `json:"body"`
	CharacterName string     `json:"character_name,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	Importance    int        `json:"importance"`
	Protected     bool       `json:"protected"`
	ForeshadowID  *string    `json:"foreshadow_id,omitempty"`
	ResolutionID  *string    `json:"resolution_id,omitempty"`
	UsageCount    int        `json:"usage_count"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ContentUnitListResponse 内容单元列表响应
type ContentUnitListResponse struct {
	Units []*ContentUnitResponse `json:"units"`
}

// ToContentUnitResponse 将领域实体转换为响应 DTO
func ToContentUnitResponse(u *entity.ContentUnit) *ContentUnitResponse {
	if u == nil {
		return nil
	}

	return &ContentUnitResponse{
		ID:            u.ID,
		ProjectID:     u.ProjectID,
		Kind:          string(u.Kind),
		Body:          u.Body,
		CharacterName: u.CharacterName,
		Tags:          []string(u.Tags),
		Importance:    u.Importance,
		Protected:     u.Protected,
		ForeshadowID:  u.ForeshadowID,
		ResolutionID:  u.ResolutionID,
		UsageCount:    u.UsageCount,
		LastUsedAt:    u.LastUsedAt,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// ToContentUnitListResponse 将领域实体列表转换为响应 DTO
func ToContentUnitListResponse(units []*entity.ContentUnit) *ContentUnitListResponse {
	resp := &ContentUnitListResponse{
		Units: make([]*ContentUnitResponse, 0, len(units)),
	}

	for _, u := range units {
		resp.Units = append(resp.Units, ToContentUnitResponse(u))
	}

	return resp
}

// ToContentUnitEntity 将请求 DTO 转换为领域实体
func (r *CreateContentUnitRequest) ToContentUnitEntity(projectID string) *entity.ContentUnit {
	unit := entity.NewContentUnit(projectID, entity.ContentUnitKind(r.Kind), r.Body)
	unit.CharacterName = r.CharacterName
	if r.Tags != nil {
		unit.Tags = entity.StringSlice(r.Tags)
	}
	if r.Importance != nil {
		unit.Importance = *r.Importance
	}
	unit.Protected = r.Protected
	unit.ForeshadowID = r.ForeshadowID
	unit.ResolutionID = r.ResolutionID
	unit.ClampImportance()
	return unit
}

// ApplyToContentUnit 将更新请求应用到内容单元实体
func (r *UpdateContentUnitRequest) ApplyToContentUnit(u *entity.ContentUnit) {
	if r.Body != nil {
		u.Body = *r.Body
	}
	if r.CharacterName != nil {
		u.CharacterName = *r.CharacterName
	}
	if r.Tags != nil {
		u.Tags = entity.StringSlice(r.Tags)
	}
	if r.Importance != nil {
		u.Importance = *r.Importance
	}
	if r.Protected != nil {
		u.Protected = *r.Protected
	}
	if r.ForeshadowID != nil {
		u.ForeshadowID = r.ForeshadowID
	}
	if r.ResolutionID != nil {
		u.ResolutionID = r.ResolutionID
	}
	u.ClampImportance()
	u.UpdatedAt = time.Now()
}
