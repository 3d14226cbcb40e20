// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/lib/pq"
)

// StringSlice 以 Postgres text[] 存储的字符串切片
type StringSlice = pq.StringArray

// ContentUnitKind 内容单元类型
type ContentUnitKind string

const (
	UnitKindCharacter       ContentUnitKind = "character"
	UnitKindPlotPoint       ContentUnitKind = "plot_point"
	UnitKindWorldSetting    ContentUnitKind = "world_setting"
	UnitKindDialogueSnippet ContentUnitKind = "dialogue_snippet"
	UnitKindHistoricalEvent ContentUnitKind = "historical_event"
)

// AllUnitKinds 返回全部内容单元类型
func AllUnitKinds() []ContentUnitKind {
	return []ContentUnitKind{
		UnitKindCharacter,
		UnitKindPlotPoint,
		UnitKindWorldSetting,
		UnitKindDialogueSnippet,
		UnitKindHistoricalEvent,
	}
}

// Valid 检查类型是否合法
func (k ContentUnitKind) Valid() bool {
	switch k {
	case UnitKindCharacter, UnitKindPlotPoint, UnitKindWorldSetting,
		UnitKindDialogueSnippet, UnitKindHistoricalEvent:
		return true
	}
	return false
}

// 重要度评级边界
const (
	ImportanceMin     = 0
	ImportanceMax     = 10
	ImportanceDefault = 5
)

// ContentUnit 内容单元（可进入组装上下文的原子事实）
type ContentUnit struct {
	ID            string          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID     string          `json:"project_id" gorm:"type:uuid;index;not null"`
	Kind          ContentUnitKind `json:"kind" gorm:"type:varchar(50);index;not null"`
	Body          string          `json:"body" gorm:"type:text"`
	CharacterName string          `json:"character_name,omitempty" gorm:"type:varchar(255);index"`
	Tags          StringSlice     `json:"tags,omitempty" gorm:"type:text[]"`
	Importance    int             `json:"importance" gorm:"default:5"`
	Protected     bool            `json:"protected" gorm:"default:false"`
	// ForeshadowID/ResolutionID 指向其他剧情单元的非拥有引用，
	// 目标删除时置空而不是级联
	ForeshadowID *string    `json:"foreshadow_id,omitempty" gorm:"type:uuid"`
	ResolutionID *string    `json:"resolution_id,omitempty" gorm:"type:uuid"`
	UsageCount   int        `json:"usage_count" gorm:"default:0"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (ContentUnit) TableName() string {
	return "content_units"
}

// NewContentUnit 创建新内容单元
func NewContentUnit(projectID string, kind ContentUnitKind, body string) *ContentUnit {
	now := time.Now()
	return &ContentUnit{
		ProjectID:  projectID,
		Kind:       kind,
		Body:       body,
		Tags:       StringSlice{},
		Importance: ImportanceDefault,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ClampImportance 将重要度收敛到合法区间
func (u *ContentUnit) ClampImportance() {
	if u.Importance < ImportanceMin {
		u.Importance = ImportanceMin
	}
	if u.Importance > ImportanceMax {
		u.Importance = ImportanceMax
	}
}

// RecordUsage 记录一次选入上下文。usage_count 只增，last_used_at 只前移。
func (u *ContentUnit) RecordUsage(at time.Time) {
	u.UsageCount++
	if u.LastUsedAt == nil || at.After(*u.LastUsedAt) {
		t := at
		u.LastUsedAt = &t
	}
}

// HasForeshadowing 是否携带伏笔引用
func (u *ContentUnit) HasForeshadowing() bool {
	return u.ForeshadowID != nil || u.ResolutionID != nil
}

// IsProtectedBy 在给定保护开关下该单元是否受保护
func (u *ContentUnit) IsProtectedBy(preserveDialogue, preserveForeshadowing bool) bool {
	if preserveDialogue && u.Kind == UnitKindDialogueSnippet {
		return true
	}
	if preserveForeshadowing && (u.Protected || u.HasForeshadowing()) {
		return true
	}
	return false
}

// References 是否引用指定单元
func (u *ContentUnit) References(id string) bool {
	if u.ForeshadowID != nil && *u.ForeshadowID == id {
		return true
	}
	if u.ResolutionID != nil && *u.ResolutionID == id {
		return true
	}
	return false
}
