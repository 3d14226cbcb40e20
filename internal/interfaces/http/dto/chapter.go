// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"z-novel-context-svc/internal/domain/entity"
)

// CreateChapterRequest 创建章节请求。seq_num 缺省时自动取项目内下一序号。
type CreateChapterRequest struct {
	Title   string `json:"title" binding:"max=255"`
	Content string `json:"content,omitempty"`
	SeqNum  *int   `json:"seq_num,omitempty" binding:"omitempty,gte=1"`
}

// UpdateChapterRequest 更新章节请求
type UpdateChapterRequest struct {
	Title   *string `json:"title,omitempty" binding:"omitempty,max=255"`
	Content *string `json:"content,omitempty"`
}

// ChapterResponse 章节响应
type ChapterResponse struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	SeqNum    int       `json:"seq_num"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content,omitempty"`
	WordCount int       `json:"word_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChapterListResponse 章节列表响应。列表项不携带正文。
type ChapterListResponse struct {
	Chapters []*ChapterResponse `json:"chapters"`
}

// ToChapterResponse 将领域实体转换为响应 DTO
func ToChapterResponse(c *entity.Chapter) *ChapterResponse {
	if c == nil {
		return nil
	}

	return &ChapterResponse{
		ID:        c.ID,
		ProjectID: c.ProjectID,
		SeqNum:    c.SeqNum,
		Title:     c.Title,
		Content:   c.Content,
		WordCount: c.WordCount,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ToChapterListResponse 将领域实体列表转换为响应 DTO
func ToChapterListResponse(chapters []*entity.Chapter) *ChapterListResponse {
	resp := &ChapterListResponse{
		Chapters: make([]*ChapterResponse, 0, len(chapters)),
	}

	for _, c := range chapters {
		item := ToChapterResponse(c)
		item.Content = ""
		resp.Chapters = append(resp.Chapters, item)
	}

	return resp
}

// ToChapterEntity 将请求 DTO 转换为领域实体
func (r *CreateChapterRequest) ToChapterEntity(projectID string, seqNum int) *entity.Chapter {
	chapter := entity.NewChapter(projectID, r.Title, seqNum)
	if r.Content != "" {
		chapter.SetContent(r.Content)
	}
	return chapter
}

// ApplyToChapter 将更新请求应用到章节实体，正文是否变更由返回值标记
func (r *UpdateChapterRequest) ApplyToChapter(c *entity.Chapter) (contentChanged bool) {
	if r.Title != nil {
		c.Title = *r.Title
	}
	if r.Content != nil {
		c.SetContent(*r.Content)
		contentChanged = true
	}
	c.UpdatedAt = time.Now()
	return contentChanged
}
