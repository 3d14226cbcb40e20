package assembly

import (
	"sort"
	"strings"
)

// Scene 当前写作场景：光标前的章节正文与其中出场的角色
type Scene struct {
	ProjectID string
	ChapterID string
	// Text 净化后的光标前正文
	Text string

	active   []string
	mentions map[string]int
	index    *textIndex
}

// NewScene 截取光标前的正文并统计角色提及。
// cursor 为字符偏移，负数或越界时取全文。
func NewScene(projectID, chapterID, chapterText string, cursor int, characterNames []string) *Scene {
	runes := []rune(chapterText)
	if cursor < 0 || cursor > len(runes) {
		cursor = len(runes)
	}
	text := Sanitize(string(runes[:cursor]))

	s := &Scene{
		ProjectID: projectID,
		ChapterID: chapterID,
		Text:      text,
		mentions:  make(map[string]int, len(characterNames)),
		index:     newTextIndex(text),
	}
	for _, name := range characterNames {
		if name == "" {
			continue
		}
		if _, ok := s.mentions[name]; ok {
			continue
		}
		n := strings.Count(text, name)
		s.mentions[name] = n
		if n > 0 {
			s.active = append(s.active, name)
		}
	}
	sort.Strings(s.active)
	return s
}

// ActiveCharacters 场景中至少被提及一次的角色，按名称排序
func (s *Scene) ActiveCharacters() []string {
	return s.active
}

// MentionCount 角色在场景正文中的提及次数
func (s *Scene) MentionCount(name string) int {
	return s.mentions[name]
}

// Mentioned 角色是否在场景中出场
func (s *Scene) Mentioned(name string) bool {
	return s.mentions[name] > 0
}
