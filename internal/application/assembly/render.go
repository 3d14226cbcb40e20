package assembly

import "strings"

// sectionTitles 注入 Prompt 时各区块的标题
var sectionTitles = map[SectionKind]string{
	SectionCore:       "当前章节",
	SectionCharacter:  "角色设定",
	SectionPlot:       "情节脉络",
	SectionWorld:      "世界观设定",
	SectionHistorical: "历史事件",
}

// PromptText 将组装结果格式化为可直接注入 Prompt 的文本。
// 约束：只含正文，不带 token、权重等调试信息；空区块不输出标题。
func (c *IntelligentContext) PromptText() string {
	if c == nil {
		return ""
	}
	parts := make([]string, 0, len(c.Sections)*2)
	for i := range c.Sections {
		section := &c.Sections[i]
		body := strings.TrimSpace(section.Text)
		if body == "" {
			continue
		}
		title := sectionTitles[section.Kind]
		if title == "" {
			title = string(section.Kind)
		}
		parts = append(parts, "【"+title+"】\n"+body)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
