package consistency

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"z-novel-context-svc/internal/domain/entity"
)

// DefaultRules 内置规则集，每个检查类型一条
func DefaultRules() []Rule {
	return []Rule{
		&SpeakerRosterRule{},
		&TimelineRule{},
		&AnachronismRule{},
		&PurityRule{},
	}
}

// dialogueSpeakerPattern 对话归属：人名 + 言说动词 + 引号。
// 人名用惰性量词，否则「苏芸说道」会把「说」吞进人名；
// 动词长的在前，避免「说道」被拆成「说」+残余
var dialogueSpeakerPattern = regexp.MustCompile(`([\p{Han}]{2,4}?)(?:说道|问道|答道|叹道|笑道|喊道|说|道|问|答)[:：]?\s*[「“"]`)

// speakerStopWords 不作为人名处理的常见主语
var speakerStopWords = map[string]struct{}{
	"他们": {},
	"她们": {},
	"众人": {},
	"有人": {},
	"二人": {},
	"两人": {},
	"那人": {},
	"此人": {},
	"大家": {},
	"几人": {},
	"自己": {},
}

// SpeakerRosterRule 核对对话说话人是否在角色名单内。
// 与名单角色仅个别字不同的说话人按疑似误写上报，并挂回该角色。
type SpeakerRosterRule struct{}

func (SpeakerRosterRule) Name() string { return "speaker_roster" }

func (SpeakerRosterRule) CheckType() entity.CheckType { return entity.CheckTypeCharacter }

func (SpeakerRosterRule) Evaluate(_ context.Context, input *CheckInput) ([]Finding, error) {
	roster := characterRoster(input.Units)
	if len(roster) == 0 {
		return nil, nil
	}
	var findings []Finding
	seen := make(map[string]struct{})
	for _, match := range dialogueSpeakerPattern.FindAllStringSubmatch(input.Text, -1) {
		candidate := match[1]
		if stopwordSpeaker(candidate) {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		if knownSpeaker(candidate, roster) {
			continue
		}
		if variant := nearestRosterVariant(candidate, roster); variant != "" {
			findings = append(findings, Finding{
				Kind:          "character_name_variant",
				Severity:      entity.SeverityMedium,
				Description:   fmt.Sprintf("说话人「%s」疑似「%s」的误写", candidate, variant),
				Suggestion:    fmt.Sprintf("统一使用已登记的角色名「%s」", variant),
				CharacterName: variant,
			})
			continue
		}
		findings = append(findings, Finding{
			Kind:        "unknown_speaker",
			Severity:    entity.SeverityLow,
			Description: fmt.Sprintf("说话人「%s」不在角色名单中", candidate),
			Suggestion:  "为该角色登记设定单元，或检查是否为笔误",
		})
	}
	return findings, nil
}

// 时间线标记词表
var (
	morningMarkers    = []string{"清晨", "黎明", "拂晓", "晨光", "日出"}
	nightMarkers      = []string{"深夜", "午夜", "子夜", "夜半", "夜色"}
	transitionMarkers = []string{"次日", "翌日", "第二天", "转眼", "不知不觉", "时辰", "许久", "时光"}
)

// TimelineRule 检查同一段落内无过渡的昼夜跳变
type TimelineRule struct{}

func (TimelineRule) Name() string { return "timeline" }

func (TimelineRule) CheckType() entity.CheckType { return entity.CheckTypePlot }

func (TimelineRule) Evaluate(_ context.Context, input *CheckInput) ([]Finding, error) {
	var findings []Finding
	for i, paragraph := range strings.Split(input.Text, "\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		morning := firstMarker(paragraph, morningMarkers)
		night := firstMarker(paragraph, nightMarkers)
		if morning == "" || night == "" {
			continue
		}
		if firstMarker(paragraph, transitionMarkers) != "" {
			continue
		}
		findings = append(findings, Finding{
			Kind:     "timeline_jump",
			Severity: entity.SeverityMedium,
			Description: fmt.Sprintf("第 %d 段同时出现「%s」与「%s」且无时间过渡",
				i+1, morning, night),
			Suggestion: "补写时间过渡，或拆分为两个场景",
		})
	}
	return findings, nil
}

// anachronismTerms 与古典/架空题材冲突的现代词
var anachronismTerms = []string{
	"手机", "电脑", "汽车", "飞机", "电视", "网络", "电梯", "摄像头", "芯片", "Wi-Fi",
}

// AnachronismRule 检查文本中未在任何设定单元登记过的现代词。
// 设定里写明存在的事物不算出戏。
type AnachronismRule struct{}

func (AnachronismRule) Name() string { return "anachronism" }

func (AnachronismRule) CheckType() entity.CheckType { return entity.CheckTypeWorld }

func (AnachronismRule) Evaluate(_ context.Context, input *CheckInput) ([]Finding, error) {
	var findings []Finding
	for _, term := range anachronismTerms {
		if !strings.Contains(input.Text, term) {
			continue
		}
		if canonContains(input.Units, term) {
			continue
		}
		findings = append(findings, Finding{
			Kind:        "anachronism",
			Severity:    entity.SeverityHigh,
			Description: fmt.Sprintf("「%s」未在任何世界观设定中出现", term),
			Suggestion:  fmt.Sprintf("删改该词，或先登记包含「%s」的设定单元", term),
		})
	}
	return findings, nil
}

var (
	// latinRunPattern 连续三个以上英文单词视为串语种片段
	latinRunPattern = regexp.MustCompile(`[A-Za-z]{2,}(?:[ \t]+[A-Za-z']{2,}){2,}`)
	// markupHeadingPattern 行首 Markdown 标题
	markupHeadingPattern = regexp.MustCompile(`(?m)^#{1,6}\s`)
)

// invisibleRunes 零宽与方向控制符
var invisibleRunes = []rune{
	'​', '‌', '‍', '⁠', '﻿',
	'‪', '‫', '‬', '‭', '‮',
}

// PurityRule 检查生成文本的语言纯净度：乱码、不可见字符、
// 串语种片段与 Markdown 痕迹
type PurityRule struct{}

func (PurityRule) Name() string { return "purity" }

func (PurityRule) CheckType() entity.CheckType { return entity.CheckTypePurity }

func (PurityRule) Evaluate(_ context.Context, input *CheckInput) ([]Finding, error) {
	var findings []Finding

	if strings.ContainsRune(input.Text, utf8.RuneError) {
		findings = append(findings, Finding{
			Kind:        "mojibake",
			Severity:    entity.SeverityCritical,
			Description: "文本包含替换符 U+FFFD，疑似编码损坏",
			Suggestion:  "重新生成该段文本",
		})
	}
	for _, r := range invisibleRunes {
		if strings.ContainsRune(input.Text, r) {
			findings = append(findings, Finding{
				Kind:        "invisible_character",
				Severity:    entity.SeverityLow,
				Description: fmt.Sprintf("文本包含不可见字符 U+%04X", r),
				Suggestion:  "清除零宽与方向控制字符",
			})
			break
		}
	}
	if fragment := latinRunPattern.FindString(input.Text); fragment != "" {
		findings = append(findings, Finding{
			Kind:        "foreign_fragment",
			Severity:    entity.SeverityMedium,
			Description: fmt.Sprintf("文本混入连续英文片段「%s」", truncateRunes(fragment, 40)),
			Suggestion:  "改写为中文，或确认是否为有意引用",
		})
	}
	if strings.Contains(input.Text, "```") || markupHeadingPattern.MatchString(input.Text) {
		findings = append(findings, Finding{
			Kind:        "markup_artifact",
			Severity:    entity.SeverityLow,
			Description: "文本残留 Markdown 标记",
			Suggestion:  "去除代码块围栏与标题符号",
		})
	}
	return findings, nil
}

// characterRoster 从角色单元提取去重角色名
func characterRoster(units []*entity.ContentUnit) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, unit := range units {
		if unit.Kind != entity.UnitKindCharacter || unit.CharacterName == "" {
			continue
		}
		if _, ok := seen[unit.CharacterName]; ok {
			continue
		}
		seen[unit.CharacterName] = struct{}{}
		names = append(names, unit.CharacterName)
	}
	return names
}

// knownSpeaker 候选名等于或以名单角色名结尾即视为已登记。
// 后缀匹配吸收正则把前文粘进捕获组的情况
func knownSpeaker(candidate string, roster []string) bool {
	for _, name := range roster {
		if candidate == name || strings.HasSuffix(candidate, name) {
			return true
		}
	}
	return false
}

// stopwordSpeaker 候选名本身或其结尾是常见主语时跳过
func stopwordSpeaker(candidate string) bool {
	for word := range speakerStopWords {
		if candidate == word || strings.HasSuffix(candidate, word) {
			return true
		}
	}
	return false
}

// nearestRosterVariant 返回与候选名共享用字的第一个名单角色
func nearestRosterVariant(candidate string, roster []string) string {
	for _, name := range roster {
		if sharesRune(candidate, name) {
			return name
		}
	}
	return ""
}

func sharesRune(a, b string) bool {
	for _, r := range a {
		if strings.ContainsRune(b, r) {
			return true
		}
	}
	return false
}

func firstMarker(text string, markers []string) string {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return marker
		}
	}
	return ""
}

func canonContains(units []*entity.ContentUnit, term string) bool {
	for _, unit := range units {
		if strings.Contains(unit.Body, term) {
			return true
		}
		for _, tag := range unit.Tags {
			if strings.Contains(tag, term) {
				return true
			}
		}
	}
	return false
}

func truncateRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}
