package assembly

import (
	"strings"
	"unicode"

	"z-novel-context-svc/internal/domain/entity"
)

// tokenize 提取检索词：拉丁词转小写整词，CJK 文本取相邻二元组，
// 孤立的单个 CJK 字符按单字保留（短角色名依赖这一点）。
func tokenize(text string) []string {
	var tokens []string
	var word []rune
	var prevCJK rune
	cjkRun := 0

	flushWord := func() {
		if len(word) >= 2 {
			tokens = append(tokens, strings.ToLower(string(word)))
		}
		word = word[:0]
	}
	flushCJK := func() {
		if cjkRun == 1 && prevCJK != 0 {
			tokens = append(tokens, string(prevCJK))
		}
		prevCJK = 0
		cjkRun = 0
	}

	for _, r := range text {
		switch {
		case isCJK(r):
			flushWord()
			if prevCJK != 0 {
				tokens = append(tokens, string([]rune{prevCJK, r}))
			}
			prevCJK = r
			cjkRun++
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushCJK()
			word = append(word, r)
		default:
			flushWord()
			flushCJK()
		}
	}
	flushWord()
	flushCJK()
	return tokens
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

// textIndex 一段文本的检索词集合
type textIndex struct {
	tokens map[string]struct{}
}

func newTextIndex(text string) *textIndex {
	ix := &textIndex{tokens: make(map[string]struct{})}
	for _, tok := range tokenize(text) {
		ix.tokens[tok] = struct{}{}
	}
	return ix
}

// overlap 给定检索词命中该文本的比例
func (ix *textIndex) overlap(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	matched := 0
	for _, tok := range tokens {
		if _, ok := ix.tokens[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

// unitTokens 内容单元的去重检索词（正文、角色名与标签）
func unitTokens(unit *entity.ContentUnit) []string {
	seen := make(map[string]struct{})
	var tokens []string
	add := func(text string) {
		for _, tok := range tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			tokens = append(tokens, tok)
		}
	}
	add(unit.Body)
	add(unit.CharacterName)
	for _, tag := range unit.Tags {
		add(tag)
	}
	return tokens
}

// unitReferencesCharacter 单元是否引用指定角色
func unitReferencesCharacter(unit *entity.ContentUnit, name string) bool {
	if name == "" {
		return false
	}
	if unit.CharacterName == name {
		return true
	}
	return strings.Contains(unit.Body, name)
}
