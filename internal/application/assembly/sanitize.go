package assembly

import (
	"strings"
	"unicode"
)

// Sanitize 按允许清单过滤文本：保留任意文字与数字、空白、标点
// 和常用符号，丢弃控制字符、零宽字符、方向标记与表情等噪声。
// 对已净化的文本再次调用返回原值。
func Sanitize(text string) string {
	clean := true
	for _, r := range text {
		if !allowedRune(r) {
			clean = false
			break
		}
	}
	if clean {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if allowedRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allowedRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsNumber(r) {
		return true
	}
	// 全角空格在中文正文中常见，保留；回车在此归一为被删除
	if unicode.IsSpace(r) && r != '\r' {
		return true
	}
	if unicode.IsPunct(r) {
		return true
	}
	switch r {
	case '-', '_', '/', '\\', '=', '+', '*', '&', '%', '$', '#', '@':
		return true
	}
	return false
}
