package trigger

import (
	"strings"
)

// DefaultWord 默认触发词
const DefaultWord = "view"

// leadingPunct 触发词前允许出现的标点
const leadingPunct = "?!.,;:/\\"

// Matcher 判断一条回复是否应触发转发
type Matcher struct {
	Triggers       []string
	StickerEnabled bool
}

// NormalizeWord 去除首尾空白并转小写
func NormalizeWord(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FirstToken 取文本第一个词，去掉前导标点并转小写
// 例如: "!View esto" -> "view"
func FirstToken(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return NormalizeWord(strings.TrimLeft(fields[0], leadingPunct))
}

// ShouldForward 贴纸在开启贴纸转发时无条件匹配；文本要求首词与触发词完全相同
func (m Matcher) ShouldForward(text string, isSticker bool) bool {
	if isSticker {
		return m.StickerEnabled
	}

	token := FirstToken(text)
	if token == "" {
		return false
	}
	for _, word := range m.Triggers {
		if NormalizeWord(word) == token {
			return true
		}
	}
	return false
}
