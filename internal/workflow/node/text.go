package node

// TruncateByRunes 保留前 maxRunes 个字符，不切断多字节字符
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	seen := 0
	for i := range s {
		if seen == maxRunes {
			return s[:i]
		}
		seen++
	}
	return s
}

// Snippet 摘要片段：截断后固定追加 "..."，未超长也追加
func Snippet(s string, maxRunes int) string {
	return TruncateByRunes(s, maxRunes) + "..."
}
