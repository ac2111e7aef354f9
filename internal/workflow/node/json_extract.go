// Package node 工作流节点共用的小工具
package node

import (
	"encoding/json"
	"strings"
)

// ExtractJSONObject 去掉 Markdown 代码围栏，截取第一个 '{' 到最后一个 '}' 之间的文本
// 只做截取，不修复非法 JSON；截取结果无法解析时原样返回去空白后的输入
func ExtractJSONObject(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" || json.Valid([]byte(raw)) {
		return raw
	}

	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```")
		if nl := strings.IndexByte(raw, '\n'); nl >= 0 {
			// 去掉语言标记，如 ```json
			raw = raw[nl+1:]
		}
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
		raw = strings.TrimSpace(raw)
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return strings.TrimSpace(s)
	}
	candidate := raw[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return strings.TrimSpace(s)
	}
	return candidate
}
