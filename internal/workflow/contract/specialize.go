package contract

import (
	"strconv"

	"docs-agent-api/internal/domain/entity"
)

// Specialize 按文档类型收窄响应 Schema，返回深拷贝，不修改 base
func Specialize(base map[string]any, docType entity.DocumentFormat) map[string]any {
	schema := cloneMap(base)

	docProps := path(schema, "properties", "document", "anyOf", "0", "properties")
	if docProps == nil {
		return schema
	}

	if docType != entity.FormatGeneral && docType != "" {
		format := docType
		if format == entity.FormatTechnicalDocs {
			format = entity.FormatReport
		}
		docProps["format"] = enum(string(format))
	}

	options := path(docProps, "options", "properties")
	pageSetup := path(docProps, "page_setup", "properties")

	switch docType {
	case entity.FormatReport, entity.FormatResearchPaper:
		if options != nil {
			options["include_table_of_contents"] = pinnedBool(true)
		}
	case entity.FormatThesis:
		if pageSetup != nil {
			pageSetup["page_size"] = enum("A4")
		}
		if options != nil {
			options["include_page_numbers"] = pinnedBool(true)
		}
	case entity.FormatResume:
		if options != nil {
			options["include_table_of_contents"] = pinnedBool(false)
		}
	}

	return schema
}

func pinnedBool(v bool) map[string]any {
	return map[string]any{"type": "boolean", "enum": []any{v}}
}

// path 沿 key 逐级下钻；数组段使用下标字符串
func path(m map[string]any, keys ...string) map[string]any {
	var cur any = m
	for _, k := range keys {
		switch node := cur.(type) {
		case map[string]any:
			cur = node[k]
		case []any:
			idx, err := strconv.Atoi(k)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			cur = node[idx]
		default:
			return nil
		}
	}
	out, _ := cur.(map[string]any)
	return out
}

// cloneMap 递归复制 map/slice，标量按值共享
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return t
	}
}
