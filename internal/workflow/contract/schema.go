// Package contract 定义与模型约定的 JSON Schema，以及响应的特化与校验
package contract

import "docs-agent-api/internal/domain/entity"

// Schema 名称，随 response_format 一起下发
const (
	OutlineSchemaName  = "document_outline"
	SectionSchemaName  = "section_content"
	ResponseSchemaName = "document_response"
	EditSchemaName     = "section_edit"
)

// responseFormats create 操作允许的 format 值
var responseFormats = []any{
	"article", "report", "essay", "thesis", "resume", "cover_letter", "proposal",
	"meeting_notes", "readme", "letter", "research_paper", "blog_post", "custom",
	"legal", "case_study", "white_paper", "policy", "general",
}

func str() map[string]any     { return map[string]any{"type": "string"} }
func num() map[string]any     { return map[string]any{"type": "number"} }
func integer() map[string]any { return map[string]any{"type": "integer"} }
func boolean() map[string]any { return map[string]any{"type": "boolean"} }

func nullableStr() map[string]any {
	return map[string]any{"type": []any{"string", "null"}}
}

func enum(values ...any) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

func object(props map[string]any, required ...string) map[string]any {
	req := make([]any, len(required))
	for i, r := range required {
		req[i] = r
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             req,
		"additionalProperties": false,
	}
}

func array(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func nullable(schema map[string]any) map[string]any {
	return map[string]any{"anyOf": []any{schema, map[string]any{"type": "null"}}}
}

func pageSetupSchema() map[string]any {
	return object(map[string]any{
		"page_size":            enum("A4", "LETTER"),
		"orientation":          enum("portrait", "landscape"),
		"margin_top_inches":    num(),
		"margin_bottom_inches": num(),
		"margin_left_inches":   num(),
		"margin_right_inches":  num(),
		"columns":              integer(),
	}, "page_size", "orientation", "margin_top_inches", "margin_bottom_inches", "margin_left_inches", "margin_right_inches", "columns")
}

func defaultStyleSchema() map[string]any {
	return object(map[string]any{
		"font_family":                str(),
		"font_size_pt":               num(),
		"line_spacing":               num(),
		"text_color":                 str(),
		"paragraph_spacing_after_pt": num(),
	}, "font_family", "font_size_pt", "line_spacing", "text_color", "paragraph_spacing_after_pt")
}

func optionsSchema() map[string]any {
	return object(map[string]any{
		"include_table_of_contents": boolean(),
		"include_page_numbers":      boolean(),
		"page_number_alignment":     enum("LEFT", "CENTER", "RIGHT"),
		"include_header":            boolean(),
		"header_text":               nullableStr(),
		"include_footer":            boolean(),
		"footer_text":               nullableStr(),
	}, "include_table_of_contents", "include_page_numbers", "page_number_alignment", "include_header", "header_text", "include_footer", "footer_text")
}

func formatValues() []any {
	out := make([]any, len(entity.OutlineFormats))
	for i, f := range entity.OutlineFormats {
		out[i] = string(f)
	}
	return out
}

func sectionTypeValues() []any {
	out := make([]any, len(entity.SectionTypes))
	for i, t := range entity.SectionTypes {
		out[i] = string(t)
	}
	return out
}

// OutlineSchema 大纲 Schema（strict）
func OutlineSchema() map[string]any {
	section := object(map[string]any{
		"section_id":  str(),
		"title":       str(),
		"type":        enum(sectionTypeValues()...),
		"depth":       map[string]any{"type": "integer", "enum": []any{1, 2, 3}},
		"description": str(),
	}, "section_id", "title", "type", "depth", "description")

	return object(map[string]any{
		"title":         str(),
		"format":        enum(formatValues()...),
		"page_setup":    pageSetupSchema(),
		"default_style": defaultStyleSchema(),
		"options":       optionsSchema(),
		"sections":      array(section),
	}, "title", "format", "page_setup", "default_style", "options", "sections")
}

func textBlockVariant(types ...any) map[string]any {
	return object(map[string]any{
		"block_id":     str(),
		"type":         enum(types...),
		"content":      str(),
		"level":        integer(),
		"font_size_pt": num(),
		"font_color":   str(),
		"bold":         boolean(),
		"italic":       boolean(),
		"alignment":    enum("LEFT", "CENTER", "RIGHT", "JUSTIFIED"),
	}, "block_id", "type", "content", "level", "font_size_pt", "font_color", "bold", "italic", "alignment")
}

func tableVariant() map[string]any {
	cell := object(map[string]any{"content": str(), "bold": boolean()}, "content", "bold")
	return object(map[string]any{
		"block_id": str(),
		"type":     enum("table"),
		"cells":    array(array(cell)),
	}, "block_id", "type", "cells")
}

func listVariant() map[string]any {
	item := object(map[string]any{"content": str(), "indent_level": integer()}, "content", "indent_level")
	return object(map[string]any{
		"block_id": str(),
		"type":     enum("bullet_list", "numbered_list"),
		"items":    array(item),
	}, "block_id", "type", "items")
}

func calloutVariant() map[string]any {
	return object(map[string]any{
		"block_id": str(),
		"type":     enum("callout"),
		"content":  str(),
		"style":    enum("info", "warning", "success", "danger"),
		"title":    nullableStr(),
		"icon":     nullableStr(),
	}, "block_id", "type", "content", "style", "title", "icon")
}

func keyValueVariant() map[string]any {
	item := object(map[string]any{"key": str(), "value": str()}, "key", "value")
	return object(map[string]any{
		"block_id": str(),
		"type":     enum("key_value"),
		"layout":   enum("vertical", "horizontal", "two_column"),
		"items":    array(item),
	}, "block_id", "type", "layout", "items")
}

func citationVariant() map[string]any {
	entry := object(map[string]any{"id": str(), "content": str()}, "id", "content")
	return object(map[string]any{
		"block_id":       str(),
		"type":           enum("citation"),
		"citation_style": enum("APA", "MLA", "Chicago", "Harvard", "IEEE", "inline"),
		"entries":        array(entry),
	}, "block_id", "type", "citation_style", "entries")
}

// sectionBlockSchema 章节块 Schema，按变体拆分为 anyOf
func sectionBlockSchema() map[string]any {
	return map[string]any{
		"anyOf": []any{
			textBlockVariant("main_heading", "sub_heading", "paragraph", "bullet_list",
				"numbered_list", "callout", "code_block", "blockquote",
				"horizontal_rule", "page_break", "key_value", "equation", "footnote"),
			tableVariant(),
			listVariant(),
			keyValueVariant(),
			citationVariant(),
		},
	}
}

// SectionSchema 章节 Schema（non-strict，各变体字段可选）
func SectionSchema() map[string]any {
	return object(map[string]any{
		"section_id": str(),
		"blocks":     array(sectionBlockSchema()),
	}, "section_id", "blocks")
}

// EditSchema 章节编辑 Schema（non-strict）
func EditSchema() map[string]any {
	return object(map[string]any{
		"target_section_id": str(),
		"blocks":            array(sectionBlockSchema()),
	}, "target_section_id", "blocks")
}

// responseBlockSchema strict 模式下的块 Schema
func responseBlockSchema() map[string]any {
	return map[string]any{
		"anyOf": []any{
			textBlockVariant("main_heading", "sub_heading", "paragraph", "bullet_list",
				"numbered_list", "table", "callout", "code_block", "blockquote",
				"horizontal_rule", "page_break", "spacer", "key_value"),
			tableVariant(),
			listVariant(),
			calloutVariant(),
		},
	}
}

// ResponseSchema 单次生成的基础响应 Schema（strict）
// 每次调用返回新实例
func ResponseSchema() map[string]any {
	blocks := func() map[string]any { return array(responseBlockSchema()) }

	document := object(map[string]any{
		"title":         str(),
		"format":        enum(responseFormats...),
		"page_setup":    pageSetupSchema(),
		"default_style": defaultStyleSchema(),
		"options":       optionsSchema(),
		"blocks":        blocks(),
	}, "title", "format", "page_setup", "default_style", "options", "blocks")

	patch := object(map[string]any{
		"target_block_id": str(),
		"action":          enum("replace", "expand", "summarize", "rewrite"),
		"blocks":          blocks(),
	}, "target_block_id", "action", "blocks")

	insert := object(map[string]any{
		"target_block_id": str(),
		"position":        enum("before", "after"),
		"blocks":          blocks(),
	}, "target_block_id", "position", "blocks")

	appendPayload := object(map[string]any{
		"blocks": blocks(),
	}, "blocks")

	return object(map[string]any{
		"operation": enum("create", "patch", "insert", "append"),
		"document":  nullable(document),
		"patch":     nullable(patch),
		"insert":    nullable(insert),
		"append":    nullable(appendPayload),
	}, "operation", "document", "patch", "insert", "append")
}
