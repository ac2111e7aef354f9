// Package entity 定义领域实体
package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// BlockType 内容块类型
type BlockType string

const (
	BlockMainHeading     BlockType = "main_heading"
	BlockSubHeading      BlockType = "sub_heading"
	BlockParagraph       BlockType = "paragraph"
	BlockBulletList      BlockType = "bullet_list"
	BlockNumberedList    BlockType = "numbered_list"
	BlockTable           BlockType = "table"
	BlockCallout         BlockType = "callout"
	BlockCodeBlock       BlockType = "code_block"
	BlockBlockquote      BlockType = "blockquote"
	BlockImage           BlockType = "image"
	BlockHorizontalRule  BlockType = "horizontal_rule"
	BlockPageBreak       BlockType = "page_break"
	BlockSpacer          BlockType = "spacer"
	BlockTableOfContents BlockType = "table_of_contents"
	BlockEquation        BlockType = "equation"
	BlockKeyValue        BlockType = "key_value"
	BlockFootnote        BlockType = "footnote"
	BlockCitation        BlockType = "citation"
	BlockColumns         BlockType = "columns"
)

// AllBlockTypes 全部合法块类型
var AllBlockTypes = []BlockType{
	BlockMainHeading, BlockSubHeading, BlockParagraph, BlockBulletList, BlockNumberedList,
	BlockTable, BlockCallout, BlockCodeBlock, BlockBlockquote, BlockImage,
	BlockHorizontalRule, BlockPageBreak, BlockSpacer, BlockTableOfContents, BlockEquation,
	BlockKeyValue, BlockFootnote, BlockCitation, BlockColumns,
}

// Valid 是否为已知块类型
func (t BlockType) Valid() bool {
	for _, bt := range AllBlockTypes {
		if bt == t {
			return true
		}
	}
	return false
}

// Block 内容块，封闭的变体集合
type Block interface {
	BlockID() string
	Kind() BlockType
	isBlock()
}

// BlockBase 所有块共有的标识字段
type BlockBase struct {
	ID   string    `json:"block_id"`
	Type BlockType `json:"type"`
}

func (b BlockBase) BlockID() string { return b.ID }
func (b BlockBase) Kind() BlockType { return b.Type }
func (BlockBase) isBlock()          {}

// TextStyle 文本样式
type TextStyle struct {
	FontFamily *string  `json:"font_family,omitempty"`
	FontSizePt *float64 `json:"font_size_pt,omitempty"`
	FontColor  string   `json:"font_color,omitempty"`
	Bold       *bool    `json:"bold,omitempty"`
	Italic     *bool    `json:"italic,omitempty"`
	Underline  *bool    `json:"underline,omitempty"`
}

// Spacing 段前段后间距
type Spacing struct {
	SpacingBeforePt *float64 `json:"spacing_before_pt,omitempty"`
	SpacingAfterPt  *float64 `json:"spacing_after_pt,omitempty"`
}

// InlineStyle 行内样式区间，索引为 content 内字符位置
type InlineStyle struct {
	StartIndex     int      `json:"start_index"`
	EndIndex       int      `json:"end_index"`
	Bold           *bool    `json:"bold,omitempty"`
	Italic         *bool    `json:"italic,omitempty"`
	Underline      *bool    `json:"underline,omitempty"`
	Strikethrough  *bool    `json:"strikethrough,omitempty"`
	FontColor      *string  `json:"font_color,omitempty"`
	HighlightColor *string  `json:"highlight_color,omitempty"`
	FontSizePt     *float64 `json:"font_size_pt,omitempty"`
	LinkURL        *string  `json:"link_url,omitempty"`
}

// HeadingLevel 标题层级，兼容 "1" 与 1 两种写法
type HeadingLevel int

// UnmarshalJSON 实现 json.Unmarshaler
func (l *HeadingLevel) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid heading level %q", s)
		}
		*l = HeadingLevel(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = HeadingLevel(n)
	return nil
}

// MainHeading 文档主标题
type MainHeading struct {
	BlockBase
	Content string `json:"content"`
	TextStyle
	Alignment string `json:"alignment,omitempty"`
	Spacing
}

// SubHeading 子标题 (1-3 级)
type SubHeading struct {
	BlockBase
	Level   HeadingLevel `json:"level"`
	Content string       `json:"content"`
	TextStyle
	Alignment string `json:"alignment,omitempty"`
	Spacing
}

// Paragraph 段落
type Paragraph struct {
	BlockBase
	Content string `json:"content"`
	TextStyle
	Strikethrough   *bool         `json:"strikethrough,omitempty"`
	Alignment       string        `json:"alignment,omitempty"`
	LineSpacing     *float64      `json:"line_spacing,omitempty"`
	FirstLineIndent *bool         `json:"first_line_indent,omitempty"`
	HighlightColor  *string       `json:"highlight_color,omitempty"`
	InlineStyles    []InlineStyle `json:"inline_styles,omitempty"`
	Spacing
}

// ListItem 列表项
type ListItem struct {
	Content      string        `json:"content"`
	IndentLevel  int           `json:"indent_level"`
	Bold         *bool         `json:"bold,omitempty"`
	Italic       *bool         `json:"italic,omitempty"`
	FontColor    string        `json:"font_color,omitempty"`
	InlineStyles []InlineStyle `json:"inline_styles,omitempty"`
}

// BulletList 无序列表；Content 为扁平写法下的单行内容
type BulletList struct {
	BlockBase
	BulletStyle string     `json:"bullet_style,omitempty"`
	Content     string     `json:"content,omitempty"`
	FontFamily  *string    `json:"font_family,omitempty"`
	FontSizePt  *float64   `json:"font_size_pt,omitempty"`
	Items       []ListItem `json:"items,omitempty"`
	Spacing
}

// NumberedList 有序列表
type NumberedList struct {
	BlockBase
	NumberingStyle string     `json:"numbering_style,omitempty"`
	Content        string     `json:"content,omitempty"`
	FontFamily     *string    `json:"font_family,omitempty"`
	FontSizePt     *float64   `json:"font_size_pt,omitempty"`
	Items          []ListItem `json:"items,omitempty"`
	Spacing
}

// TableHeaderStyle 表头样式
type TableHeaderStyle struct {
	BgColor   *string `json:"bg_color,omitempty"`
	FontColor string  `json:"font_color,omitempty"`
	Bold      *bool   `json:"bold,omitempty"`
	Alignment string  `json:"alignment,omitempty"`
}

// TableCell 单元格
type TableCell struct {
	Content           string        `json:"content"`
	Bold              *bool         `json:"bold,omitempty"`
	Italic            *bool         `json:"italic,omitempty"`
	FontColor         string        `json:"font_color,omitempty"`
	BgColor           *string       `json:"bg_color,omitempty"`
	Alignment         string        `json:"alignment,omitempty"`
	VerticalAlignment string        `json:"vertical_alignment,omitempty"`
	Colspan           int           `json:"colspan,omitempty"`
	Rowspan           int           `json:"rowspan,omitempty"`
	InlineStyles      []InlineStyle `json:"inline_styles,omitempty"`
}

// Table 表格，Cells[i][j] 为第 i 行第 j 列
type Table struct {
	BlockBase
	Caption             *string           `json:"caption,omitempty"`
	HasHeaderRow        *bool             `json:"has_header_row,omitempty"`
	HasHeaderColumn     *bool             `json:"has_header_column,omitempty"`
	BorderColor         string            `json:"border_color,omitempty"`
	BorderWidthPt       *float64          `json:"border_width_pt,omitempty"`
	Alignment           string            `json:"alignment,omitempty"`
	ColumnWidthsPercent []float64         `json:"column_widths_percent,omitempty"`
	StripeRows          *bool             `json:"stripe_rows,omitempty"`
	StripeColor         *string           `json:"stripe_color,omitempty"`
	HeaderStyle         *TableHeaderStyle `json:"header_style,omitempty"`
	Cells               [][]TableCell     `json:"cells"`
}

// Callout 提示框
type Callout struct {
	BlockBase
	Style       string  `json:"style,omitempty"`
	Title       *string `json:"title,omitempty"`
	Content     string  `json:"content"`
	BgColor     *string `json:"bg_color,omitempty"`
	BorderColor *string `json:"border_color,omitempty"`
	BorderSide  string  `json:"border_side,omitempty"`
	FontColor   string  `json:"font_color,omitempty"`
	Bold        *bool   `json:"bold,omitempty"`
	Italic      *bool   `json:"italic,omitempty"`
	Icon        *string `json:"icon,omitempty"`
}

// CodeBlock 代码块
type CodeBlock struct {
	BlockBase
	Language        *string  `json:"language,omitempty"`
	Content         string   `json:"content"`
	ShowLineNumbers *bool    `json:"show_line_numbers,omitempty"`
	FontFamily      string   `json:"font_family,omitempty"`
	FontSizePt      *float64 `json:"font_size_pt,omitempty"`
	BgColor         string   `json:"bg_color,omitempty"`
	FontColor       string   `json:"font_color,omitempty"`
	Caption         *string  `json:"caption,omitempty"`
}

// Blockquote 引用
type Blockquote struct {
	BlockBase
	Content     string  `json:"content"`
	Attribution *string `json:"attribution,omitempty"`
	TextStyle
	BorderColor      string   `json:"border_color,omitempty"`
	IndentLeftInches *float64 `json:"indent_left_inches,omitempty"`
	Spacing
}

// Image 图片占位
type Image struct {
	BlockBase
	Source       string   `json:"source,omitempty"`
	URL          *string  `json:"url,omitempty"`
	AltText      string   `json:"alt_text"`
	Caption      *string  `json:"caption,omitempty"`
	WidthPercent *float64 `json:"width_percent,omitempty"`
	Alignment    string   `json:"alignment,omitempty"`
	Border       *bool    `json:"border,omitempty"`
	BorderColor  *string  `json:"border_color,omitempty"`
}

// HorizontalRule 水平分割线
type HorizontalRule struct {
	BlockBase
	Style        string   `json:"style,omitempty"`
	Color        string   `json:"color,omitempty"`
	ThicknessPt  *float64 `json:"thickness_pt,omitempty"`
	WidthPercent *float64 `json:"width_percent,omitempty"`
	Spacing
}

// PageBreak 分页符
type PageBreak struct {
	BlockBase
}

// Spacer 垂直留白
type Spacer struct {
	BlockBase
	HeightPt float64 `json:"height_pt"`
}

// TableOfContents 目录
type TableOfContents struct {
	BlockBase
	Title           string  `json:"title,omitempty"`
	IncludeLevels   []int   `json:"include_levels,omitempty"`
	ShowPageNumbers *bool   `json:"show_page_numbers,omitempty"`
	FontFamily      *string `json:"font_family,omitempty"`
}

// Equation 公式，Content 为 LaTeX
type Equation struct {
	BlockBase
	Content     string  `json:"content"`
	DisplayMode *bool   `json:"display_mode,omitempty"`
	Alignment   string  `json:"alignment,omitempty"`
	Caption     *string `json:"caption,omitempty"`
}

// KeyValueItem 键值项
type KeyValueItem struct {
	Key        string `json:"key"`
	Value      string `json:"value"`
	KeyBold    *bool  `json:"key_bold,omitempty"`
	KeyColor   string `json:"key_color,omitempty"`
	ValueColor string `json:"value_color,omitempty"`
}

// KeyValue 键值/元数据块
type KeyValue struct {
	BlockBase
	Layout     string         `json:"layout,omitempty"`
	Content    string         `json:"content,omitempty"`
	FontFamily *string        `json:"font_family,omitempty"`
	FontSizePt *float64       `json:"font_size_pt,omitempty"`
	Items      []KeyValueItem `json:"items,omitempty"`
}

// Footnote 脚注
type Footnote struct {
	BlockBase
	FootnoteID string   `json:"footnote_id"`
	Content    string   `json:"content"`
	FontSizePt *float64 `json:"font_size_pt,omitempty"`
	Italic     *bool    `json:"italic,omitempty"`
}

// CitationEntry 参考文献条目
type CitationEntry struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Citation 参考文献
type Citation struct {
	BlockBase
	CitationStyle string          `json:"citation_style,omitempty"`
	Entries       []CitationEntry `json:"entries"`
	Heading       *string         `json:"heading,omitempty"`
	FontSizePt    *float64        `json:"font_size_pt,omitempty"`
	HangingIndent *bool           `json:"hanging_indent,omitempty"`
}

// ColumnContent 单列内容
type ColumnContent struct {
	ColumnIndex int       `json:"column_index"`
	Blocks      BlockList `json:"blocks"`
}

// Columns 分栏容器
type Columns struct {
	BlockBase
	NumColumns          int             `json:"num_columns"`
	GapInches           *float64        `json:"gap_inches,omitempty"`
	ColumnWidthsPercent []float64       `json:"column_widths_percent,omitempty"`
	ColumnsContent      []ColumnContent `json:"columns_content"`
}

// UnknownBlock 无法识别或无法解码的块，原样保留供校验报告
type UnknownBlock struct {
	BlockBase
	Raw       json.RawMessage `json:"-"`
	DecodeErr string          `json:"-"`
}

// MarshalJSON 原样输出
func (b *UnknownBlock) MarshalJSON() ([]byte, error) {
	if len(b.Raw) == 0 {
		return json.Marshal(b.BlockBase)
	}
	return b.Raw, nil
}

// Text 返回块的主体文本，无 content 字段的块返回空串
func Text(b Block) string {
	switch v := b.(type) {
	case *MainHeading:
		return v.Content
	case *SubHeading:
		return v.Content
	case *Paragraph:
		return v.Content
	case *BulletList:
		return v.Content
	case *NumberedList:
		return v.Content
	case *Callout:
		return v.Content
	case *CodeBlock:
		return v.Content
	case *Blockquote:
		return v.Content
	case *Equation:
		return v.Content
	case *KeyValue:
		return v.Content
	case *Footnote:
		return v.Content
	case *Table, *Image, *HorizontalRule, *PageBreak, *Spacer,
		*TableOfContents, *Citation, *Columns, *UnknownBlock:
		return ""
	default:
		return ""
	}
}

// Children 返回容器块内嵌的子块
func Children(b Block) []Block {
	switch v := b.(type) {
	case *Columns:
		var out []Block
		for _, col := range v.ColumnsContent {
			out = append(out, col.Blocks...)
		}
		return out
	case *MainHeading, *SubHeading, *Paragraph, *BulletList, *NumberedList,
		*Table, *Callout, *CodeBlock, *Blockquote, *Image,
		*HorizontalRule, *PageBreak, *Spacer, *TableOfContents, *Equation,
		*KeyValue, *Footnote, *Citation, *UnknownBlock:
		return nil
	default:
		return nil
	}
}

// WalkBlocks 深度优先遍历块序列（含分栏内嵌块），path 形如 prefix[0].columns_content[1].blocks[2]
func WalkBlocks(blocks []Block, prefix string, fn func(path string, b Block)) {
	for i, b := range blocks {
		if b == nil {
			continue
		}
		path := fmt.Sprintf("%s[%d]", prefix, i)
		fn(path, b)
		if cols, ok := b.(*Columns); ok {
			for j, col := range cols.ColumnsContent {
				WalkBlocks(col.Blocks, fmt.Sprintf("%s.columns_content[%d].blocks", path, j), fn)
			}
		}
	}
}

// BlockList 可从 JSON 按 type 解码的块序列
type BlockList []Block

// UnmarshalJSON 按 type 字段分派到具体变体
func (l *BlockList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("blocks must be an array: %w", err)
	}
	out := make(BlockList, 0, len(raws))
	for _, raw := range raws {
		out = append(out, DecodeBlock(raw))
	}
	*l = out
	return nil
}

// DecodeBlock 解码单个块；未知类型或字段类型不符时返回 UnknownBlock
func DecodeBlock(raw json.RawMessage) Block {
	kept := append(json.RawMessage(nil), raw...)

	var head BlockBase
	if err := json.Unmarshal(raw, &head); err != nil {
		return &UnknownBlock{Raw: kept, DecodeErr: err.Error()}
	}

	b := newBlock(head.Type)
	if b == nil {
		return &UnknownBlock{BlockBase: head, Raw: kept}
	}
	if err := json.Unmarshal(raw, b); err != nil {
		return &UnknownBlock{BlockBase: head, Raw: kept, DecodeErr: err.Error()}
	}
	return b
}

// newBlock 按类型构造空变体
func newBlock(t BlockType) Block {
	switch t {
	case BlockMainHeading:
		return &MainHeading{}
	case BlockSubHeading:
		return &SubHeading{}
	case BlockParagraph:
		return &Paragraph{}
	case BlockBulletList:
		return &BulletList{}
	case BlockNumberedList:
		return &NumberedList{}
	case BlockTable:
		return &Table{}
	case BlockCallout:
		return &Callout{}
	case BlockCodeBlock:
		return &CodeBlock{}
	case BlockBlockquote:
		return &Blockquote{}
	case BlockImage:
		return &Image{}
	case BlockHorizontalRule:
		return &HorizontalRule{}
	case BlockPageBreak:
		return &PageBreak{}
	case BlockSpacer:
		return &Spacer{}
	case BlockTableOfContents:
		return &TableOfContents{}
	case BlockEquation:
		return &Equation{}
	case BlockKeyValue:
		return &KeyValue{}
	case BlockFootnote:
		return &Footnote{}
	case BlockCitation:
		return &Citation{}
	case BlockColumns:
		return &Columns{}
	default:
		return nil
	}
}
