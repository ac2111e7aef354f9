// Package entity 定义领域实体
package entity

// DocumentFormat 文档格式
type DocumentFormat string

const (
	FormatReport        DocumentFormat = "report"
	FormatArticle       DocumentFormat = "article"
	FormatThesis        DocumentFormat = "thesis"
	FormatResearchPaper DocumentFormat = "research_paper"
	FormatProposal      DocumentFormat = "proposal"
	FormatMeetingNotes  DocumentFormat = "meeting_notes"
	FormatLegal         DocumentFormat = "legal"
	FormatTechnicalDocs DocumentFormat = "technical_docs"
	FormatCaseStudy     DocumentFormat = "case_study"
	FormatWhitePaper    DocumentFormat = "white_paper"
	FormatPolicy        DocumentFormat = "policy"
	FormatGeneral       DocumentFormat = "general"

	// 短文档格式，只走单次生成
	FormatResume      DocumentFormat = "resume"
	FormatCoverLetter DocumentFormat = "cover_letter"
)

// OutlineFormats 大纲可选的格式
var OutlineFormats = []DocumentFormat{
	FormatReport, FormatArticle, FormatThesis, FormatResearchPaper,
	FormatProposal, FormatMeetingNotes, FormatLegal, FormatTechnicalDocs,
	FormatCaseStudy, FormatWhitePaper, FormatPolicy, FormatGeneral,
}

// iterativeFormats 走大纲+分章节生成的长文档类型
var iterativeFormats = map[DocumentFormat]struct{}{
	FormatReport:        {},
	FormatArticle:       {},
	FormatThesis:        {},
	FormatResearchPaper: {},
	FormatProposal:      {},
	FormatMeetingNotes:  {},
	FormatLegal:         {},
	FormatTechnicalDocs: {},
	FormatCaseStudy:     {},
	FormatWhitePaper:    {},
	FormatPolicy:        {},
}

// IsIterative 是否为长文档类型
func (f DocumentFormat) IsIterative() bool {
	_, ok := iterativeFormats[f]
	return ok
}

// SectionType 章节类型
type SectionType string

const (
	SectionIntro      SectionType = "intro"
	SectionBody       SectionType = "body"
	SectionConclusion SectionType = "conclusion"
	SectionAppendix   SectionType = "appendix"
	SectionAbstract   SectionType = "abstract"
	SectionReferences SectionType = "references"
)

// SectionTypes 全部章节类型
var SectionTypes = []SectionType{
	SectionIntro, SectionBody, SectionConclusion, SectionAppendix, SectionAbstract, SectionReferences,
}

// PageSetup 页面设置
type PageSetup struct {
	PageSize           string  `json:"page_size"`
	Orientation        string  `json:"orientation"`
	MarginTopInches    float64 `json:"margin_top_inches"`
	MarginBottomInches float64 `json:"margin_bottom_inches"`
	MarginLeftInches   float64 `json:"margin_left_inches"`
	MarginRightInches  float64 `json:"margin_right_inches"`
	Columns            int     `json:"columns"`
}

// DefaultStyle 文档默认样式
type DefaultStyle struct {
	FontFamily              string  `json:"font_family"`
	FontSizePt              float64 `json:"font_size_pt"`
	LineSpacing             float64 `json:"line_spacing"`
	TextColor               string  `json:"text_color"`
	ParagraphSpacingAfterPt float64 `json:"paragraph_spacing_after_pt"`
}

// DocumentOptions 文档级选项
type DocumentOptions struct {
	IncludeTableOfContents bool    `json:"include_table_of_contents"`
	IncludePageNumbers     bool    `json:"include_page_numbers"`
	PageNumberAlignment    string  `json:"page_number_alignment"`
	IncludeHeader          bool    `json:"include_header"`
	HeaderText             *string `json:"header_text"`
	IncludeFooter          bool    `json:"include_footer"`
	FooterText             *string `json:"footer_text"`
}

// DocumentMeta 文档元信息，作为各类响应中的 document 字段
type DocumentMeta struct {
	Title        string          `json:"title"`
	Format       DocumentFormat  `json:"format"`
	PageSetup    PageSetup       `json:"page_setup"`
	DefaultStyle DefaultStyle    `json:"default_style"`
	Options      DocumentOptions `json:"options"`
}

// SectionDescriptor 大纲中的章节描述，规划后不可变
type SectionDescriptor struct {
	SectionID   string      `json:"section_id"`
	Title       string      `json:"title"`
	Type        SectionType `json:"type"`
	Depth       int         `json:"depth"`
	Description string      `json:"description"`
}

// Outline 文档大纲，章节顺序即目录顺序
type Outline struct {
	DocumentMeta
	Sections []SectionDescriptor `json:"sections"`
}

// Meta 返回大纲的文档元信息
func (o *Outline) Meta() DocumentMeta {
	return o.DocumentMeta
}

// SectionManifestEntry 章节清单项
type SectionManifestEntry struct {
	Index     int         `json:"index"`
	SectionID string      `json:"section_id"`
	Title     string      `json:"title"`
	Type      SectionType `json:"type"`
}

// Manifest 按大纲顺序生成章节清单
func (o *Outline) Manifest() []SectionManifestEntry {
	out := make([]SectionManifestEntry, len(o.Sections))
	for i, s := range o.Sections {
		out[i] = SectionManifestEntry{
			Index:     i,
			SectionID: s.SectionID,
			Title:     s.Title,
			Type:      s.Type,
		}
	}
	return out
}

// DocContext 章节生成所需的文档共享上下文
type DocContext struct {
	Title  string
	Format DocumentFormat
}

// SectionResult 单个章节的生成结果
type SectionResult struct {
	SectionID string    `json:"section_id"`
	Title     string    `json:"title"`
	Blocks    BlockList `json:"blocks"`
}
