package document

import "docs-agent-api/internal/domain/entity"

var sectionStyles = map[entity.DocumentFormat]string{
	entity.FormatThesis:        "Academic, formal, first_line_indent, JUSTIFIED alignment, Times New Roman.",
	entity.FormatResearchPaper: "Academic, evidence-based, formal citations, JUSTIFIED alignment.",
	entity.FormatReport:        "Professional, structured, use tables and callouts for key findings.",
	entity.FormatArticle:       "Engaging, conversational, LEFT alignment, use callouts for key points.",
	entity.FormatProposal:      "Persuasive, professional, include budget/timeline tables.",
	entity.FormatMeetingNotes:  "Concise, action-oriented, use bullet lists and key_value blocks.",
	entity.FormatLegal:         "Formal, precise, numbered sections, LEFT alignment.",
	entity.FormatTechnicalDocs: "Technical, precise, use code_block and tables extensively.",
	entity.FormatCaseStudy:     "Narrative, evidence-backed, use callouts and tables for data.",
	entity.FormatWhitePaper:    "Authoritative, data-driven, use tables and blockquotes.",
	entity.FormatPolicy:        "Formal, directive tone, use numbered lists for rules.",
	entity.FormatGeneral:       "Professional, clear, balanced use of formatting.",
}

// StyleFor 按文档格式取写作风格，未知格式回落到 general
func StyleFor(format entity.DocumentFormat) string {
	if s, ok := sectionStyles[format]; ok {
		return s
	}
	return sectionStyles[entity.FormatGeneral]
}
