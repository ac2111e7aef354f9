package document

import (
	"strings"

	"docs-agent-api/internal/domain/entity"
	wfnode "docs-agent-api/internal/workflow/node"
)

const (
	// FirstSectionSentinel 尚无前文摘要时写入章节提示词的占位
	FirstSectionSentinel = "This is the first section."

	summaryBlocksPerSection = 2
	defaultSnippetRunes     = 150
)

// Summarizer 滚动摘要：每章取前两个非表格且有文本的块，截断后拼接
type Summarizer struct {
	snippetRunes int
}

func NewSummarizer(snippetRunes int) *Summarizer {
	if snippetRunes <= 0 {
		snippetRunes = defaultSnippetRunes
	}
	return &Summarizer{snippetRunes: snippetRunes}
}

// SectionFragment 单章摘要 "[title]: snippet snippet"
func (s *Summarizer) SectionFragment(title string, blocks []entity.Block) string {
	snippets := make([]string, 0, summaryBlocksPerSection)
	for _, b := range blocks {
		if len(snippets) == summaryBlocksPerSection {
			break
		}
		if b == nil || b.Kind() == entity.BlockTable {
			continue
		}
		text := entity.Text(b)
		if text == "" {
			continue
		}
		snippets = append(snippets, wfnode.Snippet(text, s.snippetRunes))
	}
	return "[" + title + "]: " + strings.Join(snippets, " ")
}

// Build 按生成顺序重算全部已完成章节的摘要
func (s *Summarizer) Build(sections []entity.SectionResult) string {
	parts := make([]string, len(sections))
	for i, sec := range sections {
		parts[i] = s.SectionFragment(sec.Title, sec.Blocks)
	}
	return strings.Join(parts, "\n")
}

// Append 在已有摘要后追加一章；前导换行与首章无关，始终写入
func (s *Summarizer) Append(prior, title string, blocks []entity.Block) string {
	return prior + "\n" + s.SectionFragment(title, blocks)
}
