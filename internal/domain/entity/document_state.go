// Package entity 定义领域实体
package entity

import "time"

// DocumentOutlineEntry 客户端同步的文档块概要
type DocumentOutlineEntry struct {
	BlockID string `json:"block_id"`
	Type    string `json:"type"`
	Summary string `json:"summary"`
}

// DocumentState 客户端同步的文档状态
type DocumentState struct {
	Outline         []DocumentOutlineEntry `json:"outline"`
	Summaries       map[string]string      `json:"summaries"`
	OrderedBlockIDs []string               `json:"ordered_block_ids"`
	UpdatedAt       time.Time              `json:"updated_at"`
}
