// Package entity 定义领域实体
package entity

import (
	"time"
)

// ConversationTurn 会话记忆中的一轮，按 (文档, 用户) 分区
type ConversationTurn struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentID string    `json:"document_id" gorm:"type:varchar(128);index:idx_turn_doc_user;not null"`
	UserID     string    `json:"user_id" gorm:"type:varchar(128);index:idx_turn_doc_user;not null"`
	Role       Role      `json:"role" gorm:"type:varchar(16);not null"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (ConversationTurn) TableName() string {
	return "conversation_turns"
}

func NewConversationTurn(documentID, userID string, role Role, content string) *ConversationTurn {
	return &ConversationTurn{
		DocumentID: documentID,
		UserID:     userID,
		Role:       role,
		Content:    content,
		CreatedAt:  time.Now(),
	}
}

// MemoryKey 会话记忆分区键
type MemoryKey struct {
	DocumentID string
	UserID     string
}

// String 返回 "doc:user" 形式
func (k MemoryKey) String() string {
	return k.DocumentID + ":" + k.UserID
}
