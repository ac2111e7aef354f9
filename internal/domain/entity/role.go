// Package entity 定义领域实体
package entity

// Role 消息角色
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Remembered 会话记忆只保存用户与助手两种轮次，system 提示词每次重新渲染
func (r Role) Remembered() bool {
	return r == RoleUser || r == RoleAssistant
}
