// Package entity 定义领域实体
package entity

import (
	"encoding/json"
	"fmt"
)

// OperationKind 文档操作类型
type OperationKind string

const (
	OperationCreate OperationKind = "create"
	OperationPatch  OperationKind = "patch"
	OperationInsert OperationKind = "insert"
	OperationAppend OperationKind = "append"
)

// Valid 是否为已知操作
func (k OperationKind) Valid() bool {
	switch k {
	case OperationCreate, OperationPatch, OperationInsert, OperationAppend:
		return true
	default:
		return false
	}
}

// Operation 文档操作，四选一
type Operation interface {
	Kind() OperationKind
	Content() BlockList
	isOperation()
}

// CreateDocument create 操作的文档载荷
type CreateDocument struct {
	DocumentMeta
	Blocks BlockList `json:"blocks"`
}

// CreateOperation 生成全新文档
type CreateOperation struct {
	Document CreateDocument
}

// PatchOperation 替换已有块
type PatchOperation struct {
	TargetBlockID string
	Action        string
	Blocks        BlockList
}

// InsertOperation 在已有块前后插入
type InsertOperation struct {
	TargetBlockID string
	Position      string
	Blocks        BlockList
}

// AppendOperation 追加到文档末尾
type AppendOperation struct {
	Blocks BlockList
}

func (CreateOperation) Kind() OperationKind { return OperationCreate }
func (PatchOperation) Kind() OperationKind  { return OperationPatch }
func (InsertOperation) Kind() OperationKind { return OperationInsert }
func (AppendOperation) Kind() OperationKind { return OperationAppend }

func (o CreateOperation) Content() BlockList { return o.Document.Blocks }
func (o PatchOperation) Content() BlockList  { return o.Blocks }
func (o InsertOperation) Content() BlockList { return o.Blocks }
func (o AppendOperation) Content() BlockList { return o.Blocks }

func (CreateOperation) isOperation() {}
func (PatchOperation) isOperation()  {}
func (InsertOperation) isOperation() {}
func (AppendOperation) isOperation() {}

// PatchPayload patch 的线上载荷
type PatchPayload struct {
	TargetBlockID string    `json:"target_block_id"`
	Action        string    `json:"action,omitempty"`
	Blocks        BlockList `json:"blocks"`
}

// InsertPayload insert 的线上载荷
type InsertPayload struct {
	TargetBlockID string    `json:"target_block_id"`
	Position      string    `json:"position"`
	Blocks        BlockList `json:"blocks"`
}

// AppendPayload append 的线上载荷
type AppendPayload struct {
	Blocks BlockList `json:"blocks"`
}

// ResponseWire 模型返回的线上形态：operation 加四个可空的兄弟字段
type ResponseWire struct {
	Operation OperationKind   `json:"operation"`
	Document  *CreateDocument `json:"document"`
	Patch     *PatchPayload   `json:"patch"`
	Insert    *InsertPayload  `json:"insert"`
	Append    *AppendPayload  `json:"append"`
}

// ToOperation 将线上形态转换为操作变体
// operation 未知时按唯一非空载荷推断
func (w *ResponseWire) ToOperation() (Operation, error) {
	kind := w.Operation
	if !kind.Valid() || !w.hasPayload(kind) {
		inferred, ok := w.inferKind()
		if !ok {
			return nil, fmt.Errorf("response has no usable payload for operation %q", w.Operation)
		}
		kind = inferred
	}

	switch kind {
	case OperationCreate:
		return CreateOperation{Document: *w.Document}, nil
	case OperationPatch:
		return PatchOperation{TargetBlockID: w.Patch.TargetBlockID, Action: w.Patch.Action, Blocks: w.Patch.Blocks}, nil
	case OperationInsert:
		return InsertOperation{TargetBlockID: w.Insert.TargetBlockID, Position: w.Insert.Position, Blocks: w.Insert.Blocks}, nil
	default:
		return AppendOperation{Blocks: w.Append.Blocks}, nil
	}
}

// Blocks 返回声明操作对应载荷中的顶层块
func (w *ResponseWire) Blocks() BlockList {
	switch w.Operation {
	case OperationCreate:
		if w.Document != nil {
			return w.Document.Blocks
		}
	case OperationPatch:
		if w.Patch != nil {
			return w.Patch.Blocks
		}
	case OperationInsert:
		if w.Insert != nil {
			return w.Insert.Blocks
		}
	case OperationAppend:
		if w.Append != nil {
			return w.Append.Blocks
		}
	}
	return nil
}

func (w *ResponseWire) hasPayload(kind OperationKind) bool {
	switch kind {
	case OperationCreate:
		return w.Document != nil
	case OperationPatch:
		return w.Patch != nil
	case OperationInsert:
		return w.Insert != nil
	case OperationAppend:
		return w.Append != nil
	default:
		return false
	}
}

func (w *ResponseWire) inferKind() (OperationKind, bool) {
	var found []OperationKind
	for _, k := range []OperationKind{OperationCreate, OperationPatch, OperationInsert, OperationAppend} {
		if w.hasPayload(k) {
			found = append(found, k)
		}
	}
	if len(found) != 1 {
		return "", false
	}
	return found[0], true
}

// DocumentResponse 单次生成/行内编辑的结果
type DocumentResponse struct {
	Operation Operation
}

// MarshalJSON 输出 {"operation": kind, "<kind>": payload}
func (r DocumentResponse) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	switch op := r.Operation.(type) {
	case CreateOperation:
		out["operation"] = OperationCreate
		out["document"] = op.Document
	case PatchOperation:
		out["operation"] = OperationPatch
		out["patch"] = PatchPayload{TargetBlockID: op.TargetBlockID, Action: op.Action, Blocks: op.Blocks}
	case InsertOperation:
		out["operation"] = OperationInsert
		out["insert"] = InsertPayload{TargetBlockID: op.TargetBlockID, Position: op.Position, Blocks: op.Blocks}
	case AppendOperation:
		out["operation"] = OperationAppend
		out["append"] = AppendPayload{Blocks: op.Blocks}
	default:
		return nil, fmt.Errorf("unsupported operation %T", r.Operation)
	}
	return json.Marshal(out)
}

// UnmarshalJSON 从线上形态解码
func (r *DocumentResponse) UnmarshalJSON(data []byte) error {
	var wire ResponseWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	op, err := wire.ToOperation()
	if err != nil {
		return err
	}
	r.Operation = op
	return nil
}
