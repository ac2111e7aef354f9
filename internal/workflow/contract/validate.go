package contract

import (
	"fmt"
	"strings"

	"docs-agent-api/internal/domain/entity"
)

// ValidationError 单条校验问题
type ValidationError struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// Validate 校验模型返回的响应结构；结果仅作告警，不阻断流程
func Validate(resp *entity.ResponseWire) []ValidationError {
	if resp == nil {
		return []ValidationError{{Message: "response is empty"}}
	}

	var errs []ValidationError
	add := func(path, format string, args ...any) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	switch {
	case resp.Operation == "":
		add("operation", "missing required field: operation")
	case !resp.Operation.Valid():
		add("operation", "invalid operation: %s", resp.Operation)
	}

	var root string
	switch resp.Operation {
	case entity.OperationCreate:
		root = "document.blocks"
		if resp.Document == nil {
			add("document", "missing document object for create operation")
		} else if len(resp.Document.Blocks) == 0 {
			add(root, "document must have at least one block")
		}
	case entity.OperationPatch:
		root = "patch.blocks"
		if resp.Patch == nil || strings.TrimSpace(resp.Patch.TargetBlockID) == "" {
			add("patch.target_block_id", "missing patch.target_block_id")
		}
		if resp.Patch == nil || len(resp.Patch.Blocks) == 0 {
			add(root, "patch must include replacement blocks")
		}
	case entity.OperationInsert:
		root = "insert.blocks"
		if resp.Insert == nil || strings.TrimSpace(resp.Insert.TargetBlockID) == "" {
			add("insert.target_block_id", "missing insert.target_block_id")
		}
		if resp.Insert == nil || strings.TrimSpace(resp.Insert.Position) == "" {
			add("insert.position", "missing insert.position (before | after)")
		}
		if resp.Insert == nil || len(resp.Insert.Blocks) == 0 {
			add(root, "insert must include blocks to insert")
		}
	case entity.OperationAppend:
		root = "append.blocks"
		if resp.Append == nil || len(resp.Append.Blocks) == 0 {
			add(root, "append must include blocks")
		}
	}

	if root != "" {
		errs = append(errs, ValidateBlocks(resp.Blocks(), root)...)
	}
	return errs
}

// ValidateBlocks 校验块 ID 唯一（含分栏内嵌块）与块类型合法
// 每个重复 ID 只产生一条错误，列出全部出现位置
func ValidateBlocks(blocks []entity.Block, root string) []ValidationError {
	var errs []ValidationError

	seen := make(map[string][]string)
	var order []string

	entity.WalkBlocks(blocks, root, func(p string, b entity.Block) {
		id := b.BlockID()
		if strings.TrimSpace(id) == "" {
			errs = append(errs, ValidationError{Path: p, Message: "block is missing block_id"})
		} else {
			if _, ok := seen[id]; !ok {
				order = append(order, id)
			}
			seen[id] = append(seen[id], p)
		}

		switch {
		case b.Kind() == "":
			errs = append(errs, ValidationError{Path: p, Message: fmt.Sprintf("block %s missing type", id)})
		case !b.Kind().Valid():
			errs = append(errs, ValidationError{Path: p, Message: fmt.Sprintf("block %s has invalid type: %s", id, b.Kind())})
		default:
			if u, ok := b.(*entity.UnknownBlock); ok && u.DecodeErr != "" {
				errs = append(errs, ValidationError{Path: p, Message: fmt.Sprintf("block %s could not be decoded as %s: %s", id, b.Kind(), u.DecodeErr)})
			}
		}
	})

	for _, id := range order {
		paths := seen[id]
		if len(paths) < 2 {
			continue
		}
		errs = append(errs, ValidationError{
			Path:    paths[0],
			Message: fmt.Sprintf("duplicate block_id %q found at %s", id, strings.Join(paths, " and ")),
		})
	}
	return errs
}
