package usage

import (
	"context"
	"encoding/json"
	"time"

	"docs-agent-api/internal/domain/repository"
	"docs-agent-api/pkg/errors"
)

// DocumentUsage 文档累计用量
type DocumentUsage struct {
	DocumentID  string `json:"document_id"`
	TotalTokens int64  `json:"total_tokens"`
}

// Cache 读穿缓存
type Cache interface {
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (any, error)) ([]byte, error)
}

// Reporter 查询文档累计 token，cache 为 nil 时直接查库
type Reporter struct {
	repo  repository.LLMUsageEventRepository
	cache Cache
	ttl   time.Duration
}

func NewReporter(repo repository.LLMUsageEventRepository, cache Cache, ttl time.Duration) *Reporter {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Reporter{repo: repo, cache: cache, ttl: ttl}
}

func (r *Reporter) DocumentTotal(ctx context.Context, documentID string) (*DocumentUsage, error) {
	if documentID == "" {
		return nil, errors.ErrInvalidParam.WithDetail("document id is required")
	}

	load := func(ctx context.Context) (any, error) {
		total, err := r.repo.SumByDocument(ctx, documentID)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to load usage")
		}
		return &DocumentUsage{DocumentID: documentID, TotalTokens: total}, nil
	}

	if r.cache == nil {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return v.(*DocumentUsage), nil
	}

	data, err := r.cache.GetOrLoad(ctx, "docs:usage:"+documentID, r.ttl, load)
	if err != nil {
		return nil, err
	}
	var out DocumentUsage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, errors.CodeCacheError, "corrupted usage cache entry")
	}
	return &out, nil
}
