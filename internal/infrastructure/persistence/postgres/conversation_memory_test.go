package postgres

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/pkg/errors"
)

type fakeTurnRepo struct {
	turns []*entity.ConversationTurn
	err   error
}

func (f *fakeTurnRepo) Create(_ context.Context, turn *entity.ConversationTurn) error {
	if f.err != nil {
		return f.err
	}
	f.turns = append(f.turns, turn)
	return nil
}

func (f *fakeTurnRepo) ListByKey(_ context.Context, key entity.MemoryKey, _ int) ([]*entity.ConversationTurn, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*entity.ConversationTurn
	for _, t := range f.turns {
		if t.DocumentID == key.DocumentID && t.UserID == key.UserID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTurnRepo) DeleteByKey(_ context.Context, key entity.MemoryKey) (int64, error) {
	kept := f.turns[:0]
	var n int64
	for _, t := range f.turns {
		if t.DocumentID == key.DocumentID && t.UserID == key.UserID {
			n++
			continue
		}
		kept = append(kept, t)
	}
	f.turns = kept
	return n, nil
}

func TestConversationMemory_PartitionsByKey(t *testing.T) {
	repo := &fakeTurnRepo{}
	mem := NewConversationMemory(repo)
	ctx := context.Background()
	a := entity.MemoryKey{DocumentID: "doc-1", UserID: "u-1"}
	b := entity.MemoryKey{DocumentID: "doc-1", UserID: "u-2"}

	require.NoError(t, mem.Append(ctx, a, entity.RoleUser, "hello"))
	require.NoError(t, mem.Append(ctx, a, entity.RoleAssistant, "done"))
	require.NoError(t, mem.Append(ctx, b, entity.RoleUser, "other"))

	history, err := mem.History(ctx, a)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entity.RoleUser, history[0].Role)
	assert.Equal(t, "done", history[1].Content)

	require.NoError(t, mem.Clear(ctx, a))
	history, err = mem.History(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, history)

	history, err = mem.History(ctx, b)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestConversationMemory_WrapsDatabaseErrors(t *testing.T) {
	mem := NewConversationMemory(&fakeTurnRepo{err: stderrors.New("connection refused")})

	err := mem.Append(context.Background(), entity.MemoryKey{DocumentID: "d"}, entity.RoleUser, "x")
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.AsAppError(err).Code)

	_, err = mem.History(context.Background(), entity.MemoryKey{DocumentID: "d"})
	assert.Equal(t, errors.CodeDatabaseError, errors.AsAppError(err).Code)
}

func TestConversationMemory_RejectsSystemRole(t *testing.T) {
	repo := &fakeTurnRepo{}
	mem := NewConversationMemory(repo)

	err := mem.Append(context.Background(), entity.MemoryKey{DocumentID: "d"}, entity.RoleSystem, "you are")
	assert.ErrorIs(t, err, errors.ErrInvalidParam)
	assert.Empty(t, repo.turns)
}
