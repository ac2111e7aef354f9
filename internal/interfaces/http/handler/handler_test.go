package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docs-agent-api/internal/application/document"
	"docs-agent-api/internal/application/usage"
	"docs-agent-api/internal/domain/entity"
	"docs-agent-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDocumentService struct {
	generateIn *document.GenerateInput
	generate   func(in *document.GenerateInput) (*document.GenerateOutput, error)
	pull       func(jobID string, index int) (*document.SectionPullResult, error)
	inlineIn   *document.InlineEditInput
	pullUserID string
	inlineErr  error
}

func (f *fakeDocumentService) Generate(_ context.Context, in *document.GenerateInput) (*document.GenerateOutput, error) {
	f.generateIn = in
	return f.generate(in)
}

func (f *fakeDocumentService) PullSection(_ context.Context, jobID string, index int, userID string) (*document.SectionPullResult, error) {
	f.pullUserID = userID
	return f.pull(jobID, index)
}

func (f *fakeDocumentService) InlineEdit(_ context.Context, in *document.InlineEditInput) (*entity.DocumentResponse, error) {
	f.inlineIn = in
	if f.inlineErr != nil {
		return nil, f.inlineErr
	}
	return &entity.DocumentResponse{Operation: entity.PatchOperation{
		TargetBlockID: in.TargetBlockID,
		Blocks: entity.BlockList{&entity.Paragraph{
			BlockBase: entity.BlockBase{ID: "p1", Type: entity.BlockParagraph},
			Content:   "rewritten",
		}},
	}}, nil
}

type fakeConversationService struct {
	turns   []*entity.ConversationTurn
	cleared []entity.MemoryKey
	states  map[entity.MemoryKey]*entity.DocumentState
}

func (f *fakeConversationService) History(_ context.Context, key entity.MemoryKey) ([]*entity.ConversationTurn, error) {
	return f.turns, nil
}

func (f *fakeConversationService) ClearHistory(_ context.Context, key entity.MemoryKey) error {
	f.cleared = append(f.cleared, key)
	return nil
}

func (f *fakeConversationService) SyncState(_ context.Context, key entity.MemoryKey, state *entity.DocumentState) error {
	if f.states == nil {
		f.states = map[entity.MemoryKey]*entity.DocumentState{}
	}
	f.states[key] = state
	return nil
}

func (f *fakeConversationService) State(_ context.Context, key entity.MemoryKey) (*entity.DocumentState, error) {
	s, ok := f.states[key]
	if !ok {
		return nil, errors.ErrDocumentNotFound
	}
	return s, nil
}

type fakeReporter struct{}

func (fakeReporter) DocumentTotal(_ context.Context, documentID string) (*usage.DocumentUsage, error) {
	return &usage.DocumentUsage{DocumentID: documentID, TotalTokens: 1234}, nil
}

func newEngine(doc DocumentService, conv ConversationService) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if u := c.GetHeader("X-User-ID"); u != "" {
			c.Set("user_id", u)
		}
		c.Next()
	})
	dh := NewDocumentHandler(doc)
	ch := NewConversationHandler(conv)
	uh := NewUsageHandler(fakeReporter{})
	r.POST("/v1/generate", dh.Generate)
	r.GET("/v1/sections/:job_id/:index", dh.PullSection)
	r.POST("/v1/edits", dh.InlineEdit)
	r.GET("/v1/documents/:doc_id/history", ch.GetHistory)
	r.DELETE("/v1/documents/:doc_id/history", ch.ClearHistory)
	r.GET("/v1/documents/:doc_id/state", ch.GetState)
	r.POST("/v1/documents/:doc_id/state", ch.SyncState)
	r.GET("/v1/documents/:doc_id/usage", uh.GetDocumentUsage)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-ID", "u-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		ErrorCode string `json:"error_code"`
		Details   string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestGenerate_StartPayload(t *testing.T) {
	svc := &fakeDocumentService{generate: func(in *document.GenerateInput) (*document.GenerateOutput, error) {
		return &document.GenerateOutput{Start: &document.StartResult{
			Mode:  document.ModeIterativeStart,
			JobID: "job-1",
			SectionsMeta: []entity.SectionManifestEntry{
				{SectionID: "s1", Title: "Intro"},
			},
		}}, nil
	}}
	r := newEngine(svc, &fakeConversationService{})

	w := do(r, http.MethodPost, "/v1/generate", `{"prompt":"quarterly report","doc_type":" Report ","doc_id":"doc-1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, entity.FormatReport, svc.generateIn.DocType)
	assert.Equal(t, "doc-1", svc.generateIn.DocumentID)
	assert.Equal(t, "u-1", svc.generateIn.UserID)

	var start document.StartResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &start))
	assert.Equal(t, "job-1", start.JobID)
	assert.Equal(t, document.ModeIterativeStart, start.Mode)
	require.Len(t, start.SectionsMeta, 1)
}

func TestGenerate_Validation(t *testing.T) {
	svc := &fakeDocumentService{generate: func(*document.GenerateInput) (*document.GenerateOutput, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	r := newEngine(svc, &fakeConversationService{})

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/v1/generate", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/v1/generate", `{"prompt":"   "}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/v1/generate", `{"prompt":"x","mode":"stream"}`).Code)
}

func TestGenerate_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   errors.ErrorCode
	}{
		{errors.ErrMissingDocumentContext, http.StatusBadRequest, errors.CodeMissingDocumentContext},
		{errors.ErrNoDocumentContext, http.StatusBadRequest, errors.CodeNoDocumentContext},
		{errors.ErrPlanningFailed.WithDetail("no sections"), http.StatusBadGateway, errors.CodePlanningFailed},
		{errors.ErrMalformedCompletion, http.StatusBadGateway, errors.CodeMalformedCompletion},
		{errors.ErrInvalidEditResponse, http.StatusBadGateway, errors.CodeInvalidEditResponse},
		{errors.ErrProviderError.WithError(stderrors.New("429")), http.StatusBadGateway, errors.CodeLLMProviderError},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			svc := &fakeDocumentService{generate: func(*document.GenerateInput) (*document.GenerateOutput, error) {
				return nil, tc.err
			}}
			w := do(newEngine(svc, &fakeConversationService{}), http.MethodPost, "/v1/generate", `{"prompt":"x","mode":"edit"}`)
			assert.Equal(t, tc.status, w.Code)
			env := decode(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, string(tc.code), env.Error.ErrorCode)
		})
	}

	svc := &fakeDocumentService{generate: func(*document.GenerateInput) (*document.GenerateOutput, error) {
		return nil, stderrors.New("connection reset by peer")
	}}
	w := do(newEngine(svc, &fakeConversationService{}), http.MethodPost, "/v1/generate", `{"prompt":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestPullSection(t *testing.T) {
	svc := &fakeDocumentService{pull: func(jobID string, index int) (*document.SectionPullResult, error) {
		switch {
		case jobID == "gone":
			return nil, errors.ErrJobNotFound
		case index > 1:
			return nil, errors.ErrSectionIndexNotFound
		}
		return &document.SectionPullResult{SectionID: "s2", Title: "Body", Index: index, Total: 2, Blocks: entity.BlockList{}}, nil
	}}
	r := newEngine(svc, &fakeConversationService{})

	w := do(r, http.MethodGet, "/v1/sections/job-1/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var res document.SectionPullResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
	assert.Equal(t, "s2", res.SectionID)
	assert.Equal(t, 1, res.Index)
	assert.Equal(t, 2, res.Total)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/v1/sections/gone/0", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/v1/sections/job-1/5", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/v1/sections/job-1/-1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/v1/sections/job-1/abc", "").Code)
}

func TestPullSection_OtherUsersJob(t *testing.T) {
	svc := &fakeDocumentService{pull: func(string, int) (*document.SectionPullResult, error) {
		return nil, errors.ErrForbidden.WithDetail("job belongs to another user")
	}}
	r := newEngine(svc, &fakeConversationService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/sections/job-1/0", nil)
	req.Header.Set("X-User-ID", "u-2")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "u-2", svc.pullUserID)
}

func TestInlineEdit(t *testing.T) {
	svc := &fakeDocumentService{}
	r := newEngine(svc, &fakeConversationService{})

	w := do(r, http.MethodPost, "/v1/edits",
		`{"operation":"patch","payload":{"original_text":"old words","instruction":"be concise","target_block_id":"p1"},"doc_id":"doc-1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, entity.OperationPatch, svc.inlineIn.Operation)
	assert.Equal(t, "old words", svc.inlineIn.Text)
	assert.Equal(t, "p1", svc.inlineIn.TargetBlockID)
	assert.Contains(t, string(decode(t, w).Data), `"operation":"patch"`)

	w = do(r, http.MethodPost, "/v1/edits", `{"operation":"insert","payload":{"context":"near here","instruction":"add a table"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "near here", svc.inlineIn.Text)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/v1/edits", `{"operation":"append","payload":{"instruction":"x"}}`).Code)
}

func TestConversationEndpoints(t *testing.T) {
	conv := &fakeConversationService{turns: []*entity.ConversationTurn{
		entity.NewConversationTurn("doc-1", "u-1", entity.RoleUser, "write a report"),
	}}
	r := newEngine(&fakeDocumentService{}, conv)

	w := do(r, http.MethodGet, "/v1/documents/doc-1/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), "write a report")

	w = do(r, http.MethodDelete, "/v1/documents/doc-1/history", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []entity.MemoryKey{{DocumentID: "doc-1", UserID: "u-1"}}, conv.cleared)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/v1/documents/doc-1/state", "").Code)

	w = do(r, http.MethodPost, "/v1/documents/doc-1/state",
		`{"state":{"outline":[{"block_id":"h1","type":"main_heading","summary":"Title"}],"ordered_block_ids":["h1"]}}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/v1/documents/doc-1/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	var state entity.DocumentState
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &state))
	require.Len(t, state.Outline, 1)
	assert.Equal(t, "h1", state.Outline[0].BlockID)
}

func TestUsageEndpoint(t *testing.T) {
	w := do(newEngine(&fakeDocumentService{}, &fakeConversationService{}), http.MethodGet, "/v1/documents/doc-1/usage", "")
	require.Equal(t, http.StatusOK, w.Code)
	var u usage.DocumentUsage
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &u))
	assert.Equal(t, int64(1234), u.TotalTokens)
}

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(context.Context) error { return s.err }

func TestHealthReady(t *testing.T) {
	r := gin.New()
	ok := NewHealthHandler("1.0.0", map[string]HealthChecker{"redis": stubChecker{}})
	bad := NewHealthHandler("1.0.0", map[string]HealthChecker{"postgres": stubChecker{err: stderrors.New("down")}})
	r.GET("/ready", ok.Ready)
	r.GET("/ready-bad", bad.Ready)
	r.GET("/health", ok.Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready-bad", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_ready")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Contains(t, w.Body.String(), "1.0.0")
}
