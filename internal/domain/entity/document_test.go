package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentResponse_DecodesTaggedVariant(t *testing.T) {
	raw := `{
	  "operation":"patch",
	  "document":null,
	  "patch":{"target_block_id":"b3","action":"rewrite","blocks":[{"block_id":"b3","type":"paragraph","content":"new"}]},
	  "insert":null,
	  "append":null
	}`

	var resp DocumentResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	patch, ok := resp.Operation.(PatchOperation)
	require.True(t, ok)
	assert.Equal(t, "b3", patch.TargetBlockID)
	assert.Len(t, patch.Content(), 1)

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.Equal(t, "patch", fields["operation"])
	assert.NotContains(t, fields, "document")
	assert.NotContains(t, fields, "insert")
}

func TestResponseWire_InfersKindFromSinglePayload(t *testing.T) {
	wire := ResponseWire{
		Operation: "rewrite",
		Append:    &AppendPayload{Blocks: BlockList{&PageBreak{BlockBase{ID: "b9", Type: BlockPageBreak}}}},
	}
	op, err := wire.ToOperation()
	require.NoError(t, err)
	assert.Equal(t, OperationAppend, op.Kind())
}

func TestResponseWire_NoPayloadFails(t *testing.T) {
	wire := ResponseWire{Operation: OperationCreate}
	_, err := wire.ToOperation()
	require.Error(t, err)
}

func TestGenerationJob_HardExpiry(t *testing.T) {
	created := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	outline := &Outline{
		DocumentMeta: DocumentMeta{Title: "Q3", Format: FormatReport},
		Sections:     []SectionDescriptor{{SectionID: "s1", Title: "Intro", Type: SectionIntro, Depth: 1}},
	}
	job := NewGenerationJob("job-1", outline, JobOwner{}, created)

	assert.False(t, job.Expired(created.Add(29*time.Minute), 30*time.Minute))
	assert.True(t, job.Expired(created.Add(30*time.Minute), 30*time.Minute))

	_, ok := job.Section(1)
	assert.False(t, ok)
	s, ok := job.Section(0)
	require.True(t, ok)
	assert.Equal(t, "Intro", s.Title)
	assert.Equal(t, DocContext{Title: "Q3", Format: FormatReport}, job.DocContext())
}

func TestOutline_ManifestPreservesOrder(t *testing.T) {
	outline := &Outline{Sections: []SectionDescriptor{
		{SectionID: "s2", Title: "B", Type: SectionBody},
		{SectionID: "s1", Title: "A", Type: SectionIntro},
	}}
	m := outline.Manifest()
	require.Len(t, m, 2)
	assert.Equal(t, SectionManifestEntry{Index: 0, SectionID: "s2", Title: "B", Type: SectionBody}, m[0])
	assert.Equal(t, 1, m[1].Index)
}

func TestDocumentFormat_IsIterative(t *testing.T) {
	assert.True(t, FormatReport.IsIterative())
	assert.True(t, FormatTechnicalDocs.IsIterative())
	assert.False(t, FormatGeneral.IsIterative())
	assert.False(t, FormatResume.IsIterative())
	assert.False(t, DocumentFormat("cover_letter").IsIterative())
}
