package contract

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docs-agent-api/internal/domain/entity"
)

func TestSpecialize_DoesNotMutateBase(t *testing.T) {
	base := ResponseSchema()
	_ = Specialize(base, entity.FormatThesis)
	assert.Equal(t, ResponseSchema(), base)
}

func TestSpecialize_PinsPerDocType(t *testing.T) {
	docProps := func(s map[string]any) map[string]any {
		return path(s, "properties", "document", "anyOf", "0", "properties")
	}

	cases := []struct {
		docType  entity.DocumentFormat
		format   []any
		tocPin   []any
		pagePin  []any
		sizePin  []any
		keepsAll bool
	}{
		{docType: entity.FormatReport, format: []any{"report"}, tocPin: []any{true}},
		{docType: entity.FormatResearchPaper, format: []any{"research_paper"}, tocPin: []any{true}},
		{docType: entity.FormatTechnicalDocs, format: []any{"report"}},
		{docType: entity.FormatThesis, format: []any{"thesis"}, pagePin: []any{true}, sizePin: []any{"A4"}},
		{docType: entity.FormatResume, format: []any{"resume"}, tocPin: []any{false}},
		{docType: entity.FormatGeneral, keepsAll: true},
	}

	for _, tc := range cases {
		t.Run(string(tc.docType), func(t *testing.T) {
			props := docProps(Specialize(ResponseSchema(), tc.docType))
			require.NotNil(t, props)

			format := props["format"].(map[string]any)["enum"].([]any)
			if tc.keepsAll {
				assert.Equal(t, responseFormats, format)
			} else {
				assert.Equal(t, tc.format, format)
			}

			options := path(props, "options", "properties")
			if tc.tocPin != nil {
				assert.Equal(t, tc.tocPin, options["include_table_of_contents"].(map[string]any)["enum"])
			}
			if tc.pagePin != nil {
				assert.Equal(t, tc.pagePin, options["include_page_numbers"].(map[string]any)["enum"])
			}
			if tc.sizePin != nil {
				pageSetup := path(props, "page_setup", "properties")
				assert.Equal(t, tc.sizePin, pageSetup["page_size"].(map[string]any)["enum"])
			}
		})
	}
}

func TestSchemas_AreSerializable(t *testing.T) {
	for name, s := range map[string]map[string]any{
		OutlineSchemaName:  OutlineSchema(),
		SectionSchemaName:  SectionSchema(),
		ResponseSchemaName: ResponseSchema(),
		EditSchemaName:     EditSchema(),
	} {
		_, err := json.Marshal(s)
		assert.NoError(t, err, name)
	}
}

func decodeWire(t *testing.T, raw string) *entity.ResponseWire {
	t.Helper()
	var wire entity.ResponseWire
	require.NoError(t, json.Unmarshal([]byte(raw), &wire))
	return &wire
}

func TestValidate_DuplicateIDReportedOnce(t *testing.T) {
	wire := decodeWire(t, `{
	  "operation":"create",
	  "document":{"title":"T","format":"report","blocks":[
	    {"block_id":"b1","type":"paragraph","content":"a"},
	    {"block_id":"b2","type":"paragraph","content":"b"},
	    {"block_id":"b3","type":"paragraph","content":"c"},
	    {"block_id":"b4","type":"columns","columns_content":[
	      {"column_index":0,"blocks":[{"block_id":"b2","type":"paragraph","content":"d"}]}
	    ]}
	  ]}
	}`)

	errs := Validate(wire)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, `"b2"`)
	assert.Contains(t, errs[0].Message, "document.blocks[1]")
	assert.Contains(t, errs[0].Message, "document.blocks[3].columns_content[0].blocks[0]")
}

func TestValidate_MissingOperation(t *testing.T) {
	errs := Validate(&entity.ResponseWire{})
	require.NotEmpty(t, errs)
	assert.Equal(t, "operation", errs[0].Path)
	assert.True(t, strings.Contains(errs[0].Message, "operation"))
}

func TestValidate_PatchRequiresTarget(t *testing.T) {
	wire := decodeWire(t, `{"operation":"patch","patch":{"action":"rewrite","blocks":[{"block_id":"x","type":"paragraph","content":"y"}]}}`)
	errs := Validate(wire)
	require.Len(t, errs, 1)
	assert.Equal(t, "patch.target_block_id", errs[0].Path)
}

func TestValidate_InvalidBlockType(t *testing.T) {
	wire := decodeWire(t, `{"operation":"append","append":{"blocks":[{"block_id":"x","type":"hologram"}]}}`)
	errs := Validate(wire)
	require.Len(t, errs, 1)
	assert.Equal(t, "append.blocks[0]", errs[0].Path)
	assert.Contains(t, errs[0].Message, "hologram")
}

func TestValidate_ValidResponseHasNoErrors(t *testing.T) {
	wire := decodeWire(t, `{"operation":"insert","insert":{"target_block_id":"b1","position":"after","blocks":[
	  {"block_id":"n1","type":"sub_heading","content":"New","level":2},
	  {"block_id":"n2","type":"bullet_list","items":[{"content":"a","indent_level":0}]}
	]}}`)
	assert.Empty(t, Validate(wire))
}
