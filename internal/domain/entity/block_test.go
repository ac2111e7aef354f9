package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sectionBlocksJSON = `[
  {"block_id":"s1_b1","type":"sub_heading","level":"2","content":"Overview","bold":true,"alignment":"LEFT"},
  {"block_id":"s1_b2","type":"paragraph","content":"Revenue grew.","level":0,"font_size_pt":11,"alignment":"JUSTIFIED"},
  {"block_id":"s1_b3","type":"table","cells":[[{"content":"Metric","bold":true}],[{"content":"Revenue","bold":false}]]},
  {"block_id":"s1_b4","type":"bullet_list","items":[{"content":"one","indent_level":0}]},
  {"block_id":"s1_b5","type":"columns","num_columns":2,"columns_content":[
    {"column_index":0,"blocks":[{"block_id":"s1_b6","type":"callout","style":"info","content":"Note"}]},
    {"column_index":1,"blocks":[{"block_id":"s1_b7","type":"spacer","height_pt":12}]}
  ]},
  {"block_id":"s1_b8","type":"hologram","content":"?"}
]`

func TestBlockList_DecodesVariantsByType(t *testing.T) {
	var blocks BlockList
	require.NoError(t, json.Unmarshal([]byte(sectionBlocksJSON), &blocks))
	require.Len(t, blocks, 6)

	heading, ok := blocks[0].(*SubHeading)
	require.True(t, ok)
	assert.Equal(t, HeadingLevel(2), heading.Level)
	assert.Equal(t, "Overview", heading.Content)

	para, ok := blocks[1].(*Paragraph)
	require.True(t, ok)
	assert.Equal(t, "JUSTIFIED", para.Alignment)

	table, ok := blocks[2].(*Table)
	require.True(t, ok)
	assert.Equal(t, "Revenue", table.Cells[1][0].Content)

	cols, ok := blocks[4].(*Columns)
	require.True(t, ok)
	require.Len(t, cols.ColumnsContent, 2)
	assert.IsType(t, &Callout{}, cols.ColumnsContent[0].Blocks[0])

	unknown, ok := blocks[5].(*UnknownBlock)
	require.True(t, ok)
	assert.Equal(t, BlockType("hologram"), unknown.Kind())
	assert.False(t, unknown.Kind().Valid())
}

func TestBlockList_NullDecodesToNil(t *testing.T) {
	var blocks BlockList
	require.NoError(t, json.Unmarshal([]byte(`null`), &blocks))
	assert.Nil(t, blocks)
}

func TestDecodeBlock_FieldTypeMismatchKeepsRaw(t *testing.T) {
	raw := json.RawMessage(`{"block_id":"b1","type":"spacer","height_pt":"tall"}`)
	b := DecodeBlock(raw)

	unknown, ok := b.(*UnknownBlock)
	require.True(t, ok)
	assert.Equal(t, BlockSpacer, unknown.Kind())
	assert.NotEmpty(t, unknown.DecodeErr)

	out, err := json.Marshal(unknown)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(out))
}

func TestWalkBlocks_RecursesIntoColumns(t *testing.T) {
	var blocks BlockList
	require.NoError(t, json.Unmarshal([]byte(sectionBlocksJSON), &blocks))

	var ids, paths []string
	WalkBlocks(blocks, "blocks", func(path string, b Block) {
		ids = append(ids, b.BlockID())
		paths = append(paths, path)
	})

	assert.Equal(t, []string{"s1_b1", "s1_b2", "s1_b3", "s1_b4", "s1_b5", "s1_b6", "s1_b7", "s1_b8"}, ids)
	assert.Contains(t, paths, "blocks[4].columns_content[1].blocks[0]")
}

func TestText(t *testing.T) {
	var blocks BlockList
	require.NoError(t, json.Unmarshal([]byte(sectionBlocksJSON), &blocks))

	assert.Equal(t, "Overview", Text(blocks[0]))
	assert.Equal(t, "", Text(blocks[2]))
	assert.Equal(t, "", Text(blocks[3]))
	assert.Len(t, Children(blocks[4]), 2)
	assert.Nil(t, Children(blocks[1]))
}

func TestBlockMarshal_KeepsOwnFieldsOnly(t *testing.T) {
	var blocks BlockList
	require.NoError(t, json.Unmarshal([]byte(`[{"block_id":"b1","type":"paragraph","content":"x","cells":[[{"content":"y"}]],"level":3}]`), &blocks))

	out, err := json.Marshal(blocks[0])
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.NotContains(t, fields, "cells")
	assert.NotContains(t, fields, "level")
	assert.Equal(t, "paragraph", fields["type"])
}
