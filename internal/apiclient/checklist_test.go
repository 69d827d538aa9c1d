package apiclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChecklistTolerant(t *testing.T) {
	assert.Nil(t, ParseChecklist(""))
	assert.Nil(t, ParseChecklist("not json"))

	items := ParseChecklist(`[{"id":"a","text":"milk","completed":true}]`)
	require.Len(t, items, 1)
	assert.Equal(t, "milk", items[0].Text)
	assert.True(t, items[0].Completed)
}

func TestSerializeChecklistNeverNull(t *testing.T) {
	assert.Equal(t, "[]", SerializeChecklist(nil))
	assert.Equal(t, `[{"id":"a","text":"milk","completed":false}]`,
		SerializeChecklist([]ChecklistItem{{ID: "a", Text: "milk"}}))
}

func TestChecklistRoundTrip(t *testing.T) {
	items := AddChecklistItem(nil, "milk")
	items = AddChecklistItem(items, "eggs")
	require.Len(t, items, 2)
	assert.NotEqual(t, items[0].ID, items[1].ID, "item ids must be unique")

	parsed := ParseChecklist(SerializeChecklist(items))
	assert.Equal(t, items, parsed)
}

func TestToggleChecklistItem(t *testing.T) {
	items := AddChecklistItem(nil, "milk")
	id := items[0].ID

	items = ToggleChecklistItem(items, id)
	assert.True(t, items[0].Completed)
	items = ToggleChecklistItem(items, id)
	assert.False(t, items[0].Completed)

	unchanged := ToggleChecklistItem(items, "missing")
	assert.Equal(t, items, unchanged)
}

func TestRemoveChecklistItem(t *testing.T) {
	items := AddChecklistItem(nil, "milk")
	items = AddChecklistItem(items, "eggs")

	items = RemoveChecklistItem(items, items[0].ID)
	require.Len(t, items, 1)
	assert.Equal(t, "eggs", items[0].Text)
}

func TestSetChecklistItemText(t *testing.T) {
	items := AddChecklistItem(nil, "milk")
	items = SetChecklistItemText(items, items[0].ID, "oat milk")
	assert.Equal(t, "oat milk", items[0].Text)
}
