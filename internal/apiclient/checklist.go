package apiclient

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ChecklistItem is one entry of a checklist thought. The items live
// JSON-encoded in the thought's content field.
type ChecklistItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// ParseChecklist decodes a checklist thought's content. Empty or malformed
// content yields an empty list.
func ParseChecklist(content string) []ChecklistItem {
	if content == "" {
		return nil
	}
	var items []ChecklistItem
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		return nil
	}
	return items
}

// SerializeChecklist encodes items back into content form. An empty list
// serializes as an empty JSON array, never as null.
func SerializeChecklist(items []ChecklistItem) string {
	if items == nil {
		items = []ChecklistItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// AddChecklistItem appends a new unchecked item with a fresh id.
func AddChecklistItem(items []ChecklistItem, text string) []ChecklistItem {
	return append(items, ChecklistItem{
		ID:        uuid.NewString(),
		Text:      text,
		Completed: false,
	})
}

// ToggleChecklistItem flips the completed state of the item with the given
// id. Unknown ids are ignored.
func ToggleChecklistItem(items []ChecklistItem, itemID string) []ChecklistItem {
	next := make([]ChecklistItem, len(items))
	for i, item := range items {
		if item.ID == itemID {
			item.Completed = !item.Completed
		}
		next[i] = item
	}
	return next
}

// RemoveChecklistItem drops the item with the given id.
func RemoveChecklistItem(items []ChecklistItem, itemID string) []ChecklistItem {
	next := items[:0:0]
	for _, item := range items {
		if item.ID != itemID {
			next = append(next, item)
		}
	}
	return next
}

// SetChecklistItemText replaces the text of the item with the given id.
func SetChecklistItemText(items []ChecklistItem, itemID, text string) []ChecklistItem {
	next := make([]ChecklistItem, len(items))
	for i, item := range items {
		if item.ID == itemID {
			item.Text = text
		}
		next[i] = item
	}
	return next
}
