package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/melodyforge/internal/tasks"
)

var _ list.Item = actionItem{}

// actionItem is one selectable action of a result row. A row with two actions becomes two items.
type actionItem struct {
	row    string
	action tasks.Action
}

func (i actionItem) FilterValue() string { return i.row }
func (i actionItem) Title() string       { return i.row }
func (i actionItem) Description() string { return i.action.Label }

func rowItems(rows []tasks.Row) []list.Item {
	items := make([]list.Item, 0, len(rows))
	for _, row := range rows {
		for _, action := range row.Actions {
			items = append(items, actionItem{row: row.Label, action: action})
		}
	}
	return items
}
