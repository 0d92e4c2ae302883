package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtally/cbits"
)

func TestSnippetMenu(t *testing.T) {
	layout := cbits.MustLayout(cbits.Register{Name: "c", Width: 2}, cbits.Register{Name: "flag", Width: 1})
	menu := snippetMenu(layout)

	require.Len(t, menu, 3)
	assert.Equal(t, "c", menu[0].name)
	assert.Equal(t, "flag", menu[1].name)
	assert.Equal(t, "ops", menu[2].name)

	// four values and two bits
	assert.Len(t, menu[0].items, 6)
	assert.Equal(t, "c == 3", menu[0].items[3].snippet)
	assert.Equal(t, "c[1]", menu[0].items[5].snippet)
	assert.Equal(t, []menuItem{{"flag set", "flag"}, {"flag clear", "!flag"}}, menu[1].items)

	for _, cat := range menu[:2] {
		for _, item := range cat.items {
			_, err := cbits.Parse(item.snippet, layout)
			assert.NoError(t, err, item.snippet)
		}
	}
}

func TestSnippetMenuWideRegister(t *testing.T) {
	menu := snippetMenu(cbits.MustLayout(cbits.Register{Name: "r", Width: 5}))
	// eight values then five bits
	require.Len(t, menu[0].items, 8+5)
	assert.Equal(t, "r == 00111", menu[0].items[7].name)
}
