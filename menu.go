package main

import (
	"fmt"
	"strings"

	"qtally/cbits"
)

// menuItem is one snippet the picker can insert into the predicate input.
type menuItem struct {
	name    string
	snippet string
}

// menuCategory groups related menu items under a tab.
type menuCategory struct {
	name  string
	items []menuItem
}

var operatorItems = []menuItem{
	{name: "and", snippet: " & "},
	{name: "or", snippet: " | "},
	{name: "not", snippet: "!"},
	{name: "group", snippet: "("},
	{name: "close group", snippet: ")"},
	{name: "always", snippet: "true"},
}

// snippetMenu builds one tab per classical register plus an operator tab.
func snippetMenu(layout cbits.Layout) []menuCategory {
	var cats []menuCategory
	for _, r := range layout.Registers() {
		var items []menuItem
		if r.Width == 1 {
			items = append(items,
				menuItem{name: r.Name + " set", snippet: r.Name},
				menuItem{name: r.Name + " clear", snippet: "!" + r.Name},
			)
		} else {
			// Wide registers list only their first eight values.
			n := 1 << min(r.Width, 3)
			for v := range n {
				items = append(items, menuItem{
					name:    fmt.Sprintf("%s == %0*b", r.Name, r.Width, v),
					snippet: fmt.Sprintf("%s == %d", r.Name, v),
				})
			}
			for off := range r.Width {
				bit := cbits.Bit(r.Name, off).String()
				items = append(items, menuItem{name: bit, snippet: bit})
			}
		}
		cats = append(cats, menuCategory{name: r.Name, items: items})
	}
	return append(cats, menuCategory{name: "ops", items: operatorItems})
}

// renderMenu renders the floating snippet picker.
func (m Model) renderMenu() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Insert"))
	sb.WriteString("\n")

	// Category tabs
	for i, cat := range m.menu {
		name := " " + cat.name + " "
		if i == m.menuCat {
			sb.WriteString(activeStyle.Render(name))
		} else {
			sb.WriteString(dimStyle.Render(name))
		}
		if i < len(m.menu)-1 {
			sb.WriteString(dimStyle.Render("│"))
		}
	}
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(strings.Repeat("─", 32)))
	sb.WriteString("\n")

	cat := m.menu[m.menuCat]
	for i, item := range cat.items {
		if i == m.menuItem {
			sb.WriteString(menuSelectedStyle.Render(" ▸ "))
			sb.WriteString(menuSelectedStyle.Render(fmt.Sprintf("%-18s", item.name)))
			sb.WriteString(gateStyle.Render(strings.TrimSpace(item.snippet)))
		} else {
			sb.WriteString("   ")
			sb.WriteString(menuNormalStyle.Render(fmt.Sprintf("%-18s", item.name)))
			sb.WriteString(dimStyle.Render(strings.TrimSpace(item.snippet)))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render(" ↑↓ Select  ←→ Tab  ⏎ Insert  Esc ✕"))

	return menuBorderStyle.Render(sb.String())
}
