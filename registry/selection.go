package registry

import "slices"

// A MenuItem is one row of a label selection menu.
type MenuItem struct {
	Label   string  `json:"label"`
	Value   float32 `json:"value"`
	Checked bool    `json:"checked"`
}

// MenuItems lists entries for a consumer whose selection is current.
func MenuItems(entries []Entry, current string) []MenuItem {
	items := make([]MenuItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, MenuItem{
			Label:   e.Label,
			Value:   e.Value,
			Checked: e.Label == current,
		})
	}

	return items
}

// Select returns the selection a consumer should hold after a user picked
// requested from a menu built from labels. An empty request disconnects. A
// request for a label that is no longer live keeps current if current is
// still live, and disconnects otherwise.
func Select(labels []string, current, requested string) string {
	if requested == "" {
		return ""
	}

	if slices.Contains(labels, requested) {
		return requested
	}

	if slices.Contains(labels, current) {
		return current
	}

	return ""
}
