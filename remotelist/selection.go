package remotelist

import "itsite/models"

// SelectDefault keeps previous while it still names an item, otherwise falls
// back to the first item, or "" for an empty list.
func SelectDefault(items []models.Item, previous string) string {
	if len(items) == 0 {
		return ""
	}
	if previous != "" && contains(items, previous) {
		return previous
	}
	return items[0].ID
}

func contains(items []models.Item, id string) bool {
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}
