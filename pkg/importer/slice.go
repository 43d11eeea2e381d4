package importer

import "github.com/xhad/quizdeck/internal/models"

// SliceByPhrases selects the items from the first one matching start up to
// and including the first one matching stop. An item matches a phrase when
// its term or definition, as HTML or as plain text, equals it exactly.
// Empty phrases leave that end of the range open. A start phrase that
// matches nothing selects no items.
func SliceByPhrases(items []models.CanonicalItem, start, stop string) []models.CanonicalItem {
	var (
		selected []models.CanonicalItem
		started  = start == ""
	)
	for _, item := range items {
		if !started && matches(item, start) {
			started = true
		}
		if started {
			selected = append(selected, item)
		}
		if stop != "" && matches(item, stop) {
			break
		}
	}
	return selected
}

func matches(item models.CanonicalItem, phrase string) bool {
	return phrase == item.Term || phrase == item.Definition ||
		phrase == item.TermText || phrase == item.DefinitionText
}
