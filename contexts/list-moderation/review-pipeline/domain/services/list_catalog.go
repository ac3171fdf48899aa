package services

import (
	"strings"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
)

// ListCatalog is a static set of list configurations keyed by list id.
type ListCatalog map[string]entities.ListConfig

func NewListCatalog(lists ...entities.ListConfig) ListCatalog {
	catalog := make(ListCatalog, len(lists))
	for _, list := range lists {
		id := strings.ToLower(strings.TrimSpace(list.ListID))
		if id == "" {
			continue
		}
		list.ListID = id
		catalog[id] = list
	}
	return catalog
}

func (c ListCatalog) Lookup(listID string) (entities.ListConfig, bool) {
	list, ok := c[strings.ToLower(strings.TrimSpace(listID))]
	return list, ok
}

// DefaultLists mirrors the two lists the moderation backend ships with.
func DefaultLists() []entities.ListConfig {
	return []entities.ListConfig{
		{ListID: "classic", RawFootageTopN: 400},
		{ListID: "platformer", RawFootageTopN: 100, RequireCompletionTime: true},
	}
}
