package feed

import (
	"fmt"
	"strings"
)

// standalonePrefix keys singleton groups for items without a group id. The
// slash keeps synthetic keys out of the value space of real feed group
// identifiers.
const standalonePrefix = "solo/"

// VariantGroup is the ordered set of feed items forming one logical
// product. Groups are built once per run and read-only afterwards.
type VariantGroup struct {
	// Key is the feed group id, or a synthetic standalone key.
	Key string
	// Items holds the group's variants in feed order.
	Items []Item
	// Master is the representative item seeding the product's base
	// attributes.
	Master Item
	// Standalone marks a synthetic singleton group.
	Standalone bool
}

// Group partitions items into variant groups. Items sharing a group id
// join one group; items without one become singleton groups under a
// synthetic key guaranteed not to collide with real group ids or with each
// other. The result is ordered by first appearance in the feed.
func Group(items []Item) []VariantGroup {
	index := make(map[string]int, len(items))
	groups := make([]VariantGroup, 0, len(items))
	taken := make(map[string]struct{}, len(items))

	for _, item := range items {
		if item.GroupID != "" {
			taken[item.GroupID] = struct{}{}
		}
	}

	for _, item := range items {
		if item.GroupID != "" {
			if i, ok := index[item.GroupID]; ok {
				groups[i].Items = append(groups[i].Items, item)
				continue
			}
			index[item.GroupID] = len(groups)
			groups = append(groups, VariantGroup{
				Key:   item.GroupID,
				Items: []Item{item},
			})
			continue
		}

		key := standaloneKey(item, taken)
		taken[key] = struct{}{}
		groups = append(groups, VariantGroup{
			Key:        key,
			Items:      []Item{item},
			Standalone: true,
		})
	}

	for i := range groups {
		groups[i].Master = SelectMaster(groups[i].Items)
	}
	return groups
}

func standaloneKey(item Item, taken map[string]struct{}) string {
	key := standalonePrefix + item.ExternalID
	if _, clash := taken[key]; !clash {
		return key
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s#%d", key, n)
		if _, clash := taken[candidate]; !clash {
			return candidate
		}
	}
}

// SelectMaster picks the representative item of a group. The tie-break
// order is fixed: in-stock items rank before others, then the lowest
// price, then the lexically smallest title. The result is deterministic
// for any ordering of the same items.
func SelectMaster(items []Item) Item {
	master := items[0]
	for _, candidate := range items[1:] {
		if ranksBefore(candidate, master) {
			master = candidate
		}
	}
	return master
}

func ranksBefore(a, b Item) bool {
	aStock := a.Availability == AvailabilityInStock
	bStock := b.Availability == AvailabilityInStock
	if aStock != bStock {
		return aStock
	}
	if !a.Price.Equal(b.Price) {
		return a.Price.LessThan(b.Price)
	}
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	// Last resort so duplicated titles cannot make the choice depend on
	// input order.
	return strings.Compare(a.ExternalID, b.ExternalID) < 0
}

// Colors returns the distinct non-empty colors across the group's items,
// in first-seen order.
func (g VariantGroup) Colors() []string {
	seen := make(map[string]struct{}, len(g.Items))
	colors := make([]string, 0, len(g.Items))
	for _, item := range g.Items {
		if item.Color == "" {
			continue
		}
		if _, dup := seen[item.Color]; dup {
			continue
		}
		seen[item.Color] = struct{}{}
		colors = append(colors, item.Color)
	}
	return colors
}

// Tags returns the deduplicated union of all item tags in the group.
func (g VariantGroup) Tags() []string {
	seen := make(map[string]struct{})
	tags := make([]string, 0)
	for _, item := range g.Items {
		for _, tag := range item.Tags {
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	return tags
}

// Images returns the deduplicated union of all item images in the group,
// master's images first.
func (g VariantGroup) Images() []string {
	seen := make(map[string]struct{})
	images := make([]string, 0)
	add := func(urls []string) {
		for _, u := range urls {
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			images = append(images, u)
		}
	}
	add(g.Master.Images)
	for _, item := range g.Items {
		add(item.Images)
	}
	return images
}
