package feed

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id, group, title string, price string, avail Availability) Item {
	return Item{
		ExternalID:   id,
		GroupID:      group,
		Title:        title,
		Price:        decimal.RequireFromString(price),
		Availability: avail,
	}
}

func TestGroup_Partition(t *testing.T) {
	items := []Item{
		item("a", "g1", "Shirt S", "10", AvailabilityInStock),
		item("b", "", "Lamp", "25", AvailabilityInStock),
		item("c", "g1", "Shirt M", "10", AvailabilityInStock),
		item("d", "g2", "Mug", "5", AvailabilityOutOfStock),
	}

	groups := Group(items)
	require.Len(t, groups, 3)

	// Every item lands in exactly one group.
	total := 0
	seen := make(map[string]int)
	for _, g := range groups {
		total += len(g.Items)
		for _, it := range g.Items {
			seen[it.ExternalID]++
		}
	}
	assert.Equal(t, len(items), total)
	for _, it := range items {
		assert.Equal(t, 1, seen[it.ExternalID], "item %s", it.ExternalID)
	}

	// First-appearance order.
	assert.Equal(t, "g1", groups[0].Key)
	assert.Len(t, groups[0].Items, 2)
	assert.True(t, groups[1].Standalone)
	assert.Equal(t, "g2", groups[2].Key)
}

func TestGroup_StandaloneKeysUnique(t *testing.T) {
	items := []Item{
		item("dup", "", "One", "1", AvailabilityInStock),
		item("dup", "", "Two", "2", AvailabilityInStock),
	}

	groups := Group(items)
	require.Len(t, groups, 2)
	assert.NotEqual(t, groups[0].Key, groups[1].Key)
	assert.True(t, groups[0].Standalone)
	assert.True(t, groups[1].Standalone)
}

func TestSelectMaster_Deterministic(t *testing.T) {
	a := item("a", "g", "Phone 128GB", "199", AvailabilityOutOfStock)
	b := item("b", "g", "Phone 256GB", "149", AvailabilityInStock)
	c := item("c", "g", "Phone 512GB", "149", AvailabilityInStock)

	orderings := [][]Item{
		{a, b, c},
		{c, b, a},
		{b, c, a},
		{c, a, b},
	}

	for _, items := range orderings {
		master := SelectMaster(items)
		// In stock beats out of stock; equal prices fall back to the
		// lexically smaller title.
		assert.Equal(t, "b", master.ExternalID)
	}
}

func TestSelectMaster_LowestPrice(t *testing.T) {
	items := []Item{
		item("a", "g", "X", "30", AvailabilityInStock),
		item("b", "g", "X", "20", AvailabilityInStock),
		item("c", "g", "X", "25", AvailabilityInStock),
	}
	assert.Equal(t, "b", SelectMaster(items).ExternalID)
}

func TestGroup_ColorVariantsPlusStandalone(t *testing.T) {
	red := item("r", "G1", "Shirt", "10", AvailabilityInStock)
	red.Color = "red"
	blue := item("b", "G1", "Shirt", "12", AvailabilityInStock)
	blue.Color = "blue"
	green := item("g", "G1", "Shirt", "11", AvailabilityInStock)
	green.Color = "green"
	solo := item("s", "", "Lamp", "40", AvailabilityInStock)

	groups := Group([]Item{red, blue, green, solo})
	require.Len(t, groups, 2)
	assert.Equal(t, "G1", groups[0].Key)
	assert.Len(t, groups[0].Items, 3)
	// All in stock, so the cheapest variant wins.
	assert.Equal(t, "r", groups[0].Master.ExternalID)
	assert.True(t, groups[1].Standalone)
}

func TestVariantGroup_Unions(t *testing.T) {
	g := Group([]Item{
		{ExternalID: "a", GroupID: "g", Color: "Black", Tags: []string{"Acme", "Black"},
			Images: []string{"https://x/a.jpg"}, Availability: AvailabilityInStock},
		{ExternalID: "b", GroupID: "g", Color: "Red", Tags: []string{"Acme", "Red"},
			Images: []string{"https://x/b.jpg", "https://x/a.jpg"}},
	})[0]

	assert.Equal(t, []string{"Black", "Red"}, g.Colors())
	assert.Equal(t, []string{"Acme", "Black", "Red"}, g.Tags())
	assert.Equal(t, []string{"https://x/a.jpg", "https://x/b.jpg"}, g.Images())
}
