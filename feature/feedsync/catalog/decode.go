package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// productNode mirrors the remote product payload shape shared by every
// document in queries.go.
type productNode struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Handle          string   `json:"handle"`
	Vendor          string   `json:"vendor"`
	DescriptionHTML string   `json:"descriptionHtml"`
	Tags            []string `json:"tags"`
	Media           struct {
		Edges []struct {
			Node struct {
				Image struct {
					URL string `json:"url"`
				} `json:"image"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"media"`
	Variants struct {
		Edges []struct {
			Node struct {
				ID      string `json:"id"`
				SKU     string `json:"sku"`
				Barcode string `json:"barcode"`
				Price   string `json:"price"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

func (n *productNode) toRemote() *RemoteProduct {
	p := &RemoteProduct{
		ID:          n.ID,
		Title:       n.Title,
		Handle:      n.Handle,
		Vendor:      n.Vendor,
		Description: n.DescriptionHTML,
		Tags:        n.Tags,
	}
	for _, edge := range n.Media.Edges {
		if edge.Node.Image.URL != "" {
			p.Images = append(p.Images, edge.Node.Image.URL)
		}
	}
	for _, edge := range n.Variants.Edges {
		price, err := decimal.NewFromString(edge.Node.Price)
		if err != nil {
			price = decimal.Zero
		}
		p.Variants = append(p.Variants, RemoteVariant{
			ID:      edge.Node.ID,
			SKU:     edge.Node.SKU,
			Barcode: edge.Node.Barcode,
			Price:   price,
		})
	}
	return p
}

func decodePayload(data json.RawMessage, out any) error {
	if len(data) == 0 {
		return fmt.Errorf("empty response payload")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response payload: %w", err)
	}
	return nil
}
