package catalog

// GraphQL documents sent to the remote catalog. Fragments are inlined so
// every document is self-contained.

const productFields = `
	id
	title
	handle
	vendor
	descriptionHtml
	tags
	media(first: 50) {
		edges { node { ... on MediaImage { image { url } } } }
	}
	variants(first: 100) {
		edges { node { id sku barcode price } }
	}`

const productSearchQuery = `
query productSearch($query: String!, $first: Int!) {
	products(first: $first, query: $query) {
		edges { node {` + productFields + `
		} }
	}
}`

const variantLookupQuery = `
query variantLookup($query: String!) {
	productVariants(first: 1, query: $query) {
		edges { node { id product {` + productFields + `
		} } }
	}
}`

const productCreateMutation = `
mutation productCreate($input: ProductInput!) {
	productCreate(input: $input) {
		product {` + productFields + `
		}
		userErrors { field message }
	}
}`

const productUpdateMutation = `
mutation productUpdate($input: ProductInput!) {
	productUpdate(input: $input) {
		product { id title }
		userErrors { field message }
	}
}`

const productDeleteMutation = `
mutation productDelete($input: ProductDeleteInput!) {
	productDelete(input: $input) {
		deletedProductId
		userErrors { field message }
	}
}`

const productCreateMediaMutation = `
mutation productCreateMedia($productId: ID!, $media: [CreateMediaInput!]!) {
	productCreateMedia(productId: $productId, media: $media) {
		media { ... on MediaImage { id } }
		mediaUserErrors { field message }
	}
}`

const variantsBulkCreateMutation = `
mutation productVariantsBulkCreate($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
	productVariantsBulkCreate(productId: $productId, variants: $variants) {
		productVariants { id sku barcode }
		userErrors { field message }
	}
}`

const variantsBulkUpdateMutation = `
mutation productVariantsBulkUpdate($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
	productVariantsBulkUpdate(productId: $productId, variants: $variants) {
		productVariants { id sku price }
		userErrors { field message }
	}
}`
