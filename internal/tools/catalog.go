// File: internal/tools/catalog.go
package tools

// productCatalog is the static product data behind get_inventory. Products do
// not evolve the way orders do. P005 intentionally carries no stock figure so
// at least one product is a permanent partial result.
var productCatalog = map[string]map[string]any{
	"P001": {"product_name": "Wireless Headphones", "category": "Electronics", "stock": 45, "price": 79.99},
	"P002": {"product_name": "Running Shoes", "category": "Sports", "stock": 0, "price": 89.99},
	"P003": {"product_name": "Coffee Maker", "category": "Home", "stock": 23, "price": 129.99},
	"P004": {"product_name": "Yoga Mat", "category": "Sports", "stock": 67, "price": 34.99},
	"P005": {"product_name": "Laptop Stand", "category": "Electronics", "price": 49.99},
}
