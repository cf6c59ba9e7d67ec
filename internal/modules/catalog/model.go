package catalog

import "time"

// Attributes describe a catalog product. Offers snapshot these at
// generation time.
type Attributes struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Price    float64  `json:"price"`
	Tags     []string `json:"tags,omitempty"`
	Brand    string   `json:"brand,omitempty"`
}

// Product is a durable catalog entry. It never expires and is never
// mutated after creation.
type Product struct {
	ProductID  string     `json:"product_id"`
	SupplierID string     `json:"supplier_id"`
	Attributes Attributes `json:"attributes"`
	CreatedAt  time.Time  `json:"created_at"`
}
