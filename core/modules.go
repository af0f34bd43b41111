package core

import "context"

// Collaborator read interfaces. The engine validates against state owned by
// other modules, but only ever through these narrow read contracts — never
// through a module's write API. Interfaces are defined here, where they are
// consumed; implementations live with each module's store adapter.

// ProductInventory is the inventory module's view of one product.
type ProductInventory struct {
	ProductID         string  `json:"product_id"`
	Name              string  `json:"name,omitempty"`
	AvailableQuantity float64 `json:"available_quantity"`
	MinimumStock      float64 `json:"minimum_stock"`
}

// InventoryReader exposes the inventory module's product/stock lookup.
// Returns ErrProductNotFound for unknown products.
type InventoryReader interface {
	GetProductWithInventory(ctx context.Context, productID string) (*ProductInventory, error)
}

// CustomerReader exposes the customer-records module's existence check.
type CustomerReader interface {
	CustomerExists(ctx context.Context, customerID string) (bool, error)
}

// ReferenceReader is the generic existence check a target module exposes for
// reference_exists rules.
type ReferenceReader interface {
	EntityExists(ctx context.Context, entityID string) (bool, error)
}

// UniquenessProber answers whether a field value is already claimed
// somewhere. unique_across_modules rules require a prober registered for
// their field; there is no default implementation on purpose.
type UniquenessProber interface {
	ValueTaken(ctx context.Context, field string, value interface{}) (bool, error)
}
