package order

import (
	"fmt"

	"github.com/ambtus/checkout-api/internal/catalog"
	"github.com/ambtus/checkout-api/internal/shipping"
)

// Total is the server-derived price breakdown for a checkout. The product
// price always comes from the catalog, never from the client.
type Total struct {
	ProductID         string `json:"productId"`
	ProductName       string `json:"productName"`
	ProductPriceCents int64  `json:"productPriceCents"`
	ShippingFeeCents  int64  `json:"shippingFeeCents"`
	BaseTotalCents    int64  `json:"baseTotalCents"`
	MaxInstallments   int    `json:"-"`
}

// Calculator derives order totals from the catalog and the shipping table.
type Calculator struct {
	Catalog  *catalog.Catalog
	Shipping shipping.Resolver
}

func NewCalculator(c *catalog.Catalog, s shipping.Resolver) *Calculator {
	return &Calculator{Catalog: c, Shipping: s}
}

// Total resolves the product and destination state into a price breakdown.
// Unknown products surface catalog.ErrProductNotFound; a malformed state
// code surfaces shipping.ErrInvalidRegion when the resolver runs strict.
func (c *Calculator) Total(productID, uf string) (Total, error) {
	p, err := c.Catalog.Lookup(productID)
	if err != nil {
		return Total{}, fmt.Errorf("resolve product %q: %w", productID, err)
	}
	ship, err := c.Shipping.Resolve(uf)
	if err != nil {
		return Total{}, fmt.Errorf("resolve shipping for %q: %w", uf, err)
	}
	return Total{
		ProductID:         p.ID,
		ProductName:       p.Name,
		ProductPriceCents: p.PriceCents,
		ShippingFeeCents:  ship,
		BaseTotalCents:    p.PriceCents + ship,
		MaxInstallments:   p.MaxInstallments,
	}, nil
}
