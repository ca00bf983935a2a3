package catalog

import (
	"errors"
	"sort"
)

// ErrProductNotFound is returned when a product id has no catalog entry.
var ErrProductNotFound = errors.New("product not found")

// Product is a catalog entry. Prices are integer cents; the catalog is the
// sole source of truth for price and client-supplied values are never used.
type Product struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PriceCents      int64  `json:"priceCents"`
	Description     string `json:"description"`
	MaxInstallments int    `json:"maxInstallments"`
}

// Catalog is an immutable product table, constructed once and injected into
// the services that need it.
type Catalog struct {
	products map[string]Product
}

// New builds a catalog from the given products.
func New(products []Product) *Catalog {
	table := make(map[string]Product, len(products))
	for _, p := range products {
		table[p.ID] = p
	}
	return &Catalog{products: table}
}

// Lookup returns the product for the given id.
func (c *Catalog) Lookup(id string) (Product, error) {
	if c == nil {
		return Product{}, ErrProductNotFound
	}
	p, ok := c.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

// List returns all products ordered by id.
func (c *Catalog) List() []Product {
	if c == nil {
		return nil
	}
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Default returns the deployed e-bike product line.
func Default() *Catalog {
	return New([]Product{
		{ID: "ambtus-flash", Name: "FLASH", PriceCents: 749900, MaxInstallments: 21,
			Description: "Potência 1000W, Bateria Lítio 48V, Freio Duplo Hidráulico, Suspensão Central, Display LCD Colorido"},
		{ID: "g60", Name: "G60", PriceCents: 699900, MaxInstallments: 21,
			Description: "Potência 1000W, Bateria 48V 15AH, Shimano 7 marchas, Autonomia 60km, Velocidade 32km/h"},
		{ID: "v20-pro", Name: "V20 PRO", PriceCents: 849900, MaxInstallments: 21,
			Description: "Potência 1000W, Bateria Lítio 48V 15AH, Freios Hidráulicos, Autonomia 60km, Shimano 7 marchas"},
		{ID: "q8", Name: "Q8", PriceCents: 849900, MaxInstallments: 21,
			Description: "Potência 1000W, Bateria Lítio 48V 15AH, Freios Hidráulico zoom, Suspensão Dianteira, Shimano 7 marchas"},
		{ID: "v10-max", Name: "V10 MAX", PriceCents: 799900, MaxInstallments: 21,
			Description: "Potência 1000W, Bateria Lítio 48V 15AH, Freios a disco Dianteiro/Traseiro, Suspensão Dupla"},
		{ID: "v8-pro", Name: "V8 PRO", PriceCents: 799900, MaxInstallments: 21,
			Description: "Potência 1000W, Bateria Lítio 48V 15AH, Freios Hidráulicos, Suspensão Dupla Traseira"},
		{ID: "y16", Name: "Y16", PriceCents: 699900, MaxInstallments: 21,
			Description: "Potência 1000W, Bateria Lítio, Freio Disco Duplo, Amortecedor Dianteiro/Traseiro, Autonomia 84km"},
		{ID: "ae6", Name: "AE6", PriceCents: 859000, MaxInstallments: 21,
			Description: "Dobrável, Potência 750W, Bateria 48V 15AH, Freios a disco, Shimano 7 marchas"},
		{ID: "ae7", Name: "AE7", PriceCents: 819000, MaxInstallments: 21,
			Description: "Potência 750W, Bateria 48V 15AH, Freios a disco mecânicos, Amortecedor Hidráulico Dianteiro/Mola Traseiro"},
		{ID: "c3", Name: "C3", PriceCents: 689000, MaxInstallments: 21,
			Description: "Potência 800W, Bateria 48V 24AH, Autonomia 75km, Freios a disco"},
		{ID: "c10", Name: "C10", PriceCents: 799000, MaxInstallments: 21,
			Description: "Potência 1000W, Bateria Chumbo Ácido 5*15V 20AH, Autonomia 65km, Freios Hidráulicos"},
		{ID: "c12", Name: "C12", PriceCents: 929000, MaxInstallments: 21,
			Description: "Potência 1000W, Bateria Lítio 60V 20AH, Autonomia 75km, Freios a disco, Banco com encosto"},
		{ID: "c15", Name: "C15", PriceCents: 1029000, MaxInstallments: 21,
			Description: "Potência 1000W, Bateria Lítio 60V 20AH, Autonomia 65km, Amortecedor Hidráulico, Freios a disco"},
		{ID: "t3", Name: "T3", PriceCents: 1159000, MaxInstallments: 21,
			Description: "Triciclo, Potência 1500W, Bateria Lítio 60V 20AH, Autonomia 65km, Freios a disco"},
		{ID: "x12", Name: "X12", PriceCents: 1056000, MaxInstallments: 21,
			Description: "Potência 1000W, Bateria Lítio 48V 15AH, Banco Duplo, Sistema de freio Dianteiro/Traseiro"},
	})
}
