package catalog

import "context"

// StaticProvider serves a fixed in-memory catalog.
type StaticProvider struct {
	products  []Product
	suppliers []Supplier
	branches  []Branch
}

// NewStaticProvider returns a provider over the given lists.
func NewStaticProvider(products []Product, suppliers []Supplier, branches []Branch) *StaticProvider {
	return &StaticProvider{products: products, suppliers: suppliers, branches: branches}
}

// SampleProvider returns the development catalog of a small pharmacy chain.
func SampleProvider() *StaticProvider {
	return NewStaticProvider(
		[]Product{
			{ID: "P001", Name: "Paracetamol 500mg", SKU: "PCM-500", Unit: "Box", PackSize: 10, UnitPrice: 35000},
			{ID: "P002", Name: "Amoxicillin 500mg", SKU: "AMX-500", Unit: "Box", PackSize: 10, UnitPrice: 52000},
			{ID: "P003", Name: "Vitamin C 1000mg", SKU: "VTC-1000", Unit: "Bottle", PackSize: 30, UnitPrice: 85000},
			{ID: "P004", Name: "Omeprazole 20mg", SKU: "OMP-20", Unit: "Strip", PackSize: 10, UnitPrice: 28000},
			{ID: "P005", Name: "Cetirizine 10mg", SKU: "CTZ-10", Unit: "Strip", PackSize: 10, UnitPrice: 15000},
			{ID: "P006", Name: "Metformin 500mg", SKU: "MTF-500", Unit: "Box", PackSize: 100, UnitPrice: 120000},
			{ID: "P007", Name: "Ibuprofen 400mg", SKU: "IBU-400", Unit: "Tablet", PackSize: 1, UnitPrice: 1500},
			{ID: "P008", Name: "Antiseptic Solution 100ml", SKU: "ANT-100", Unit: "Bottle", PackSize: 1, UnitPrice: 22000},
		},
		[]Supplier{
			{ID: "S001", Name: "PT Kimia Farma Trading", PaymentTerms: "Net 30", MinOrderAmount: 500000},
			{ID: "S002", Name: "PT Anugrah Argon Medica", PaymentTerms: "Net 45", MinOrderAmount: 1000000},
			{ID: "S003", Name: "PT Enseval Putera Megatrading", PaymentTerms: "Net 30", MinOrderAmount: 750000},
			{ID: "S004", Name: "PT Parit Padang Global", PaymentTerms: "COD", MinOrderAmount: 0},
		},
		[]Branch{
			{ID: "B001", Name: "Apotek Pusat"},
			{ID: "B002", Name: "Apotek Cabang Selatan"},
			{ID: "B003", Name: "Apotek Cabang Utara"},
		},
	)
}

func (p *StaticProvider) Products(ctx context.Context) ([]Product, error) {
	return append([]Product(nil), p.products...), nil
}

func (p *StaticProvider) Suppliers(ctx context.Context) ([]Supplier, error) {
	return append([]Supplier(nil), p.suppliers...), nil
}

func (p *StaticProvider) Branches(ctx context.Context) ([]Branch, error) {
	return append([]Branch(nil), p.branches...), nil
}
