package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSampleCatalog(t *testing.T) {
	snapshot, err := Load(context.Background(), SampleProvider())
	require.NoError(t, err)

	product, ok := snapshot.Product("P001")
	require.True(t, ok)
	require.Equal(t, "Box", product.Unit)
	require.EqualValues(t, 35000, product.UnitPrice)

	supplier, ok := snapshot.Supplier("S001")
	require.True(t, ok)
	require.EqualValues(t, 500000, supplier.MinOrderAmount)

	_, ok = snapshot.Branch("B001")
	require.True(t, ok)

	_, ok = snapshot.Product("P999")
	require.False(t, ok)
	require.Len(t, snapshot.Products(), 8)
	require.Len(t, snapshot.Suppliers(), 4)
	require.Len(t, snapshot.Branches(), 3)
}

func TestNewSnapshotRejectsInvalidEntries(t *testing.T) {
	_, err := NewSnapshot([]Product{{ID: "P1"}, {ID: "P1"}}, nil, nil)
	require.ErrorIs(t, err, ErrInvalidEntry)

	_, err = NewSnapshot([]Product{{ID: "P1", UnitPrice: -1}}, nil, nil)
	require.ErrorIs(t, err, ErrInvalidEntry)

	_, err = NewSnapshot(nil, []Supplier{{ID: "S1", MinOrderAmount: -5}}, nil)
	require.ErrorIs(t, err, ErrInvalidEntry)

	_, err = NewSnapshot(nil, nil, []Branch{{ID: ""}})
	require.ErrorIs(t, err, ErrInvalidEntry)
}

func TestSnapshotListsAreCopies(t *testing.T) {
	snapshot, err := NewSnapshot([]Product{{ID: "P1", Name: "One"}}, nil, nil)
	require.NoError(t, err)

	products := snapshot.Products()
	products[0].Name = "changed"

	got, ok := snapshot.Product("P1")
	require.True(t, ok)
	require.Equal(t, "One", got.Name)
}

func TestNilSnapshotLookups(t *testing.T) {
	var snapshot *Snapshot
	_, ok := snapshot.Product("P001")
	require.False(t, ok)
	_, ok = snapshot.Supplier("S001")
	require.False(t, ok)
	_, ok = snapshot.Branch("B001")
	require.False(t, ok)
}

type failingProvider struct {
	*StaticProvider
}

func (failingProvider) Suppliers(ctx context.Context) ([]Supplier, error) {
	return nil, errors.New("connection refused")
}

func TestLoadWrapsProviderErrors(t *testing.T) {
	_, err := Load(context.Background(), failingProvider{NewStaticProvider(nil, nil, nil)})
	require.Error(t, err)
	require.Contains(t, err.Error(), "catalog: load suppliers")
}
