package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/vireon/internal/domain/product"
	"github.com/xenking/vireon/internal/storage/memory"
)

const catalog = `[
  {"id": "lamp", "name": "Desk Lamp", "price": 19.99, "category": "home", "stock": 5},
  {"id": "chair", "name": "Chair", "price": "45.50", "category": "home", "stock": 2}
]`

func writeGz(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "products.json")
	require.NoError(t, os.WriteFile(plain, []byte(catalog), 0o600))
	packed := filepath.Join(dir, "products.json.gz")
	writeGz(t, packed, catalog)

	for _, path := range []string{plain, packed} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			products, err := ReadFile(path)
			require.NoError(t, err)
			require.Len(t, products, 2)
			assert.Equal(t, "lamp", products[0].ID)
			assert.Equal(t, "19.99", products[0].Price.StringFixed(2))
			assert.Equal(t, "45.50", products[1].Price.StringFixed(2))
			assert.Equal(t, 2, products[1].Stock)
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	for name, content := range map[string]string{
		"NegativeStock": `[{"id": "x", "name": "X", "price": 1, "stock": -1}]`,
		"NegativePrice": `[{"id": "x", "name": "X", "price": -1, "stock": 1}]`,
		"Anonymous":     `[{"price": 1, "stock": 1}]`,
		"Broken":        `[{"id":`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(content))
			require.Error(t, err)
		})
	}
}

func TestSample(t *testing.T) {
	products, err := Sample()
	require.NoError(t, err)
	require.NotEmpty(t, products)
	for _, p := range products {
		assert.NotEmpty(t, p.ID)
		assert.Positive(t, p.Stock, p.ID)
	}
}

func TestApply(t *testing.T) {
	products, err := Decode(strings.NewReader(catalog))
	require.NoError(t, err)

	store := memory.New()
	ctx := context.Background()
	var seen []string
	require.NoError(t, Apply(ctx, store.Products, products, func(p *product.Product) {
		seen = append(seen, p.ID)
	}))
	assert.Equal(t, []string{"lamp", "chair"}, seen)

	// Applying twice upserts rather than duplicating.
	require.NoError(t, Apply(ctx, store.Products, products, nil))
	list, err := store.Products.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
