package inventory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"retailsync/internal/platform/models"
)

func TestBuild(t *testing.T) {
	products := []models.Record{
		{"id": json.Number("1"), "sku": "MUG", "name": "Mug", "stock": json.Number("3"), "price": json.Number("4.10")},
		{"id": "2", "name": "Plate", "quantity": "25", "unitPrice": 0.1},
		{"sku": "GHOST"},
	}

	rows := Build(products, 10)
	require.Len(t, rows, 3)

	assert.Equal(t, "1", rows[0]["productId"])
	assert.Equal(t, json.Number("12.30"), rows[0]["stockValue"])
	assert.Equal(t, true, rows[0]["lowStock"])
	assert.Equal(t, "Mug", rows[0]["name"])

	assert.Equal(t, json.Number("2.50"), rows[1]["stockValue"])
	assert.Equal(t, false, rows[1]["lowStock"])

	assert.Equal(t, "GHOST", rows[2]["productId"])
	assert.Equal(t, json.Number("0.00"), rows[2]["stockValue"])
	assert.Equal(t, true, rows[2]["lowStock"])

	assert.Equal(t, "14.8", TotalValue(rows).String())
}

func TestBuild_EmptyAndThreshold(t *testing.T) {
	assert.Empty(t, Build(nil, 10))

	rows := Build([]models.Record{{"id": 1, "stock": 10}}, 10)
	assert.Equal(t, true, rows[0]["lowStock"], "stock equal to the threshold is low")

	rows = Build([]models.Record{{"id": 1, "stock": 10}}, 5)
	assert.Equal(t, false, rows[0]["lowStock"])
}
