// Package inventory derives the stock view from the product collection.
package inventory

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"retailsync/internal/pkg/payload"
	"retailsync/internal/platform/models"
)

const DefaultLowStockThreshold = 10

var (
	idFields    = []string{"id", "Id", "ID", "productId", "sku"}
	stockFields = []string{"stock", "stockQuantity", "quantity", "qty", "inventory", "onHand"}
	priceFields = []string{"price", "unitPrice", "sellingPrice", "cost"}
)

// Build returns one inventory row per product: stock, unit price, stock
// value (stock x price) and a low-stock flag. Missing or unparseable
// numbers count as zero. It is pure.
func Build(products []models.Record, lowStockThreshold int) []models.Record {
	if lowStockThreshold < 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	threshold := decimal.NewFromInt(int64(lowStockThreshold))

	rows := make([]models.Record, 0, len(products))
	for _, product := range products {
		stock := number(product, stockFields)
		price := number(product, priceFields)

		row := models.Record{
			"stock":      json.Number(stock.String()),
			"price":      json.Number(price.StringFixed(2)),
			"stockValue": json.Number(stock.Mul(price).StringFixed(2)),
			"lowStock":   stock.LessThanOrEqual(threshold),
		}
		if _, id := payload.FirstString(product, idFields...); id != "" {
			row["productId"] = id
		}
		for _, k := range []string{"sku", "name", "category"} {
			if v, ok := product[k]; ok {
				row[k] = v
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// TotalValue sums stockValue across rows.
func TotalValue(rows []models.Record) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(number(row, []string{"stockValue"}))
	}
	return total
}

func number(rec models.Record, fields []string) decimal.Decimal {
	for _, f := range fields {
		s, ok := payload.String(rec[f])
		if !ok {
			continue
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	}
	return decimal.Zero
}
