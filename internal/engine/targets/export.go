package targets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"retailsync/internal/engine/inventory"
	apperrors "retailsync/internal/pkg/errors"
	"retailsync/internal/platform/export"
	"retailsync/internal/platform/models"
)

const (
	FormatXLSX = "xlsx"
	FormatJSON = "json"

	summarySheet  = "Summary"
	exportVersion = "1.0"

	// Spreadsheet cells hold float64; wider integers are written as text.
	maxExactInt = 1 << 53
)

// FileExport serializes the snapshot as a workbook or a JSON document and
// hands the bytes to a sink.
type FileExport struct {
	sink          export.Sink
	prefix        string
	defaultFormat string
	now           func() time.Time
}

func NewFileExport(sink export.Sink, prefix, defaultFormat string) *FileExport {
	if prefix == "" {
		prefix = "retail-sync"
	}
	if defaultFormat == "" {
		defaultFormat = FormatXLSX
	}
	return &FileExport{sink: sink, prefix: prefix, defaultFormat: defaultFormat, now: time.Now}
}

func (t *FileExport) Method() models.SyncMethod { return models.MethodFileExport }

// Filename is <prefix>-<YYYY-MM-DD>.<ext>.
func (t *FileExport) Filename(at time.Time, format string) string {
	return fmt.Sprintf("%s-%s.%s", t.prefix, at.Format(time.DateOnly), format)
}

func (t *FileExport) Apply(ctx context.Context, snap models.Snapshot, opts Options) (models.SyncResult, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = t.defaultFormat
	}

	now := t.now().UTC()
	exportID := uuid.NewString()

	var (
		data        []byte
		contentType string
		err         error
	)
	switch format {
	case FormatXLSX:
		data, err = t.workbook(snap, now)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		data, err = t.document(snap, now, exportID)
		contentType = "application/json"
	default:
		return models.SyncResult{}, apperrors.Validation("format", "must be one of: xlsx json")
	}
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("render %s export: %w", format, err)
	}

	name := t.Filename(now, format)
	location, err := t.sink.Put(ctx, name, data, contentType)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("store export: %w", err)
	}

	collections := snap.Collections()
	opts.report(len(collections), len(collections), "", snap.Total())
	log.Info().Str("export_id", exportID).Str("location", location).Int("bytes", len(data)).Msg("snapshot exported")

	return models.SyncResult{
		Success: true,
		Method:  models.MethodFileExport,
		Message: fmt.Sprintf("Exported %d records to %s", snap.Total(), name),
		Details: map[string]interface{}{
			"exportId": exportID,
			"filename": name,
			"location": location,
			"format":   format,
			"bytes":    len(data),
		},
	}, nil
}

type exportMetadata struct {
	ExportID     string              `json:"exportId"`
	ExportedAt   time.Time           `json:"exportedAt"`
	Collections  []models.Collection `json:"collections"`
	TotalRecords int                 `json:"totalRecords"`
	Version      string              `json:"version"`
}

func (t *FileExport) document(snap models.Snapshot, now time.Time, exportID string) ([]byte, error) {
	doc := struct {
		Metadata exportMetadata  `json:"metadata"`
		Data     models.Snapshot `json:"data"`
	}{
		Metadata: exportMetadata{
			ExportID:     exportID,
			ExportedAt:   now,
			Collections:  snap.Collections(),
			TotalRecords: snap.Total(),
			Version:      exportVersion,
		},
		Data: snap,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// workbook writes a Summary sheet and one sheet per non-empty collection.
func (t *FileExport) workbook(snap models.Snapshot, now time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(summarySheet, "A1", &[]interface{}{"Collection", "Records"}); err != nil {
		return nil, err
	}

	row := 2
	for _, c := range snap.Collections() {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(summarySheet, cell, &[]interface{}{string(c), len(snap[c])}); err != nil {
			return nil, err
		}
		row++
	}
	cell, _ := excelize.CoordinatesToCellName(1, row+1)
	if err := f.SetSheetRow(summarySheet, cell, &[]interface{}{"Exported at", now.Format(time.RFC3339)}); err != nil {
		return nil, err
	}
	if rows, ok := snap[models.Inventory]; ok {
		cell, _ = excelize.CoordinatesToCellName(1, row+2)
		value := inventory.TotalValue(rows).StringFixed(2)
		if err := f.SetSheetRow(summarySheet, cell, &[]interface{}{"Inventory value", value}); err != nil {
			return nil, err
		}
	}

	for _, c := range snap.Collections() {
		records := snap[c]
		if len(records) == 0 {
			continue
		}
		if err := writeSheet(f, string(c), records); err != nil {
			return nil, fmt.Errorf("sheet %s: %w", c, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

func writeSheet(f *excelize.File, name string, records []models.Record) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	headers := columns(records)
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}

	for i, rec := range records {
		values := make([]interface{}, len(headers))
		for j, h := range headers {
			values[j] = cellValue(rec[h])
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

// columns is the sorted union of record keys.
func columns(records []models.Record) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case json.Number:
		if i, err := t.Int64(); err == nil && (i > maxExactInt || i < -maxExactInt) {
			return t.String()
		}
		if f, err := t.Float64(); err == nil && math.Abs(f) <= maxExactInt {
			return f
		}
		return t.String()
	case string, bool, float64, float32, int, int64:
		return t
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
}
