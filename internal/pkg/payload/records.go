package payload

// Shape names which accepted layout a record list was found in.
type Shape string

const (
	ShapeArray      Shape = "array"
	ShapeDataArray  Shape = "data-array"
	ShapeDataObject Shape = "data-object"
	ShapeRecord     Shape = "record"
	ShapeRecords    Shape = "records"
	ShapeBody       Shape = "body"
	ShapeNone       Shape = "none"
)

type recordShape struct {
	shape   Shape
	extract func(v any) ([]Object, bool)
}

// recordShapes is tried in order; the whole-body fallback comes last.
var recordShapes = []recordShape{
	{ShapeArray, func(v any) ([]Object, bool) {
		arr, ok := v.([]any)
		if !ok {
			return nil, false
		}
		return Objects(arr), true
	}},
	{ShapeDataArray, field("data", asArray)},
	{ShapeDataObject, field("data", asObject)},
	{ShapeRecord, field("record", asObject)},
	{ShapeRecords, field("records", asArray)},
}

func field(key string, as func(any) ([]Object, bool)) func(any) ([]Object, bool) {
	return func(v any) ([]Object, bool) {
		obj, ok := v.(Object)
		if !ok {
			return nil, false
		}
		inner, ok := obj[key]
		if !ok {
			return nil, false
		}
		return as(inner)
	}
}

func asArray(v any) ([]Object, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	return Objects(arr), true
}

func asObject(v any) ([]Object, bool) {
	obj, ok := v.(Object)
	if !ok {
		return nil, false
	}
	return []Object{obj}, true
}

// Records extracts the record list from a decoded event body. When no
// envelope shape matches, the body itself minus the envelope keys in omit
// is the record.
func Records(v any, omit ...string) ([]Object, Shape) {
	for _, s := range recordShapes {
		if records, ok := s.extract(v); ok {
			return records, s.shape
		}
	}

	obj, ok := v.(Object)
	if !ok {
		return nil, ShapeNone
	}
	record := make(Object, len(obj))
	for k, val := range obj {
		record[k] = val
	}
	for _, k := range omit {
		delete(record, k)
	}
	if len(record) == 0 {
		return nil, ShapeNone
	}
	return []Object{record}, ShapeBody
}
