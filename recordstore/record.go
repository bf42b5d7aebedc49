package recordstore

// Record is anything with a string identifier. It is the only attribute the
// store looks at.
type Record interface {
	RecordID() string
}

// Document is a schemaless record keyed by its "id" field.
type Document map[string]any

// RecordID returns the "id" field, or "" if it is missing or not a string.
func (d Document) RecordID() string {
	id, _ := d["id"].(string)
	return id
}
