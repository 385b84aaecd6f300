package nat

import "fmt"

// Content is the payload of a record: Raw until a decoder interprets it.
// The set of implementations is closed to this package.
type Content interface {
	isContent()
}

// Raw is an uninterpreted payload. Body records stay Raw between the two
// assembly passes.
type Raw struct {
	Data []byte
}

// Placeholder stands in for a body record that was refused by the anomaly
// checks. It carries no data; consumers must treat it as absent.
type Placeholder struct {
	Reason string
}

// Decoded is a record interpreted through a Schema.
type Decoded struct {
	Schema   string
	Consumed int

	names  []string
	values map[string]Value
}

func (Raw) isContent()         {}
func (Placeholder) isContent() {}
func (*Decoded) isContent()    {}
func (*MPHR) isContent()       {}

func newDecoded(schema string, n int) *Decoded {
	return &Decoded{
		Schema: schema,
		names:  make([]string, 0, n),
		values: make(map[string]Value, n),
	}
}

// NewDecoded returns an empty Decoded for content assembled outside a Schema.
func NewDecoded(schema string) *Decoded { return newDecoded(schema, 0) }

func (d *Decoded) put(name string, v Value) {
	if _, ok := d.values[name]; !ok {
		d.names = append(d.names, name)
	}
	d.values[name] = v
}

// Set replaces or appends a field. Decoders use it to post-process values
// before the content is published.
func (d *Decoded) Set(name string, v Value) { d.put(name, v) }

// Names lists fields in layout order.
func (d *Decoded) Names() []string { return d.names }

func (d *Decoded) Len() int { return len(d.names) }

func (d *Decoded) Get(name string) (Value, bool) {
	v, ok := d.values[name]
	return v, ok
}

// Value is Get with an error for absent fields.
func (d *Decoded) Value(name string) (Value, error) {
	v, ok := d.values[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %s.%s", ErrFieldNotFound, d.Schema, name)
	}
	return v, nil
}

// Float returns the first element of a field, NaN when absent.
func (d *Decoded) Float(name string) float64 {
	v, ok := d.values[name]
	if !ok {
		return Value{}.Float()
	}
	return v.Float()
}

// Int returns the first element of a field, -1 when absent or missing.
func (d *Decoded) Int(name string) int {
	v, ok := d.values[name]
	if !ok {
		return -1
	}
	return v.Int()
}
