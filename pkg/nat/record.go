package nat

import (
	"io"
	"time"
)

// Record pairs a header with its content. Payload is a view into the
// assembling File's arena and is valid for as long as the File is open.
type Record struct {
	Header  Header
	Content Content

	// Index is the record's position in the original stream and Offset its
	// byte offset there.
	Index  int
	Offset int

	payload []byte
}

func (r *Record) Size() int { return int(r.Header.Size) }

func (r *Record) Class() RecordClass { return r.Header.Class }

// Payload returns the on-disk bytes following the header.
func (r *Record) Payload() []byte { return r.payload }

// Raw concatenates the on-disk header and payload.
func (r *Record) Raw() []byte {
	out := make([]byte, 0, r.Size())
	out = append(out, r.Header.Raw()...)
	return append(out, r.payload...)
}

// WriteTo writes the record exactly as it appeared in the stream.
func (r *Record) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Header.Raw())
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(r.payload)
	return int64(n + m), err
}

// Pending reports a body record that has not been through the second pass.
func (r *Record) Pending() bool {
	_, raw := r.Content.(Raw)
	return raw && r.Header.Class == ClassMDR
}

func (r *Record) Malformed() bool { return r.Header.Class == ClassMalformed }

// Decoded returns the interpreted content, if any.
func (r *Record) Decoded() (*Decoded, bool) {
	d, ok := r.Content.(*Decoded)
	return d, ok
}

// TimeRange is the record's own sensing span from its header.
func (r *Record) TimeRange() (time.Time, time.Time) {
	return r.Header.StartTime(), r.Header.StopTime()
}
