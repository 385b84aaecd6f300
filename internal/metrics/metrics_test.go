package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/samcharles93/natread/internal/toy"
	"github.com/samcharles93/natread/pkg/iasi"
	"github.com/samcharles93/natread/pkg/nat"
)

func TestObserveFile(t *testing.T) {
	t.Parallel()

	f, err := nat.Assemble(toy.L1C(3, 2), nat.Options{Resolve: iasi.Detect})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	defer f.Close()

	m := New()
	m.ObserveFile(f, 20*time.Millisecond)

	if got := testutil.ToFloat64(m.FilesDecoded.WithLabelValues("IASI L1C")); got != 1 {
		t.Fatalf("files decoded: got %v want 1", got)
	}
	if got := testutil.ToFloat64(m.Malformed.WithLabelValues("IASI L1C")); got != 1 {
		t.Fatalf("malformed: got %v want 1", got)
	}
	if got := testutil.ToFloat64(m.Records.WithLabelValues(nat.ClassMDR.String())); got != 2 {
		t.Fatalf("MDR records: got %v want 2", got)
	}
	if got := testutil.ToFloat64(m.BytesIngested); got != float64(f.Size()) {
		t.Fatalf("bytes: got %v want %d", got, f.Size())
	}
}

func TestHandler(t *testing.T) {
	t.Parallel()

	m := New()
	m.SplitParts.Add(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "natread_split_parts_total 3") {
		t.Fatalf("split counter missing from exposition:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatal("runtime collector not registered")
	}
}
