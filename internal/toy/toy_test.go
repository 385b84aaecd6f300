package toy

import (
	"testing"

	"github.com/samcharles93/natread/pkg/iasi"
	"github.com/samcharles93/natread/pkg/nat"
)

func TestL1CDecodes(t *testing.T) {
	t.Parallel()

	var diags []nat.Diagnostic
	f, err := nat.Assemble(L1C(3, 1), nat.Options{
		Resolve:     iasi.Detect,
		Source:      "toy.nat",
		Diagnostics: func(d nat.Diagnostic) { diags = append(diags, d) },
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	defer f.Close()

	if f.Product.Name() != "IASI L1C" {
		t.Fatalf("product: got %q", f.Product.Name())
	}
	if len(diags) != 1 || diags[0].Relative != 1 {
		t.Fatalf("diagnostics: %+v", diags)
	}

	lat, err := iasi.Latitudes(f)
	if err != nil {
		t.Fatalf("Latitudes: %v", err)
	}
	if len(lat) != 2*iasi.FOVs {
		t.Fatalf("latitudes: got %d want %d", len(lat), 2*iasi.FOVs)
	}
	if got, want := lat[iasi.FOVs+7], Latitude(2, 7); got != want {
		t.Fatalf("record 2 pixel 7: got %v want %v", got, want)
	}

	start, stop := f.TimeRange(f.Body()[2])
	if !start.Equal(RecordTime(2)) || !stop.Before(RecordTime(3)) {
		t.Fatalf("record 2 span: %v..%v", start, stop)
	}
}
