package iasi

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samcharles93/natread/pkg/nat"
)

type l2Counts struct {
	nlt, nlq, nlo, nem int
	npct, npcw, npco   int
	co, hno3, o3, so2  int
}

// l2GIADR encodes a sounding GIADR. Pressure level i of every grid is
// (i+1) hPa.
func l2GIADR(c l2Counts) []byte {
	var b []byte
	grid := func(n int) {
		b = append(b, byte(n))
		for i := range n {
			b = append(b, 0, 0, 0, 0)
			putU32(b, len(b)-4, uint32((i+1)*10000))
		}
	}
	heights := func(n int) {
		b = append(b, byte(n))
		for i := range n {
			b = append(b, 0, 0)
			putU16(b, len(b)-2, uint16(1000*(i+1)))
		}
	}
	grid(c.nlt)
	grid(c.nlq)
	grid(c.nlo)
	grid(c.nem)
	b = append(b, byte(c.npct), byte(c.npcw), byte(c.npco))
	heights(c.co)
	heights(c.hno3)
	heights(c.o3)
	heights(c.so2)
	return b
}

func TestL2Env(t *testing.T) {
	t.Parallel()

	c, err := L2{}.DecodeHeaderRecord(nat.Header{Class: nat.ClassGIADR, Subclass: L2GIADRSubclass},
		l2GIADR(l2Counts{3, 2, 1, 2, 2, 1, 1, 3, 2, 5, 1}))
	if err != nil {
		t.Fatalf("DecodeHeaderRecord: %v", err)
	}
	d := c.(*nat.Decoded)
	if v, _ := d.Get("PRESSURE_LEVELS_TEMP"); !cmp.Equal(v.Num, []float64{1, 2, 3}) {
		t.Fatalf("temperature grid: got %v", v.Num)
	}
	if v, _ := d.Get("FORLI_LAYER_HEIGHTS_O3"); v.Len() != 5 {
		t.Fatalf("O3 layer heights: got %d", v.Len())
	}

	env, err := L2Env(d)
	if err != nil {
		t.Fatalf("L2Env: %v", err)
	}
	want := nat.Env{
		"NLT": 3, "NLQ": 2, "NLO": 1, "NEW": 2,
		"NPCT": 2, "NPCW": 1, "NPCO": 1,
		"NERRT": 3, "NERRW": 1, "NERRO": 1,
		"NL_CO": 3, "NL_HNO3": 2, "NL_O3": 5, "NL_SO2": 1,
		// halves round to even
		"NEVA_CO": 2, "NEVE_CO": 6,
		"NEVA_HNO3": 1, "NEVE_HNO3": 2,
		"NEVA_O3": 2, "NEVE_O3": 10,
	}
	if diff := cmp.Diff(want, env); diff != "" {
		t.Fatalf("env mismatch (-want +got):\n%s", diff)
	}

	if _, err := L2Env(nat.NewDecoded("empty")); !errors.Is(err, nat.ErrFieldNotFound) {
		t.Fatalf("empty GIADR: got %v", err)
	}
}

func TestL2GIADRSize(t *testing.T) {
	t.Parallel()

	b := l2GIADR(l2Counts{3, 2, 1, 2, 2, 1, 1, 3, 2, 5, 1})
	_, err := L2{}.DecodeHeaderRecord(nat.Header{Class: nat.ClassGIADR, Subclass: L2GIADRSubclass}, append(b, 0))
	if !errors.Is(err, nat.ErrInvalidRecordSize) {
		t.Fatalf("trailing byte: got %v", err)
	}
}

func TestL2Check(t *testing.T) {
	t.Parallel()

	cases := []struct {
		version uint8
		size    uint32
		reason  string
	}{
		{4, 207748, ""},
		{4, 207747, "implausible record size 207747"},
		{5, 300000, "unsupported subclass version 5"},
	}
	for _, tc := range cases {
		if got := (L2{}).Check(nat.Header{Version: tc.version, Size: tc.size}); got != tc.reason {
			t.Fatalf("version %d size %d: got %q want %q", tc.version, tc.size, got, tc.reason)
		}
	}
}

var fullCounts = l2Counts{101, 101, 101, 12, 2, 1, 1, 3, 2, 5, 1}

func l2Record(t *testing.T) []byte {
	t.Helper()
	giadr, err := L2GIADR.Decode(l2GIADR(fullCounts), nil)
	if err != nil {
		t.Fatalf("GIADR: %v", err)
	}
	env, err := L2Env(giadr)
	if err != nil {
		t.Fatalf("L2Env: %v", err)
	}
	env["NERR"] = 0

	b := sized(t, L2MDR, env)
	st := starts(t, L2MDR, env)

	putI32(b, st["EARTH_LOCATION"], 455000)
	putI32(b, st["EARTH_LOCATION"]+4, -32500)
	putU32(b, st["EARTH_LOCATION"]+2*8, 0x80000000)

	ang := st["ANGULAR_RELATION"]
	putI16(b, ang, 3000)
	putI16(b, ang+2, 1550)
	putI16(b, ang+4, -9000)
	putI16(b, ang+6, 12000)

	putU16(b, st["ATMOSPHERIC_TEMPERATURE"], 28815)
	putU16(b, st["INTEGRATED_CO2"], 400)

	b[st["FLG_CLDNES"]] = 1
	b[st["FLG_ITCONV"]] = 5
	b[st["FLG_LANSEA"]] = 1
	b[st["ERROR_DATA_INDEX"]+1] = 255
	return b
}

func l2Stream(t *testing.T) *stream {
	t.Helper()
	s := &stream{}
	s.mphr("PRODUCT_TYPE = xxx", "PROCESSING_LEVEL = 02")
	s.record(nat.ClassGIADR, L2GIADRSubclass, 1, nat.Epoch, l2GIADR(fullCounts))
	s.record(nat.ClassMDR, 1, 4, at(0), l2Record(t))
	s.record(nat.ClassMDR, 1, 4, at(1), make([]byte, 64))
	return s
}

func TestL2Decode(t *testing.T) {
	t.Parallel()

	f, diags := l2Stream(t).assemble(t, "IASI_SND_02_M01.nat")
	defer f.Close()

	if got := f.Product.Name(); got != "IASI L2 SND" {
		t.Fatalf("product: got %q", got)
	}
	if len(diags) != 1 || diags[0].Reason != "implausible record size 84" {
		t.Fatalf("diagnostics: %+v", diags)
	}

	d := f.Decoded()[0]
	if d.Int("NERR") != 0 {
		t.Fatalf("NERR: got %d", d.Int("NERR"))
	}
	if v, _ := d.Get("TEMPERATURE_ERROR"); v.Len() != 0 {
		t.Fatalf("TEMPERATURE_ERROR: got %d elements", v.Len())
	}

	lat, err := Latitudes(f)
	if err != nil {
		t.Fatalf("Latitudes: %v", err)
	}
	lon, _ := Longitudes(f)
	if lat[0] != 45.5 || lon[0] != -3.25 {
		t.Fatalf("location: got (%v, %v)", lat[0], lon[0])
	}
	angles := map[Quantity]float64{SunZenith: 30, SatelliteZenith: 15.5, SunAzimuth: -90, SatelliteAzimuth: 120}
	for q, want := range angles {
		got, err := Geolocation(f, q)
		if err != nil || got[0] != want {
			t.Fatalf("%s: got %v, %v want %v", q, got[0], err, want)
		}
	}

	temp, err := Profile(f, "ATMOSPHERIC_TEMPERATURE")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if len(temp) != FOVs || len(temp[0]) != 101 || temp[0][0] != 288.15 {
		t.Fatalf("temperature profile: %d rows, first %v", len(temp), temp[0][:1])
	}

	integ, err := Integrated(f)
	if err != nil || integ[0][5] != 0.4 {
		t.Fatalf("Integrated: got %v, %v", integ[0], err)
	}

	mask, err := QualityMask(f)
	if err != nil {
		t.Fatalf("QualityMask: %v", err)
	}
	if !mask[0] || mask[1] {
		t.Fatalf("quality mask: got %v %v want true false", mask[0], mask[1])
	}

	idx, err := ErrorIndex(f)
	if err != nil {
		t.Fatalf("ErrorIndex: %v", err)
	}
	if !idx[0] || idx[1] {
		t.Fatalf("error index: got %v %v want true false", idx[0], idx[1])
	}

	times, err := ObservationTimes(f)
	if err != nil || len(times) != FOVs || !times[FOVs-1].Equal(at(0)) {
		t.Fatalf("ObservationTimes: %d values, %v", len(times), err)
	}

	if _, err := CloudFractions(f); !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("CloudFractions on L2: got %v", err)
	}
	if _, err := Radiances(f); !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("Radiances on L2: got %v", err)
	}
}

func TestL2Observations(t *testing.T) {
	t.Parallel()

	f, _ := l2Stream(t).assemble(t, "IASI_SND_02_M01.nat")
	defer f.Close()

	obs, err := Observations(f)
	if err != nil {
		t.Fatalf("Observations: %v", err)
	}
	if len(obs) != FOVs {
		t.Fatalf("rows: got %d", len(obs))
	}
	if obs[0].Latitude == nil || *obs[0].Latitude != 45.5 || !obs[0].Good {
		t.Fatalf("row 0: %+v", obs[0])
	}
	if obs[2].Latitude != nil {
		t.Fatalf("row 2 latitude: got %v want nil", *obs[2].Latitude)
	}
	if obs[0].CloudFraction != nil {
		t.Fatal("sounding rows carry no AVHRR cloud fraction")
	}
	if !obs[0].Time().Equal(at(0)) {
		t.Fatalf("row 0 time: %v", obs[0].Time())
	}
}
