package iasi

import (
	"fmt"
	"math"
	"time"

	"github.com/samcharles93/natread/pkg/nat"
)

// Quantity names a per-pixel geolocation value.
type Quantity int

const (
	Latitude Quantity = iota
	Longitude
	SatelliteZenith
	SatelliteAzimuth
	SunZenith
	SunAzimuth
)

func (q Quantity) String() string {
	switch q {
	case Latitude:
		return "latitude"
	case Longitude:
		return "longitude"
	case SatelliteZenith:
		return "satellite zenith"
	case SatelliteAzimuth:
		return "satellite azimuth"
	case SunZenith:
		return "sun zenith"
	case SunAzimuth:
		return "sun azimuth"
	default:
		return fmt.Sprintf("quantity(%d)", int(q))
	}
}

type source struct {
	field string
	col   int
}

var (
	sounderGeometry = map[Quantity]source{
		Latitude:         {"GGeoSondLoc", 1},
		Longitude:        {"GGeoSondLoc", 0},
		SatelliteZenith:  {"GGeoSondAnglesMETOP", 0},
		SatelliteAzimuth: {"GGeoSondAnglesMETOP", 1},
		SunZenith:        {"GGeoSondAnglesSUN", 0},
		SunAzimuth:       {"GGeoSondAnglesSUN", 1},
	}
	soundingGeometry = map[Quantity]source{
		Latitude:         {"EARTH_LOCATION", 0},
		Longitude:        {"EARTH_LOCATION", 1},
		SatelliteZenith:  {"ANGULAR_RELATION", 1},
		SatelliteAzimuth: {"ANGULAR_RELATION", 3},
		SunZenith:        {"ANGULAR_RELATION", 0},
		SunAzimuth:       {"ANGULAR_RELATION", 2},
	}
)

func unavailable(p nat.Product, what string) error {
	name := "no product"
	if p != nil {
		name = p.Name()
	}
	return fmt.Errorf("%w: %s for %s", ErrNotAvailable, what, name)
}

// decodedBody returns the body records that decoded, in stream order.
func decodedBody(f *nat.File) []*nat.Record {
	var out []*nat.Record
	for _, r := range f.Body() {
		if _, ok := r.Decoded(); ok {
			out = append(out, r)
		}
	}
	return out
}

// gather concatenates one field over every decoded body record.
func gather(f *nat.File, name string, each func(v nat.Value) []float64) ([]float64, error) {
	var out []float64
	for _, d := range f.Decoded() {
		v, err := d.Value(name)
		if err != nil {
			return nil, err
		}
		out = append(out, each(v)...)
	}
	return out, nil
}

func flat(v nat.Value) []float64 { return v.Num }

// rows splits a field into per-pixel rows across every decoded body record.
func rows(f *nat.File, name string) ([][]float64, error) {
	var out [][]float64
	for _, d := range f.Decoded() {
		v, err := d.Value(name)
		if err != nil {
			return nil, err
		}
		out = append(out, splitPixels(v)...)
	}
	return out, nil
}

// geometry returns the field and trailing column holding q for product p.
func geometry(p nat.Product, q Quantity) (source, error) {
	var table map[Quantity]source
	switch p := p.(type) {
	case L1C:
		table = sounderGeometry
	case PC:
		if !p.Residuals {
			table = sounderGeometry
		}
	case L2:
		table = soundingGeometry
	}
	src, ok := table[q]
	if !ok {
		return source{}, unavailable(p, q.String())
	}
	return src, nil
}

// Geolocation returns one value per pixel (scan-major, pixel-minor) for every
// decoded body record.
func Geolocation(f *nat.File, q Quantity) ([]float64, error) {
	src, err := geometry(f.Product, q)
	if err != nil {
		return nil, err
	}
	return gather(f, src.field, func(v nat.Value) []float64 { return v.Column(src.col) })
}

func Latitudes(f *nat.File) ([]float64, error)  { return Geolocation(f, Latitude) }
func Longitudes(f *nat.File) ([]float64, error) { return Geolocation(f, Longitude) }

// Radiances returns the rescaled spectrum of every pixel in mW/m2/sr/cm-1.
// Rows alias the decoded records.
func Radiances(f *nat.File) ([][]float64, error) {
	if _, ok := f.Product.(L1C); !ok {
		return nil, unavailable(f.Product, "radiances")
	}
	return rows(f, "GS1cSpect")
}

func avhrrFraction(f *nat.File, name, what string) ([]float64, error) {
	switch p := f.Product.(type) {
	case L1C:
	case PC:
		if p.Residuals {
			return nil, unavailable(p, what)
		}
	default:
		return nil, unavailable(f.Product, what)
	}
	return gather(f, name, flat)
}

// CloudFractions returns the AVHRR cloud fraction of every pixel in percent.
// Level 1C records older than version 5 do not carry it.
func CloudFractions(f *nat.File) ([]float64, error) {
	return avhrrFraction(f, "GEUMAvhrr1BCldFrac", "cloud fraction")
}

// LandFractions returns the AVHRR land fraction of every pixel in percent.
func LandFractions(f *nat.File) ([]float64, error) {
	return avhrrFraction(f, "GEUMAvhrr1BLandFrac", "land fraction")
}

// ObservationTimes returns the time of every pixel. Sounding records carry no
// per-scan stamp, so their pixels share the record header start.
func ObservationTimes(f *nat.File) ([]time.Time, error) {
	var out []time.Time
	switch p := f.Product.(type) {
	case L1C:
	case PC:
		if p.Residuals {
			return nil, unavailable(p, "observation times")
		}
	case L2:
		for _, r := range decodedBody(f) {
			t := r.Header.StartTime()
			for range FOVs {
				out = append(out, t)
			}
		}
		return out, nil
	default:
		return nil, unavailable(f.Product, "observation times")
	}
	for _, d := range f.Decoded() {
		v, err := d.Value("GEPSDatIasi")
		if err != nil {
			return nil, err
		}
		for _, t := range v.Times() {
			for range PN {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

// DegradedFlags returns the instrument and processing degradation flags of
// every decoded body record.
func DegradedFlags(f *nat.File) (inst, proc []bool, err error) {
	for _, d := range f.Decoded() {
		i, err := d.Value("DEGRADED_INST_MDR")
		if err != nil {
			return nil, nil, err
		}
		p, err := d.Value("DEGRADED_PROC_MDR")
		if err != nil {
			return nil, nil, err
		}
		inst = append(inst, i.Bool())
		proc = append(proc, p.Bool())
	}
	return inst, proc, nil
}

func requireL2(f *nat.File, what string) error {
	if _, ok := f.Product.(L2); !ok {
		return unavailable(f.Product, what)
	}
	return nil
}

// Profile returns a per-pixel sounding field such as ATMOSPHERIC_TEMPERATURE
// or SURFACE_EMISSIVITY, one row per pixel.
func Profile(f *nat.File, name string) ([][]float64, error) {
	if err := requireL2(f, name); err != nil {
		return nil, err
	}
	return rows(f, name)
}

// IntegratedGases lists the columns returned by Integrated.
var IntegratedGases = []string{
	"INTEGRATED_WATER_VAPOUR",
	"INTEGRATED_OZONE",
	"INTEGRATED_N2O",
	"INTEGRATED_CO",
	"INTEGRATED_CH4",
	"INTEGRATED_CO2",
}

// Integrated returns the integrated gas columns of every pixel in the order
// of IntegratedGases.
func Integrated(f *nat.File) ([][]float64, error) {
	if err := requireL2(f, "integrated columns"); err != nil {
		return nil, err
	}
	var out [][]float64
	for _, d := range f.Decoded() {
		cols := make([]nat.Value, len(IntegratedGases))
		for i, name := range IntegratedGases {
			v, err := d.Value(name)
			if err != nil {
				return nil, err
			}
			cols[i] = v
		}
		for px := range FOVs {
			row := make([]float64, len(cols))
			for i, v := range cols {
				row[i] = v.Num[px]
			}
			out = append(out, row)
		}
	}
	return out, nil
}

// QualityMask reports the pixels whose sounding retrieval passed every
// screening flag and whose surface type is one of the accepted classes.
func QualityMask(f *nat.File) ([]bool, error) {
	if err := requireL2(f, "quality mask"); err != nil {
		return nil, err
	}
	var out []bool
	for _, d := range f.Decoded() {
		mask, err := qualityMask(d)
		if err != nil {
			return nil, err
		}
		out = append(out, mask...)
	}
	return out, nil
}

var screeningFlags = []string{
	"FLG_IASIBAD", "FLG_CLDNES", "FLG_DUSTCLD", "FLG_ITCONV",
	"FLG_PHYSCHECK", "FLG_RETCHECK", "FLG_THICIR", "FLG_LANSEA",
}

func qualityMask(d *nat.Decoded) ([]bool, error) {
	flags := make(map[string][]float64, len(screeningFlags))
	for _, name := range screeningFlags {
		v, err := d.Value(name)
		if err != nil {
			return nil, err
		}
		if len(v.Num) != FOVs {
			return nil, fmt.Errorf("%w: %s has %d elements", nat.ErrInvalidShape, name, len(v.Num))
		}
		flags[name] = v.Num
	}
	out := make([]bool, FOVs)
	for px := range out {
		ls := flags["FLG_LANSEA"][px]
		out[px] = flags["FLG_IASIBAD"][px] == 0 &&
			flags["FLG_CLDNES"][px] == 1 &&
			flags["FLG_DUSTCLD"][px] < 2 &&
			flags["FLG_ITCONV"][px] == 5 &&
			flags["FLG_PHYSCHECK"][px] == 0 &&
			flags["FLG_RETCHECK"][px] == 0 &&
			flags["FLG_THICIR"][px] == 0 &&
			(ls == 0 || ls == 1 || ls == 3)
	}
	return out, nil
}

// ErrorIndex reports the pixels that carry retrieval error data. The stored
// index is 255 where none is available, which decodes as missing.
func ErrorIndex(f *nat.File) ([]bool, error) {
	if err := requireL2(f, "error index"); err != nil {
		return nil, err
	}
	idx, err := gather(f, "ERROR_DATA_INDEX", flat)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(idx))
	for i, x := range idx {
		out[i] = !math.IsNaN(x) && x != 255
	}
	return out, nil
}

// PCScores returns the principal component scores of every pixel with the
// three parts of each band concatenated, bands in order.
func PCScores(f *nat.File) ([][]float64, error) {
	if p, ok := f.Product.(PC); !ok || p.Residuals {
		return nil, unavailable(f.Product, "PC scores")
	}
	var out [][]float64
	for _, d := range f.Decoded() {
		parts := make([][][]float64, 0, SB*3)
		for b := 1; b <= SB; b++ {
			for p := 1; p <= 3; p++ {
				v, err := d.Value(fmt.Sprintf("PcScoresB%dP%d", b, p))
				if err != nil {
					return nil, err
				}
				parts = append(parts, splitPixels(v))
			}
		}
		for px := range FOVs {
			var row []float64
			for _, part := range parts {
				row = append(row, part[px]...)
			}
			out = append(out, row)
		}
	}
	return out, nil
}

// splitPixels cuts a per-pixel block into FOVs rows. Rows alias v and may be
// empty when the trailing dimension is zero.
func splitPixels(v nat.Value) [][]float64 {
	n := len(v.Num) / FOVs
	out := make([][]float64, FOVs)
	for px := range out {
		out[px] = v.Num[px*n : (px+1)*n : (px+1)*n]
	}
	return out
}

// Residuals returns the quantised residual spectrum of every pixel of a PCR
// product.
func Residuals(f *nat.File) ([][]float64, error) {
	if p, ok := f.Product.(PC); !ok || !p.Residuals {
		return nil, unavailable(f.Product, "PC residuals")
	}
	return rows(f, "PccResidual")
}
