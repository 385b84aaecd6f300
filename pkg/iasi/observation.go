package iasi

import (
	"math"
	"time"

	"github.com/samcharles93/natread/pkg/nat"
)

// Observation is one sounder pixel flattened for export. Optional values are
// nil where the product does not carry them or the stored value is missing.
type Observation struct {
	Record int   `json:"record" parquet:"record"`
	Scan   int   `json:"scan" parquet:"scan"`
	Pixel  int   `json:"pixel" parquet:"pixel"`
	TimeMs int64 `json:"time_ms" parquet:"time_ms"`

	Latitude         *float64 `json:"lat,omitempty" parquet:"lat"`
	Longitude        *float64 `json:"lon,omitempty" parquet:"lon"`
	SatelliteZenith  *float64 `json:"sat_zenith,omitempty" parquet:"sat_zenith"`
	SatelliteAzimuth *float64 `json:"sat_azimuth,omitempty" parquet:"sat_azimuth"`
	SunZenith        *float64 `json:"sun_zenith,omitempty" parquet:"sun_zenith"`
	SunAzimuth       *float64 `json:"sun_azimuth,omitempty" parquet:"sun_azimuth"`
	CloudFraction    *float64 `json:"cloud_fraction,omitempty" parquet:"cloud_fraction"`
	LandFraction     *float64 `json:"land_fraction,omitempty" parquet:"land_fraction"`

	Degraded bool `json:"degraded" parquet:"degraded"`
	Good     bool `json:"good" parquet:"good"`
}

// Time returns the observation instant.
func (o Observation) Time() time.Time { return time.UnixMilli(o.TimeMs).UTC() }

func opt(x float64) *float64 {
	if math.IsNaN(x) {
		return nil
	}
	return &x
}

// Observations flattens every decoded body record of f into per-pixel rows.
// Malformed records are skipped.
func Observations(f *nat.File) ([]Observation, error) {
	if _, err := geometry(f.Product, Latitude); err != nil {
		return nil, err
	}
	var out []Observation
	for _, r := range decodedBody(f) {
		d, _ := r.Decoded()
		rows, err := observe(f.Product, r, d)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func observe(p nat.Product, r *nat.Record, d *nat.Decoded) ([]Observation, error) {
	var geo [6][]float64
	for q := Latitude; q <= SunAzimuth; q++ {
		src, err := geometry(p, q)
		if err != nil {
			return nil, err
		}
		v, err := d.Value(src.field)
		if err != nil {
			return nil, err
		}
		geo[q] = v.Column(src.col)
	}

	times, err := pixelTimes(p, r, d)
	if err != nil {
		return nil, err
	}
	good, err := pixelQuality(p, d)
	if err != nil {
		return nil, err
	}
	cloud, land := optionalColumn(d, "GEUMAvhrr1BCldFrac"), optionalColumn(d, "GEUMAvhrr1BLandFrac")
	degraded := d.Float("DEGRADED_INST_MDR") == 1 || d.Float("DEGRADED_PROC_MDR") == 1

	out := make([]Observation, FOVs)
	for px := range out {
		o := Observation{
			Record:           r.Index,
			Scan:             px / PN,
			Pixel:            px % PN,
			TimeMs:           times[px].UnixMilli(),
			Latitude:         opt(geo[Latitude][px]),
			Longitude:        opt(geo[Longitude][px]),
			SatelliteZenith:  opt(geo[SatelliteZenith][px]),
			SatelliteAzimuth: opt(geo[SatelliteAzimuth][px]),
			SunZenith:        opt(geo[SunZenith][px]),
			SunAzimuth:       opt(geo[SunAzimuth][px]),
			Degraded:         degraded,
			Good:             good[px],
		}
		if cloud != nil {
			o.CloudFraction = opt(cloud[px])
		}
		if land != nil {
			o.LandFraction = opt(land[px])
		}
		out[px] = o
	}
	return out, nil
}

func optionalColumn(d *nat.Decoded, name string) []float64 {
	v, ok := d.Get(name)
	if !ok || len(v.Num) != FOVs {
		return nil
	}
	return v.Num
}

func pixelTimes(p nat.Product, r *nat.Record, d *nat.Decoded) ([]time.Time, error) {
	out := make([]time.Time, FOVs)
	if _, ok := p.(L2); ok {
		for i := range out {
			out[i] = r.Header.StartTime()
		}
		return out, nil
	}
	v, err := d.Value("GEPSDatIasi")
	if err != nil {
		return nil, err
	}
	for scan, t := range v.Times() {
		for px := range PN {
			out[scan*PN+px] = t
		}
	}
	return out, nil
}

// pixelQuality is the L2 quality mask for sounding records and, for sounder
// records, the absence of any per-band quality flag.
func pixelQuality(p nat.Product, d *nat.Decoded) ([]bool, error) {
	out := make([]bool, FOVs)
	if _, ok := p.(L2); ok {
		mask, err := qualityMask(d)
		if err != nil {
			return nil, err
		}
		copy(out, mask)
		return out, nil
	}
	v, err := d.Value("GQisFlagQual")
	if err != nil {
		return nil, err
	}
	bands := len(v.Num) / FOVs
	for px := range out {
		ok := true
		for _, bad := range v.Num[px*bands : (px+1)*bands] {
			if bad != 0 {
				ok = false
				break
			}
		}
		out[px] = ok
	}
	return out, nil
}
