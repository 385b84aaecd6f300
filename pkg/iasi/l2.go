package iasi

import (
	"fmt"
	"math"
	"time"

	"github.com/samcharles93/natread/pkg/nat"
)

// L2GIADRSubclass is the subclass of the sounding product GIADR.
const L2GIADRSubclass = 1

// l2MinSize is the largest record size still considered implausible for a
// version 4 sounding record.
const l2MinSize = 207747

func dims(d ...nat.Dim) []nat.Dim { return d }

func fixed(v int) nat.Dim { return nat.Dim{N: v} }

// L2GIADR holds the retrieval pressure grids and principal component counts.
// Pressures are stored in Pa scaled by 100 and decoded to hPa.
var L2GIADR = nat.Schema{Name: "giadr_snd", Fields: []nat.Field{
	field("NUM_PRESSURE_LEVELS_TEMP", nat.Uint8),
	{Name: "PRESSURE_LEVELS_TEMP", Type: nat.Uint32, Shape: dims(nat.Ref("NUM_PRESSURE_LEVELS_TEMP")), Scale: nat.Exp(4)},
	field("NUM_PRESSURE_LEVELS_HUMIDITY", nat.Uint8),
	{Name: "PRESSURE_LEVELS_HUMIDITY", Type: nat.Uint32, Shape: dims(nat.Ref("NUM_PRESSURE_LEVELS_HUMIDITY")), Scale: nat.Exp(4)},
	field("NUM_PRESSURE_LEVELS_OZONE", nat.Uint8),
	{Name: "PRESSURE_LEVELS_OZONE", Type: nat.Uint32, Shape: dims(nat.Ref("NUM_PRESSURE_LEVELS_OZONE")), Scale: nat.Exp(4)},
	field("NUM_SURFACE_EMISSIVITY_WAVELENGTHS", nat.Uint8),
	{Name: "SURFACE_EMISSIVITY_WAVELENGTHS", Type: nat.Uint32, Shape: dims(nat.Ref("NUM_SURFACE_EMISSIVITY_WAVELENGTHS")), Scale: nat.Exp(4)},
	field("NUM_TEMPERATURE_PCS", nat.Uint8),
	field("NUM_WATER_VAPOUR_PCS", nat.Uint8),
	field("NUM_OZONE_PCS", nat.Uint8),
	field("FORLI_NUM_LAYERS_CO", nat.Uint8),
	{Name: "FORLI_LAYER_HEIGHTS_CO", Type: nat.Uint16, Shape: dims(nat.Ref("FORLI_NUM_LAYERS_CO"))},
	field("FORLI_NUM_LAYERS_HNO3", nat.Uint8),
	{Name: "FORLI_LAYER_HEIGHTS_HNO3", Type: nat.Uint16, Shape: dims(nat.Ref("FORLI_NUM_LAYERS_HNO3"))},
	field("FORLI_NUM_LAYERS_O3", nat.Uint8),
	{Name: "FORLI_LAYER_HEIGHTS_O3", Type: nat.Uint16, Shape: dims(nat.Ref("FORLI_NUM_LAYERS_O3"))},
	field("BRESCIA_NUM_ALTITUDES_SO2", nat.Uint8),
	{Name: "BRESCIA_ALTITUDES_SO2", Type: nat.Uint16, Shape: dims(nat.Ref("BRESCIA_NUM_ALTITUDES_SO2"))},
}}

func perFOV(name string, t nat.Type, exp int, levels ...nat.Dim) nat.Field {
	f := nat.Field{Name: name, Type: t, Shape: append(dims(fixed(FOVs)), levels...)}
	if exp != 0 {
		f.Scale = nat.Exp(exp)
	}
	return f
}

func flag(name string) nat.Field { return perFOV(name, nat.Uint8, 0) }

// L2MDR is the sounding body record up to the surface elevation block. The
// trace gas retrievals that follow are not decoded.
var L2MDR = nat.Schema{Name: "mdr_snd_v4", Fields: []nat.Field{
	field("DEGRADED_INST_MDR", nat.Bool),
	field("DEGRADED_PROC_MDR", nat.Bool),
	perFOV("FG_ATMOSPHERIC_TEMPERATURE", nat.Uint16, 2, nat.Ref("NLT")),
	perFOV("FG_ATMOSPHERIC_WATER_VAPOUR", nat.Uint32, 7, nat.Ref("NLQ")),
	perFOV("FG_ATMOSPHERIC_OZONE", nat.Uint16, 8, nat.Ref("NLO")),
	perFOV("FG_SURFACE_TEMPERATURE", nat.Uint16, 2),
	perFOV("FG_QI_ATMOSPHERIC_TEMPERATURE", nat.Uint8, 1),
	perFOV("FG_QI_ATMOSPHERIC_WATER_VAPOUR", nat.Uint8, 1),
	perFOV("FG_QI_ATMOSPHERIC_OZONE", nat.Uint8, 1),
	perFOV("FG_QI_SURFACE_TEMPERATURE", nat.Uint8, 1),
	perFOV("ATMOSPHERIC_TEMPERATURE", nat.Uint16, 2, nat.Ref("NLT")),
	perFOV("ATMOSPHERIC_WATER_VAPOUR", nat.Uint32, 7, nat.Ref("NLQ")),
	perFOV("ATMOSPHERIC_OZONE", nat.Uint16, 8, nat.Ref("NLO")),
	perFOV("SURFACE_TEMPERATURE", nat.Uint16, 2),
	perFOV("INTEGRATED_WATER_VAPOUR", nat.Uint16, 2),
	perFOV("INTEGRATED_OZONE", nat.Uint16, 6),
	perFOV("INTEGRATED_N2O", nat.Uint16, 6),
	perFOV("INTEGRATED_CO", nat.Uint16, 7),
	perFOV("INTEGRATED_CH4", nat.Uint16, 6),
	perFOV("INTEGRATED_CO2", nat.Uint16, 3),
	perFOV("SURFACE_EMISSIVITY", nat.Uint16, 4, nat.Ref("NEW")),
	perFOV("NUMBER_CLOUD_FORMATIONS", nat.Uint8, 0),
	perFOV("FRACTIONAL_CLOUD_COVER", nat.Uint16, 2, fixed(3)),
	perFOV("CLOUD_TOP_TEMPERATURE", nat.Uint16, 2, fixed(3)),
	// Pa to hPa
	perFOV("CLOUD_TOP_PRESSURE", nat.Uint32, 2, fixed(3)),
	perFOV("CLOUD_PHASE", nat.Uint8, 0, fixed(3)),
	perFOV("SURFACE_PRESSURE", nat.Uint32, 2),
	field("INSTRUMENT_MODE", nat.Uint8),
	scaled("SPACECRAFT_ALTITUDE", nat.Uint32, 1),
	perFOV("ANGULAR_RELATION", nat.Int16, 2, fixed(4)),
	perFOV("EARTH_LOCATION", nat.Int32, 4, fixed(2)),
	flag("FLG_AMSUBAD"),
	flag("FLG_AVHRRBAD"),
	flag("FLG_CLDFRM"),
	flag("FLG_CLDNES"),
	perFOV("FLG_CLDTST", nat.Uint16, 0),
	flag("FLG_DAYNIT"),
	perFOV("FLG_DUSTCLD", nat.Uint8, 1),
	perFOV("FLG_FGCHECK", nat.Uint16, 0),
	flag("FLG_IASIBAD"),
	flag("FLG_INITIA"),
	flag("FLG_ITCONV"),
	flag("FLG_LANSEA"),
	flag("FLG_MHSBAD"),
	flag("FLG_NUMIT"),
	flag("FLG_NWPBAD"),
	flag("FLG_PHYSCHECK"),
	perFOV("FLG_RETCHECK", nat.Uint16, 0),
	flag("FLG_SATMAN"),
	flag("FLG_SUNGLNT"),
	flag("FLG_THICIR"),
	field("NERR", nat.Uint8),
	flag("ERROR_DATA_INDEX"),
	{Name: "TEMPERATURE_ERROR", Type: nat.Uint32, Shape: dims(nat.Ref("NERR"), nat.Ref("NERRT"))},
	{Name: "WATER_VAPOUR_ERROR", Type: nat.Uint32, Shape: dims(nat.Ref("NERR"), nat.Ref("NERRW"))},
	{Name: "OZONE_ERROR", Type: nat.Uint32, Shape: dims(nat.Ref("NERR"), nat.Ref("NERRO"))},
	perFOV("SURFACE_Z", nat.Int16, 0),
}}

// L2Env derives the body record dimensions from a decoded sounding GIADR.
func L2Env(giadr *nat.Decoded) (nat.Env, error) {
	env := nat.Env{}
	for alias, name := range map[string]string{
		"NLT":     "NUM_PRESSURE_LEVELS_TEMP",
		"NLQ":     "NUM_PRESSURE_LEVELS_HUMIDITY",
		"NLO":     "NUM_PRESSURE_LEVELS_OZONE",
		"NEW":     "NUM_SURFACE_EMISSIVITY_WAVELENGTHS",
		"NPCT":    "NUM_TEMPERATURE_PCS",
		"NPCW":    "NUM_WATER_VAPOUR_PCS",
		"NPCO":    "NUM_OZONE_PCS",
		"NL_CO":   "FORLI_NUM_LAYERS_CO",
		"NL_HNO3": "FORLI_NUM_LAYERS_HNO3",
		"NL_O3":   "FORLI_NUM_LAYERS_O3",
		"NL_SO2":  "BRESCIA_NUM_ALTITUDES_SO2",
	} {
		v := giadr.Int(name)
		if v < 0 {
			return nil, fmt.Errorf("%w: %s missing from %s", nat.ErrFieldNotFound, name, giadr.Schema)
		}
		env[alias] = v
	}
	for _, pc := range []string{"T", "W", "O"} {
		k := env["NPC"+pc]
		env["NERR"+pc] = k * (k + 1) / 2
	}
	for _, gas := range []string{"CO", "HNO3", "O3"} {
		nl := env["NL_"+gas]
		eva := int(math.RoundToEven(float64(nl) / 2))
		env["NEVA_"+gas] = eva
		env["NEVE_"+gas] = eva * nl
	}
	return env, nil
}

// L2 drives level 2 sounding products.
type L2 struct{}

func (L2) Name() string { return "IASI L2 SND" }

func (L2) DecodeHeaderRecord(h nat.Header, payload []byte) (nat.Content, error) {
	if h.Subclass != L2GIADRSubclass {
		return nat.Raw{Data: payload}, nil
	}
	return decodeExact(L2GIADR, payload, nil)
}

func (L2) Auxiliary() nat.AuxSpec {
	return nat.AuxSpec{Class: nat.ClassGIADR, Subclass: L2GIADRSubclass}
}

func (L2) Check(h nat.Header) string {
	if h.Version != 4 {
		return unsupportedVersion(h.Version)
	}
	if h.Size <= l2MinSize {
		return tooSmall(h.Size)
	}
	return ""
}

func (L2) DecodeBody(_ nat.Header, payload []byte, aux nat.Content) (nat.Content, error) {
	giadr, ok := aux.(*nat.Decoded)
	if !ok {
		return nil, fmt.Errorf("sounding GIADR not decoded (%T)", aux)
	}
	env, err := L2Env(giadr)
	if err != nil {
		return nil, err
	}
	return L2MDR.Decode(payload, env)
}

// BodyTimes has no per-scan stamps to offer; the record header span is used.
func (L2) BodyTimes(nat.Content) (time.Time, time.Time, bool) {
	return time.Time{}, time.Time{}, false
}
