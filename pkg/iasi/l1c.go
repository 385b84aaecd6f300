package iasi

import (
	"fmt"
	"math"
	"time"

	"github.com/samcharles93/natread/pkg/nat"
)

// GIADR subclasses of a level 1C product.
const (
	L1CQualitySubclass     = 0
	L1CScaleFactorSubclass = 1
)

// L1CQuality is the instrument quality GIADR (PSF, SRF and imager noise tables).
var L1CQuality = nat.Schema{Name: "giadr_quality", Fields: []nat.Field{
	field("IDefPsfSondNbLin", nat.Int32, PN),
	field("IDefPsfSondNbCol", nat.Int32, PN),
	field("IDefPsfSondOverSampFactor", nat.VInt4),
	scaled("IDefPsfSondY", nat.Int32, 6, PN, 100),
	scaled("IDefPsfSondZ", nat.Int32, 6, PN, 100),
	field("IDefPsfSondWgt", nat.VInt4, PN, 100, 100),
	field("IDefllSSrfNsfirst", nat.Int32),
	field("IDefllSSrfNslast", nat.Int32),
	field("IDefllSSrf", nat.VInt4, 100),
	field("IDefllSSrfDWn", nat.VInt4),
	field("IDefIISNeDT", nat.VInt4, IMLI, IMCO),
	field("IDefDptIISDeadPix", nat.Bool, IMLI, IMCO),
}}

// L1CScaleFactors is the spectral scale-factor GIADR that body decoding depends on.
var L1CScaleFactors = nat.Schema{Name: "giadr_scale_factors", Fields: []nat.Field{
	field("IDefScaleSondNbScale", nat.Int16),
	field("IDefScaleSondNsfirst", nat.Int16, 10),
	field("IDefScaleSondNslast", nat.Int16, 10),
	field("IDefScaleSondScaleFactor", nat.Int16, 10),
	field("IDefScaleIISScaleFactor", nat.Int16),
}}

var l1cHead = []nat.Field{
	field("DEGRADED_INST_MDR", nat.Bool),
	field("DEGRADED_PROC_MDR", nat.Bool),
	packed("GEPSIasiMode", nat.IasiModeBits),
	packed("GEPSOPSProcessingMode", nat.ProcessingModeBits),
	packed("GEPSIdConf", nat.IdConfBits),
	field("GEPSLocIasiAvhrr_IASI", nat.VInt4, SNOT, PN, 2),
	field("GEPSLocIasiAvhrr_IIS", nat.VInt4, SNOT, SGI, 2),
	field("OBT", nat.Byte, SNOT, 6),
	field("ONBoardUTC", nat.Date, SNOT),
	field("GEPSDatIasi", nat.Date, SNOT),
	field("GIsfLinOrigin", nat.Int32, CCD),
	field("GIsfColOrigin", nat.Int32, CCD),
	scaled("GIsfPds1", nat.Int32, 6, CCD),
	scaled("GIsfPds2", nat.Int32, 6, CCD),
	scaled("GIsfPds3", nat.Int32, 6, CCD),
	scaled("GIsfPds4", nat.Int32, 6, CCD),
	field("GEPS_CCD", nat.Bool, SNOT),
	field("GEPS_SP", nat.Int32, SNOT),
	// W/m2/sr/m-1 to mW/m2/sr/cm-1
	scaled("GIrcImage", nat.Uint16, -5, SNOT, IMLI, IMCO),
}

var l1cQualityV4 = []nat.Field{
	field("GQisFlagQual", nat.Bool, SNOT, PN),
}

var l1cQualityV5 = []nat.Field{
	field("GQisFlagQual", nat.Bool, SNOT, PN, SB),
	packed("GQisFlagQualDetailed", nat.QualDetailedBits, SNOT, PN),
}

var l1cBody = []nat.Field{
	field("GQisQualIndex", nat.VInt4),
	field("GQisQualIndexIIS", nat.VInt4),
	field("GQisQualIndexLoc", nat.VInt4),
	field("GQisQualIndexRad", nat.VInt4),
	field("GQisQualIndexSpect", nat.VInt4),
	field("GQisSysTecIISQual", nat.Uint32),
	field("GQisSysTecSondQual", nat.Uint32),
	scaled("GGeoSondLoc", nat.Int32, 6, SNOT, PN, 2),
	scaled("GGeoSondAnglesMETOP", nat.Int32, 6, SNOT, PN, 2),
	scaled("GGeoIISAnglesMETOP", nat.Int32, 6, SNOT, SGI, 2),
	scaled("GGeoSondAnglesSUN", nat.Int32, 6, SNOT, PN, 2),
	scaled("GGeoIISAnglesSUN", nat.Int32, 6, SNOT, SGI, 2),
	scaled("GGeoIISLoc", nat.Int32, 6, SNOT, SGI, 2),
	field("EARTH_SATELLITE_DISTANCE", nat.Uint32),
	field("IDefSpectDWn1b", nat.VInt4),
	field("IDefNsfirst1b", nat.Int32),
	field("IDefNslast1b", nat.Int32),
	// raw counts; rescaled against the scale-factor GIADR after decoding
	field("GS1cSpect", nat.Int16, SNOT, PN, SS),
	field("IDefCovarMatEigenVal1c", nat.VInt4, 100, CCD),
	field("IDefCcsChannelId", nat.Int32, NBK),
	field("GCcsRadAnalNbClass", nat.Int32, SNOT, PN),
	field("GCcsRadAnalWgt", nat.VInt4, SNOT, PN, NCL),
	scaled("GCcsRadAnalY", nat.Int32, 6, SNOT, PN, NCL),
	scaled("GCcsRadAnalZ", nat.Int32, 6, SNOT, PN, NCL),
	field("GCcsRadAnalMean", nat.VInt4, SNOT, PN, NCL, NBK),
	field("GCcsRadAnalStd", nat.VInt4, SNOT, PN, NCL, NBK),
	field("GCcsImageClassified", nat.Uint8, SNOT, AMLI, AMCO),
	packed("IDefCcsMode", nat.CcsModeBits),
	field("GCcsImageClassifiedNbLin", nat.Int16, SNOT),
	field("GCcsImageClassifiedNbCol", nat.Int16, SNOT),
	field("GCcsImageClassifiedFirstLin", nat.VInt4, SNOT),
	field("GCcsImageClassifiedFirstCol", nat.VInt4, SNOT),
	field("GCcsRadAnalType", nat.Bool, SNOT, NCL),
}

var l1cTailV5 = []nat.Field{
	field("GIacVarImagIIS", nat.VInt4, SNOT),
	field("GIacAvgImagIIS", nat.VInt4, SNOT),
	field("GEUMAvhrr1BCldFrac", nat.Uint8, SNOT, PN),
	field("GEUMAvhrr1BLandFrac", nat.Uint8, SNOT, PN),
	packed("GEUMAvhrr1BQual", nat.AvhrrQualBits, SNOT, PN),
}

// L1C body record layouts by subclass version.
var (
	L1CMDRv4 = layout("mdr_1c_v4", l1cHead, l1cQualityV4, l1cBody)
	L1CMDRv5 = layout("mdr_1c_v5", l1cHead, l1cQualityV5, l1cBody, l1cTailV5)
)

// l1cStubSize is the record size of a degraded body record that carries
// only its first flag.
const l1cStubSize = nat.HeaderSize + 1

// L1C drives level 1C radiance products.
type L1C struct{}

func (L1C) Name() string { return "IASI L1C" }

func (L1C) DecodeHeaderRecord(h nat.Header, payload []byte) (nat.Content, error) {
	switch h.Subclass {
	case L1CQualitySubclass:
		return decodeExact(L1CQuality, payload, nil)
	case L1CScaleFactorSubclass:
		return decodeExact(L1CScaleFactors, payload, nil)
	default:
		return nat.Raw{Data: payload}, nil
	}
}

func (L1C) Auxiliary() nat.AuxSpec {
	return nat.AuxSpec{Class: nat.ClassGIADR, Subclass: L1CScaleFactorSubclass}
}

func (L1C) Check(h nat.Header) string {
	if h.Version != 4 && h.Version != 5 {
		return unsupportedVersion(h.Version)
	}
	if h.Size <= l1cStubSize {
		return tooSmall(h.Size)
	}
	return ""
}

func (L1C) DecodeBody(h nat.Header, payload []byte, aux nat.Content) (nat.Content, error) {
	sf, ok := aux.(*nat.Decoded)
	if !ok {
		return nil, fmt.Errorf("scale factors not decoded (%T)", aux)
	}
	schema := L1CMDRv4
	if h.Version == 5 {
		schema = L1CMDRv5
	}
	d, err := decodeExact(schema, payload, nil)
	if err != nil {
		return nil, err
	}
	if err := rescaleSpectrum(d, sf); err != nil {
		return nil, err
	}
	return d, nil
}

func (L1C) BodyTimes(c nat.Content) (time.Time, time.Time, bool) {
	return scanTimes(c, "GEPSDatIasi")
}

// rescaleSpectrum replaces the raw GS1cSpect counts with radiances in
// mW/m2/sr/cm-1, keeping only the channels the record declares. Channel ch
// uses the factor of the first scale band whose last channel is at or past ch;
// channels beyond every band use the last factor.
func rescaleSpectrum(d *nat.Decoded, sf *nat.Decoded) error {
	raw, err := d.Value("GS1cSpect")
	if err != nil {
		return err
	}
	nslast, err := sf.Value("IDefScaleSondNslast")
	if err != nil {
		return err
	}
	factors, err := sf.Value("IDefScaleSondScaleFactor")
	if err != nil {
		return err
	}

	first := d.Int("IDefNsfirst1b")
	n := min(max(d.Int("IDefNslast1b")-first+1, 0), SS)

	div := make([]float64, n)
	for k := range div {
		ch := float64(first + k)
		idx := len(factors.Num) - 1
		for i, last := range nslast.Num {
			if last >= ch {
				idx = i
				break
			}
		}
		div[k] = math.Pow10(int(factors.Num[idx]))
	}

	out := nat.Value{Type: raw.Type, Shape: []int{SNOT, PN, n}, Num: make([]float64, 0, FOVs*n)}
	for p := 0; p < FOVs; p++ {
		row := raw.Num[p*SS : p*SS+n]
		for k, x := range row {
			out.Num = append(out.Num, x/div[k]*1e5)
		}
	}
	d.Set("GS1cSpect", out)
	return nil
}

// scanTimes returns the span of a per-scan date field.
func scanTimes(c nat.Content, name string) (time.Time, time.Time, bool) {
	d, ok := c.(*nat.Decoded)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	v, ok := d.Get(name)
	if !ok || len(v.Dates) == 0 {
		return time.Time{}, time.Time{}, false
	}
	var start, stop time.Time
	for i, t := range v.Times() {
		if i == 0 || t.Before(start) {
			start = t
		}
		if t.After(stop) {
			stop = t
		}
	}
	return start, stop, true
}
