package iasi

import (
	"fmt"
	"time"

	"github.com/samcharles93/natread/pkg/nat"
)

const pcMinSize = 122094

// PCGIADR holds the per-band score counts and quantisation of a principal
// component product. FirstChannel is one-based as stored.
var PCGIADR = nat.Schema{Name: "giadr_pc", Fields: []nat.Field{
	field("NbrScoresBand1_Part1", nat.Uint16),
	field("NbrScoresBand1_Part2", nat.Uint16),
	field("NbrScoresBand1_Part3", nat.Uint16),
	field("NbrScoresBand2_Part1", nat.Uint16),
	field("NbrScoresBand2_Part2", nat.Uint16),
	field("NbrScoresBand2_Part3", nat.Uint16),
	field("NbrScoresBand3_Part1", nat.Uint16),
	field("NbrScoresBand3_Part2", nat.Uint16),
	field("NbrScoresBand3_Part3", nat.Uint16),
	field("FirstChannel", nat.Uint16, SB),
	field("NbrChannels", nat.Uint16, SB),
	scaled("ScoreQuantisationFactor", nat.Uint16, 2, SB),
	scaled("ResidualQuantisationFactor", nat.Uint16, 2, SB),
}}

// scoreRef names the score count of band b (1..3), part p (1..3).
func scoreRef(b, p int) string { return fmt.Sprintf("NBS%dP%d", b, p) }

func pcScores() []nat.Field {
	types := [3]nat.Type{nat.Int32, nat.Int16, nat.SByte}
	var out []nat.Field
	for b := 1; b <= SB; b++ {
		for p := 1; p <= 3; p++ {
			out = append(out, nat.Field{
				Name:  fmt.Sprintf("PcScoresB%dP%d", b, p),
				Type:  types[p-1],
				Shape: []nat.Dim{fixed(SNOT), fixed(PN), nat.Ref(scoreRef(b, p))},
			})
		}
	}
	return out
}

var pcsHead = []nat.Field{
	field("DEGRADED_INST_MDR", nat.Bool),
	field("DEGRADED_PROC_MDR", nat.Bool),
	packed("GEPSIasiMode", nat.IasiModeBits),
	packed("GEPSOPSProcessingMode", nat.ProcessingModeBits),
	packed("GEPSIdConf", nat.IdConfBits),
	field("OBT", nat.Byte, SNOT, 6),
	field("ONBoardUTC", nat.Date, SNOT),
	field("GEPSDatIasi", nat.Date, SNOT),
	field("GEPS_SP", nat.Int32, SNOT),
	field("GQisFlagQual", nat.Bool, SNOT, PN, SB),
	packed("GQisFlagQualDetailed", nat.QualDetailedBits, SNOT, PN),
	field("GQisQualIndex", nat.VInt4),
	field("GQisQualIndexLoc", nat.VInt4),
	field("GQisQualIndexRad", nat.VInt4),
	field("GQisQualIndexSpect", nat.VInt4),
	field("GQisSysTecSondQual", nat.Uint32),
	scaled("GGeoSondLoc", nat.Int32, 6, SNOT, PN, 2),
	scaled("GGeoSondAnglesMETOP", nat.Int32, 6, SNOT, PN, 2),
	scaled("GGeoSondAnglesSUN", nat.Int32, 6, SNOT, PN, 2),
	field("EARTH_SATELLITE_DISTANCE", nat.Uint32),
	field("IDefCcsChannelId", nat.Int32, NBK),
	field("GCcsRadAnalNbClass", nat.Int32, SNOT, PN),
	field("GCcsRadAnalWgt", nat.VInt4, SNOT, PN, NCL),
	scaled("GCcsRadAnalY", nat.Int32, 6, SNOT, PN, NCL),
	scaled("GCcsRadAnalZ", nat.Int32, 6, SNOT, PN, NCL),
	field("GCcsRadAnalMean", nat.VInt4, SNOT, PN, NCL, NBK),
	field("GCcsRadAnalStd", nat.VInt4, SNOT, PN, NCL, NBK),
	field("GEUMAvhrr1BCldFrac", nat.Uint8, SNOT, PN),
	field("GEUMAvhrr1BLandFrac", nat.Uint8, SNOT, PN),
	packed("GEUMAvhrr1BQual", nat.AvhrrQualBits, SNOT, PN),
}

// PC body record layouts.
var (
	PCSMDR = layout("mdr_pcs", pcsHead, pcScores(), []nat.Field{
		scaled("ResidualRMS", nat.Uint16, 3, SNOT, PN, SB),
	})
	PCRMDR = nat.Schema{Name: "mdr_pcr", Fields: []nat.Field{
		field("DEGRADED_INST_MDR", nat.Bool),
		field("DEGRADED_PROC_MDR", nat.Bool),
		field("PccResidual", nat.SByte, SNOT, PN, S),
	}}
)

// PCEnv exposes the score counts of a decoded PC GIADR as NBS<band>P<part>.
func PCEnv(giadr *nat.Decoded) (nat.Env, error) {
	env := nat.Env{}
	for b := 1; b <= SB; b++ {
		for p := 1; p <= 3; p++ {
			name := fmt.Sprintf("NbrScoresBand%d_Part%d", b, p)
			v := giadr.Int(name)
			if v < 0 {
				return nil, fmt.Errorf("%w: %s missing from %s", nat.ErrFieldNotFound, name, giadr.Schema)
			}
			env[scoreRef(b, p)] = v
		}
	}
	return env, nil
}

// PC drives principal component products. Scores (PCS) and residuals (PCR)
// share the GIADR but not the body layout.
type PC struct {
	Residuals bool
}

func (p PC) Name() string {
	if p.Residuals {
		return "IASI PCR"
	}
	return "IASI PCS"
}

// DecodeHeaderRecord decodes every GIADR with the PC layout; the product
// carries exactly one and its subclass is not fixed.
func (PC) DecodeHeaderRecord(_ nat.Header, payload []byte) (nat.Content, error) {
	return decodeExact(PCGIADR, payload, nil)
}

func (PC) Auxiliary() nat.AuxSpec {
	return nat.AuxSpec{Class: nat.ClassGIADR, AnySubclass: true}
}

func (PC) Check(h nat.Header) string {
	if h.Version != 1 {
		return unsupportedVersion(h.Version)
	}
	if h.Size < pcMinSize {
		return tooSmall(h.Size)
	}
	return ""
}

func (p PC) DecodeBody(_ nat.Header, payload []byte, aux nat.Content) (nat.Content, error) {
	if p.Residuals {
		return decodeExact(PCRMDR, payload, nil)
	}
	giadr, ok := aux.(*nat.Decoded)
	if !ok {
		return nil, fmt.Errorf("PC GIADR not decoded (%T)", aux)
	}
	env, err := PCEnv(giadr)
	if err != nil {
		return nil, err
	}
	return decodeExact(PCSMDR, payload, env)
}

func (p PC) BodyTimes(c nat.Content) (time.Time, time.Time, bool) {
	if p.Residuals {
		return time.Time{}, time.Time{}, false
	}
	return scanTimes(c, "GEPSDatIasi")
}
