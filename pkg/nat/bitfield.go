package nat

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// BitfieldKind enumerates the packed layouts the format defines. Each kind
// has a fixed byte length and its own decode function.
type BitfieldKind uint8

const (
	IasiModeBits BitfieldKind = iota + 1
	ProcessingModeBits
	IdConfBits
	CcsModeBits
	QualDetailedBits
	AvhrrQualBits
)

func (k BitfieldKind) Size() int {
	switch k {
	case IasiModeBits, ProcessingModeBits, CcsModeBits:
		return 4
	case IdConfBits:
		return 32
	case QualDetailedBits:
		return 2
	case AvhrrQualBits:
		return 1
	default:
		return 0
	}
}

func (k BitfieldKind) String() string {
	switch k {
	case IasiModeBits:
		return "GEPSIasiMode"
	case ProcessingModeBits:
		return "GEPSOPSProcessingMode"
	case IdConfBits:
		return "GEPSIdConf"
	case CcsModeBits:
		return "IDefCcsMode"
	case QualDetailedBits:
		return "GQisFlagQualDetailed"
	case AvhrrQualBits:
		return "GEUMAvhrr1BQual"
	default:
		return fmt.Sprintf("bitfield(%d)", uint8(k))
	}
}

// Bitfield is implemented by the decoded form of each BitfieldKind.
type Bitfield interface {
	Kind() BitfieldKind
}

type IasiMode struct {
	Mode    int16
	SubMode int8
}

type ProcessingMode struct {
	Level          uint8
	InstrumentMode bool
	Debug          bool
	Interface      bool
	TargetType     bool
}

// GOPSFlags holds the twelve processing flags of an IdConf, bit 0 being GOPSFlaPixMiss.
type GOPSFlags uint16

const (
	GOPSFlaPixMiss GOPSFlags = 1 << iota
	GOPSFlaDataGap
	GOPSFltIsrfemOff
	GOPSFltBandMiss
	GOPSFltBBTMiss
	GOPSFltImgEWMiss
	GOPSFltImgBBMiss
	GOPSFltImgCSMiss
	GOPSFlagPacketVPMiss
	GOPSFlagPacketAPMiss
	GOPSFlagPacketPXMiss
	GOPSFlagPacketIPMiss
)

var gopsNames = [...]string{
	"GOPSFlaPixMiss", "GOPSFlaDataGap", "GOPSFltIsrfemOff", "GOPSFltBandMiss",
	"GOPSFltBBTMiss", "GOPSFltImgEWMiss", "GOPSFltImgBBMiss", "GOPSFltImgCSMiss",
	"GOPSFlagPacketVPMiss", "GOPSFlagPacketAPMiss", "GOPSFlagPacketPXMiss", "GOPSFlagPacketIPMiss",
}

func (f GOPSFlags) Has(flag GOPSFlags) bool { return f&flag != 0 }

func (f GOPSFlags) String() string {
	var set []string
	for i, name := range gopsNames {
		if f&(1<<i) != 0 {
			set = append(set, name)
		}
	}
	if len(set) == 0 {
		return "none"
	}
	return strings.Join(set, "|")
}

type IdConf struct {
	PTSI               uint32
	IdefIdConf         uint32
	NormalProcessing   bool
	BacklogProcessing  bool
	ReProcessing       bool
	ParallelValidation bool
	InPlaneManoeuvre   bool
	GOPS               GOPSFlags
}

type CcsMode struct {
	Mode uint8
}

// QualDetailed is the per-pixel detailed quality word.
type QualDetailed struct {
	Hardware                 bool
	Band1Spikes              bool
	Band2Spikes              bool
	Band3Spikes              bool
	NZPDComplexError         bool
	OnboardQuality           bool
	OverflowUnderflow        bool
	SpectralCalibrationError bool
	RadiometricPostCalError  bool
	Summary                  bool
	MissingSounderData       bool
	MissingIISData           bool
	MissingAVHRRData         bool
}

// AvhrrQual is a one-byte AVHRR quality code. When Missing is set, Value
// counts missing or bad pixels; otherwise it is the snow/ice percentage.
type AvhrrQual struct {
	Missing bool
	Value   uint8
}

func (IasiMode) Kind() BitfieldKind       { return IasiModeBits }
func (ProcessingMode) Kind() BitfieldKind { return ProcessingModeBits }
func (IdConf) Kind() BitfieldKind         { return IdConfBits }
func (CcsMode) Kind() BitfieldKind        { return CcsModeBits }
func (QualDetailed) Kind() BitfieldKind   { return QualDetailedBits }
func (AvhrrQual) Kind() BitfieldKind      { return AvhrrQualBits }

func (q AvhrrQual) String() string {
	if q.Missing {
		return fmt.Sprintf("missing(%d)", q.Value)
	}
	return fmt.Sprintf("good(%d%%)", q.Value)
}

func bit(b byte, n uint) bool { return (b>>n)&1 == 1 }

// DecodeBitfield decodes exactly one element of kind k from b.
func DecodeBitfield(b []byte, k BitfieldKind) (Bitfield, error) {
	size := k.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, k)
	}
	if len(b) < size {
		return nil, &TruncatedFieldError{Field: k.String(), Need: size, Have: len(b)}
	}
	switch k {
	case IasiModeBits:
		return IasiMode{
			Mode:    int16(binary.BigEndian.Uint16(b)),
			SubMode: int8(b[2]),
		}, nil
	case ProcessingModeBits:
		return ProcessingMode{
			Level:          b[0] & 0x03,
			InstrumentMode: bit(b[0], 2),
			Debug:          bit(b[0], 3),
			Interface:      bit(b[0], 4),
			TargetType:     bit(b[0], 5),
		}, nil
	case IdConfBits:
		bits := binary.BigEndian.Uint64(b[8:16])
		return IdConf{
			PTSI:               binary.BigEndian.Uint32(b[0:4]),
			IdefIdConf:         binary.BigEndian.Uint32(b[4:8]),
			NormalProcessing:   bits&(1<<0) != 0,
			BacklogProcessing:  bits&(1<<1) != 0,
			ReProcessing:       bits&(1<<2) != 0,
			ParallelValidation: bits&(1<<3) != 0,
			InPlaneManoeuvre:   bits&(1<<4) != 0,
			GOPS:               GOPSFlags((bits >> 5) & 0x0fff),
		}, nil
	case CcsModeBits:
		return CcsMode{Mode: b[0]}, nil
	case QualDetailedBits:
		return QualDetailed{
			Hardware:                 bit(b[0], 7),
			Band1Spikes:              bit(b[0], 6),
			Band2Spikes:              bit(b[0], 5),
			Band3Spikes:              bit(b[0], 4),
			NZPDComplexError:         bit(b[0], 3),
			OnboardQuality:           bit(b[0], 2),
			OverflowUnderflow:        bit(b[0], 1),
			SpectralCalibrationError: bit(b[0], 0),
			RadiometricPostCalError:  bit(b[1], 7),
			Summary:                  bit(b[1], 6),
			MissingSounderData:       bit(b[1], 5),
			MissingIISData:           bit(b[1], 4),
			MissingAVHRRData:         bit(b[1], 3),
		}, nil
	case AvhrrQualBits:
		return AvhrrQual{Missing: b[0]&0x80 != 0, Value: b[0] & 0x7f}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownType, k)
}

// DecodeBitfields reads product(shape) consecutive elements of kind k.
func DecodeBitfields(b []byte, k BitfieldKind, shape []int) (Value, int, error) {
	size := k.Size()
	if size == 0 {
		return Value{}, 0, fmt.Errorf("%w: %s", ErrUnknownType, k)
	}
	n, err := shapeLen(shape)
	if err != nil {
		return Value{}, 0, err
	}
	need := n * size
	if need > len(b) {
		return Value{}, 0, &TruncatedFieldError{Field: k.String(), Need: need, Have: len(b)}
	}
	v := Value{Type: Packed, Bits: make([]Bitfield, n)}
	if n != 1 {
		v.Shape = append([]int(nil), shape...)
	}
	for i := range v.Bits {
		bf, err := DecodeBitfield(b[i*size:], k)
		if err != nil {
			return Value{}, 0, err
		}
		v.Bits[i] = bf
	}
	return v, need, nil
}
