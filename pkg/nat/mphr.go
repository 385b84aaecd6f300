package nat

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Pair is one "KEY = value" line of the main product header.
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// MPHR is the decoded main product header.
type MPHR struct {
	pairs []Pair
	index map[string]int
}

// ParseMPHR reads the ASCII key/value payload of a main product header.
func ParseMPHR(payload []byte) (*MPHR, error) {
	m := &MPHR{index: make(map[string]int)}
	for _, line := range bytes.Split(payload, []byte{'\n'}) {
		key, value, ok := bytes.Cut(line, []byte{'='})
		if !ok {
			continue
		}
		k := strings.TrimSpace(string(key))
		if k == "" {
			continue
		}
		m.index[k] = len(m.pairs)
		m.pairs = append(m.pairs, Pair{Key: k, Value: strings.TrimSpace(string(value))})
	}
	if n, ok := m.Int("TOTAL_MPHR"); ok && n != 1 {
		return nil, fmt.Errorf("%w: TOTAL_MPHR = %d", ErrInvalidMPHR, n)
	}
	if n, ok := m.Int("TOTAL_SPHR"); ok && n > 1 {
		return nil, fmt.Errorf("%w: TOTAL_SPHR = %d", ErrInvalidMPHR, n)
	}
	return m, nil
}

func (m *MPHR) Pairs() []Pair { return m.pairs }

func (m *MPHR) Get(key string) (string, bool) {
	i, ok := m.index[key]
	if !ok {
		return "", false
	}
	return m.pairs[i].Value, true
}

func (m *MPHR) Text(key string) string {
	v, _ := m.Get(key)
	return v
}

// Int parses an integer value. Values containing 'x' are not available.
func (m *MPHR) Int(key string) (int, bool) {
	v, ok := m.Get(key)
	if !ok || strings.ContainsRune(v, 'x') {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(v, "+"))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Scaled parses an integer value and divides it by div.
func (m *MPHR) Scaled(key string, div float64) (float64, bool) {
	n, ok := m.Int(key)
	if !ok {
		return 0, false
	}
	return float64(n) / div, true
}

// Time parses a compact UTC stamp such as 20230101123000Z or 20230101123000.000Z.
func (m *MPHR) Time(key string) (time.Time, bool) {
	v, ok := m.Get(key)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range []string{"20060102150405Z", "20060102150405.000Z"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (m *MPHR) ProductName() string     { return m.Text("PRODUCT_NAME") }
func (m *MPHR) InstrumentID() string    { return m.Text("INSTRUMENT_ID") }
func (m *MPHR) ProductType() string     { return m.Text("PRODUCT_TYPE") }
func (m *MPHR) ProcessingLevel() string { return m.Text("PROCESSING_LEVEL") }
func (m *MPHR) SpacecraftID() string    { return m.Text("SPACECRAFT_ID") }

func (m *MPHR) SensingStart() (time.Time, bool) { return m.Time("SENSING_START") }
func (m *MPHR) SensingEnd() (time.Time, bool)   { return m.Time("SENSING_END") }

func (m *MPHR) OrbitStart() (int, bool)   { return m.Int("ORBIT_START") }
func (m *MPHR) OrbitEnd() (int, bool)     { return m.Int("ORBIT_END") }
func (m *MPHR) TotalRecords() (int, bool) { return m.Int("TOTAL_RECORDS") }
func (m *MPHR) TotalMDR() (int, bool)     { return m.Int("TOTAL_MDR") }

// OrbitState is the state vector block in SI units and degrees.
type OrbitState struct {
	Time            time.Time  `json:"time"`
	SemiMajorAxis   float64    `json:"semi_major_axis_m"`
	Eccentricity    float64    `json:"eccentricity"`
	Inclination     float64    `json:"inclination_deg"`
	PerigeeArgument float64    `json:"perigee_argument_deg"`
	RightAscension  float64    `json:"right_ascension_deg"`
	MeanAnomaly     float64    `json:"mean_anomaly_deg"`
	Position        [3]float64 `json:"position_m"`
	Velocity        [3]float64 `json:"velocity_m_s"`
}

func (m *MPHR) OrbitState() OrbitState {
	get := func(key string, div float64) float64 {
		v, _ := m.Scaled(key, div)
		return v
	}
	t, _ := m.Time("STATE_VECTOR_TIME")
	return OrbitState{
		Time:            t,
		SemiMajorAxis:   get("SEMI_MAJOR_AXIS", 1e3),
		Eccentricity:    get("ECCENTRICITY", 1e6),
		Inclination:     get("INCLINATION", 1e3),
		PerigeeArgument: get("PERIGEE_ARGUMENT", 1e3),
		RightAscension:  get("RIGHT_ASCENSION", 1e3),
		MeanAnomaly:     get("MEAN_ANOMALY", 1e3),
		Position:        [3]float64{get("X_POSITION", 1e3), get("Y_POSITION", 1e3), get("Z_POSITION", 1e3)},
		Velocity:        [3]float64{get("X_VELOCITY", 1e3), get("Y_VELOCITY", 1e3), get("Z_VELOCITY", 1e3)},
	}
}

var (
	instrumentModels = map[string]string{
		"0": "Reserved",
		"1": "Flight Model 1",
		"2": "Flight Model 2",
		"3": "Engineering Model",
		"4": "Protoflight Model",
	}
	processingCentres = map[string]string{
		"CGS1": "First EUMETSAT EPS Core Ground Segment",
		"CGS2": "Second EUMETSAT EPS Core Ground Segment",
		"NSSx": "NOAA/NESDIS",
		"RUSx": "Reference User Station",
		"DMIx": "DMI, Copenhagen (GRAS SAF)",
		"DWDx": "DWD, Offenbach (Climate SAF)",
		"FMIx": "FMI, Helsinki (Ozone SAF)",
		"IMPx": "IMP, Lisbon (Land SAF)",
		"INMx": "INM, Madrid (NCW SAF)",
		"MFxx": "MF, Lannion (OSI SAF)",
		"UKMO": "UKMO, Bracknell (NWP SAF)",
	}
	processingModes = map[string]string{
		"N": "Nominal",
		"B": "Backlog Processing",
		"R": "Reprocessing",
		"V": "Validation",
	}
	dispositionModes = map[string]string{
		"T": "Testing",
		"O": "Operational",
		"C": "Commissioning",
	}
	groundStations = map[string]string{
		"SVL": "Svalbard",
		"WAL": "Wallops Island, Virginia",
		"FBK": "Fairbanks, Alaska",
		"SOC": "SOCC (NESDIS Satellite Operations Control Centre), Suitland, Maryland",
		"RUS": "Reference User Station",
	}
	productTypes = map[string]string{
		"ENG": "IASI engineering data",
		"GAC": "NOAA Global Area Coverage AVHRR data",
		"SND": "Sounding Data",
		"SZF": "ASCAT calibrated s0 data at full resolution",
		"SZO": "ASCAT calibrated s0 data at operational resolution (50 km)",
		"SZR": "ASCAT calibrated s0 data at research resolution (25 km)",
		"VER": "IASI verification data",
		"xxx": "No specific product type specified",
		"AIP": "NOAA AIP/SAIP data",
		"TIP": "NOAA TIP/STIP data",
		"HRP": "HRPT data",
		"LRP": "LRPT data",
		"PCS": "Principal Component Scores data",
		"PCR": "Principal Component Residuals data",
	}
)

func lookup(table map[string]string, code string) string {
	if d, ok := table[code]; ok {
		return d
	}
	return code
}

// Describe expands the coded MPHR values into their descriptions. Unknown
// codes are returned unchanged.
func (m *MPHR) Describe() map[string]string {
	return map[string]string{
		"INSTRUMENT_MODEL":         lookup(instrumentModels, m.Text("INSTRUMENT_MODEL")),
		"PROCESSING_CENTRE":        lookup(processingCentres, m.Text("PROCESSING_CENTRE")),
		"PROCESSING_MODE":          lookup(processingModes, m.Text("PROCESSING_MODE")),
		"DISPOSITION_MODE":         lookup(dispositionModes, m.Text("DISPOSITION_MODE")),
		"RECEIVING_GROUND_STATION": lookup(groundStations, m.Text("RECEIVING_GROUND_STATION")),
		"PRODUCT_TYPE":             lookup(productTypes, m.Text("PRODUCT_TYPE")),
	}
}
