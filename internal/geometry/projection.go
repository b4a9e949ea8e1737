package geometry

import (
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// usFeetPerMeter is the US survey foot conversion (1200/3937 m per ft).
const usFeetPerMeter = 3937.0 / 1200.0

// Projection converts between geographic degrees and a planar grid.
type Projection interface {
	Code() string
	Forward(lon, lat float64) (x, y float64)
	Inverse(x, y float64) (lon, lat float64)
}

// LCCParams defines a two-standard-parallel Lambert Conformal Conic grid.
// Angles are in degrees, offsets in meters; output units are meters times
// UnitsPerMeter.
type LCCParams struct {
	Code           string
	Name           string
	SemiMajorM     float64
	InvFlattening  float64
	Lat0           float64
	Lat1           float64
	Lat2           float64
	Lon0           float64
	FalseEastingM  float64
	FalseNorthingM float64
	UnitsPerMeter  float64
}

// Texas state plane zones on NAD83 (GRS80), US survey feet. WGS84 input is
// treated as NAD83; the sub-meter datum offset is below parcel precision.
var presets = map[string]LCCParams{
	"EPSG:2278": {
		Code: "EPSG:2278", Name: "NAD83 / Texas South Central (ftUS)",
		SemiMajorM: 6378137, InvFlattening: 298.257222101,
		Lat0: 27 + 50.0/60, Lat1: 30 + 17.0/60, Lat2: 28 + 23.0/60, Lon0: -99,
		FalseEastingM: 600000, FalseNorthingM: 4000000,
		UnitsPerMeter: usFeetPerMeter,
	},
	"EPSG:2276": {
		Code: "EPSG:2276", Name: "NAD83 / Texas North Central (ftUS)",
		SemiMajorM: 6378137, InvFlattening: 298.257222101,
		Lat0: 31 + 40.0/60, Lat1: 33 + 58.0/60, Lat2: 32 + 8.0/60, Lon0: -98.5,
		FalseEastingM: 600000, FalseNorthingM: 2000000,
		UnitsPerMeter: usFeetPerMeter,
	},
}

// ProjectionByCode returns a built-in projection such as "EPSG:2278".
func ProjectionByCode(code string) (Projection, error) {
	p, ok := presets[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, eris.Errorf("geometry: unsupported projection %q (known: %s)", code, strings.Join(KnownProjections(), ", "))
	}
	return NewLambertConformalConic(p), nil
}

// KnownProjections lists the built-in projection codes.
func KnownProjections() []string {
	codes := make([]string, 0, len(presets))
	for c := range presets {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// LambertConformalConic is an ellipsoidal LCC (2SP) projection.
type LambertConformalConic struct {
	params  LCCParams
	e       float64
	n       float64
	aF      float64 // a * F in output units
	rho0    float64
	lambda0 float64
	fe, fn  float64
}

// NewLambertConformalConic precomputes the projection constants.
func NewLambertConformalConic(p LCCParams) *LambertConformalConic {
	f := 1 / p.InvFlattening
	e := math.Sqrt(f * (2 - f))

	phi0 := radians(p.Lat0)
	phi1 := radians(p.Lat1)
	phi2 := radians(p.Lat2)

	m1 := lccM(phi1, e)
	m2 := lccM(phi2, e)
	t0 := lccT(phi0, e)
	t1 := lccT(phi1, e)
	t2 := lccT(phi2, e)

	var n float64
	if math.Abs(phi1-phi2) < 1e-12 {
		n = math.Sin(phi1)
	} else {
		n = (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	}
	a := p.SemiMajorM * p.UnitsPerMeter
	aF := a * m1 / (n * math.Pow(t1, n))

	return &LambertConformalConic{
		params:  p,
		e:       e,
		n:       n,
		aF:      aF,
		rho0:    aF * math.Pow(t0, n),
		lambda0: radians(p.Lon0),
		fe:      p.FalseEastingM * p.UnitsPerMeter,
		fn:      p.FalseNorthingM * p.UnitsPerMeter,
	}
}

// Code returns the EPSG-style identifier.
func (l *LambertConformalConic) Code() string { return l.params.Code }

// Name returns the human-readable projection name.
func (l *LambertConformalConic) Name() string { return l.params.Name }

// Forward projects lon/lat degrees to grid x (easting), y (northing).
func (l *LambertConformalConic) Forward(lon, lat float64) (x, y float64) {
	t := lccT(radians(lat), l.e)
	rho := l.aF * math.Pow(t, l.n)
	theta := l.n * (radians(lon) - l.lambda0)

	x = l.fe + rho*math.Sin(theta)
	y = l.fn + l.rho0 - rho*math.Cos(theta)
	return x, y
}

// Inverse converts grid x, y back to lon/lat degrees.
func (l *LambertConformalConic) Inverse(x, y float64) (lon, lat float64) {
	dx := x - l.fe
	dy := l.rho0 - (y - l.fn)

	sign := 1.0
	if l.n < 0 {
		sign = -1
	}
	rho := sign * math.Hypot(dx, dy)
	theta := math.Atan2(sign*dx, sign*dy)
	t := math.Pow(rho/l.aF, 1/l.n)

	phi := math.Pi/2 - 2*math.Atan(t)
	for i := 0; i < 15; i++ {
		es := l.e * math.Sin(phi)
		next := math.Pi/2 - 2*math.Atan(t*math.Pow((1-es)/(1+es), l.e/2))
		if math.Abs(next-phi) < 1e-14 {
			phi = next
			break
		}
		phi = next
	}

	return degrees(theta/l.n + l.lambda0), degrees(phi)
}

func lccM(phi, e float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-e*e*s*s)
}

func lccT(phi, e float64) float64 {
	es := e * math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-es)/(1+es), e/2)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
