package proj

import "math"

// albers is an ellipsoidal Albers equal-area conic projection (Snyder,
// Map Projections: A Working Manual, eqs. 14-3 to 14-6 and 3-12).
type albers struct {
	a, e, e2     float64
	n, c, rho0   float64
	lon0         float64
	falseEasting float64
}

// GRS 80 ellipsoid.
const (
	grs80A    = 6378137.0
	grs80InvF = 298.257222101
)

// conusAlbers is EPSG:5070: standard parallels 29.5 and 45.5, origin 23N 96W.
var conusAlbers = newAlbers(grs80A, grs80InvF, 29.5, 45.5, 23, -96)

func newAlbers(a, invF, lat1, lat2, lat0, lon0 float64) *albers {
	f := 1 / invF
	e2 := 2*f - f*f
	p := &albers{a: a, e2: e2, e: math.Sqrt(e2), lon0: rad(lon0)}

	m1, m2 := p.m(rad(lat1)), p.m(rad(lat2))
	q0, q1, q2 := p.q(rad(lat0)), p.q(rad(lat1)), p.q(rad(lat2))

	p.n = (m1*m1 - m2*m2) / (q2 - q1)
	p.c = m1*m1 + p.n*q1
	p.rho0 = a * math.Sqrt(p.c-p.n*q0) / p.n
	return p
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }

func (p *albers) m(phi float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-p.e2*s*s)
}

func (p *albers) q(phi float64) float64 {
	s := math.Sin(phi)
	es := p.e * s
	return (1 - p.e2) * (s/(1-p.e2*s*s) - (1/(2*p.e))*math.Log((1-es)/(1+es)))
}

func (p *albers) forward(lon, lat float64) (float64, float64) {
	rho := p.a * math.Sqrt(p.c-p.n*p.q(rad(lat))) / p.n
	theta := p.n * (rad(lon) - p.lon0)
	x := rho*math.Sin(theta) + p.falseEasting
	y := p.rho0 - rho*math.Cos(theta)
	return x, y
}
