package core

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// Position is a single position/velocity sample returned by a MetaNode
// query (spec §4.5): geodetic latitude/longitude in degrees, altitude in
// kilometres, and a scalar velocity magnitude in km/s.
type Position struct {
	LatDeg     float64
	LonDeg     float64
	AltKm      float64
	VelocityKm float64
}

// MetaNode is a geographic or orbital entity providing position(simtime)
// queries (spec §3 "MetaNode"). Both Geopoint and Orbital satisfy it; a
// node attaches to a MetaNode via its Node.MetaNode field (core/node_runtime.go).
type MetaNode interface {
	// Position returns the geodetic position at the given simtime.
	Position(simtime float64) Position
	// Coords returns the position in inertial (ECI-ish, Earth-rotated)
	// Cartesian kilometres at the given simtime, used by Propagator nodes
	// to build ephemeris samples (spec §4.5, S5).
	Coords(simtime float64) Vec3
}

// Geopoint is a fixed geodetic location: a ground station, a fixed sensor
// site, and so on. It generalizes the teacher's StaticMotionModel
// (core/motion.go) from a no-op tick update into a real position(simtime)
// query: a Geopoint appears to rotate with the Earth in inertial
// coordinates even though its geodetic lat/lon/alt never change, matching
// spec §4.5 "Geopoint... transforms to inertial coordinates at query time
// using the scenario epoch plus the requested simtime offset."
type Geopoint struct {
	Epoch  time.Time
	LatDeg float64
	LonDeg float64
	AltKm  float64
}

// NewGeopoint constructs a fixed geodetic position provider.
func NewGeopoint(epoch time.Time, latDeg, lonDeg, altKm float64) *Geopoint {
	return &Geopoint{Epoch: epoch, LatDeg: latDeg, LonDeg: lonDeg, AltKm: altKm}
}

// Position returns the Geopoint's unchanging geodetic location; velocity is
// always zero for a fixed site.
func (g *Geopoint) Position(simtime float64) Position {
	return Position{LatDeg: g.LatDeg, LonDeg: g.LonDeg, AltKm: g.AltKm}
}

// Coords rotates the Geopoint's Earth-fixed (ECEF) position into an
// inertial frame at epoch+simtime using Greenwich Mean Sidereal Time,
// reusing go-satellite's JDay/ThetaG_JD the way the teacher's
// OrbitalSGP4MotionModel does for satellites (core/motion.go), generalized
// here to also cover fixed ground points (spec §4.5).
func (g *Geopoint) Coords(simtime float64) Vec3 {
	t := g.Epoch.Add(time.Duration(simtime * float64(time.Second))).UTC()
	ecef := geodeticToECEF(g.LatDeg, g.LonDeg, g.AltKm)

	gmst := gmstAt(t)
	// Rotate ECEF -> inertial by +gmst about the Z axis (inverse of the
	// ECI->ECEF rotation go-satellite applies, since ECI->ECEF rotates by
	// -gmst).
	cosT, sinT := math.Cos(gmst), math.Sin(gmst)
	return Vec3{
		X: ecef.X*cosT - ecef.Y*sinT,
		Y: ecef.X*sinT + ecef.Y*cosT,
		Z: ecef.Z,
	}
}

// geodeticToECEF converts a geodetic lat/lon/alt (degrees, degrees, km) to
// an Earth-centred-Earth-fixed Cartesian vector in kilometres, using the
// spherical-Earth approximation consistent with EarthRadiusKm used
// elsewhere in this package (core/geometry.go) — sufficient for the
// visibility/elevation geometry this engine performs; full WGS84
// ellipsoidal geodesy is out of scope (spec §1 Non-goals).
func geodeticToECEF(latDeg, lonDeg, altKm float64) Vec3 {
	lat := latDeg * math.Pi / 180.0
	lon := lonDeg * math.Pi / 180.0
	r := EarthRadiusKm + altKm
	return Vec3{
		X: r * math.Cos(lat) * math.Cos(lon),
		Y: r * math.Cos(lat) * math.Sin(lon),
		Z: r * math.Sin(lat),
	}
}

// gmstAt returns Greenwich Mean Sidereal Time in radians for the given
// absolute UTC instant, via go-satellite's JDay/ThetaG_JD helpers (the same
// pair the teacher's motion.go uses per-tick).
func gmstAt(t time.Time) float64 {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	return satellite.ThetaG_JD(jd)
}

// Orbital propagates a two-line element set with SGP4 to an arbitrary
// absolute UTC time (epoch + simtime), replacing the teacher's
// OrbitalSGP4MotionModel (core/motion.go), which only ever advanced along a
// live tick loop — here Position/Coords accept an arbitrary simtime so the
// engine can query a satellite's location for any message, not only "now".
type Orbital struct {
	Epoch time.Time
	sat   satellite.Satellite
}

// NewOrbital constructs an orbital position provider from TLE lines, per
// spec §3 "MetaNode... Orbital: holds a two-line element set (TLE) and an
// epoch."
func NewOrbital(epoch time.Time, line1, line2 string) *Orbital {
	return &Orbital{
		Epoch: epoch,
		sat:   satellite.TLEToSat(line1, line2, satellite.GravityWGS72),
	}
}

// Position propagates the TLE to epoch+simtime and returns geodetic
// lat/lon/alt plus inertial velocity magnitude (spec §4.5). Lat/lon/alt are
// derived from the ECEF position with the same spherical-Earth model
// ecefToGeodetic/geodeticToECEF use elsewhere in this package, keeping the
// Geopoint and Orbital position providers internally consistent.
func (o *Orbital) Position(simtime float64) Position {
	t := o.Epoch.Add(time.Duration(simtime * float64(time.Second))).UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, velECI := satellite.Propagate(o.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	lat, lon, alt := ecefToGeodetic(Vec3{X: posECEF.X, Y: posECEF.Y, Z: posECEF.Z})
	vel := math.Sqrt(velECI.X*velECI.X + velECI.Y*velECI.Y + velECI.Z*velECI.Z)

	return Position{LatDeg: lat, LonDeg: lon, AltKm: alt, VelocityKm: vel}
}

// ecefToGeodetic is the spherical-Earth inverse of geodeticToECEF.
func ecefToGeodetic(p Vec3) (latDeg, lonDeg, altKm float64) {
	r := p.Norm()
	if r == 0 {
		return 0, 0, -EarthRadiusKm
	}
	latDeg = math.Asin(p.Z/r) * 180.0 / math.Pi
	lonDeg = math.Atan2(p.Y, p.X) * 180.0 / math.Pi
	altKm = r - EarthRadiusKm
	return latDeg, lonDeg, altKm
}

// Coords propagates the TLE to epoch+simtime and returns the inertial (ECI)
// Cartesian position in kilometres, the same frame Geopoint.Coords uses, so
// |position| is the orbital radius and Geopoint and Orbital coordinates can
// be compared directly.
func (o *Orbital) Coords(simtime float64) Vec3 {
	t := o.Epoch.Add(time.Duration(simtime * float64(time.Second))).UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(o.sat, year, int(month), day, hour, min, sec)

	return Vec3{X: posECI.X, Y: posECI.Y, Z: posECI.Z}
}
