package geo

import "math"

const (
	MinZoom = 1
	MaxZoom = 21

	// DefaultZoom is the zoom the map opens at; SearchZoom is applied after a search.
	DefaultZoom = 12
	SearchZoom  = 14

	tileSize = 256
	maxLat   = 85.0511
)

// Camera is the terminal stand-in for the map widget: a center, a zoom level and a
// viewport size in pixels, from which the visible bounds are derived.
type Camera struct {
	Center Point
	Zoom   int
	Width  int
	Height int
}

// NewCamera returns a camera centered on c at DefaultZoom with a 1024x768 viewport.
func NewCamera(c Point) Camera {
	return Camera{Center: c, Zoom: DefaultZoom, Width: 1024, Height: 768}
}

// degPerPixel is the longitude span of one pixel at the camera zoom.
func (c Camera) degPerPixel() float64 {
	return 360.0 / (tileSize * math.Exp2(float64(c.Zoom)))
}

// Bounds returns the region currently visible through the camera.
func (c Camera) Bounds() Region {
	dpp := c.degPerPixel()
	halfLng := float64(c.Width) / 2 * dpp
	halfLat := float64(c.Height) / 2 * dpp * math.Cos(c.Center.Lat*math.Pi/180)

	north := math.Min(c.Center.Lat+halfLat, maxLat)
	south := math.Max(c.Center.Lat-halfLat, -maxLat)
	if halfLng >= 180 {
		return Region{North: north, South: south, East: 180, West: -180}
	}
	return Region{
		North: north,
		South: south,
		East:  normalizeLng(c.Center.Lng + halfLng),
		West:  normalizeLng(c.Center.Lng - halfLng),
	}
}

// Pan moves the center by a fraction of the visible span; positive dx pans east and
// positive dy pans north.
func (c Camera) Pan(dx, dy float64) Camera {
	dpp := c.degPerPixel()
	c.Center.Lng = normalizeLng(c.Center.Lng + dx*float64(c.Width)*dpp)
	lat := c.Center.Lat + dy*float64(c.Height)*dpp*math.Cos(c.Center.Lat*math.Pi/180)
	c.Center.Lat = math.Max(-maxLat, math.Min(maxLat, lat))
	return c
}

// PanTo recenters the camera on p.
func (c Camera) PanTo(p Point) Camera {
	c.Center = p
	return c
}

// SetZoom clamps z into [MinZoom, MaxZoom].
func (c Camera) SetZoom(z int) Camera {
	c.Zoom = max(MinZoom, min(MaxZoom, z))
	return c
}

// ZoomBy changes the zoom by delta levels.
func (c Camera) ZoomBy(delta int) Camera { return c.SetZoom(c.Zoom + delta) }
