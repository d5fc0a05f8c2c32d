package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceMeters_SamePoint(t *testing.T) {
	p := Point{Lat: 41.8902, Lon: 12.4922}
	require.InDelta(t, 0.0, DistanceMeters(p, p), 1e-6)
}

func TestDistanceMeters_KnownApprox(t *testing.T) {
	// Milan center to a point ~700m away (theft alarm scenario distance).
	a := Point{Lat: 45.4642, Lon: 9.1900}
	b := Point{Lat: 45.4700, Lon: 9.1950}
	d := DistanceMeters(a, b)
	assert.Greater(t, d, 500.0)
	assert.Less(t, d, 900.0)
}

func TestZoneContains(t *testing.T) {
	z := Zone{ID: "z1", Center: Point{Lat: 41.8902, Lon: 12.4922}, RadiusM: 200, Restricted: true}
	assert.True(t, z.Contains(Point{Lat: 41.8902, Lon: 12.4922}))
	assert.False(t, z.Contains(Point{Lat: 41.9500, Lon: 12.5500}))
}

func TestAnyContains(t *testing.T) {
	zones := []Zone{
		{ID: "a", Center: Point{Lat: 0, Lon: 0}, RadiusM: 10},
		{ID: "b", Center: Point{Lat: 1, Lon: 1}, RadiusM: 500000},
	}
	z, ok := AnyContains(zones, Point{Lat: 1.001, Lon: 1.001})
	require.True(t, ok)
	assert.Equal(t, "b", z.ID)

	_, ok = AnyContains(nil, Point{Lat: 5, Lon: 5})
	assert.False(t, ok)
}
