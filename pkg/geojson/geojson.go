// Package geojson provides GeoJSON geometry parsing and validation for export regions.
package geojson

import (
	"encoding/json"
	"fmt"
)

// Geometry represents a GeoJSON geometry object.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type feature struct {
	Type     string    `json:"type"`
	Geometry *Geometry `json:"geometry"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

// ParseRegion decodes an export region. It accepts a bare Geometry, a Feature,
// or a FeatureCollection (taking the first feature's geometry, which is how
// drawing widgets ship a single drawn shape) and requires the result to be a
// valid Polygon or MultiPolygon.
func ParseRegion(data []byte) (*Geometry, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("invalid GeoJSON: %w", err)
	}

	var g *Geometry
	switch probe.Type {
	case "FeatureCollection":
		var fc featureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("invalid FeatureCollection: %w", err)
		}
		if len(fc.Features) == 0 || fc.Features[0].Geometry == nil {
			return nil, fmt.Errorf("FeatureCollection has no feature geometry")
		}
		g = fc.Features[0].Geometry
	case "Feature":
		var f feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("invalid Feature: %w", err)
		}
		if f.Geometry == nil {
			return nil, fmt.Errorf("Feature has no geometry")
		}
		g = f.Geometry
	case "Polygon", "MultiPolygon":
		g = &Geometry{}
		if err := json.Unmarshal(data, g); err != nil {
			return nil, fmt.Errorf("invalid geometry: %w", err)
		}
	case "":
		return nil, fmt.Errorf("GeoJSON object has no type")
	default:
		return nil, fmt.Errorf("unsupported region type %q: expected Polygon or MultiPolygon", probe.Type)
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Polygon returns the coordinates as [][][lon, lat].
// Returns an error if the geometry is not a Polygon.
func (g *Geometry) Polygon() ([][][]float64, error) {
	if g.Type != "Polygon" {
		return nil, fmt.Errorf("geometry is not a Polygon, got %s", g.Type)
	}
	var coords [][][]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Polygon coordinates: %w", err)
	}
	return coords, nil
}

// MultiPolygon returns the coordinates as [][][][lon, lat].
// Returns an error if the geometry is not a MultiPolygon.
func (g *Geometry) MultiPolygon() ([][][][]float64, error) {
	if g.Type != "MultiPolygon" {
		return nil, fmt.Errorf("geometry is not a MultiPolygon, got %s", g.Type)
	}
	var coords [][][][]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal MultiPolygon coordinates: %w", err)
	}
	return coords, nil
}

// Validate checks polygonal structure: at least one ring per polygon, rings
// closed with at least four positions, coordinates within lon/lat bounds.
func (g *Geometry) Validate() error {
	switch g.Type {
	case "Polygon":
		rings, err := g.Polygon()
		if err != nil {
			return err
		}
		return validateRings(rings)
	case "MultiPolygon":
		polys, err := g.MultiPolygon()
		if err != nil {
			return err
		}
		if len(polys) == 0 {
			return fmt.Errorf("MultiPolygon has no polygons")
		}
		for i, rings := range polys {
			if err := validateRings(rings); err != nil {
				return fmt.Errorf("polygon %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported geometry type %q", g.Type)
	}
}

func validateRings(rings [][][]float64) error {
	if len(rings) == 0 {
		return fmt.Errorf("polygon has no rings")
	}
	for i, ring := range rings {
		if len(ring) < 4 {
			return fmt.Errorf("ring %d has %d positions, need at least 4", i, len(ring))
		}
		for j, pos := range ring {
			if len(pos) < 2 {
				return fmt.Errorf("ring %d position %d has %d values, need at least 2", i, j, len(pos))
			}
			lon, lat := pos[0], pos[1]
			if lon < -180 || lon > 180 {
				return fmt.Errorf("ring %d position %d: longitude %g out of range", i, j, lon)
			}
			if lat < -90 || lat > 90 {
				return fmt.Errorf("ring %d position %d: latitude %g out of range", i, j, lat)
			}
		}
		first, last := ring[0], ring[len(ring)-1]
		if first[0] != last[0] || first[1] != last[1] {
			return fmt.Errorf("ring %d is not closed", i)
		}
	}
	return nil
}
