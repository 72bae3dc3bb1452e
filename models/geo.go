package models

// GeoJSONPoint is the GeoJSON "Point" document shape MongoDB's geospatial
// operators work on. Coordinates are ordered longitude first.
type GeoJSONPoint struct {
	Type        string     `bson:"type" json:"type"`
	Coordinates [2]float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoJSONPoint builds a Point from a longitude/latitude pair.
func NewGeoJSONPoint(longitude, latitude float64) *GeoJSONPoint {
	return &GeoJSONPoint{Type: "Point", Coordinates: [2]float64{longitude, latitude}}
}
