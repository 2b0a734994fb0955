package domain

import (
	"context"
	"log/slog"
)

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves place names to coordinates.
type Geocoder interface {
	// ForwardGeocode converts a place name within region to coordinates.
	ForwardGeocode(ctx context.Context, name, region string) (GeocodingResult, error)
}

// SiteLocation is a site with optional coordinates.
type SiteLocation struct {
	Site
	Lat              *float64 `json:"lat,omitempty"`
	Lon              *float64 `json:"lon,omitempty"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	GeoSource        string   `json:"geo_source"`
}

// LocateSites geocodes each site name within region. Failures leave the
// site without coordinates and GeoSource "failed". A nil geocoder returns
// the sites unchanged with GeoSource "none".
func LocateSites(ctx context.Context, sites []Site, geocoder Geocoder, region string, logger *slog.Logger) []SiteLocation {
	out := make([]SiteLocation, len(sites))
	for i, s := range sites {
		out[i] = SiteLocation{Site: s, GeoSource: "none"}
		if geocoder == nil {
			continue
		}

		result, err := geocoder.ForwardGeocode(ctx, s.Name, region)
		if err != nil {
			logger.Warn("site geocoding failed",
				"site_id", s.ID,
				"site", s.Name,
				"region", region,
				"error", err,
			)
			out[i].GeoSource = "failed"
			continue
		}
		if result.Lat == 0 && result.Lon == 0 {
			out[i].GeoSource = "not_found"
			continue
		}
		lat, lon := result.Lat, result.Lon
		out[i].Lat = &lat
		out[i].Lon = &lon
		out[i].FormattedAddress = result.FormattedAddress
		out[i].GeoSource = "forward"
	}
	return out
}
