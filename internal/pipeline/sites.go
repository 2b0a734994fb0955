package pipeline

import (
	"context"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
)

// Sites lists the site directory, with coordinates when a geocoder is
// configured.
func (s *Service) Sites(ctx context.Context) []domain.SiteLocation {
	return domain.LocateSites(ctx, s.ref.Reference().Sites, s.geocoder, s.region, s.logger)
}
