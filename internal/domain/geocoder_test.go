package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGeocoder struct {
	results map[string]GeocodingResult
	err     error
}

func (s *stubGeocoder) ForwardGeocode(_ context.Context, name, _ string) (GeocodingResult, error) {
	if s.err != nil {
		return GeocodingResult{}, s.err
	}
	return s.results[name], nil
}

func TestLocateSites(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sites := []Site{{ID: "1", Name: "Kaneshie First Light"}, {ID: "4", Name: "La"}}

	t.Run("nil geocoder", func(t *testing.T) {
		got := LocateSites(context.Background(), sites, nil, "Accra", logger)
		require.Len(t, got, 2)
		assert.Equal(t, "none", got[0].GeoSource)
		assert.Nil(t, got[0].Lat)
	})

	t.Run("found and not found", func(t *testing.T) {
		g := &stubGeocoder{results: map[string]GeocodingResult{
			"Kaneshie First Light": {Lat: 5.5679, Lon: -0.2353, FormattedAddress: "Kaneshie, Accra, Ghana"},
		}}
		got := LocateSites(context.Background(), sites, g, "Accra", logger)
		require.Len(t, got, 2)

		assert.Equal(t, "forward", got[0].GeoSource)
		require.NotNil(t, got[0].Lat)
		assert.Equal(t, 5.5679, *got[0].Lat)
		assert.Equal(t, -0.2353, *got[0].Lon)
		assert.Equal(t, "not_found", got[1].GeoSource)
	})

	t.Run("errors degrade", func(t *testing.T) {
		got := LocateSites(context.Background(), sites, &stubGeocoder{err: errors.New("boom")}, "Accra", logger)
		assert.Equal(t, "failed", got[0].GeoSource)
		assert.Equal(t, "failed", got[1].GeoSource)
	})
}
