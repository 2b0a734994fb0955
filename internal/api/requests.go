package api

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/pm25-field-data/internal/auth"
	"github.com/couchcryptid/pm25-field-data/internal/domain"
)

// LoginRequest is the payload for POST /v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate ensures request correctness.
func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return errors.New("username is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// LoginResponse carries the session token.
type LoginResponse struct {
	Token        string            `json:"token"`
	ExpiresAt    time.Time         `json:"expires_at"`
	User         domain.User       `json:"user"`
	Capabilities []auth.Capability `json:"capabilities"`
}

// FilterRequest narrows merges and listings. Dates are YYYY-MM-DD.
type FilterRequest struct {
	Site string `json:"site"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Filter converts r to a domain filter.
func (r FilterRequest) Filter() (domain.Filter, error) {
	f := domain.Filter{Site: strings.TrimSpace(r.Site)}
	for _, b := range []struct {
		name  string
		value string
		dst   *time.Time
	}{{"from", r.From, &f.From}, {"to", r.To, &f.To}} {
		if strings.TrimSpace(b.value) == "" {
			continue
		}
		t, ok := domain.ParseDate(b.value)
		if !ok {
			return domain.Filter{}, fmt.Errorf("%s must be a date (YYYY-MM-DD)", b.name)
		}
		*b.dst = t
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return domain.Filter{}, errors.New("to must not be before from")
	}
	return f, nil
}

func filterFromQuery(q url.Values) (domain.Filter, error) {
	return FilterRequest{Site: q.Get("site"), From: q.Get("from"), To: q.Get("to")}.Filter()
}

// WeightsRequest is the payload for the calculation endpoints.
type WeightsRequest struct {
	Entries []domain.WeightEntry `json:"entries"`
}

// Validate ensures request correctness.
func (r WeightsRequest) Validate() error {
	if len(r.Entries) == 0 {
		return errors.New("at least one entry is required")
	}
	for i, e := range r.Entries {
		if e.Row < domain.FirstDataRow {
			return fmt.Errorf("entries[%d].row must be >= %d", i, domain.FirstDataRow)
		}
	}
	return nil
}

// ListResponse wraps listings.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func listOf[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}

// MergeResponse reports a merge. Notice is set when nothing paired.
type MergeResponse struct {
	Summary domain.PairingSummary `json:"summary"`
	Records []domain.PairedRecord `json:"records"`
	Notice  string                `json:"notice,omitempty"`
}

// PasswordRequest is the payload for a password reset.
type PasswordRequest struct {
	Password string `json:"password"`
}
