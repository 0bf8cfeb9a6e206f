package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocationIQ(t *testing.T, handler http.HandlerFunc) *LocationIQ {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewLocationIQ(LocationIQConfig{
		APIKey:       "liq-key",
		BaseURL:      srv.URL,
		MapsURL:      srv.URL + "/staticmap",
		CountryCodes: "in",
	})
}

func TestLocationIQReverse(t *testing.T) {
	liq := newTestLocationIQ(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse.php", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "liq-key", q.Get("key"))
		assert.Equal(t, "12.9716", q.Get("lat"))
		assert.Equal(t, "77.5946", q.Get("lon"))
		assert.Equal(t, "18", q.Get("zoom"))
		assert.Equal(t, "1", q.Get("extratags"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"display_name":"MG Road, Bengaluru, Karnataka, India","lat":"12.9716","lon":"77.5946","address":{"road":"MG Road","city":"Bengaluru"}}`))
	})

	place, err := liq.Reverse(context.Background(), 12.9716, 77.5946)
	require.NoError(t, err)
	assert.Equal(t, "MG Road, Bengaluru, Karnataka, India", place.Label())
	assert.Equal(t, "Bengaluru", place.Address.City)
}

func TestLocationIQStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"Invalid key"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrInvalidAPIKey)
		}},
		{"rate limited", http.StatusTooManyRequests, `{"error":"Rate Limited"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrRateLimited)
		}},
		{"not found", http.StatusNotFound, `{"error":"Unable to geocode"}`, func(t *testing.T, err error) {
			var perr *ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, http.StatusNotFound, perr.StatusCode)
			assert.Equal(t, "Unable to geocode", perr.Message)
		}},
		{"error in ok body", http.StatusOK, `{"error":"Unable to geocode"}`, func(t *testing.T, err error) {
			var perr *ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, SourceLocationIQ, perr.Provider)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			liq := newTestLocationIQ(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := liq.Reverse(context.Background(), 1, 2)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestLocationIQAutocompleteDefaults(t *testing.T) {
	liq := newTestLocationIQ(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/autocomplete.php", r.URL.Path)
		assert.Equal(t, "in", r.URL.Query().Get("countrycodes"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[{"place_id":"1","display_name":"Connaught Place, New Delhi","lat":"28.63","lon":"77.21"},{"place_id":"2","display_name":"Connaught Road","lat":"1","lon":"2","type":"road","importance":0.9}]`))
	})

	places, err := liq.Autocomplete(context.Background(), "Conn", 3)
	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, "location", places[0].Type)
	require.NotNil(t, places[0].Importance)
	assert.Equal(t, 0.5, *places[0].Importance)
	assert.Equal(t, "road", places[1].Type)
	assert.Equal(t, 0.9, *places[1].Importance)
}

func TestLocationIQNotConfigured(t *testing.T) {
	liq := NewLocationIQ(LocationIQConfig{})
	assert.False(t, liq.Configured())
	_, err := liq.Search(context.Background(), "Delhi")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, _, err = liq.StaticMap(context.Background(), 1, 2, 15, 400, 200)
	assert.ErrorIs(t, err, ErrNotConfigured)

	var nilClient *LocationIQ
	assert.False(t, nilClient.Configured())
}

func TestStaticMapURL(t *testing.T) {
	liq := NewLocationIQ(LocationIQConfig{APIKey: "k"})
	raw := liq.StaticMapURL(28.6139, 77.209, 15, 400, 200)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "maps.locationiq.com", u.Host)
	assert.Equal(t, "/v3/staticmap", u.Path)
	q := u.Query()
	assert.Equal(t, "28.6139,77.209", q.Get("center"))
	assert.Equal(t, "400x200", q.Get("size"))
	assert.Equal(t, "png", q.Get("format"))
	assert.Equal(t, "icon:large-red-cutout|28.6139,77.209", q.Get("markers"))
}

func TestFormatAddress(t *testing.T) {
	tests := []struct {
		name string
		in   Address
		want string
	}{
		{"full", Address{HouseNumber: "12", Road: "MG Road", Neighbourhood: "Ashok Nagar", City: "Bengaluru", State: "Karnataka", Postcode: "560001", Country: "India"},
			"12 MG Road, Ashok Nagar, Bengaluru, Karnataka, 560001, India"},
		{"house number without road", Address{HouseNumber: "12", City: "Pune"}, "Pune"},
		{"road only", Address{Road: "Station Road", County: "Thane"}, "Station Road, Thane"},
		{"empty", Address{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAddress(tt.in))
		})
	}
}

func TestCoordinateHelpers(t *testing.T) {
	assert.Equal(t, "Location: 28.613900, 77.209000", CoordinateLabel(28.6139, 77.209))
	assert.Equal(t, "https://www.google.com/maps?q=28.6139,77.209", MapsLink(28.6139, 77.209))
	assert.NoError(t, ValidateCoordinates(-90, 180))
	assert.ErrorIs(t, ValidateCoordinates(91, 0), ErrInvalidCoordinates)
}
