// Package places wraps the Google Maps platform REST APIs the app relies on:
// Places text search, Distance Matrix, Timezone and Static Maps URLs.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientWithBaseURL is used by tests to point at a stub server.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

type Place struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Rating  float64 `json:"rating,omitempty"`
	PlaceID string  `json:"place_id"`
}

type textSearchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Name             string  `json:"name"`
		FormattedAddress string  `json:"formatted_address"`
		Rating           float64 `json:"rating"`
		PlaceID          string  `json:"place_id"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Search runs a Places text search, optionally biased around a location.
func (c *Client) Search(ctx context.Context, query string, lat, lng *float64) ([]Place, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("key", c.apiKey)
	if lat != nil && lng != nil {
		params.Set("location", fmt.Sprintf("%f,%f", *lat, *lng))
		params.Set("radius", "25000")
	}

	var resp textSearchResponse
	if err := c.getJSON(ctx, "/place/textsearch/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" && resp.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("places search returned status %s", resp.Status)
	}

	places := make([]Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		places = append(places, Place{
			Name:    r.Name,
			Address: r.FormattedAddress,
			Lat:     r.Geometry.Location.Lat,
			Lng:     r.Geometry.Location.Lng,
			Rating:  r.Rating,
			PlaceID: r.PlaceID,
		})
	}
	return places, nil
}

type Route struct {
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int    `json:"duration_seconds"`
	DistanceText    string `json:"distance_text"`
	DurationText    string `json:"duration_text"`
}

type distanceMatrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value int    `json:"value"`
				Text  string `json:"text"`
			} `json:"distance"`
			Duration struct {
				Value int    `json:"value"`
				Text  string `json:"text"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

// RouteFrom returns driving distance and duration between two points. Used
// for "how far from basecamp" answers.
func (c *Client) RouteFrom(ctx context.Context, fromLat, fromLng, toLat, toLng float64) (*Route, error) {
	params := url.Values{}
	params.Set("origins", fmt.Sprintf("%f,%f", fromLat, fromLng))
	params.Set("destinations", fmt.Sprintf("%f,%f", toLat, toLng))
	params.Set("key", c.apiKey)

	var resp distanceMatrixResponse
	if err := c.getJSON(ctx, "/distancematrix/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" || len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return nil, fmt.Errorf("distance matrix returned status %s", resp.Status)
	}
	el := resp.Rows[0].Elements[0]
	if el.Status != "OK" {
		return nil, fmt.Errorf("no route found (%s)", el.Status)
	}
	return &Route{
		DistanceMeters:  el.Distance.Value,
		DurationSeconds: el.Duration.Value,
		DistanceText:    el.Distance.Text,
		DurationText:    el.Duration.Text,
	}, nil
}

type Timezone struct {
	ID        string `json:"timezone_id"`
	Name      string `json:"timezone_name"`
	RawOffset int    `json:"raw_offset"`
	DstOffset int    `json:"dst_offset"`
}

type timezoneResponse struct {
	Status       string `json:"status"`
	TimeZoneID   string `json:"timeZoneId"`
	TimeZoneName string `json:"timeZoneName"`
	RawOffset    int    `json:"rawOffset"`
	DstOffset    int    `json:"dstOffset"`
}

func (c *Client) TimezoneAt(ctx context.Context, lat, lng float64, at time.Time) (*Timezone, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("timestamp", fmt.Sprintf("%d", at.Unix()))
	params.Set("key", c.apiKey)

	var resp timezoneResponse
	if err := c.getJSON(ctx, "/timezone/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" {
		return nil, fmt.Errorf("timezone lookup returned status %s", resp.Status)
	}
	return &Timezone{
		ID:        resp.TimeZoneID,
		Name:      resp.TimeZoneName,
		RawOffset: resp.RawOffset,
		DstOffset: resp.DstOffset,
	}, nil
}

// StaticMapURL builds a Static Maps image URL with one marker, for map cards
// rendered by clients.
func (c *Client) StaticMapURL(lat, lng float64, zoom, width, height int) string {
	params := url.Values{}
	params.Set("center", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("zoom", fmt.Sprintf("%d", zoom))
	params.Set("size", fmt.Sprintf("%dx%d", width, height))
	params.Set("markers", fmt.Sprintf("color:red|%f,%f", lat, lng))
	params.Set("key", c.apiKey)
	return c.baseURL + "/staticmap?" + params.Encode()
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("maps request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("maps API returned HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode maps response: %w", err)
	}
	return nil
}
