package api

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

func parseFloatParam(r *http.Request, name string) (float64, bool) {
	v, err := strconv.ParseFloat(r.URL.Query().Get(name), 64)
	return v, err == nil
}

func (h *APIHandler) PlacesSearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "q query parameter is required", http.StatusBadRequest)
		return
	}

	var lat, lng *float64
	if v, ok := parseFloatParam(r, "lat"); ok {
		lat = &v
	}
	if v, ok := parseFloatParam(r, "lng"); ok {
		lng = &v
	}

	results, err := h.places.Search(r.Context(), query, lat, lng)
	if err != nil {
		log.Printf("Error searching places for %q: %v", query, err)
		http.Error(w, "Place search failed", http.StatusBadGateway)
		return
	}
	json.NewEncoder(w).Encode(results)
}

func (h *APIHandler) RouteHandler(w http.ResponseWriter, r *http.Request) {
	fromLat, ok1 := parseFloatParam(r, "from_lat")
	fromLng, ok2 := parseFloatParam(r, "from_lng")
	toLat, ok3 := parseFloatParam(r, "to_lat")
	toLng, ok4 := parseFloatParam(r, "to_lng")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		http.Error(w, "from_lat, from_lng, to_lat and to_lng are required", http.StatusBadRequest)
		return
	}

	route, err := h.places.RouteFrom(r.Context(), fromLat, fromLng, toLat, toLng)
	if err != nil {
		log.Printf("Error getting route: %v", err)
		http.Error(w, "Route lookup failed", http.StatusBadGateway)
		return
	}
	json.NewEncoder(w).Encode(route)
}

func (h *APIHandler) TimezoneHandler(w http.ResponseWriter, r *http.Request) {
	lat, ok1 := parseFloatParam(r, "lat")
	lng, ok2 := parseFloatParam(r, "lng")
	if !ok1 || !ok2 {
		http.Error(w, "lat and lng are required", http.StatusBadRequest)
		return
	}

	tz, err := h.places.TimezoneAt(r.Context(), lat, lng, time.Now())
	if err != nil {
		log.Printf("Error getting timezone for %f,%f: %v", lat, lng, err)
		http.Error(w, "Timezone lookup failed", http.StatusBadGateway)
		return
	}
	json.NewEncoder(w).Encode(tz)
}

func (h *APIHandler) StaticMapHandler(w http.ResponseWriter, r *http.Request) {
	lat, ok1 := parseFloatParam(r, "lat")
	lng, ok2 := parseFloatParam(r, "lng")
	if !ok1 || !ok2 {
		http.Error(w, "lat and lng are required", http.StatusBadRequest)
		return
	}
	zoom, _ := strconv.Atoi(r.URL.Query().Get("zoom"))
	width, _ := strconv.Atoi(r.URL.Query().Get("width"))
	height, _ := strconv.Atoi(r.URL.Query().Get("height"))

	json.NewEncoder(w).Encode(map[string]string{
		"url": h.places.StaticMapURL(lat, lng, zoom, width, height),
	})
}

// LinkPreviewHandler resolves Open Graph metadata for a URL pasted into chat.
func (h *APIHandler) LinkPreviewHandler(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		http.Error(w, "url query parameter is required", http.StatusBadRequest)
		return
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		http.Error(w, "url must be http or https", http.StatusBadRequest)
		return
	}

	p, err := h.previews.Fetch(r.Context(), rawURL)
	if err != nil {
		log.Printf("Error fetching preview for %s: %v", rawURL, err)
		http.Error(w, "Failed to fetch preview", http.StatusBadGateway)
		return
	}
	json.NewEncoder(w).Encode(p)
}
