// Package digest provides the HTTP handlers for the /digest endpoints.
// Every handler is a read-only GET over the per-day caches of the digest service.
package digest

import (
	"daily-digest/internal/domain/entity"
)

// LunarDTO is the body of GET /digest/lunar.
type LunarDTO struct {
	Text string             `json:"text"`
	Raw  entity.LunarFields `json:"raw"`
}

// HoroscopeDTO is one category of GET /digest/horoscope.
type HoroscopeDTO struct {
	Name         string `json:"name"`
	Content      string `json:"content"`
	ForecastDate string `json:"forecastDate"`
	Status       string `json:"status"`           // "success" or "degraded"
	Reason       string `json:"reason,omitempty"` // set when degraded
}

// QuoteDTO is the body of GET /digest/quote.
type QuoteDTO struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	Author  string `json:"author"`
}

// ImageDTO is the body of GET /digest/image.
type ImageDTO struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Copyright string `json:"copyright"`
	StartDate string `json:"startDate"`
}

// horoscopeDTOs converts a snapshot to the wire map keyed by category API key.
// Categories missing from the snapshot are not invented here; the service
// always fills all of them.
func horoscopeDTOs(snap entity.DigestSnapshot) map[string]HoroscopeDTO {
	out := make(map[string]HoroscopeDTO, len(snap.Items))
	for key, item := range snap.Items {
		name := key
		if c, ok := entity.FindConstellation(key); ok {
			name = c.DisplayName
		}
		dto := HoroscopeDTO{
			Name:         name,
			Content:      item.Text(),
			ForecastDate: item.ForecastDate.String(),
			Status:       string(item.Kind),
		}
		if item.IsDegraded() {
			dto.Reason = string(item.Reason)
		}
		out[key] = dto
	}
	return out
}
