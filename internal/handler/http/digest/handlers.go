package digest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"daily-digest/internal/domain/entity"
	"daily-digest/internal/handler/http/respond"
	"daily-digest/internal/observability/logging"
	digestUC "daily-digest/internal/usecase/digest"
)

// Service is what the handlers need from the digest use case.
type Service interface {
	Lunar(ctx context.Context) (entity.LunarDigest, error)
	Horoscopes(ctx context.Context) entity.DigestSnapshot
	Quote(ctx context.Context) (entity.Quote, error)
	Image(ctx context.Context) (entity.DailyImage, error)
	Status() digestUC.Status
}

// writeFeedError answers with the status the feed degraded to.
// The message is the user-facing reason text; it never contains the upstream key.
func writeFeedError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *digestUC.FeedError
	if errors.As(err, &fe) {
		logging.FromContext(r.Context()).Warn("feed request degraded",
			slog.String("feed", fe.Feed),
			slog.String("reason", string(fe.Reason)),
			slog.Int("status", fe.Status))
		respond.Problem(w, fe.Status, respond.NewAppError(fe.Status, fe.Message, nil))
		return
	}
	logging.FromContext(r.Context()).Error("feed request failed", slog.Any("error", respond.SanitizeError(err)))
	respond.SafeError(w, http.StatusInternalServerError, err)
}

// LunarHandler serves GET /digest/lunar.
type LunarHandler struct{ Svc Service }

func (h LunarHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d, err := h.Svc.Lunar(r.Context())
	if err != nil {
		writeFeedError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, LunarDTO{Text: d.Text, Raw: d.Raw})
}

// HoroscopeHandler serves GET /digest/horoscope.
//
// The status is always 200: it reports transport success, and each
// category carries its own success or degraded state in the payload.
type HoroscopeHandler struct{ Svc Service }

func (h HoroscopeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := h.Svc.Horoscopes(r.Context())
	if snap.PartialFailure {
		logging.FromContext(r.Context()).Info("serving partial horoscope digest",
			slog.String("day", snap.FetchAttemptDay.String()),
			slog.Int("degraded", snap.DegradedCount()))
	}
	respond.JSON(w, http.StatusOK, horoscopeDTOs(snap))
}

// QuoteHandler serves GET /digest/quote.
type QuoteHandler struct{ Svc Service }

func (h QuoteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q, err := h.Svc.Quote(r.Context())
	if err != nil {
		writeFeedError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, QuoteDTO{ID: q.ID, Content: q.Content, Author: q.Author})
}

// ImageHandler serves GET /digest/image.
type ImageHandler struct{ Svc Service }

func (h ImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	img, err := h.Svc.Image(r.Context())
	if err != nil {
		writeFeedError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, ImageDTO{
		URL:       img.URL,
		Title:     img.Title,
		Copyright: img.Copyright,
		StartDate: img.StartDate,
	})
}

// StatusHandler serves GET /digest/status.
type StatusHandler struct{ Svc Service }

func (h StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	respond.JSON(w, http.StatusOK, h.Svc.Status())
}
