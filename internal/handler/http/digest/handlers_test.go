package digest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"daily-digest/internal/domain/entity"
	"daily-digest/internal/handler/http/respond"
	"daily-digest/internal/resilience/retry"
	digestUC "daily-digest/internal/usecase/digest"
	"daily-digest/internal/usecase/feed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	lunar    entity.LunarDigest
	lunarErr error
	snap     entity.DigestSnapshot
	quote    entity.Quote
	quoteErr error
	image    entity.DailyImage
	imageErr error
	status   digestUC.Status
}

func (s *stubService) Lunar(context.Context) (entity.LunarDigest, error) { return s.lunar, s.lunarErr }
func (s *stubService) Horoscopes(context.Context) entity.DigestSnapshot  { return s.snap }
func (s *stubService) Quote(context.Context) (entity.Quote, error)       { return s.quote, s.quoteErr }
func (s *stubService) Image(context.Context) (entity.DailyImage, error)  { return s.image, s.imageErr }
func (s *stubService) Status() digestUC.Status                           { return s.status }

func serve(t *testing.T, svc Service, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	Register(mux, svc)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestLunarHandler(t *testing.T) {
	svc := &stubService{lunar: entity.LunarDigest{
		Text: "宜：出行\n忌：动土",
		Raw:  entity.LunarFields{Fitness: "出行", Taboo: "动土", LunarDate: "二月廿五"},
	}}

	rec := serve(t, svc, "/digest/lunar")

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[LunarDTO](t, rec)
	assert.Equal(t, "宜：出行\n忌：动土", got.Text)
	assert.Equal(t, "出行", got.Raw.Fitness)
	assert.Equal(t, "二月廿五", got.Raw.LunarDate)
}

func TestLunarHandler_MirrorsUpstreamStatus(t *testing.T) {
	svc := &stubService{lunarErr: &digestUC.FeedError{
		Feed:    feed.NameLunar,
		Reason:  entity.ReasonUpstreamError,
		Status:  http.StatusForbidden,
		Message: "农历运势获取失败 (代码: 403): 请求被拒绝",
	}}

	rec := serve(t, svc, "/digest/lunar")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "农历运势获取失败 (代码: 403): 请求被拒绝", decode[respond.ErrorBody](t, rec).Error)
}

func TestLunarHandler_UnexpectedError(t *testing.T) {
	svc := &stubService{lunarErr: errors.New("GET https://apis.tianapi.com/lunar/index?key=abc: boom")}

	rec := serve(t, svc, "/digest/lunar")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode[respond.ErrorBody](t, rec).Error)
}

func TestHoroscopeHandler_AlwaysOK(t *testing.T) {
	day := entity.Day("2024-03-05")
	svc := &stubService{snap: entity.DigestSnapshot{
		FetchAttemptDay: day,
		PartialFailure:  true,
		Items: map[string]entity.FeedResult{
			"Aries":  entity.Succeeded("整体运势不错", "2024-03-05"),
			"Taurus": entity.Degrade(entity.ReasonRateLimited, "运势获取失败 (频率超限): 已达最大重试次数", day),
		},
	}}

	rec := serve(t, svc, "/digest/horoscope")

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]HoroscopeDTO](t, rec)
	assert.Equal(t, HoroscopeDTO{
		Name:         "白羊座",
		Content:      "整体运势不错",
		ForecastDate: "2024-03-05",
		Status:       "success",
	}, got["Aries"])
	assert.Equal(t, HoroscopeDTO{
		Name:         "金牛座",
		Content:      "运势获取失败 (频率超限): 已达最大重试次数",
		ForecastDate: "2024-03-05",
		Status:       "degraded",
		Reason:       "rate_limited",
	}, got["Taurus"])
}

func TestQuoteHandler(t *testing.T) {
	svc := &stubService{quote: entity.Quote{ID: 7, Content: "知之为知之", Author: "孔子"}}

	rec := serve(t, svc, "/digest/quote")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, QuoteDTO{ID: 7, Content: "知之为知之", Author: "孔子"}, decode[QuoteDTO](t, rec))
}

func TestImageHandler(t *testing.T) {
	svc := &stubService{image: entity.DailyImage{
		URL:       "https://www.bing.com/th?id=OHR.Test_1920x1080.jpg",
		Title:     "Test",
		Copyright: "© Someone",
		StartDate: "20240305",
	}}

	rec := serve(t, svc, "/digest/image")

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ImageDTO](t, rec)
	assert.Equal(t, "20240305", got.StartDate)
	assert.Contains(t, got.URL, "_1920x1080.jpg")
}

func TestImageHandler_Error(t *testing.T) {
	svc := &stubService{imageErr: &digestUC.FeedError{
		Feed:    feed.NameImage,
		Reason:  entity.ReasonNetwork,
		Status:  http.StatusInternalServerError,
		Message: "背景图片加载出错 (网络问题)",
	}}

	rec := serve(t, svc, "/digest/image")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "背景图片加载出错 (网络问题)", decode[respond.ErrorBody](t, rec).Error)
}

func TestStatusHandler(t *testing.T) {
	svc := &stubService{status: digestUC.Status{Configured: true, Day: "2024-03-05"}}

	rec := serve(t, svc, "/digest/status")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"configured":true,"day":"2024-03-05"}`, rec.Body.String())
}

func TestRegister_MethodNotAllowed(t *testing.T) {
	mux := http.NewServeMux()
	Register(mux, &stubService{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/digest/quote", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// notConfigured is a Fetchers without a credential.
type notConfigured struct{}

func (notConfigured) Configured() bool { return false }
func (notConfigured) Lunar(context.Context, entity.Day, retry.Policy) feed.LunarOutcome {
	return feed.LunarOutcome{Result: entity.Degrade(entity.ReasonNotConfigured, entity.TextNotConfigured, "")}
}
func (notConfigured) Horoscope(context.Context, entity.Constellation, entity.Day, retry.Policy) entity.FeedResult {
	panic("unexpected upstream call")
}
func (notConfigured) Quote(context.Context, entity.Day, retry.Policy) (feed.QuoteOutcome, error) {
	return feed.QuoteOutcome{}, feed.ErrNotConfigured
}
func (notConfigured) Image(context.Context, entity.Day, retry.Policy) feed.ImageOutcome {
	return feed.ImageOutcome{Image: entity.DailyImage{URL: "https://www.bing.com/x_1920x1080.jpg"}, Result: entity.Succeeded("x", "")}
}

func TestHandlers_NotConfigured(t *testing.T) {
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	cfg := digestUC.DefaultConfig()
	cfg.Location = time.UTC
	svc := digestUC.NewService(notConfigured{}, digestUC.Caches{}, cfg, digestUC.WithClock(func() time.Time { return now }))

	rec := serve(t, svc, "/digest/horoscope")
	require.Equal(t, http.StatusOK, rec.Code)
	horo := decode[map[string]HoroscopeDTO](t, rec)
	require.Len(t, horo, len(entity.Constellations))
	for key, dto := range horo {
		assert.Equal(t, "degraded", dto.Status, key)
		assert.Equal(t, "not_configured", dto.Reason, key)
		assert.Equal(t, entity.TextNotConfigured, dto.Content, key)
	}

	rec = serve(t, svc, "/digest/quote")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "服务器API Key未配置", decode[respond.ErrorBody](t, rec).Error)

	rec = serve(t, svc, "/digest/status")
	assert.JSONEq(t, `{"configured":false,"day":"2024-03-05"}`, rec.Body.String())

	rec = serve(t, svc, "/digest/image")
	assert.Equal(t, http.StatusOK, rec.Code)
}
