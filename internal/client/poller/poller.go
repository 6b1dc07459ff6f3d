package poller

import (
	"context"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"

	"daily-digest/internal/domain/entity"
	digesthttp "daily-digest/internal/handler/http/digest"
	digestUC "daily-digest/internal/usecase/digest"
)

// Texts shown in place of data.
const (
	textLunarNotConfigured = "服务未配置，无法加载农历运势"
	textQuoteNotConfigured = "服务未配置，无法加载名言"
	textBannerNotConfig    = "服务未正确配置或API Key缺失。部分功能可能无法使用。"
	textQuoteFailed        = "今日名言加载失败，请稍后再试。"
	textQuoteNetwork       = "名言加载出错，请检查网络。"
	textLunarNetwork       = "农历运势加载出错"
	textLunarUnavailable   = "无法加载农历数据"
	textHoroscopeNetwork   = "星座运势加载出错 (网络或其他客户端错误)"
	systemAuthor           = "系统提示"
)

// API is the subset of Client the poller uses.
type API interface {
	Status(ctx context.Context) (digestUC.Status, error)
	Lunar(ctx context.Context) (digesthttp.LunarDTO, error)
	Horoscopes(ctx context.Context) (map[string]digesthttp.HoroscopeDTO, error)
	Quote(ctx context.Context) (digesthttp.QuoteDTO, error)
}

// LunarView is what the almanac slot shows. Error is set when Text is a failure message.
type LunarView struct {
	Text  string
	Error string
}

// State is a snapshot of everything the presentation renders.
type State struct {
	LoadingLunar     bool
	LoadingHoroscope bool
	LoadingQuote     bool
	// Retrying is set while Retry re-fetches the horoscope digest.
	Retrying bool

	Configured bool
	Day        entity.Day

	Lunar      *LunarView
	Horoscopes map[string]digesthttp.HoroscopeDTO
	Quote      *digesthttp.QuoteDTO

	// Errors are user-facing lines in the order they happened.
	Errors   []string
	Selected string
}

// InitialLoading is true until lunar has resolved and the other two feeds
// have either resolved or already hold a value.
func (s State) InitialLoading() bool {
	return s.LoadingLunar ||
		(s.LoadingHoroscope && s.Horoscopes == nil) ||
		(s.LoadingQuote && s.Quote == nil)
}

// Error joins the error lines, or returns "" when there are none.
func (s State) Error() string {
	return strings.Join(s.Errors, "\n")
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

// WithClock overrides the time source used when the server day is unknown.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// Poller orchestrates the digest fetches. It is safe for concurrent use.
type Poller struct {
	api    API
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	state State
}

// New creates a Poller. All slots start loading, as nothing has been fetched yet.
func New(api API, opts ...Option) *Poller {
	p := &Poller{
		api:    api,
		logger: slog.Default(),
		now:    time.Now,
		state: State{
			LoadingLunar:     true,
			LoadingHoroscope: true,
			LoadingQuote:     true,
			Configured:       true,
			Selected:         entity.Constellations[0].APIKey,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns a copy of the current state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state
	s.Errors = append([]string(nil), p.state.Errors...)
	if p.state.Horoscopes != nil {
		s.Horoscopes = maps.Clone(p.state.Horoscopes)
	}
	if p.state.Lunar != nil {
		l := *p.state.Lunar
		s.Lunar = &l
	}
	if p.state.Quote != nil {
		q := *p.state.Quote
		s.Quote = &q
	}
	return s
}

func (p *Poller) update(fn func(s *State)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.state)
}

// Refresh checks the server configuration and then fetches lunar, horoscope
// and quote independently. It returns once all three have resolved.
// Failures are recorded in the state, never returned.
func (p *Poller) Refresh(ctx context.Context) {
	status, err := p.api.Status(ctx)
	if err != nil {
		// The feeds report their own failures.
		p.logger.Warn("status check failed, fetching anyway", slog.Any("error", err))
		status = digestUC.Status{Configured: true, Day: entity.DayOf(p.now())}
	}

	if !status.Configured {
		p.applyNotConfigured(status.Day)
		return
	}

	p.update(func(s *State) {
		s.Configured = true
		s.Day = status.Day
		s.Errors = nil
		s.LoadingLunar, s.LoadingHoroscope, s.LoadingQuote = true, true, true
	})

	var wg sync.WaitGroup
	for _, load := range []func(context.Context){p.loadLunar, p.loadHoroscopes, p.loadQuote} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			load(ctx)
		}()
	}
	wg.Wait()
}

// Retry re-fetches the whole horoscope digest. The server has no
// single-category endpoint, so retrying the selected category means
// re-running the full digest request.
func (p *Poller) Retry(ctx context.Context) {
	if !p.State().Configured {
		return
	}
	p.update(func(s *State) { s.Retrying = true })
	p.loadHoroscopes(ctx)
	p.update(func(s *State) { s.Retrying = false })
}

func (p *Poller) applyNotConfigured(day entity.Day) {
	if day == "" {
		day = entity.DayOf(p.now())
	}
	items := make(map[string]digesthttp.HoroscopeDTO, len(entity.Constellations))
	for _, c := range entity.Constellations {
		items[c.APIKey] = digesthttp.HoroscopeDTO{
			Name:         c.DisplayName,
			Content:      entity.TextNotConfigured,
			ForecastDate: day.String(),
			Status:       string(entity.KindDegraded),
			Reason:       string(entity.ReasonNotConfigured),
		}
	}
	p.update(func(s *State) {
		s.Configured = false
		s.Day = day
		s.LoadingLunar, s.LoadingHoroscope, s.LoadingQuote = false, false, false
		s.Lunar = &LunarView{Text: textLunarNotConfigured, Error: entity.TextNotConfigured}
		s.Horoscopes = items
		s.Quote = &digesthttp.QuoteDTO{ID: 0, Content: textQuoteNotConfigured, Author: systemAuthor}
		s.Errors = []string{textBannerNotConfig}
	})
}

func (p *Poller) loadLunar(ctx context.Context) {
	p.update(func(s *State) { s.LoadingLunar = true })
	defer p.update(func(s *State) { s.LoadingLunar = false })

	d, err := p.api.Lunar(ctx)
	if err == nil {
		p.update(func(s *State) { s.Lunar = &LunarView{Text: d.Text} })
		return
	}

	if he, ok := asHTTPError(err); ok {
		detail := he.Message
		if detail == "" {
			detail = "未知错误"
		}
		msg := "农历运势获取失败: " + detail
		p.update(func(s *State) { s.Lunar = &LunarView{Text: msg, Error: msg} })
		return
	}

	p.logger.Error("lunar fetch failed", slog.Any("error", err))
	p.update(func(s *State) {
		s.Lunar = &LunarView{Text: textLunarNetwork, Error: textLunarNetwork}
		s.Errors = append(s.Errors, textLunarUnavailable)
	})
}

func (p *Poller) loadHoroscopes(ctx context.Context) {
	p.update(func(s *State) { s.LoadingHoroscope = true })
	defer p.update(func(s *State) { s.LoadingHoroscope = false })

	items, err := p.api.Horoscopes(ctx)
	if err == nil {
		p.update(func(s *State) { s.Horoscopes = items })
		return
	}

	var line string
	if he, ok := asHTTPError(err); ok {
		line = he.Message
		if line == "" {
			line = "星座运势获取失败 (HTTP " + strconv.Itoa(he.Status) + ")"
		}
	} else {
		line = textHoroscopeNetwork
	}
	p.logger.Error("horoscope fetch failed", slog.Any("error", err))
	p.update(func(s *State) {
		s.Horoscopes = nil
		s.Errors = append(s.Errors, line)
	})
}

func (p *Poller) loadQuote(ctx context.Context) {
	p.update(func(s *State) { s.LoadingQuote = true })
	defer p.update(func(s *State) { s.LoadingQuote = false })

	q, err := p.api.Quote(ctx)
	if err == nil {
		p.update(func(s *State) { s.Quote = &q })
		return
	}

	if he, ok := asHTTPError(err); ok {
		detail := he.Message
		if detail == "" {
			detail = "名言获取API失败 (HTTP " + strconv.Itoa(he.Status) + ")"
		}
		p.update(func(s *State) {
			s.Quote = &digesthttp.QuoteDTO{Content: textQuoteFailed, Author: systemAuthor}
			s.Errors = append(s.Errors, "名言加载失败: "+detail)
		})
		return
	}

	p.logger.Error("quote fetch failed", slog.Any("error", err))
	p.update(func(s *State) {
		s.Quote = &digesthttp.QuoteDTO{Content: textQuoteNetwork, Author: systemAuthor}
		s.Errors = append(s.Errors, "名言加载出错: "+err.Error())
	})
}

// Select makes key the selected category and returns its detail.
// It never calls the server. A key absent from a loaded digest yields a
// local "not loaded" placeholder; ok is false while no digest is loaded.
func (p *Poller) Select(key string) (digesthttp.HoroscopeDTO, bool) {
	p.update(func(s *State) { s.Selected = key })
	return p.Selection()
}

// SelectByBirthday selects the category whose date range contains month/day.
func (p *Poller) SelectByBirthday(month, day int) (digesthttp.HoroscopeDTO, bool) {
	return p.Select(entity.LookupConstellation(month, day).APIKey)
}

// Selection returns the detail of the selected category.
func (p *Poller) Selection() (digesthttp.HoroscopeDTO, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.state
	if s.Horoscopes == nil {
		return digesthttp.HoroscopeDTO{}, false
	}
	if item, ok := s.Horoscopes[s.Selected]; ok {
		return item, true
	}

	name := s.Selected
	if c, ok := entity.FindConstellation(s.Selected); ok {
		name = c.DisplayName
	}
	day := s.Day
	if day == "" {
		day = entity.DayOf(p.now())
	}
	return digesthttp.HoroscopeDTO{
		Name:         name,
		Content:      entity.TextNotLoaded,
		ForecastDate: day.String(),
		Status:       string(entity.KindDegraded),
		Reason:       string(entity.ReasonUnavailable),
	}, true
}
