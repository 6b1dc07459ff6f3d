package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"gopkg.in/yaml.v3"

	"daily-digest/internal/client/poller"
	"daily-digest/internal/domain/entity"
	digesthttp "daily-digest/internal/handler/http/digest"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

var (
	titleColor    = color.New(color.FgCyan, color.Bold)
	successColor  = color.New(color.FgGreen)
	degradedColor = color.New(color.FgYellow)
	failedColor   = color.New(color.FgRed, color.Bold)
)

// horoscopeView is one category in machine-readable output.
type horoscopeView struct {
	Key          string `json:"key" yaml:"key"`
	Name         string `json:"name" yaml:"name"`
	Content      string `json:"content" yaml:"content"`
	ForecastDate string `json:"forecastDate" yaml:"forecastDate"`
	Status       string `json:"status" yaml:"status"`
	Reason       string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

type quoteView struct {
	Content string `json:"content" yaml:"content"`
	Author  string `json:"author" yaml:"author"`
}

// countdownView is the number of days until one payday.
type countdownView struct {
	DayOfMonth int `json:"dayOfMonth" yaml:"dayOfMonth"`
	Days       int `json:"days" yaml:"days"`
}

// view is the rendered digest.
type view struct {
	Day        string          `json:"day" yaml:"day"`
	Configured bool            `json:"configured" yaml:"configured"`
	Lunar      string          `json:"lunar,omitempty" yaml:"lunar,omitempty"`
	Quote      *quoteView      `json:"quote,omitempty" yaml:"quote,omitempty"`
	Horoscopes []horoscopeView `json:"horoscopes" yaml:"horoscopes"`
	Countdown  []countdownView `json:"countdown,omitempty" yaml:"countdown,omitempty"`
	Errors     []string        `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// countdown is empty when day does not parse.
func countdown(day entity.Day) []countdownView {
	var out []countdownView
	for _, target := range entity.PaydayTargets {
		n, err := entity.DaysUntil(day, target)
		if err != nil {
			return nil
		}
		out = append(out, countdownView{DayOfMonth: target, Days: n})
	}
	return out
}

func toHoroscopeView(key string, d digesthttp.HoroscopeDTO) horoscopeView {
	return horoscopeView{
		Key:          key,
		Name:         d.Name,
		Content:      d.Content,
		ForecastDate: d.ForecastDate,
		Status:       d.Status,
		Reason:       d.Reason,
	}
}

// buildView selects what to render from st. With all set every category is
// listed in table order; otherwise only the selected one.
func buildView(st poller.State, selected digesthttp.HoroscopeDTO, hasSelection, all bool) view {
	v := view{
		Day:        st.Day.String(),
		Configured: st.Configured,
		Horoscopes: []horoscopeView{},
		Countdown:  countdown(st.Day),
		Errors:     st.Errors,
	}
	if st.Lunar != nil {
		v.Lunar = st.Lunar.Text
	}
	if st.Quote != nil {
		v.Quote = &quoteView{Content: st.Quote.Content, Author: st.Quote.Author}
	}

	switch {
	case all && st.Horoscopes != nil:
		for _, c := range entity.Constellations {
			if d, ok := st.Horoscopes[c.APIKey]; ok {
				v.Horoscopes = append(v.Horoscopes, toHoroscopeView(c.APIKey, d))
			}
		}
	case hasSelection:
		v.Horoscopes = append(v.Horoscopes, toHoroscopeView(st.Selected, selected))
	}
	return v
}

func render(w io.Writer, format string, v view) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return renderText(w, v)
	}
}

func statusLabel(h horoscopeView) string {
	switch {
	case h.Status == string(entity.KindSuccess):
		return successColor.Sprint("ok")
	case h.Reason == string(entity.ReasonNotConfigured):
		return failedColor.Sprint(h.Reason)
	case h.Reason != "":
		return degradedColor.Sprint(h.Reason)
	default:
		return degradedColor.Sprint(h.Status)
	}
}

func renderText(w io.Writer, v view) error {
	title := "Daily digest"
	if v.Day != "" {
		title += " " + v.Day
	}
	if _, err := titleColor.Fprintln(w, title); err != nil {
		return err
	}
	if v.Lunar != "" {
		fmt.Fprintf(w, "\n%s\n%s\n", titleColor.Sprint("黄历"), v.Lunar)
	}
	if v.Quote != nil {
		fmt.Fprintf(w, "\n%s\n%s  —— %s\n", titleColor.Sprint("每日一句"), v.Quote.Content, v.Quote.Author)
	}

	if len(v.Horoscopes) > 0 {
		fmt.Fprintf(w, "\n%s\n", titleColor.Sprint("星座运势"))
		table := tablewriter.NewWriter(w)
		table.Header([]string{"Key", "Name", "Date", "Status", "Forecast"})
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignLeft
		})
		var rows [][]string
		for _, h := range v.Horoscopes {
			rows = append(rows, []string{h.Key, h.Name, h.ForecastDate, statusLabel(h), h.Content})
		}
		if err := table.Bulk(rows); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if len(v.Countdown) > 0 {
		fmt.Fprintf(w, "\n%s\n", titleColor.Sprint("摸鱼倒计时"))
		for _, c := range v.Countdown {
			fmt.Fprintf(w, "距 %d日发工资: %d 天\n", c.DayOfMonth, c.Days)
		}
	}

	for _, line := range v.Errors {
		if _, err := failedColor.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
