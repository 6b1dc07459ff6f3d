package tianapi

import (
	"encoding/json"
	"errors"
)

// Response codes in the upstream envelope.
const (
	CodeSuccess     = 200
	CodeRateLimited = 130
)

// envelope is the common response wrapper: {code, msg, result?}.
type envelope struct {
	Code   int             `json:"code"`
	Msg    string          `json:"msg"`
	Result json.RawMessage `json:"result"`
}

// LunarResult is the almanac for one day.
type LunarResult struct {
	GregorianDate string `json:"gregoriandate"`
	LunarDate     string `json:"lunardate"`
	Fitness       string `json:"fitness"`
	Taboo         string `json:"taboo"`
}

// StarResult is the forecast list of one constellation for one day.
type StarResult struct {
	List []StarItem `json:"list"`
}

var errMissingList = errors.New("missing list")

// UnmarshalJSON rejects a result without a list. An empty list is valid.
func (r *StarResult) UnmarshalJSON(b []byte) error {
	var raw struct {
		List *[]StarItem `json:"list"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.List == nil {
		return errMissingList
	}
	r.List = *raw.List
	return nil
}

// StarItem is one forecast facet, e.g. the overall summary or the lucky color.
type StarItem struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Date    string `json:"date,omitempty"`
}

// DictumResult holds quotations.
type DictumResult struct {
	List []DictumItem `json:"list"`
}

// DictumItem is one quotation.
type DictumItem struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	MRName  string `json:"mrname"`
}
