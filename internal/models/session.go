package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Session represents one trading session, from pre-session check-in to reflection.
type Session struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	Date            time.Time     `json:"date"`
	StartedAt       time.Time     `json:"started_at"`
	EndedAt         *time.Time    `json:"ended_at,omitempty"`
	Status          SessionStatus `json:"status"`
	PreSession      PreSession    `json:"pre_session"`
	PostSession     *PostSession  `json:"post_session,omitempty"`
	DisciplineScore *int          `json:"discipline_score,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// DateKey returns the session's calendar date as YYYY-MM-DD.
func (s Session) DateKey() string {
	return DateKey(s.Date)
}

// Completed reports whether the session has been ended.
func (s Session) Completed() bool {
	return s.Status == SessionCompleted
}

// PreSession is the check-in document captured when a session starts.
// Unknown keys of the stored document are kept in Extra.
type PreSession struct {
	SleepRating    int            `json:"sleepRating,omitempty" mapstructure:"sleepRating"`
	StressLevel    int            `json:"stressLevel,omitempty" mapstructure:"stressLevel"`
	FocusRating    int            `json:"focusRating,omitempty" mapstructure:"focusRating"`
	WellnessNotes  string         `json:"wellnessNotes,omitempty" mapstructure:"wellnessNotes"`
	PlannedSetups  string         `json:"plannedSetups,omitempty" mapstructure:"plannedSetups"`
	MaxTrades      int            `json:"maxTrades,omitempty" mapstructure:"maxTrades"`
	MaxLoss        *float64       `json:"maxLoss,omitempty" mapstructure:"maxLoss"`
	RulesConfirmed bool           `json:"rulesConfirmed" mapstructure:"rulesConfirmed"`
	Extra          map[string]any `json:"-" mapstructure:",remain"`
}

// PostSession is the reflection document captured when a session ends.
// Unknown keys of the stored document are kept in Extra.
type PostSession struct {
	PlanFollowedRating     int            `json:"planFollowedRating,omitempty" mapstructure:"planFollowedRating"`
	EmotionalControlRating int            `json:"emotionalControlRating,omitempty" mapstructure:"emotionalControlRating"`
	WhatWentWell           string         `json:"whatWentWell,omitempty" mapstructure:"whatWentWell"`
	WhatToImprove          string         `json:"whatToImprove,omitempty" mapstructure:"whatToImprove"`
	TomorrowFocus          string         `json:"tomorrowFocus,omitempty" mapstructure:"tomorrowFocus"`
	Extra                  map[string]any `json:"-" mapstructure:",remain"`
}

// DecodePreSession reads a pre-session document. Absent keys stay at their
// zero value; numeric strings and floats are coerced. A known key whose
// value cannot be converted leaves its field at zero and is kept in Extra.
func DecodePreSession(doc map[string]any) (PreSession, error) {
	p, rejected, err := decodeDocument[PreSession](doc)
	if err != nil {
		return PreSession{}, fmt.Errorf("decoding pre-session: %w", err)
	}
	p.Extra = withExtra(p.Extra, rejected)
	return p, nil
}

// DecodePostSession reads a post-session document the same way.
func DecodePostSession(doc map[string]any) (PostSession, error) {
	p, rejected, err := decodeDocument[PostSession](doc)
	if err != nil {
		return PostSession{}, fmt.Errorf("decoding post-session: %w", err)
	}
	p.Extra = withExtra(p.Extra, rejected)
	return p, nil
}

// decodeDocument decodes doc into a T. When the whole document does not
// fit, each key is tried on its own and the keys that fail are returned
// instead of decoded.
func decodeDocument[T any](doc map[string]any) (T, map[string]any, error) {
	var out T
	if doc == nil {
		return out, nil, nil
	}
	if err := decodeInto(doc, &out); err == nil {
		return out, nil, nil
	}

	accepted := make(map[string]any, len(doc))
	rejected := make(map[string]any)
	for k, v := range doc {
		var single T
		if err := decodeInto(map[string]any{k: v}, &single); err != nil {
			rejected[k] = v
			continue
		}
		accepted[k] = v
	}

	out = *new(T)
	if err := decodeInto(accepted, &out); err != nil {
		return out, nil, err
	}
	return out, rejected, nil
}

func decodeInto(doc map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(doc)
}

func withExtra(extra, more map[string]any) map[string]any {
	if len(more) == 0 {
		return extra
	}
	if extra == nil {
		extra = make(map[string]any, len(more))
	}
	for k, v := range more {
		extra[k] = v
	}
	return extra
}

// MarshalJSON writes the known fields and merges back any unknown keys.
func (p PreSession) MarshalJSON() ([]byte, error) {
	type plain PreSession
	return marshalWithExtra(plain(p), p.Extra)
}

// UnmarshalJSON decodes a stored document the way DecodePreSession does.
func (p *PreSession) UnmarshalJSON(data []byte) error {
	doc, err := unmarshalDocument(data)
	if err != nil {
		return err
	}
	decoded, err := DecodePreSession(doc)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// MarshalJSON writes the known fields and merges back any unknown keys.
func (p PostSession) MarshalJSON() ([]byte, error) {
	type plain PostSession
	return marshalWithExtra(plain(p), p.Extra)
}

// UnmarshalJSON decodes a stored document the way DecodePostSession does.
func (p *PostSession) UnmarshalJSON(data []byte) error {
	doc, err := unmarshalDocument(data)
	if err != nil {
		return err
	}
	decoded, err := DecodePostSession(doc)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

func unmarshalDocument(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func marshalWithExtra(known any, extra map[string]any) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var merged map[string]any
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// SleepRatingFromHours converts hours slept into the 1-5 sleep rating.
func SleepRatingFromHours(hours float64) int {
	switch {
	case hours < 5:
		return 1
	case hours < 6:
		return 2
	case hours < 7:
		return 3
	case hours < 8:
		return 4
	default:
		return 5
	}
}
