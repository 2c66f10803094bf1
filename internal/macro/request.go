package macro

import "encoding/json"

const (
	DefaultSpeed     = 1.0
	MinSpeed         = 0.1
	DefaultLoopCount = 1
	MinIntervalMS    = 5
)

// PlaybackRequest asks the player to replay events.
type PlaybackRequest struct {
	Events    []InputEvent `json:"events"`
	Speed     float64      `json:"playback_speed"`
	LoopCount int          `json:"loop_count"`
	ContextID *string      `json:"context_id,omitempty"`
}

// UnmarshalJSON applies the defaults for absent speed and loop count.
func (r *PlaybackRequest) UnmarshalJSON(data []byte) error {
	type alias PlaybackRequest
	req := alias{Speed: DefaultSpeed, LoopCount: DefaultLoopCount}
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	*r = PlaybackRequest(req)
	return nil
}

// Normalized clamps speed and loop count to their minimums.
func (r PlaybackRequest) Normalized() PlaybackRequest {
	if r.Speed < MinSpeed {
		r.Speed = MinSpeed
	}
	if r.LoopCount < 1 {
		r.LoopCount = 1
	}
	return r
}

// AutoClickRequest configures a periodic click run.
type AutoClickRequest struct {
	Button     Button  `json:"button,omitempty"`
	IntervalMS uint64  `json:"interval_ms"`
	JitterMS   uint64  `json:"jitter_ms,omitempty"`
	Burst      *uint32 `json:"burst,omitempty"`
}

// Normalized fills the default button and clamps the interval.
func (r AutoClickRequest) Normalized() AutoClickRequest {
	if r.Button == "" {
		r.Button = ButtonLeft
	}
	if r.IntervalMS < MinIntervalMS {
		r.IntervalMS = MinIntervalMS
	}
	return r
}

// PlaybackState is the outcome reported when a playback run ends.
type PlaybackState string

const (
	PlaybackFinished PlaybackState = "finished"
	PlaybackStopped  PlaybackState = "stopped"
)

// PlaybackResult is delivered with the playback-finished notification.
type PlaybackResult struct {
	RunID     string        `json:"run_id"`
	ContextID *string       `json:"context_id"`
	State     PlaybackState `json:"state"`
	Applied   int           `json:"applied"`
}

// Status answers query-status.
type Status struct {
	Capturing     bool `json:"recording"`
	BufferedCount int  `json:"buffered_events"`
	AutoClicking  bool `json:"autoclicker_running"`
	Playing       bool `json:"playing"`
}
