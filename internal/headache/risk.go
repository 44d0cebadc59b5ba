// Package headache classifies barometric pressure and weather into a
// three-tier headache risk verdict.
//
// Classify is pure: it performs no I/O and keeps no state, so it is safe to
// call concurrently from any number of goroutines.
package headache

import (
	"fmt"

	"github.com/i474232898/headache-forecast/internal/common"
)

// Pressure thresholds in hPa. 1013 approximates standard sea-level pressure.
const (
	LowPressureHpa      = 1000.0
	StandardPressureHpa = 1013.0
)

// Substrings of a weather description that indicate rain or clouds.
var badWeatherIndicators = []string{"雨", "曇"}

// Level is an ordered headache risk level: LevelLow < LevelMedium < LevelHigh.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Label returns the user-facing label of the level.
func (l Level) Label() string {
	switch l {
	case LevelMedium:
		return "中程度"
	case LevelHigh:
		return "高い"
	default:
		return "低い"
	}
}

// SeverityTag returns the styling tag bound to the level.
func (l Level) SeverityTag() string {
	return "risk-" + l.String()
}

// Icon returns the emoji shown next to the level.
func (l Level) Icon() string {
	switch l {
	case LevelMedium:
		return "😐"
	case LevelHigh:
		return "😖"
	default:
		return "😊"
	}
}

// MarshalText encodes the level as its String form.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText accepts the String form produced by MarshalText.
func (l *Level) UnmarshalText(b []byte) error {
	switch string(b) {
	case "low":
		*l = LevelLow
	case "medium":
		*l = LevelMedium
	case "high":
		*l = LevelHigh
	default:
		return fmt.Errorf("unknown risk level %q", string(b))
	}
	return nil
}

// Verdict is the outcome of a single classification.
type Verdict struct {
	Level       Level  `json:"severity"`
	Label       string `json:"level"`
	Forecast    string `json:"forecast"`
	Advice      string `json:"advice"`
	Icon        string `json:"icon"`
	SeverityTag string `json:"class"`
}

type message struct {
	forecast string
	advice   string
}

var (
	pressureMessages = map[Level]message{
		LevelHigh: {
			forecast: "気圧が低く、頭痛が起こりやすい状態です。",
			advice:   "水分をこまめに取り、無理な外出は控えましょう。頭痛薬を携帯し、症状が出たらすぐに服用することをおすすめします。",
		},
		LevelMedium: {
			forecast: "気圧がやや低く、頭痛の可能性があります。",
			advice:   "疲労を溜めないよう休息を取り、水分補給を忘れずに行いましょう。",
		},
		LevelLow: {
			forecast: "気圧が安定しており、頭痛のリスクは低めです。",
			advice:   "普段通りの生活を心がけ、十分な睡眠と水分補給を意識しましょう。",
		},
	}

	// keyed by the escalated level
	badWeatherMessages = map[Level]message{
		LevelMedium: {
			forecast: "天気が悪く、頭痛の可能性があります。",
			advice:   "急な天候の変化に注意し、こまめに休憩を取りましょう。",
		},
		LevelHigh: {
			forecast: "天気が悪く、気圧も不安定で頭痛リスクが高い状態です。",
			advice:   "外出はなるべく控え、室内で過ごすことをおすすめします。頭痛薬を携帯しておきましょう。",
		},
	}
)

// PressureLevel returns the risk level implied by pressure alone.
func PressureLevel(pressureHpa float64) Level {
	switch {
	case pressureHpa < LowPressureHpa:
		return LevelHigh
	case pressureHpa < StandardPressureHpa:
		return LevelMedium
	default:
		return LevelLow
	}
}

// IsBadWeather reports whether condition mentions rain or clouds.
func IsBadWeather(condition string) bool {
	return common.HasAny(condition, badWeatherIndicators...)
}

// Classify maps a pressure reading and a weather description to a Verdict.
// Rain or clouds raise a Low or Medium pressure level by exactly one tier;
// High stays High with its pressure texts. An empty condition never escalates.
func Classify(pressureHpa float64, condition string) Verdict {
	level := PressureLevel(pressureHpa)
	msg := pressureMessages[level]

	if level < LevelHigh && IsBadWeather(condition) {
		level++
		msg = badWeatherMessages[level]
	}

	return Verdict{
		Level:       level,
		Label:       level.Label(),
		Forecast:    msg.forecast,
		Advice:      msg.advice,
		Icon:        level.Icon(),
		SeverityTag: level.SeverityTag(),
	}
}
