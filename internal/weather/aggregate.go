package weather

import (
	"time"

	"github.com/i474232898/headache-forecast/internal/common"
)

const dayLayout = "2006-01-02"

// AggregateDay reduces the samples of one day into a DailySummary.
// It returns nil when samples is empty.
//
// Temperatures are rounded to one decimal and the average pressure to a whole
// hPa. The representative condition is the most frequent one; ties go to the
// condition seen first.
func AggregateDay(samples []ForecastSample) *DailySummary {
	if len(samples) == 0 {
		return nil
	}

	maxTemp := samples[0].MaxTemperatureC
	minTemp := samples[0].MinTemperatureC

	var sumPressure float64

	// order keeps first-seen order for the tie-break.
	counts := make(map[string]int)
	var order []string

	for _, s := range samples {
		if s.MaxTemperatureC > maxTemp {
			maxTemp = s.MaxTemperatureC
		}
		if s.MinTemperatureC < minTemp {
			minTemp = s.MinTemperatureC
		}

		sumPressure += s.PressureHpa

		if _, seen := counts[s.Condition]; !seen {
			order = append(order, s.Condition)
		}
		counts[s.Condition]++
	}

	bestCond := ""
	bestCount := 0
	for _, cond := range order {
		if counts[cond] > bestCount {
			bestCount = counts[cond]
			bestCond = cond
		}
	}

	// A sample may report min above its own max; keep the summary ordered.
	if minTemp > maxTemp {
		minTemp, maxTemp = maxTemp, minTemp
	}

	return &DailySummary{
		RepresentativeCondition: bestCond,
		MaxTemperatureC:         common.Round1(maxTemp),
		MinTemperatureC:         common.Round1(minTemp),
		AveragePressureHpa:      int(common.RoundHalfUp(sumPressure / float64(len(samples)))),
	}
}

// SplitDays buckets samples into those dated today and tomorrow relative to
// now. Dates are compared in UTC, the forecast source's reporting timezone.
// Input order is preserved within each bucket.
func SplitDays(samples []ForecastSample, now time.Time) (today, tomorrow []ForecastSample) {
	todayKey := now.UTC().Format(dayLayout)
	tomorrowKey := now.UTC().AddDate(0, 0, 1).Format(dayLayout)

	for _, s := range samples {
		switch s.Time.UTC().Format(dayLayout) {
		case todayKey:
			today = append(today, s)
		case tomorrowKey:
			tomorrow = append(tomorrow, s)
		}
	}
	return today, tomorrow
}

// BuildDayForecast aggregates today's and tomorrow's samples independently.
func BuildDayForecast(samples []ForecastSample, now time.Time) DayForecast {
	todaySamples, tomorrowSamples := SplitDays(samples, now)

	fc := DayForecast{
		Today:    AggregateDay(todaySamples),
		Tomorrow: AggregateDay(tomorrowSamples),
	}
	if fc.Today != nil {
		fc.Today.Date = now.UTC().Format(dayLayout)
	}
	if fc.Tomorrow != nil {
		fc.Tomorrow.Date = now.UTC().AddDate(0, 0, 1).Format(dayLayout)
	}
	return fc
}
