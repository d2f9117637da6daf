package weather

import "github.com/nhle/daily-digest/internal/model"

// summarize reduces a working set of forecast samples to one summary:
// temperature is the arithmetic mean, condition the most frequent label with
// ties broken by first encounter, and chance of rain the maximum pop across
// samples (0 when the field is absent on all of them). An empty working set
// yields nil.
func summarize(samples []sample) *model.WeatherSummary {
	if len(samples) == 0 {
		return nil
	}

	var (
		tempSum      float64
		chanceOfRain float64
	)

	conditionCounts := make(map[string]int)
	conditionOrder := make([]string, 0, len(samples))

	for _, s := range samples {
		tempSum += s.temperature

		if _, seen := conditionCounts[s.condition]; !seen {
			conditionOrder = append(conditionOrder, s.condition)
		}
		conditionCounts[s.condition]++

		if s.pop != nil && *s.pop > chanceOfRain {
			chanceOfRain = *s.pop
		}
	}

	condition := ""
	bestCount := 0
	for _, label := range conditionOrder {
		if conditionCounts[label] > bestCount {
			bestCount = conditionCounts[label]
			condition = label
		}
	}

	return &model.WeatherSummary{
		Temperature:  tempSum / float64(len(samples)),
		Condition:    condition,
		ChanceOfRain: chanceOfRain,
	}
}
