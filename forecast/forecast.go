// Package forecast projects a daily metric series a few days forward. The
// model is intentionally small: a least-squares trend over the trailing week
// blended with the mean day-over-day growth rate.
package forecast

import (
	"math"
	"time"

	"github.com/funnelmon/funnelmon/civil"
)

const (
	// trailingWindow is how many observed points feed the trend fit.
	trailingWindow = 7
	// trendWeight blends the fitted trend against the growth extrapolation.
	trendWeight  = 0.6
	growthWeight = 0.4
)

// Point is one observed or projected day of a metric.
type Point struct {
	Date       string  `json:"dt"`
	Value      float64 `json:"value"`
	IsForecast bool    `json:"is_forecast"`
}

// Project extends the series by horizon days, continuing from the last
// observed date. Series under the trailing window are projected flat at
// their average. An empty series projects nothing.
func Project(series []Point, horizon int) []Point {
	if len(series) == 0 || horizon <= 0 {
		return []Point{}
	}

	lastDate, err := time.Parse(civil.DateLayout, series[len(series)-1].Date)
	if err != nil {
		return []Point{}
	}
	dateAt := func(i int) string {
		return lastDate.AddDate(0, 0, i).Format(civil.DateLayout)
	}

	if len(series) < trailingWindow {
		var sum float64
		for _, p := range series {
			sum += p.Value
		}
		avg := sum / float64(len(series))

		projections := make([]Point, 0, horizon)
		for i := 1; i <= horizon; i++ {
			projections = append(projections, Point{
				Date:       dateAt(i),
				Value:      math.Round(avg),
				IsForecast: true,
			})
		}
		return projections
	}

	recent := series[len(series)-trailingWindow:]
	values := make([]float64, len(recent))
	for i, p := range recent {
		values[i] = p.Value
	}

	slope, intercept := leastSquares(values)
	growthRate := meanGrowthRate(values)
	lastValue := values[len(values)-1]
	n := float64(len(values))

	projections := make([]Point, 0, horizon)
	for i := 1; i <= horizon; i++ {
		trendValue := intercept + slope*(n+float64(i)-1)
		growthValue := lastValue * (1 + growthRate*float64(i))
		blended := math.Max(0, trendValue*trendWeight+growthValue*growthWeight)
		projections = append(projections, Point{
			Date:       dateAt(i),
			Value:      math.Round(blended),
			IsForecast: true,
		})
	}
	return projections
}

func leastSquares(values []float64) (slope, intercept float64) {
	var sumX, sumY, sumXY, sumX2 float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumX2 += x * x
	}
	n := float64(len(values))
	slope = (n*sumXY - sumX*sumY) / (n*sumX2 - sumX*sumX)
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// meanGrowthRate averages day-over-day relative change, skipping steps with
// a zero base.
func meanGrowthRate(values []float64) float64 {
	var sum float64
	var count int
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		sum += (values[i] - values[i-1]) / values[i-1]
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
