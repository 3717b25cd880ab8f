package anomaly

// Delta is the percentage change of current against baseline. It returns nil
// when the baseline is missing or zero; a nil delta never counts toward an
// anomaly, so a metric climbing out of nothing is not a regression.
func Delta(current float64, baseline *float64) *float64 {
	if baseline == nil || *baseline == 0 {
		return nil
	}
	d := (current - *baseline) / *baseline * 100
	return &d
}
