package models

import (
	"fmt"
	"time"
)

// TimeframeDuration returns the length of one candle of the timeframe
func TimeframeDuration(timeframe string) (time.Duration, error) {
	switch timeframe {
	case "1m":
		return time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "30m":
		return 30 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "2h":
		return 2 * time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("unsupported timeframe %q", timeframe)
}

// CandlesForDays estimates how many candles cover the given number of days,
// with a 10% buffer
func CandlesForDays(timeframe string, days int) int {
	d, err := TimeframeDuration(timeframe)
	if err != nil || days <= 0 {
		return 0
	}
	perDay := float64(24*time.Hour) / float64(d)
	return int(perDay * float64(days) * 1.1)
}
