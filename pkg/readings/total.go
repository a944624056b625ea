package readings

import "github.com/samber/lo"

// TotalRain sums the rain slot over records, missing values counting as 0.
// It must be given the same slice that is returned to the caller.
func TotalRain(records []Record) float64 {
	return lo.SumBy(records, func(r Record) float64 {
		return valueOrZero(r.Rain)
	})
}
