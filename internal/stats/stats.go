package stats

import (
	"fmt"
	"math"

	"github.com/jeya-sree-2007/feedbackhub-api/internal/models"
)

// Stats is the derived aggregate shown above the feedback list. It is
// recomputed from the full snapshot on every change, never stored.
type Stats struct {
	Average string `json:"average"` // one fraction digit, "0.0" when empty
	Count   int    `json:"count"`
}

// Aggregate folds a review snapshot into Stats. Rows with a zero rating
// do not count toward either the sum or the count.
func Aggregate(reviews []models.Review) Stats {
	total := 0
	count := 0
	for _, r := range reviews {
		if r.Rating != 0 {
			total += r.Rating
			count++
		}
	}
	if count == 0 {
		return Stats{Average: "0.0", Count: 0}
	}
	// exact .x5 ties round up (4.25 -> "4.3"), not to even
	avg := math.Floor(float64(total)/float64(count)*10+0.5) / 10
	return Stats{
		Average: fmt.Sprintf("%.1f", avg),
		Count:   count,
	}
}
