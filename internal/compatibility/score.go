// Package compatibility scores how well two profiles fit together.
//
// The score is always recomputed from the inputs and never stored.
package compatibility

import "math"

// Axes are the five personality traits compared by Score.
var Axes = []string{"openness", "conscientiousness", "extraversion", "agreeableness", "neuroticism"}

// MostCompatibleThreshold is the minimum score (0-100) for the "most compatible" view.
const MostCompatibleThreshold = 80

const (
	interestWeight    = 0.6
	personalityWeight = 0.4
	// neutralPersonality is used when no axis is present on both sides,
	// so missing data is not penalized.
	neutralPersonality = 0.5
)

// Score returns a compatibility score in [0,100].
//
//	interest similarity    = |A ∩ B| / max(1, |A ∪ B|)
//	personality similarity = mean over shared axes of 1 - min(1, |a-b|), or 0.5
//	score                  = round(100 * (0.6*interest + 0.4*personality))
func Score(interestsA []string, personalityA map[string]float64, interestsB []string, personalityB map[string]float64) int {
	raw := interestWeight*Jaccard(interestsA, interestsB) + personalityWeight*PersonalitySimilarity(personalityA, personalityB)
	return int(math.Round(raw * 100))
}

// Jaccard is the Jaccard index over the two interest sets. Duplicates are ignored.
func Jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)

	inter := 0
	for k := range setA {
		if _, ok := setB[k]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union < 1 {
		union = 1
	}
	return float64(inter) / float64(union)
}

// PersonalitySimilarity averages per-axis closeness over the axes that are
// finite on both sides.
func PersonalitySimilarity(a, b map[string]float64) float64 {
	sum, n := 0.0, 0
	for _, axis := range Axes {
		x, okA := a[axis]
		y, okB := b[axis]
		if !okA || !okB || !finite(x) || !finite(y) {
			continue
		}
		sum += 1 - math.Min(1, math.Abs(x-y))
		n++
	}
	if n == 0 {
		return neutralPersonality
	}
	return sum / float64(n)
}

// SharedInterests lists the distinct interests of theirs that also appear in
// mine, in theirs' order.
func SharedInterests(mine, theirs []string) []string {
	set := toSet(mine)
	seen := make(map[string]struct{}, len(theirs))
	shared := make([]string, 0)
	for _, it := range theirs {
		if _, ok := set[it]; !ok {
			continue
		}
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}
		shared = append(shared, it)
	}
	return shared
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
