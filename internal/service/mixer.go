package service

import (
	"sort"

	"github.com/scholarnet/reco/internal/models"
)

// Mixer merges per-type ranked lists into one feed. Slot allocation is
// proportional to each type's total score mass, settled with largest
// remainders so quotas always sum to the limit. The same inputs always
// produce the same output: ties break on type name, then on rank.
type Mixer struct{}

// NewMixer creates a Mixer.
func NewMixer() *Mixer {
	return &Mixer{}
}

type mixSource struct {
	itemType models.ItemType
	items    []models.RecommendationScore
	mass     float64
	quota    int
	next     int
}

// Mix merges the ranked lists in byType into a single feed of at most limit
// items. Each list must already be sorted by descending score. Duplicate
// (type, id) pairs are dropped, first occurrence wins. When one type cannot
// fill its quota the spare slots go to the others in score order.
func (m *Mixer) Mix(byType map[models.ItemType][]models.RecommendationScore, limit int) []models.RecommendationScore {
	if limit <= 0 {
		return nil
	}

	sources := make([]*mixSource, 0, len(byType))

	for itemType, items := range byType {
		items = dedupe(items)
		if len(items) == 0 {
			continue
		}

		src := &mixSource{itemType: itemType, items: items}
		for _, it := range items {
			src.mass += it.Score
		}

		sources = append(sources, src)
	}

	if len(sources) == 0 {
		return nil
	}

	// Map iteration order must not leak into the output.
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].itemType < sources[j].itemType
	})

	allocateQuotas(sources, limit)

	out := make([]models.RecommendationScore, 0, limit)

	// Interleave by head score within quotas, so the feed leads with the
	// strongest items regardless of type.
	for len(out) < limit {
		best := pickNext(sources, true)
		if best == nil {
			break
		}

		out = append(out, best.items[best.next])
		best.next++
	}

	// Fill pass: quotas exhausted by a short list free up slots for the rest.
	for len(out) < limit {
		best := pickNext(sources, false)
		if best == nil {
			break
		}

		out = append(out, best.items[best.next])
		best.next++
	}

	return out
}

// allocateQuotas splits limit slots across sources proportionally to score
// mass, assigning leftover slots by largest fractional remainder (type-name
// order on remainder ties). A source never gets more slots than items.
func allocateQuotas(sources []*mixSource, limit int) {
	var totalMass float64
	for _, src := range sources {
		totalMass += src.mass
	}

	type fraction struct {
		src  *mixSource
		frac float64
	}

	fracs := make([]fraction, 0, len(sources))
	assigned := 0

	for _, src := range sources {
		share := float64(limit) / float64(len(sources))
		if totalMass > 0 {
			share = float64(limit) * src.mass / totalMass
		}

		src.quota = int(share)
		assigned += src.quota
		fracs = append(fracs, fraction{src: src, frac: share - float64(src.quota)})
	}

	sort.SliceStable(fracs, func(i, j int) bool {
		if fracs[i].frac != fracs[j].frac {
			return fracs[i].frac > fracs[j].frac
		}

		return fracs[i].src.itemType < fracs[j].src.itemType
	})

	for i := 0; assigned < limit && len(fracs) > 0; i = (i + 1) % len(fracs) {
		fracs[i].src.quota++
		assigned++
	}

	for _, src := range sources {
		if src.quota > len(src.items) {
			src.quota = len(src.items)
		}
	}
}

// pickNext returns the source whose next item has the highest score, honoring
// quotas when enforceQuota is set. Score ties break on type name.
func pickNext(sources []*mixSource, enforceQuota bool) *mixSource {
	var best *mixSource

	for _, src := range sources {
		if src.next >= len(src.items) {
			continue
		}

		if enforceQuota && src.next >= src.quota {
			continue
		}

		if best == nil || src.items[src.next].Score > best.items[best.next].Score {
			best = src
		}
	}

	return best
}

func dedupe(items []models.RecommendationScore) []models.RecommendationScore {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]

	for _, it := range items {
		k := string(it.ItemType) + ":" + it.ItemID
		if _, dup := seen[k]; dup {
			continue
		}

		seen[k] = struct{}{}

		out = append(out, it)
	}

	return out
}
