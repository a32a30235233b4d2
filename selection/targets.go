// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package selection

import (
	"math"
	"sort"

	"github.com/testero/testero-api/blueprint"
)

// DomainTargets splits total questions across the blueprint using the
// largest remainder method. Each domain starts at floor(weight*total),
// capped at its availability. Remaining slots go first to domains with
// the largest fractional remainders, then to whichever domains still have
// spare capacity (most capacity first, then highest weight).
//
// The result never assigns more than a domain has available, so the sum
// can fall short of total when the pool is too small.
func DomainTargets(bp blueprint.Blueprint, total int, availability map[string]int) map[string]int {
	targets := make(map[string]int, len(bp))
	if total <= 0 {
		for _, d := range bp {
			targets[d.Code] = 0
		}
		return targets
	}

	type remainder struct {
		code  string
		value float64
	}
	var remainders, all []remainder

	allocated := 0
	for _, d := range bp {
		raw := d.Weight * float64(total)
		floor := math.Floor(raw)
		frac := raw - floor

		available := availability[d.Code]
		capped := min(int(floor), available)

		targets[d.Code] = capped
		allocated += capped
		all = append(all, remainder{code: d.Code, value: frac})

		if frac > 0 && capped < available {
			remainders = append(remainders, remainder{code: d.Code, value: frac})
		}
	}

	// Weights that sum above 1.0 can push the floors past total for large
	// totals. Take the surplus back from the smallest remainders.
	if allocated > total {
		sort.SliceStable(all, func(i, j int) bool {
			return all[i].value < all[j].value
		})
		for allocated > total {
			trimmed := false
			for _, r := range all {
				if allocated == total {
					break
				}
				if targets[r.code] > 0 {
					targets[r.code]--
					allocated--
					trimmed = true
				}
			}
			if !trimmed {
				break
			}
		}
		return targets
	}

	remaining := total - allocated
	if remaining <= 0 {
		return targets
	}

	sort.SliceStable(remainders, func(i, j int) bool {
		return remainders[i].value > remainders[j].value
	})
	for i := 0; i < remaining && i < len(remainders); i++ {
		code := remainders[i].code
		if targets[code] < availability[code] {
			targets[code]++
			allocated++
		}
	}

	if allocated >= total {
		return targets
	}

	// Fallback: hand out single slots to anything with room, including
	// domains that exist in the pool but not in the blueprint.
	codes := make([]string, 0, len(availability))
	for code, available := range availability {
		if targets[code] < available {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	sort.SliceStable(codes, func(i, j int) bool {
		ci := availability[codes[i]] - targets[codes[i]]
		cj := availability[codes[j]] - targets[codes[j]]
		if ci != cj {
			return ci > cj
		}
		return bp.Weight(codes[i]) > bp.Weight(codes[j])
	})

	stillRemaining := total - allocated
	for i := 0; i < stillRemaining && i < len(codes); i++ {
		targets[codes[i]]++
	}

	return targets
}

// EvenDistribution splits total questions evenly across codes. The base
// share is floor(total/len(codes)) capped at availability; the remainder is
// handed out round-robin to domains with room, and anything still left
// goes to the domains with the most spare capacity.
func EvenDistribution(total int, codes []string, availability map[string]int) map[string]int {
	targets := make(map[string]int, len(codes))
	if len(codes) == 0 || total <= 0 {
		for _, code := range codes {
			targets[code] = 0
		}
		return targets
	}

	base := total / len(codes)
	rem := total % len(codes)

	for _, code := range codes {
		targets[code] = min(base, availability[code])
	}

	remaining := rem
	for i := 0; remaining > 0 && i < len(codes)*2; i++ {
		code := codes[i%len(codes)]
		if targets[code] < availability[code] {
			targets[code]++
			remaining--
		}
	}

	if remaining > 0 {
		type spare struct {
			code     string
			capacity int
		}
		var withRoom []spare
		for _, code := range codes {
			if c := availability[code] - targets[code]; c > 0 {
				withRoom = append(withRoom, spare{code: code, capacity: c})
			}
		}
		sort.SliceStable(withRoom, func(i, j int) bool {
			return withRoom[i].capacity > withRoom[j].capacity
		})
		for i := 0; i < remaining && i < len(withRoom); i++ {
			targets[withRoom[i].code]++
		}
	}

	return targets
}

// orderedCodes returns blueprint codes first, then any other target codes
// with a non-zero target in lexical order.
func orderedCodes(bp blueprint.Blueprint, targets map[string]int) []string {
	seen := make(map[string]bool, len(bp))
	out := make([]string, 0, len(targets))
	for _, d := range bp {
		out = append(out, d.Code)
		seen[d.Code] = true
	}

	var extra []string
	for code, n := range targets {
		if !seen[code] && n > 0 {
			extra = append(extra, code)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
