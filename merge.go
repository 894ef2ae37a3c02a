package abstractcluster

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// OverlapMerger removes terms subsumed by a longer term with the same
// support and caps the result.
type OverlapMerger struct {
	Cap int
}

// Merge returns the surviving terms ranked by score. Running Merge on its
// own output returns it unchanged.
func (m OverlapMerger) Merge(terms []Term) []Term {
	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(t.Text)
	}

	out := make([]Term, 0, len(terms))
	for i, a := range terms {
		if utf8.RuneCountInString(a.Text) <= 1 {
			continue
		}
		dominated := false
		for j, b := range terms {
			if i != j && subsumes(b, a, lowered[j], lowered[i]) {
				dominated = true
				break
			}
		}
		if !dominated {
			out = append(out, a)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if m.Cap > 0 && len(out) > m.Cap {
		out = out[:m.Cap]
	}
	return out
}

// subsumes reports whether b makes a redundant. Ties between texts equal
// up to case keep the longer text, then the lexically smaller one.
func subsumes(b, a Term, lowerB, lowerA string) bool {
	if a.Text == b.Text || a.Freq != b.Freq || !strings.Contains(lowerB, lowerA) {
		return false
	}
	if len(b.Text) < len(a.Text) || (len(b.Text) == len(a.Text) && b.Text > a.Text) {
		return false
	}
	return isSubset(a.DocIDs, b.DocIDs) && isSubset(a.ClusterIDs, b.ClusterIDs)
}

func isSubset[T comparable](sub, super []T) bool {
	set := make(map[T]bool, len(super))
	for _, v := range super {
		set[v] = true
	}
	for _, v := range sub {
		if !set[v] {
			return false
		}
	}
	return true
}

// TopTerms returns the first k terms re-ordered by document count, then
// frequency. A negative k is treated as zero.
func TopTerms(terms []Term, k int) []Term {
	k = max(k, 0)
	if len(terms) > k {
		terms = terms[:k]
	}
	top := append([]Term(nil), terms...)
	sort.SliceStable(top, func(i, j int) bool {
		if len(top[i].DocIDs) != len(top[j].DocIDs) {
			return len(top[i].DocIDs) > len(top[j].DocIDs)
		}
		return top[i].Freq > top[j].Freq
	})
	return top
}
