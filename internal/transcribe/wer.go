package transcribe

import (
	"strings"
	"unicode"
)

// WERResult holds the word error rate of a hypothesis against a reference.
type WERResult struct {
	WER           float64 // (Substitutions + Insertions + Deletions) / RefWords
	Substitutions int
	Insertions    int
	Deletions     int
	RefWords      int
}

// ComputeWER scores hypothesis against reference. Both are lowercased,
// stripped of punctuation and split on whitespace first, so transcript
// placeholders and sentence periods do not count as words.
func ComputeWER(reference, hypothesis string) WERResult {
	ref := words(reference)
	hyp := words(hypothesis)
	if len(ref) == 0 {
		return WERResult{}
	}

	// cost[i][j] is the edit distance between ref[:i] and hyp[:j].
	cost := make([][]int, len(ref)+1)
	for i := range cost {
		cost[i] = make([]int, len(hyp)+1)
		cost[i][0] = i
	}
	for j := range cost[0] {
		cost[0][j] = j
	}
	for i := 1; i <= len(ref); i++ {
		for j := 1; j <= len(hyp); j++ {
			sub := cost[i-1][j-1]
			if ref[i-1] != hyp[j-1] {
				sub++
			}
			cost[i][j] = min(sub, cost[i-1][j]+1, cost[i][j-1]+1)
		}
	}

	r := WERResult{RefWords: len(ref)}
	for i, j := len(ref), len(hyp); i > 0 || j > 0; {
		switch {
		case i > 0 && j > 0 && ref[i-1] == hyp[j-1] && cost[i][j] == cost[i-1][j-1]:
			i, j = i-1, j-1
		case i > 0 && j > 0 && cost[i][j] == cost[i-1][j-1]+1:
			r.Substitutions++
			i, j = i-1, j-1
		case i > 0 && cost[i][j] == cost[i-1][j]+1:
			r.Deletions++
			i--
		default:
			r.Insertions++
			j--
		}
	}
	r.WER = float64(r.Substitutions+r.Insertions+r.Deletions) / float64(r.RefWords)
	return r
}

func words(s string) []string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Fields(s)
}
