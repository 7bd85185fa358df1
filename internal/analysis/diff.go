package analysis

import (
	"fmt"
	"math"
	"strings"
)

// SimilarityRatio measures how similar two texts are as a percentage,
// using twice the matched token count over the total token count. 100
// means identical token streams, 0 means nothing in common.
func SimilarityRatio(a, b string) float64 {
	aTokens := strings.Fields(a)
	bTokens := strings.Fields(b)

	total := len(aTokens) + len(bTokens)
	if total == 0 {
		return 100
	}

	matched := lcsLength(aTokens, bTokens)
	ratio := 2 * float64(matched) / float64(total) * 100
	return math.Round(ratio*10) / 10
}

// UnifiedDiff produces a unified-format line diff of the two texts with
// three lines of context per hunk.
func UnifiedDiff(a, b, aName, bName string) []string {
	aLines := strings.Split(a, "\n")
	bLines := strings.Split(b, "\n")

	ops := diffOps(aLines, bLines)

	changed := false
	for _, op := range ops {
		if op.kind != opEqual {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}

	out := []string{
		"--- " + aName,
		"+++ " + bName,
	}
	out = append(out, buildHunks(ops, 3)...)
	return out
}

type opKind int

const (
	opEqual opKind = iota
	opDelete
	opInsert
)

type diffOp struct {
	kind opKind
	text string
	// 1-based positions in the source and target, 0 when absent
	aLine int
	bLine int
}

// diffOps walks the LCS table backwards to produce an edit script.
func diffOps(a, b []string) []diffOp {
	table := lcsTable(a, b)

	var reversed []diffOp
	i, j := len(a), len(b)
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && a[i-1] == b[j-1]:
			reversed = append(reversed, diffOp{kind: opEqual, text: a[i-1], aLine: i, bLine: j})
			i--
			j--
		case j > 0 && (i == 0 || table[i][j-1] >= table[i-1][j]):
			reversed = append(reversed, diffOp{kind: opInsert, text: b[j-1], bLine: j})
			j--
		default:
			reversed = append(reversed, diffOp{kind: opDelete, text: a[i-1], aLine: i})
			i--
		}
	}

	ops := make([]diffOp, len(reversed))
	for k, op := range reversed {
		ops[len(reversed)-1-k] = op
	}
	return ops
}

// buildHunks groups the edit script into hunks carrying context lines.
func buildHunks(ops []diffOp, context int) []string {
	var out []string

	i := 0
	for i < len(ops) {
		// Skip to the next change.
		if ops[i].kind == opEqual {
			i++
			continue
		}

		// Hunk starts up to `context` equal lines before the change.
		start := i - context
		if start < 0 {
			start = 0
		}

		// Extend through subsequent changes separated by at most
		// 2*context equal lines.
		end := i
		equalRun := 0
		for end < len(ops) {
			if ops[end].kind == opEqual {
				equalRun++
				if equalRun > 2*context {
					break
				}
			} else {
				equalRun = 0
			}
			end++
		}
		// Trim trailing context beyond the limit.
		if equalRun > context {
			end -= equalRun - context
		}

		out = append(out, formatHunk(ops[start:end])...)
		i = end
	}

	return out
}

func formatHunk(ops []diffOp) []string {
	aStart, bStart := 0, 0
	aCount, bCount := 0, 0
	for _, op := range ops {
		switch op.kind {
		case opEqual:
			aCount++
			bCount++
		case opDelete:
			aCount++
		case opInsert:
			bCount++
		}
		if aStart == 0 && op.aLine > 0 {
			aStart = op.aLine
		}
		if bStart == 0 && op.bLine > 0 {
			bStart = op.bLine
		}
	}

	lines := []string{fmt.Sprintf("@@ -%d,%d +%d,%d @@", aStart, aCount, bStart, bCount)}
	for _, op := range ops {
		switch op.kind {
		case opEqual:
			lines = append(lines, " "+op.text)
		case opDelete:
			lines = append(lines, "-"+op.text)
		case opInsert:
			lines = append(lines, "+"+op.text)
		}
	}
	return lines
}

// lcsTable fills the classic longest-common-subsequence table.
func lcsTable(a, b []string) [][]int {
	table := make([][]int, len(a)+1)
	for i := range table {
		table[i] = make([]int, len(b)+1)
	}
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else if table[i-1][j] >= table[i][j-1] {
				table[i][j] = table[i-1][j]
			} else {
				table[i][j] = table[i][j-1]
			}
		}
	}
	return table
}

func lcsLength(a, b []string) int {
	// Two rolling rows keep memory linear for long documents.
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
