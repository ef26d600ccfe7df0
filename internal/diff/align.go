package diff

import "sort"

// The aligner computes an edit script between two normalized token
// sequences by recursive longest-matching-block decomposition: find the
// longest common contiguous run, then recurse on the ranges to its left
// and right. No frequency-based junk suppression is applied; handwriting
// vocabularies are short and every token is significant. When several
// longest blocks tie, the one starting earliest in the first sequence
// wins.

type opTag int

const (
	tagEqual opTag = iota
	tagReplace
	tagDelete
	tagInsert
)

// opcode names a contiguous half-open range in each sequence. The opcodes
// for a pair of sequences cover both completely and disjointly, in
// left-to-right order.
type opcode struct {
	tag            opTag
	i1, i2, j1, j2 int
}

type matchBlock struct {
	a, b, size int
}

// longestMatch finds the longest run of tokens common to a[alo:ahi] and
// b[blo:bhi], using a prefix-index of b for candidate positions.
func longestMatch(a []string, b2j map[string][]int, alo, ahi, blo, bhi int) matchBlock {
	besti, bestj, bestSize := alo, blo, 0
	runLen := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newRunLen := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := runLen[j-1] + 1
			newRunLen[j] = k
			if k > bestSize {
				besti, bestj, bestSize = i-k+1, j-k+1, k
			}
		}
		runLen = newRunLen
	}
	return matchBlock{a: besti, b: bestj, size: bestSize}
}

// matchingBlocks returns the maximal non-overlapping matching runs between
// a and b in ascending order, with adjacent runs merged, terminated by a
// zero-size sentinel at (len(a), len(b)).
func matchingBlocks(a, b []string) []matchBlock {
	b2j := make(map[string][]int, len(b))
	for j, tok := range b {
		b2j[tok] = append(b2j[tok], j)
	}

	type span struct {
		alo, ahi, blo, bhi int
	}
	queue := []span{{0, len(a), 0, len(b)}}
	var matched []matchBlock
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		m := longestMatch(a, b2j, s.alo, s.ahi, s.blo, s.bhi)
		if m.size == 0 {
			continue
		}
		matched = append(matched, m)
		if s.alo < m.a && s.blo < m.b {
			queue = append(queue, span{s.alo, m.a, s.blo, m.b})
		}
		if m.a+m.size < s.ahi && m.b+m.size < s.bhi {
			queue = append(queue, span{m.a + m.size, s.ahi, m.b + m.size, s.bhi})
		}
	}
	sort.Slice(matched, func(i, k int) bool {
		if matched[i].a != matched[k].a {
			return matched[i].a < matched[k].a
		}
		return matched[i].b < matched[k].b
	})

	// Merge runs that ended up adjacent in both sequences.
	merged := make([]matchBlock, 0, len(matched)+1)
	for _, m := range matched {
		if n := len(merged); n > 0 {
			prev := &merged[n-1]
			if prev.a+prev.size == m.a && prev.b+prev.size == m.b {
				prev.size += m.size
				continue
			}
		}
		merged = append(merged, m)
	}
	return append(merged, matchBlock{a: len(a), b: len(b)})
}

// editScript converts the matching blocks for a and b into opcodes
// covering both sequences.
func editScript(a, b []string) []opcode {
	var script []opcode
	i, j := 0, 0
	for _, m := range matchingBlocks(a, b) {
		switch {
		case i < m.a && j < m.b:
			script = append(script, opcode{tagReplace, i, m.a, j, m.b})
		case i < m.a:
			script = append(script, opcode{tagDelete, i, m.a, j, j})
		case j < m.b:
			script = append(script, opcode{tagInsert, i, i, j, m.b})
		}
		i, j = m.a+m.size, m.b+m.size
		if m.size > 0 {
			script = append(script, opcode{tagEqual, m.a, i, m.b, j})
		}
	}
	return script
}
