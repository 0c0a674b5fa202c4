package suffixarray

// suffixArray sorts the suffixes of t, whose symbols lie in [0, k). The
// empty suffix is included and comes first, so the result has len(t)+1
// entries and result[0] == len(t).
func suffixArray(t []int, k int) []int {
	s := make([]int, len(t)+1)
	for i, c := range t {
		s[i] = c + 1
	}
	return sais(s, k+1)
}

// sais is the induced-sorting construction of Nong, Zhang and Chan. s must
// end with a unique 0 and hold symbols in [0, k).
func sais(s []int, k int) []int {
	n := len(s)
	sa := make([]int, n)
	if n == 1 {
		return sa
	}

	stype := make([]bool, n)
	stype[n-1] = true
	for i := n - 2; i >= 0; i-- {
		stype[i] = s[i] < s[i+1] || (s[i] == s[i+1] && stype[i+1])
	}
	isLMS := func(i int) bool {
		return i > 0 && stype[i] && !stype[i-1]
	}

	bkt := make([]int, k)
	for i := range sa {
		sa[i] = -1
	}
	bucketEnds(s, bkt)
	for i := 1; i < n; i++ {
		if isLMS(i) {
			bkt[s[i]]--
			sa[bkt[s[i]]] = i
		}
	}
	induce(s, sa, stype, bkt)

	// Sorted LMS substrings, then their names in text order.
	lms := make([]int, 0, n/2+1)
	for _, p := range sa {
		if isLMS(p) {
			lms = append(lms, p)
		}
	}
	names := make([]int, n)
	for i := range names {
		names[i] = -1
	}
	name := 0
	for i, p := range lms {
		if i == 0 || !equalLMS(s, stype, isLMS, lms[i-1], p) {
			name++
		}
		names[p] = name - 1
	}
	m := len(lms)
	positions := make([]int, 0, m)
	reduced := make([]int, 0, m)
	for i := 1; i < n; i++ {
		if isLMS(i) {
			positions = append(positions, i)
			reduced = append(reduced, names[i])
		}
	}

	var order []int
	if name < m {
		order = sais(reduced, name)
	} else {
		order = make([]int, m)
		for i, r := range reduced {
			order[r] = i
		}
	}

	for i := range sa {
		sa[i] = -1
	}
	bucketEnds(s, bkt)
	for i := m - 1; i >= 0; i-- {
		p := positions[order[i]]
		bkt[s[p]]--
		sa[bkt[s[p]]] = p
	}
	induce(s, sa, stype, bkt)
	return sa
}

func bucketStarts(s []int, bkt []int) {
	clear(bkt)
	for _, c := range s {
		bkt[c]++
	}
	sum := 0
	for i, c := range bkt {
		bkt[i] = sum
		sum += c
	}
}

func bucketEnds(s []int, bkt []int) {
	clear(bkt)
	for _, c := range s {
		bkt[c]++
	}
	sum := 0
	for i, c := range bkt {
		sum += c
		bkt[i] = sum
	}
}

// induce fills L-type suffixes left to right, then S-type right to left,
// from the LMS suffixes already placed at their bucket ends.
func induce(s, sa []int, stype []bool, bkt []int) {
	bucketStarts(s, bkt)
	for i := 0; i < len(sa); i++ {
		if j := sa[i] - 1; j >= 0 && !stype[j] {
			sa[bkt[s[j]]] = j
			bkt[s[j]]++
		}
	}
	bucketEnds(s, bkt)
	for i := len(sa) - 1; i >= 0; i-- {
		if j := sa[i] - 1; j >= 0 && stype[j] {
			bkt[s[j]]--
			sa[bkt[s[j]]] = j
		}
	}
}

// equalLMS compares the LMS substrings starting at a and b, symbols and
// types, up to and including the next LMS position.
func equalLMS(s []int, stype []bool, isLMS func(int) bool, a, b int) bool {
	n := len(s)
	for d := 0; ; d++ {
		if a+d >= n || b+d >= n {
			return false
		}
		if s[a+d] != s[b+d] || stype[a+d] != stype[b+d] {
			return false
		}
		if d > 0 {
			endA, endB := isLMS(a+d), isLMS(b+d)
			if endA || endB {
				return endA && endB
			}
		}
	}
}
