package kofilter

func isASCIIAlnum(r rune) bool {
	return r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z'
}

// bigrams splits text into overlapping two-character windows. A run of ASCII
// letters and digits is kept whole together with the character after it.
func bigrams(text string, offset int) []IndexTerm {
	r := []rune(text)
	n := len(r)
	if n < 2 {
		return nil
	}

	var out []IndexTerm
	for pos := 0; pos < n-1; {
		inc := 1
		if pos == 0 {
			inc = 0
		}
		if isASCIIAlnum(r[pos]) {
			end := pos
			for end < n && isASCIIAlnum(r[end]) {
				end++
			}
			if end < n {
				end++
			}
			out = append(out, IndexTerm{Text: string(r[pos:end]), Start: offset + pos, Increment: inc})
			pos = end
			continue
		}
		out = append(out, IndexTerm{Text: string(r[pos : pos+2]), Start: offset + pos, Increment: inc})
		pos++
	}
	return out
}

func (e *Extractor) addBigrams(m *emissionMap, text string, offset int) {
	for _, t := range bigrams(text, offset) {
		m.add(t)
	}
}
