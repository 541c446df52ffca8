package dictionary

import "strings"

const (
	hangulBase = 0xAC00
	hangulLast = 0xD7A3
	finalCount = 28
	finalRieul = 8
)

// IsHangul reports whether r is a precomposed Hangul syllable.
func IsHangul(r rune) bool { return r >= hangulBase && r <= hangulLast }

// HangulOnly reports whether s is non-empty and made of Hangul syllables only.
func HangulOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !IsHangul(r) {
			return false
		}
	}
	return true
}

// HasFinalConsonant reports whether the syllable r closes with a final consonant (batchim).
func HasFinalConsonant(r rune) bool {
	if !IsHangul(r) {
		return false
	}
	return (r-hangulBase)%finalCount != 0
}

func finalIndex(r rune) int {
	if !IsHangul(r) {
		return 0
	}
	return int((r - hangulBase) % finalCount)
}

// finals maps a final consonant index to its compatibility jamo.
var finals = []rune("\x00ㄱㄲㄳㄴㄵㄶㄷㄹㄺㄻㄼㄽㄾㄿㅀㅁㅂㅄㅅㅆㅇㅈㅊㅋㅌㅍㅎ")

// FinalConsonant returns the final consonant of syllable r as a
// compatibility jamo, or 0 for open syllables and non-Hangul runes.
func FinalConsonant(r rune) rune {
	i := finalIndex(r)
	if i == 0 {
		return 0
	}
	return finals[i]
}

// particles that only follow an open syllable
var vowelParticles = map[string]bool{
	"가": true, "는": true, "를": true, "와": true, "로": true, "로서": true,
	"로써": true, "로부터": true, "로는": true, "로도": true, "라고": true,
	"란": true, "랑": true, "나": true, "야": true, "여": true, "라도": true,
}

// particles that only follow a closed syllable
var consonantParticles = map[string]bool{
	"이": true, "은": true, "을": true, "과": true, "으로": true, "으로서": true,
	"으로써": true, "으로부터": true, "으로는": true, "으로도": true, "이라고": true,
	"이란": true, "이랑": true, "이나": true, "아": true, "이여": true, "이라도": true,
}

// ParticleAttaches reports whether particle may follow a stem whose last
// syllable is last. Particles outside the allomorph tables fit any stem.
func ParticleAttaches(last rune, particle string) bool {
	if particle == "" {
		return false
	}
	if HasFinalConsonant(last) {
		if vowelParticles[particle] {
			// ㄹ-final stems take the 로 forms.
			return finalIndex(last) == finalRieul && strings.HasPrefix(particle, "로")
		}
		return true
	}
	return !consonantParticles[particle]
}
