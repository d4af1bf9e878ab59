package g2p

import (
	"golang.org/x/text/unicode/norm"
)

func normForm(f NormForm) norm.Form {
	switch f {
	case NormNFC:
		return norm.NFC
	case NormNFD:
		return norm.NFD
	case NormNFKC:
		return norm.NFKC
	case NormNFKD:
		return norm.NFKD
	}
	return norm.NFC
}

// normalizeString applies the given normalization form, or returns the
// input untouched for NormNone.
func normalizeString(s string, f NormForm) string {
	if f == NormNone || f == "" {
		return s
	}
	return normForm(f).String(s)
}

// decomposeWithIndices normalizes to NFD or NFKD one rune at a time and
// records which output runes each input rune expanded into.
func decomposeWithIndices(s string, f norm.Form) (string, Alignment) {
	var out []rune
	var indices Alignment
	for i, r := range []rune(s) {
		decomposed := []rune(f.String(string(r)))
		for n := range decomposed {
			indices = append(indices, Arc{i, len(out) + n})
		}
		out = append(out, decomposed...)
	}
	return string(out), indices
}

// composeWithIndices normalizes to NFC or NFKC. Composition does not track
// positions directly, so the mapping is recovered by decomposing both the
// input and the composed result and chaining input->NFD->composed.
func composeWithIndices(s string, composed, decomposed norm.Form) (string, Alignment) {
	result := composed.String(s)
	_, toNFD := decomposeWithIndices(s, decomposed)
	_, resultToNFD := decomposeWithIndices(result, decomposed)
	return result, toNFD.Compose(resultToNFD.Invert())
}

// normalizeWithIndices normalizes s per the requested form and returns the
// alignment from input rune positions to normalized rune positions. For
// NormNone the alignment is the identity.
func normalizeWithIndices(s string, f NormForm) (string, Alignment) {
	switch f {
	case NormNFD:
		return decomposeWithIndices(s, norm.NFD)
	case NormNFKD:
		return decomposeWithIndices(s, norm.NFKD)
	case NormNFC:
		return composeWithIndices(s, norm.NFC, norm.NFD)
	case NormNFKC:
		return composeWithIndices(s, norm.NFKC, norm.NFKD)
	default:
		return s, Identity(len([]rune(s)))
	}
}
