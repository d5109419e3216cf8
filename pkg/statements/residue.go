package statements

import "strings"

var aminoAcids = map[string]string{
	"alanine":       "A",
	"arginine":      "R",
	"asparagine":    "N",
	"aspartate":     "D",
	"aspartic acid": "D",
	"cysteine":      "C",
	"glutamate":     "E",
	"glutamic acid": "E",
	"glutamine":     "Q",
	"glycine":       "G",
	"histidine":     "H",
	"isoleucine":    "I",
	"leucine":       "L",
	"lysine":        "K",
	"methionine":    "M",
	"phenylalanine": "F",
	"proline":       "P",
	"serine":        "S",
	"threonine":     "T",
	"tryptophan":    "W",
	"tyrosine":      "Y",
	"valine":        "V",
	"ala":           "A",
	"arg":           "R",
	"asn":           "N",
	"asp":           "D",
	"cys":           "C",
	"glu":           "E",
	"gln":           "Q",
	"gly":           "G",
	"his":           "H",
	"ile":           "I",
	"leu":           "L",
	"lys":           "K",
	"met":           "M",
	"phe":           "F",
	"pro":           "P",
	"ser":           "S",
	"thr":           "T",
	"trp":           "W",
	"tyr":           "Y",
	"val":           "V",
}

// NormalizeResidue maps amino acid names and three letter codes to the one
// letter code. Anything else is returned unchanged.
func NormalizeResidue(residue string) string {
	r := strings.TrimSpace(residue)
	if len(r) == 1 {
		return strings.ToUpper(r)
	}
	if code, ok := aminoAcids[strings.ToLower(r)]; ok {
		return code
	}
	return r
}
