// Package importer reads tariff spreadsheets: tolerant header detection,
// per-row normalization, dry-run preview and the chapter-scoped commit that
// reconciles the catalog against the file.
package importer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CanonicalRow is a spreadsheet row after cleanup. Every consumer of the
// pipeline works from these named fields instead of raw cell slices.
type CanonicalRow struct {
	Line             int
	Capitulo         string
	Partida          string
	Subpartida       string
	Codigo           string
	Descripcion      string
	Gravamen         string
	ICEIEHD          string
	UnidadMedida     string
	DespachoFrontera string
	TipoDocumento    string
	EntidadEmite     string
	DispLegal        string
	CANACE36ACE47Ven string
	ACE22ChiProt     string
	ACE66Mexico      string
}

// cleanCell trims a raw cell value and collapses the sentinel "empty"
// markers the source files use ("-" and the en dash) to the empty string.
func cleanCell(v string) string {
	s := strings.TrimSpace(v)
	if s == "-" || s == "–" {
		return ""
	}
	return s
}

// chapterFromCode derives the two-digit chapter from a code prefix:
// "0101XXXX" -> "01", "SIN02XX" -> "". Both leading characters must be
// digits.
func chapterFromCode(codigo string) string {
	s := strings.TrimSpace(codigo)
	if len(s) < 2 {
		return ""
	}
	if !unicode.IsDigit(rune(s[0])) || !unicode.IsDigit(rune(s[1])) {
		return ""
	}
	return s[:2]
}

// concessionSeparators are tried in priority order when splitting the
// combined two-country concession column.
var concessionSeparators = []string{";", "|", "/", ",", "\n"}

// nonInformativeTokens are single markers ("yes"/"no" leftovers) that carry
// no concession information and are dropped during the split.
var nonInformativeTokens = map[string]struct{}{
	"n": {}, "y": {}, "s": {}, "si": {}, "no": {},
	"0": {}, "1": {}, "yes": {}, "a": {},
}

func cleanConcessionPart(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	if _, bad := nonInformativeTokens[strings.ToLower(s)]; bad {
		return ""
	}
	return s
}

// SplitConcession breaks the combined CHI/PROT concession value into its two
// components. Separators are tried in order; a value with no separator but an
// internal double space splits on that; otherwise the whole string is the
// first component. One usable part yields (first, ""); zero yield ("", "").
func SplitConcession(full string) (string, string) {
	if full == "" {
		return "", ""
	}
	s := strings.TrimSpace(full)

	var parts []string
	for _, sep := range concessionSeparators {
		if strings.Contains(s, sep) {
			for _, p := range strings.Split(s, sep) {
				if t := strings.TrimSpace(p); t != "" {
					parts = append(parts, t)
				}
			}
			break
		}
	}
	if parts == nil && strings.Contains(s, "  ") {
		for _, p := range strings.Split(s, "  ") {
			if t := strings.TrimSpace(p); t != "" {
				parts = append(parts, t)
			}
		}
	}
	if parts == nil {
		parts = []string{s}
	}

	chi, prot := "", ""
	if len(parts) >= 1 {
		chi = cleanConcessionPart(parts[0])
	}
	if len(parts) >= 2 {
		prot = cleanConcessionPart(parts[1])
	}
	if chi == "" && prot != "" {
		return prot, ""
	}
	return chi, prot
}

// JoinConcession is the export-side inverse of SplitConcession.
func JoinConcession(chi, prot string) string {
	switch {
	case chi != "" && prot != "":
		return chi + "; " + prot
	case chi != "":
		return chi
	default:
		return prot
	}
}

var accentStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeHeader lowercases a header label, strips accents and collapses
// non-alphanumeric runs to single spaces, so "Descripción / Mercadería"
// and "descripcion mercaderia" compare equal.
func normalizeHeader(s string) string {
	stripped, _, err := transform.String(accentStripper, s)
	if err != nil {
		stripped = s
	}
	stripped = strings.ToLower(stripped)
	var b strings.Builder
	lastSpace := true
	for _, r := range stripped {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// NormalizeRow maps one raw row to a CanonicalRow using the detected header
// positions. The combined concession value is preferred when its column is
// present; otherwise it is re-derived from the two separate columns.
func NormalizeRow(raw []string, line int, headers HeaderMap) CanonicalRow {
	get := func(f Field) string {
		idx, ok := headers[f]
		if !ok || idx >= len(raw) {
			return ""
		}
		return cleanCell(raw[idx])
	}

	row := CanonicalRow{
		Line:             line,
		Partida:          get(FieldPartida),
		Subpartida:       get(FieldSubpartida),
		Codigo:           get(FieldCodigo),
		Descripcion:      get(FieldDescripcion),
		Gravamen:         get(FieldGravamen),
		ICEIEHD:          get(FieldICEIEHD),
		UnidadMedida:     get(FieldUnidadMedida),
		DespachoFrontera: get(FieldDespachoFrontera),
		TipoDocumento:    get(FieldTipoDocumento),
		EntidadEmite:     get(FieldEntidadEmite),
		DispLegal:        get(FieldDispLegal),
		CANACE36ACE47Ven: get(FieldCANACE36ACE47Ven),
		ACE66Mexico:      get(FieldACE66Mexico),
	}
	row.Capitulo = chapterFromCode(row.Codigo)

	if combined := get(FieldACE22ChiProt); combined != "" {
		row.ACE22ChiProt = combined
	} else {
		row.ACE22ChiProt = JoinConcession(get(FieldACE22Chi), get(FieldACE22Prot))
	}
	return row
}
