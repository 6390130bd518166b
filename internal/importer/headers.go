package importer

import (
	"fmt"
	"strings"
)

// Field names a canonical spreadsheet column.
type Field string

const (
	FieldCapitulo         Field = "capitulo"
	FieldPartida          Field = "partida"
	FieldSubpartida       Field = "subpartida"
	FieldCodigo           Field = "codigo"
	FieldDescripcion      Field = "descripcion"
	FieldGravamen         Field = "gravamen"
	FieldICEIEHD          Field = "ice_iehd"
	FieldUnidadMedida     Field = "unidad_medida"
	FieldDespachoFrontera Field = "despacho_frontera"
	FieldTipoDocumento    Field = "tipo_documento"
	FieldEntidadEmite     Field = "entidad_emite"
	FieldDispLegal        Field = "disp_legal"
	FieldCANACE36ACE47Ven Field = "can_ace36_ace47_ven"
	FieldACE22ChiProt     Field = "ace22_chi_prot"
	FieldACE22Chi         Field = "ace22_chi"
	FieldACE22Prot        Field = "ace22_prot"
	FieldACE66Mexico      Field = "ace66_mexico"
)

// HeaderMap records, per canonical field, which column index carries it.
type HeaderMap map[Field]int

// headerSynonyms lists, in priority order, the normalized phrases each field
// is known to appear under across the source files.
var headerSynonyms = []struct {
	field    Field
	variants []string
}{
	{FieldCodigo, []string{"codigo", "cod", "code", "hs", "sa", "codigo arancelario", "partida arancelaria", "arancelaria"}},
	{FieldDescripcion, []string{"descripcion", "desc", "description", "descripcion de la mercaderia", "mercaderia"}},
	{FieldPartida, []string{"partida", "partition"}},
	{FieldCapitulo, []string{"capitulo", "cap", "chapter"}},
	{FieldSubpartida, []string{"subpartida"}},
	{FieldGravamen, []string{"gravamen", "grav", "ga"}},
	{FieldICEIEHD, []string{"ice iehd", "ice", "iehd"}},
	{FieldUnidadMedida, []string{"unidad medida", "unidad de medida", "unidad", "medida", "unit"}},
	{FieldDespachoFrontera, []string{"despacho frontera", "despacho", "frontera"}},
	{FieldTipoDocumento, []string{"tipo documento", "tipo de documento", "documento", "tipo", "doc"}},
	{FieldEntidadEmite, []string{"entidad emite", "entidad que emite", "entidad", "emite"}},
	{FieldDispLegal, []string{"disp legal", "disposicion legal", "disp", "legal"}},
	{FieldCANACE36ACE47Ven, []string{"can ace36 ace47 ven", "ace36", "ace47", "ven"}},
	{FieldACE66Mexico, []string{"ace66 mexico", "ace66", "mexico"}},
	{FieldACE22ChiProt, []string{"ace22 chi prot", "ace22", "chi prot"}},
	{FieldACE22Chi, []string{"ace22 chi", "chi"}},
	{FieldACE22Prot, []string{"ace22 prot", "prot"}},
}

// requiredFields is the minimal set without which no row can be classified.
var requiredFields = []Field{FieldCodigo, FieldPartida, FieldDescripcion}

// ErrMissingColumn reports a structural import failure: a required column
// could not be located in the header row.
type ErrMissingColumn struct {
	Field Field
}

func (e *ErrMissingColumn) Error() string {
	return fmt.Sprintf("importer: el archivo no contiene la columna requerida: %q", string(e.Field))
}

// DetectHeaders maps the raw first-row labels to canonical fields. Each
// field's synonyms are tested for exact match against the normalized labels
// first; only if none hits does substring containment (label contains
// variant) decide. Optional fields that cannot be located are absent from the
// result; a missing required field is a structural error.
func DetectHeaders(headerRow []string) (HeaderMap, error) {
	normalized := make([]string, len(headerRow))
	for i, h := range headerRow {
		normalized[i] = normalizeHeader(h)
	}

	found := HeaderMap{}
	for _, syn := range headerSynonyms {
		if idx, ok := locate(normalized, syn.variants); ok {
			found[syn.field] = idx
		}
	}

	// The code and heading columns historically stand in for each other.
	if _, ok := found[FieldCodigo]; !ok {
		if idx, ok := found[FieldPartida]; ok {
			found[FieldCodigo] = idx
		}
	}
	if _, ok := found[FieldPartida]; !ok {
		if idx, ok := found[FieldCodigo]; ok {
			found[FieldPartida] = idx
		}
	}

	// A file carries the concession either combined or as two separate
	// columns, and the containment pass maps whichever variant is absent
	// onto the other's index. A genuine split pair occupies two distinct
	// columns and wins over a collided combined hit; otherwise the combined
	// column wins and the collided split hits are dropped.
	chiIdx, hasChi := found[FieldACE22Chi]
	protIdx, hasProt := found[FieldACE22Prot]
	combIdx, hasComb := found[FieldACE22ChiProt]
	if hasChi && hasProt && chiIdx != protIdx {
		if hasComb && (combIdx == chiIdx || combIdx == protIdx) {
			delete(found, FieldACE22ChiProt)
		}
	} else if hasComb {
		if hasChi && chiIdx == combIdx {
			delete(found, FieldACE22Chi)
		}
		if hasProt && protIdx == combIdx {
			delete(found, FieldACE22Prot)
		}
	}

	for _, f := range requiredFields {
		if _, ok := found[f]; !ok {
			return nil, &ErrMissingColumn{Field: f}
		}
	}
	return found, nil
}

func locate(normalized []string, variants []string) (int, bool) {
	for _, v := range variants {
		for idx, h := range normalized {
			if h == v {
				return idx, true
			}
		}
	}
	// Containment runs one way only: the label must contain the variant.
	// The reverse would map a bare PARTIDA column onto subpartida.
	for _, v := range variants {
		for idx, h := range normalized {
			if h == "" {
				continue
			}
			if strings.Contains(h, v) {
				return idx, true
			}
		}
	}
	return 0, false
}
