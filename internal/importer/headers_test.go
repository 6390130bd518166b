package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectHeadersCanonicalLabels(t *testing.T) {
	headers, err := DetectHeaders([]string{
		"CAPITULO", "PARTIDA", "SUBPARTIDA", "CODIGO", "DESCRIPCION",
		"GRAVAMEN", "ICE_IEHD", "UNIDAD_MEDIDA", "DESPACHO_FRONTERA",
		"TIPO_DOCUMENTO", "ENTIDAD_EMITE", "DISP_LEGAL",
		"CAN_ACE36_ACE47_VEN", "ACE22_CHI_PROT", "ACE66_MEXICO",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, headers[FieldCapitulo])
	assert.Equal(t, 3, headers[FieldCodigo])
	assert.Equal(t, 4, headers[FieldDescripcion])
	assert.Equal(t, 13, headers[FieldACE22ChiProt])
}

func TestDetectHeadersTolerantOfAccentsAndPunctuation(t *testing.T) {
	headers, err := DetectHeaders([]string{
		"Código", "Partida", "Descripción / Mercadería", "Gravámen (%)",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, headers[FieldCodigo])
	assert.Equal(t, 1, headers[FieldPartida])
	assert.Equal(t, 2, headers[FieldDescripcion])
	assert.Equal(t, 3, headers[FieldGravamen])
}

func TestDetectHeadersCodigoPartidaBackfill(t *testing.T) {
	// Only a partida column: it stands in for codigo too.
	headers, err := DetectHeaders([]string{"Partida", "Descripcion"})
	require.NoError(t, err)
	assert.Equal(t, headers[FieldPartida], headers[FieldCodigo])

	// Only a codigo column: it stands in for partida.
	headers, err = DetectHeaders([]string{"Codigo", "Descripcion"})
	require.NoError(t, err)
	assert.Equal(t, headers[FieldCodigo], headers[FieldPartida])
}

func TestDetectHeadersMissingRequired(t *testing.T) {
	_, err := DetectHeaders([]string{"Capitulo", "Gravamen"})
	require.Error(t, err)
	var missing *ErrMissingColumn
	require.ErrorAs(t, err, &missing)
}

func TestDetectHeadersSplitConcessionColumnsWinOverContainment(t *testing.T) {
	// Exported files carry ACE22_CHI and ACE22_PROT. The containment pass
	// would also map the combined field onto one of them; the pair must win
	// so a re-imported export keeps both halves.
	headers, err := DetectHeaders([]string{
		"CODIGO", "PARTIDA", "DESCRIPCION", "ACE22_CHI", "ACE22_PROT",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, headers[FieldACE22Chi])
	assert.Equal(t, 4, headers[FieldACE22Prot])
	_, hasCombined := headers[FieldACE22ChiProt]
	assert.False(t, hasCombined)
}

func TestDetectHeadersCombinedConcessionColumn(t *testing.T) {
	headers, err := DetectHeaders([]string{
		"CODIGO", "PARTIDA", "DESCRIPCION", "ACE22_CHI_PROT",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, headers[FieldACE22ChiProt])
}

func TestDetectHeadersPartidaDoesNotClaimSubpartida(t *testing.T) {
	// A file with a PARTIDA column but no SUBPARTIDA must leave subpartida
	// unmapped; "partida" inside "subpartida" is not a match.
	headers, err := DetectHeaders([]string{"CODIGO", "PARTIDA", "DESCRIPCION", "GRAVAMEN"})
	require.NoError(t, err)

	assert.Equal(t, 1, headers[FieldPartida])
	_, hasSub := headers[FieldSubpartida]
	assert.False(t, hasSub)
}

func TestDetectHeadersSubstringContainment(t *testing.T) {
	headers, err := DetectHeaders([]string{
		"Codigo Arancelario NANDINA", "Partida", "Breve Descripcion",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, headers[FieldCodigo])
	assert.Equal(t, 2, headers[FieldDescripcion])
}
