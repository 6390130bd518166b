package importer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/sisarm/sisarm-search/internal/catalog"
)

// exportHeaders is the fixed column layout of the exported workbook. The
// combined concession value goes out split into its CHI and PROT halves.
var exportHeaders = []string{
	"CAPITULO", "PARTIDA", "SUBPARTIDA", "CODIGO", "DESCRIPCION", "GRAVAMEN",
	"ICE_IEHD", "UNIDAD_MEDIDA", "DESPACHO_FRONTERA", "TIPO_DOCUMENTO",
	"ENTIDAD_EMITE", "DISP_LEGAL", "CAN_ACE36_ACE47_VEN", "ACE22_CHI", "ACE22_PROT",
	"ACE66_MEXICO",
}

const exportSheetName = "Partidas"

// WriteWorkbook renders the entries as a spreadsheet on w. Re-importing the
// output reproduces the same entry set (the detector recognizes every header
// it emits, and the normalizer re-joins the split concession columns).
func WriteWorkbook(w io.Writer, entries []catalog.TariffEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheetName); err != nil {
		return fmt.Errorf("importer: renombrar hoja: %w", err)
	}

	header := make([]any, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheetName, "A1", &header); err != nil {
		return fmt.Errorf("importer: escribir encabezados: %w", err)
	}

	for i, e := range entries {
		chi, prot := SplitConcession(e.ACE22ChiProt)
		row := []any{
			e.Capitulo, e.Partida, e.Subpartida, e.Codigo, e.Descripcion, e.Gravamen,
			e.ICEIEHD, e.UnidadMedida, e.DespachoFrontera, e.TipoDocumento,
			e.EntidadEmite, e.DispLegal, e.CANACE36ACE47Ven, chi, prot,
			e.ACE66Mexico,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(exportSheetName, cell, &row); err != nil {
			return fmt.Errorf("importer: escribir fila %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("importer: escribir archivo: %w", err)
	}
	return nil
}
