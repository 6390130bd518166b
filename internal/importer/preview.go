package importer

import (
	"context"
	"sort"

	"github.com/sisarm/sisarm-search/internal/catalog"
	"github.com/sisarm/sisarm-search/pkg/logging"
)

// Previewer runs the read-only dry scan over an uploaded sheet. It consults
// storage only to flag codes that already exist; it never writes.
type Previewer struct {
	repo   catalog.Repository
	logger *logging.Logger
}

func NewPreviewer(repo catalog.Repository, logger *logging.Logger) *Previewer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Previewer{repo: repo, logger: logger}
}

const (
	errCodigoVacio      = "codigo vacío"
	errDescripcionVacia = "descripcion vacía"
	errPartidaVacia     = "partida vacío"
	errPrefijoInvalido  = "codigo sin prefijo válido (debe empezar con 2 dígitos: 01, 02, etc)"
	errCodigoDuplicado  = "codigo duplicado en archivo"
	errCodigoExistente  = "codigo ya existe en la base de datos"
)

// Preview scans every data row and reports per-row diagnostics plus the
// chapter tally. updateExisting suppresses the already-in-storage advisory,
// since in that mode an existing code is a legitimate update target.
func (p *Previewer) Preview(ctx context.Context, sheet *Sheet, updateExisting bool) (*PreviewResult, error) {
	headers, err := DetectHeaders(sheet.Headers)
	if err != nil {
		return nil, err
	}

	result := &PreviewResult{
		Rows:           []PreviewRow{},
		Chapters:       []string{},
		ChaptersDetail: map[string]int{},
	}
	seen := map[string]struct{}{}

	for i, raw := range sheet.Rows {
		line := i + 2
		row := NormalizeRow(raw, line, headers)

		// Fully blank lines carry no information and are not reported.
		if isBlankRow(row) {
			continue
		}

		var errs []string
		if row.Codigo == "" {
			errs = append(errs, errCodigoVacio)
		}
		if row.Descripcion == "" {
			errs = append(errs, errDescripcionVacia)
		}
		if row.Partida == "" {
			errs = append(errs, errPartidaVacia)
		}
		if row.Capitulo == "" {
			errs = append(errs, errPrefijoInvalido)
		}

		if row.Codigo != "" {
			if _, dup := seen[row.Codigo]; dup {
				errs = append(errs, errCodigoDuplicado)
			}
			seen[row.Codigo] = struct{}{}
			if !updateExisting {
				exists, err := p.repo.ExistsByCode(ctx, row.Codigo)
				if err != nil {
					p.logger.Warn("existence check failed during preview", "codigo", row.Codigo, "error", err)
				} else if exists {
					errs = append(errs, errCodigoExistente)
				}
			}
		}

		if row.Capitulo != "" {
			result.ChaptersDetail[row.Capitulo]++
		}

		result.Rows = append(result.Rows, PreviewRow{
			Line:        line,
			Codigo:      row.Codigo,
			Descripcion: row.Descripcion,
			Capitulo:    row.Capitulo,
			Partida:     row.Partida,
			ACE22:       row.ACE22ChiProt,
			Errors:      errs,
		})
	}

	result.Total = len(result.Rows)
	for _, r := range result.Rows {
		if len(r.Errors) > 0 {
			result.ErrorsCount++
		}
	}
	for ch := range result.ChaptersDetail {
		result.Chapters = append(result.Chapters, ch)
	}
	sort.Strings(result.Chapters)
	return result, nil
}

func isBlankRow(row CanonicalRow) bool {
	return row.Codigo == "" && row.Partida == "" && row.Subpartida == "" &&
		row.Descripcion == "" && row.Gravamen == "" && row.ICEIEHD == "" &&
		row.UnidadMedida == "" && row.DespachoFrontera == "" && row.TipoDocumento == "" &&
		row.EntidadEmite == "" && row.DispLegal == "" && row.CANACE36ACE47Ven == "" &&
		row.ACE22ChiProt == "" && row.ACE66Mexico == ""
}
