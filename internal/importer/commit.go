package importer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sisarm/sisarm-search/internal/catalog"
	"github.com/sisarm/sisarm-search/internal/observability/metrics"
	"github.com/sisarm/sisarm-search/pkg/logging"
)

var commitTracer = otel.Tracer("sisarm/importer")

// Committer applies an uploaded sheet to the catalog, chapter by chapter.
//
// Validation (pass 1) is all-or-nothing: a malformed file applies zero
// changes. Runtime write failures in pass 2 are per-row: counted, logged and
// skipped, so one bad row cannot abort the rest of the file.
type Committer struct {
	repo    catalog.Repository
	runs    RunsRepository
	metrics *metrics.AppMetrics
	logger  *logging.Logger
}

func NewCommitter(repo catalog.Repository, runs RunsRepository, m *metrics.AppMetrics, logger *logging.Logger) *Committer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Committer{repo: repo, runs: runs, metrics: m, logger: logger}
}

// Commit validates, groups by derived chapter and applies the sheet.
//
// syncCatalog=false upserts: existing codes are updated only when
// updateExisting is set (otherwise counted as omitted), new codes are
// created, nothing is deleted. syncCatalog=true mirrors each chapter present
// in the file: create missing, update changed, delete codes absent from the
// file; chapters the file does not mention stay untouched.
func (c *Committer) Commit(ctx context.Context, sheet *Sheet, actor, filename string, updateExisting, syncCatalog bool) (*CommitResult, error) {
	mode := "upsert"
	if syncCatalog {
		mode = "sync"
	}
	ctx, span := commitTracer.Start(ctx, "importer.commit")
	span.SetAttributes(attribute.String("mode", mode), attribute.String("file", filename))
	defer span.End()
	start := time.Now()
	defer func() {
		c.metrics.ObserveImportDuration(mode, time.Since(start).Seconds())
	}()

	headers, err := DetectHeaders(sheet.Headers)
	if err != nil {
		return nil, err
	}

	byChapter, total, validationErrs := c.validateAndGroup(sheet, headers)
	if len(validationErrs) > 0 {
		c.metrics.ObserveImportRows(mode, "rejected", len(validationErrs))
		return &CommitResult{
			Total:   total,
			Omitted: len(validationErrs),
			Errors:  validationErrs,
		}, nil
	}

	var result *CommitResult
	if syncCatalog {
		result = c.applySync(ctx, byChapter, total)
	} else {
		result = c.applyUpsert(ctx, byChapter, total, updateExisting)
	}

	c.metrics.ObserveImportRows(mode, "created", result.Created)
	c.metrics.ObserveImportRows(mode, "updated", result.Updated)
	c.metrics.ObserveImportRows(mode, "deleted", result.Deleted)
	c.metrics.ObserveImportRows(mode, "omitted", result.Omitted)

	c.writeRunLog(ctx, result, actor, filename, syncCatalog)
	return result, nil
}

// validateAndGroup is pass 1: normalize every row, reject the file on any
// validation error, bucket valid rows by derived chapter.
func (c *Committer) validateAndGroup(sheet *Sheet, headers HeaderMap) (map[string][]CanonicalRow, int, []string) {
	byChapter := map[string][]CanonicalRow{}
	seen := map[string]struct{}{}
	var errs []string
	total := 0

	for i, raw := range sheet.Rows {
		line := i + 2
		row := NormalizeRow(raw, line, headers)
		if isBlankRow(row) {
			continue
		}
		total++

		if row.Codigo == "" || row.Descripcion == "" {
			errs = append(errs, fmt.Sprintf("Fila %d: datos faltantes (codigo/descripcion)", line))
			continue
		}
		if _, dup := seen[row.Codigo]; dup {
			errs = append(errs, fmt.Sprintf("Fila %d: codigo duplicado en archivo (%s)", line, row.Codigo))
			continue
		}
		seen[row.Codigo] = struct{}{}
		if row.Capitulo == "" {
			errs = append(errs, fmt.Sprintf("Fila %d: codigo sin prefijo válido (debe empezar con 2 dígitos)", line))
			continue
		}
		byChapter[row.Capitulo] = append(byChapter[row.Capitulo], row)
	}
	return byChapter, total, errs
}

func rowToEntry(row CanonicalRow) *catalog.TariffEntry {
	return &catalog.TariffEntry{
		Capitulo:         row.Capitulo,
		Partida:          row.Partida,
		Subpartida:       row.Subpartida,
		Codigo:           row.Codigo,
		Descripcion:      row.Descripcion,
		Gravamen:         row.Gravamen,
		ICEIEHD:          row.ICEIEHD,
		UnidadMedida:     row.UnidadMedida,
		DespachoFrontera: row.DespachoFrontera,
		TipoDocumento:    row.TipoDocumento,
		EntidadEmite:     row.EntidadEmite,
		DispLegal:        row.DispLegal,
		CANACE36ACE47Ven: row.CANACE36ACE47Ven,
		ACE22ChiProt:     row.ACE22ChiProt,
		ACE66Mexico:      row.ACE66Mexico,
	}
}

// applyUpsert is pass 2 without deletions.
func (c *Committer) applyUpsert(ctx context.Context, byChapter map[string][]CanonicalRow, total int, updateExisting bool) *CommitResult {
	res := &CommitResult{Total: total, Errors: []string{}}

	for _, chapter := range sortedChapters(byChapter) {
		for _, row := range byChapter[chapter] {
			existing, err := c.repo.GetByCode(ctx, row.Codigo)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("Error fila %s: %v", row.Codigo, err))
				continue
			}
			if existing != nil {
				if !updateExisting {
					res.Omitted++
					continue
				}
				mergeNonEmpty(existing, row)
				if err := c.repo.Update(ctx, existing); err != nil {
					res.Errors = append(res.Errors, fmt.Sprintf("Error fila %s: %v", row.Codigo, err))
					continue
				}
				res.Updated++
				continue
			}
			if err := c.repo.Create(ctx, rowToEntry(row)); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("Error fila %s: %v", row.Codigo, err))
				continue
			}
			res.Created++
		}
	}
	res.Imported = res.Created + res.Updated
	return res
}

// mergeNonEmpty copies only the incoming fields that carry a value, keeping
// whatever the stored entry already has for blank cells.
func mergeNonEmpty(dst *catalog.TariffEntry, row CanonicalRow) {
	set := func(dstField *string, v string) {
		if v != "" {
			*dstField = v
		}
	}
	set(&dst.Capitulo, row.Capitulo)
	set(&dst.Partida, row.Partida)
	set(&dst.Subpartida, row.Subpartida)
	set(&dst.Descripcion, row.Descripcion)
	set(&dst.Gravamen, row.Gravamen)
	set(&dst.ICEIEHD, row.ICEIEHD)
	set(&dst.UnidadMedida, row.UnidadMedida)
	set(&dst.DespachoFrontera, row.DespachoFrontera)
	set(&dst.TipoDocumento, row.TipoDocumento)
	set(&dst.EntidadEmite, row.EntidadEmite)
	set(&dst.DispLegal, row.DispLegal)
	set(&dst.CANACE36ACE47Ven, row.CANACE36ACE47Ven)
	set(&dst.ACE22ChiProt, row.ACE22ChiProt)
	set(&dst.ACE66Mexico, row.ACE66Mexico)
}

// applySync is pass 2 in full-reconciliation mode: each chapter present in
// the file ends up an exact mirror of the file's subset for that chapter.
func (c *Committer) applySync(ctx context.Context, byChapter map[string][]CanonicalRow, total int) *CommitResult {
	res := &CommitResult{Total: total, Errors: []string{}}

	for _, chapter := range sortedChapters(byChapter) {
		rows := byChapter[chapter]
		fileCodes := map[string]struct{}{}
		for _, row := range rows {
			fileCodes[row.Codigo] = struct{}{}
		}

		existing, err := c.repo.ListByChapterPrefix(ctx, chapter)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Error capítulo %s: %v", chapter, err))
			continue
		}
		existingByCode := make(map[string]*catalog.TariffEntry, len(existing))
		for i := range existing {
			existingByCode[existing[i].Codigo] = &existing[i]
		}

		for _, row := range rows {
			if prev, ok := existingByCode[row.Codigo]; ok {
				if !applyDiff(prev, row) {
					continue // unchanged
				}
				if err := c.repo.Update(ctx, prev); err != nil {
					res.Errors = append(res.Errors, fmt.Sprintf("Error capítulo %s, código %s: %v", chapter, row.Codigo, err))
					continue
				}
				res.Updated++
				continue
			}
			if err := c.repo.Create(ctx, rowToEntry(row)); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("Error capítulo %s, código %s: %v", chapter, row.Codigo, err))
				continue
			}
			res.Created++
		}

		var toDelete []string
		for _, e := range existing {
			if _, keep := fileCodes[e.Codigo]; !keep {
				toDelete = append(toDelete, e.Codigo)
			}
		}
		if len(toDelete) > 0 {
			n, err := c.repo.DeleteByCodes(ctx, chapter, toDelete)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("Error eliminación capítulo %s: %v", chapter, err))
			} else {
				res.Deleted += n
			}
		}
	}
	res.Imported = res.Created + res.Updated
	return res
}

// applyDiff overwrites every mapped field (empty incoming values included,
// unlike the upsert merge) and reports whether anything actually changed.
func applyDiff(dst *catalog.TariffEntry, row CanonicalRow) bool {
	changed := false
	set := func(dstField *string, v string) {
		if strings.TrimSpace(*dstField) != strings.TrimSpace(v) {
			*dstField = v
			changed = true
		}
	}
	set(&dst.Capitulo, row.Capitulo)
	set(&dst.Partida, row.Partida)
	set(&dst.Subpartida, row.Subpartida)
	set(&dst.Descripcion, row.Descripcion)
	set(&dst.Gravamen, row.Gravamen)
	set(&dst.ICEIEHD, row.ICEIEHD)
	set(&dst.UnidadMedida, row.UnidadMedida)
	set(&dst.DespachoFrontera, row.DespachoFrontera)
	set(&dst.TipoDocumento, row.TipoDocumento)
	set(&dst.EntidadEmite, row.EntidadEmite)
	set(&dst.DispLegal, row.DispLegal)
	set(&dst.CANACE36ACE47Ven, row.CANACE36ACE47Ven)
	set(&dst.ACE22ChiProt, row.ACE22ChiProt)
	set(&dst.ACE66Mexico, row.ACE66Mexico)
	return changed
}

func sortedChapters(byChapter map[string][]CanonicalRow) []string {
	chapters := make([]string, 0, len(byChapter))
	for ch := range byChapter {
		chapters = append(chapters, ch)
	}
	sort.Strings(chapters)
	return chapters
}

// writeRunLog records the ImportRun row. Failures here are logged and
// swallowed: a full catalog update must not be reported as failed because
// the audit row could not be written.
func (c *Committer) writeRunLog(ctx context.Context, res *CommitResult, actor, filename string, syncCatalog bool) {
	if filename == "" {
		filename = "uploaded"
	}
	errText := strings.Join(res.Errors, "\n")
	if syncCatalog && (res.Created > 0 || res.Updated > 0 || res.Deleted > 0) {
		summary := fmt.Sprintf("Sincronización: creadas=%d, actualizadas=%d, eliminadas=%d",
			res.Created, res.Updated, res.Deleted)
		errText = strings.TrimSpace(errText + "\n" + summary)
	}
	run := &ImportRun{
		UserID:    actor,
		Filename:  filename,
		TotalRows: res.Total,
		Imported:  res.Imported,
		Omitted:   res.Omitted,
		Errors:    errText,
	}
	if err := c.runs.Create(ctx, run); err != nil {
		c.logger.Error("import run log failed", "error", err, "file", filename)
		return
	}
	res.LogID = run.ID
}
