package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sisarm/sisarm-search/internal/catalog"
)

func newCommitter(repo catalog.Repository, runs RunsRepository) *Committer {
	return NewCommitter(repo, runs, nil, nil)
}

func TestCommitValidationAbortsWholeFile(t *testing.T) {
	repo := newFakeCatalog()
	runs := &fakeRuns{}
	sheet := standardSheet(
		[]string{"01012100", "0101", "Caballos", ""},
		[]string{"01012100", "0101", "Duplicado", ""},
		[]string{"02011000", "0201", "Carne", ""},
	)

	res, err := newCommitter(repo, runs).Commit(context.Background(), sheet, "admin", "f.xlsx", true, false)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Omitted)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Fila 3: codigo duplicado en archivo (01012100)")

	// fail-closed: nothing applied, no run log
	assert.Empty(t, repo.codes())
	assert.Empty(t, runs.runs)
}

func TestCommitValidationMissingData(t *testing.T) {
	repo := newFakeCatalog()
	sheet := standardSheet(
		[]string{"01012100", "0101", "", ""},
		[]string{"XX012100", "0101", "Sin capítulo", ""},
	)

	res, err := newCommitter(repo, &fakeRuns{}).Commit(context.Background(), sheet, "admin", "f.xlsx", true, false)
	require.NoError(t, err)

	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "Fila 2: datos faltantes (codigo/descripcion)")
	assert.Contains(t, res.Errors[1], "Fila 3: codigo sin prefijo válido (debe empezar con 2 dígitos)")
	assert.Empty(t, repo.codes())
}

func TestCommitUpsertCreatesAndUpdates(t *testing.T) {
	repo := newFakeCatalog()
	repo.seed(catalog.TariffEntry{Codigo: "01012100", Capitulo: "01", Partida: "0101", Descripcion: "Vieja", Gravamen: "5%"})
	runs := &fakeRuns{}
	sheet := standardSheet(
		[]string{"01012100", "0101", "Caballos reproductores", ""},
		[]string{"01012900", "0101", "Los demás caballos", "10%"},
	)

	res, err := newCommitter(repo, runs).Commit(context.Background(), sheet, "admin", "f.xlsx", true, false)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Imported)
	assert.Empty(t, res.Errors)

	// the update merged non-empty fields and kept the stored gravamen
	updated, _ := repo.GetByCode(context.Background(), "01012100")
	assert.Equal(t, "Caballos reproductores", updated.Descripcion)
	assert.Equal(t, "5%", updated.Gravamen)

	require.Len(t, runs.runs, 1)
	assert.Equal(t, int64(1), res.LogID)
	assert.Equal(t, 2, runs.runs[0].Imported)
}

func TestCommitUpsertSkipsExistingWithoutUpdateFlag(t *testing.T) {
	repo := newFakeCatalog()
	repo.seed(catalog.TariffEntry{Codigo: "01012100", Capitulo: "01", Partida: "0101", Descripcion: "Vieja"})
	sheet := standardSheet([]string{"01012100", "0101", "Nueva descripción", ""})

	res, err := newCommitter(repo, &fakeRuns{}).Commit(context.Background(), sheet, "admin", "f.xlsx", false, false)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Omitted)
	assert.Equal(t, 0, res.Imported)
	entry, _ := repo.GetByCode(context.Background(), "01012100")
	assert.Equal(t, "Vieja", entry.Descripcion)
}

func TestCommitSyncMirrorsChapter(t *testing.T) {
	repo := newFakeCatalog()
	repo.seed(
		catalog.TariffEntry{Codigo: "01012100", Capitulo: "01", Partida: "0101", Descripcion: "A"},
		catalog.TariffEntry{Codigo: "01012900", Capitulo: "01", Partida: "0101", Descripcion: "B"},
		catalog.TariffEntry{Codigo: "01013000", Capitulo: "01", Partida: "0101", Descripcion: "C"},
		catalog.TariffEntry{Codigo: "02011000", Capitulo: "02", Partida: "0201", Descripcion: "Otra"},
	)
	runs := &fakeRuns{}
	sheet := standardSheet(
		[]string{"01012100", "0101", "A", ""},
		[]string{"01012900", "0101", "B actualizada", ""},
	)

	res, err := newCommitter(repo, runs).Commit(context.Background(), sheet, "admin", "f.xlsx", true, true)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Deleted)

	// chapter 01 is now an exact mirror; chapter 02 untouched
	assert.Equal(t, []string{"01012100", "01012900", "02011000"}, repo.codes())

	require.Len(t, runs.runs, 1)
	assert.Contains(t, runs.runs[0].Errors, "Sincronización: creadas=0, actualizadas=1, eliminadas=1")
}

func TestCommitSyncIdempotent(t *testing.T) {
	repo := newFakeCatalog()
	runs := &fakeRuns{}
	sheet := standardSheet(
		[]string{"01012100", "0101", "Caballos", "10%"},
		[]string{"01012900", "0101", "Los demás", "10%"},
	)
	c := newCommitter(repo, runs)

	first, err := c.Commit(context.Background(), sheet, "admin", "f.xlsx", true, true)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	second, err := c.Commit(context.Background(), sheet, "admin", "f.xlsx", true, true)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 0, second.Deleted)
}

func TestCommitPassTwoFailuresAreFailOpen(t *testing.T) {
	repo := newFakeCatalog()
	repo.failCreate["01012900"] = errors.New("write refused")
	runs := &fakeRuns{}
	sheet := standardSheet(
		[]string{"01012100", "0101", "Caballos", ""},
		[]string{"01012900", "0101", "Los demás", ""},
		[]string{"02011000", "0201", "Carne", ""},
	)

	res, err := newCommitter(repo, runs).Commit(context.Background(), sheet, "admin", "f.xlsx", true, false)
	require.NoError(t, err)

	// the bad row is reported, the rest of the file still lands
	assert.Equal(t, 2, res.Created)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "01012900")
	assert.Equal(t, []string{"01012100", "02011000"}, repo.codes())

	// the run log is written even for a partial failure
	require.Len(t, runs.runs, 1)
}

func TestCommitIgnoresBlankTrailingRows(t *testing.T) {
	repo := newFakeCatalog()
	sheet := standardSheet(
		[]string{"01012100", "0101", "Caballos", ""},
		[]string{"", "", "", ""},
	)

	res, err := newCommitter(repo, &fakeRuns{}).Commit(context.Background(), sheet, "admin", "f.xlsx", true, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Empty(t, res.Errors)
}

func TestCommitRunLogFailureDoesNotFailCommit(t *testing.T) {
	repo := newFakeCatalog()
	runs := &fakeRuns{err: errors.New("log table missing")}
	sheet := standardSheet([]string{"01012100", "0101", "Caballos", ""})

	res, err := newCommitter(repo, runs).Commit(context.Background(), sheet, "admin", "f.xlsx", true, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Zero(t, res.LogID)
}
