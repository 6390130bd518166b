package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const entryColumns = `id, capitulo, partida, subpartida, codigo, descripcion, gravamen,
	       ice_iehd, unidad_medida, despacho_frontera, tipo_documento, entidad_emite,
	       disp_legal, can_ace36_ace47_ven, ace22_chi_prot, ace66_mexico, updated_at`

// PostgresRepository implements Repository on database/sql.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanEntry(row interface{ Scan(...any) error }) (*TariffEntry, error) {
	var e TariffEntry
	err := row.Scan(&e.ID, &e.Capitulo, &e.Partida, &e.Subpartida, &e.Codigo, &e.Descripcion,
		&e.Gravamen, &e.ICEIEHD, &e.UnidadMedida, &e.DespachoFrontera, &e.TipoDocumento,
		&e.EntidadEmite, &e.DispLegal, &e.CANACE36ACE47Ven, &e.ACE22ChiProt, &e.ACE66Mexico,
		&e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PostgresRepository) GetByCode(ctx context.Context, codigo string) (*TariffEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM partidas WHERE codigo = $1`, codigo)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *PostgresRepository) ExistsByCode(ctx context.Context, codigo string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM partidas WHERE codigo = $1)`, codigo).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) ListByChapterPrefix(ctx context.Context, capitulo string) ([]TariffEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM partidas WHERE codigo LIKE $1 || '%' ORDER BY codigo`, capitulo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func collectEntries(rows *sql.Rows) ([]TariffEntry, error) {
	var out []TariffEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if out == nil {
		out = []TariffEntry{}
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, e *TariffEntry) error {
	e.UpdatedAt = time.Now().UTC()
	return r.db.QueryRowContext(ctx, `
		INSERT INTO partidas (capitulo, partida, subpartida, codigo, descripcion, gravamen,
		    ice_iehd, unidad_medida, despacho_frontera, tipo_documento, entidad_emite,
		    disp_legal, can_ace36_ace47_ven, ace22_chi_prot, ace66_mexico, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id`,
		e.Capitulo, e.Partida, e.Subpartida, e.Codigo, e.Descripcion, e.Gravamen,
		e.ICEIEHD, e.UnidadMedida, e.DespachoFrontera, e.TipoDocumento, e.EntidadEmite,
		e.DispLegal, e.CANACE36ACE47Ven, e.ACE22ChiProt, e.ACE66Mexico, e.UpdatedAt).Scan(&e.ID)
}

func (r *PostgresRepository) Update(ctx context.Context, e *TariffEntry) error {
	e.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE partidas SET capitulo=$1, partida=$2, subpartida=$3, descripcion=$4,
		    gravamen=$5, ice_iehd=$6, unidad_medida=$7, despacho_frontera=$8,
		    tipo_documento=$9, entidad_emite=$10, disp_legal=$11, can_ace36_ace47_ven=$12,
		    ace22_chi_prot=$13, ace66_mexico=$14, updated_at=$15
		WHERE codigo=$16`,
		e.Capitulo, e.Partida, e.Subpartida, e.Descripcion,
		e.Gravamen, e.ICEIEHD, e.UnidadMedida, e.DespachoFrontera,
		e.TipoDocumento, e.EntidadEmite, e.DispLegal, e.CANACE36ACE47Ven,
		e.ACE22ChiProt, e.ACE66Mexico, e.UpdatedAt, e.Codigo)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("catalog: no entry with codigo %s", e.Codigo)
	}
	return err
}

// DeleteByCodes removes the listed codes, but only inside the given chapter
// prefix. The prefix guard keeps a sync pass from ever reaching into another
// chapter's rows.
func (r *PostgresRepository) DeleteByCodes(ctx context.Context, capitulo string, codigos []string) (int, error) {
	if len(codigos) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(codigos))
	args := make([]any, 0, len(codigos)+1)
	args = append(args, capitulo)
	for i, c := range codigos {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, c)
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM partidas
		WHERE codigo LIKE $1 || '%' AND codigo IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *PostgresRepository) Search(ctx context.Context, f SearchFilter) ([]TariffEntry, error) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Termino != "" {
		add(`(codigo ILIKE '%%' || $%d || '%%' OR descripcion ILIKE '%%' || $%[1]d || '%%')`, f.Termino)
	}
	if f.Capitulo != "" {
		add(`capitulo ILIKE '%%' || $%d || '%%'`, f.Capitulo)
	}
	if f.Gravamen != "" {
		add(`gravamen ILIKE '%%' || $%d || '%%'`, f.Gravamen)
	}
	if f.TipoDocumento != "" {
		add(`tipo_documento ILIKE '%%' || $%d || '%%'`, f.TipoDocumento)
	}
	if f.EntidadEmite != "" {
		add(`entidad_emite ILIKE '%%' || $%d || '%%'`, f.EntidadEmite)
	}
	q := `SELECT ` + entryColumns + ` FROM partidas`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY codigo`
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	q += fmt.Sprintf(` LIMIT $%d`, len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (r *PostgresRepository) AutocompleteCodes(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT codigo FROM partidas WHERE codigo LIKE $1 || '%' ORDER BY codigo LIMIT $2`,
		prefix, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]TariffEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM partidas ORDER BY codigo`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (r *PostgresRepository) Filters(ctx context.Context) (*FilterValues, error) {
	distinct := func(col string) ([]string, error) {
		rows, err := r.db.QueryContext(ctx,
			`SELECT DISTINCT `+col+` FROM partidas WHERE `+col+` <> '' ORDER BY `+col)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		out := []string{}
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, rows.Err()
	}

	fv := &FilterValues{}
	var err error
	if fv.Capitulos, err = distinct("capitulo"); err != nil {
		return nil, err
	}
	if fv.Gravamenes, err = distinct("gravamen"); err != nil {
		return nil, err
	}
	if fv.TiposDocumento, err = distinct("tipo_documento"); err != nil {
		return nil, err
	}
	if fv.Entidades, err = distinct("entidad_emite"); err != nil {
		return nil, err
	}
	return fv, nil
}

func (r *PostgresRepository) StatsByChapter(ctx context.Context) ([]ChapterStat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT capitulo, COUNT(*) FROM partidas GROUP BY capitulo ORDER BY capitulo`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ChapterStat{}
	for rows.Next() {
		var s ChapterStat
		if err := rows.Scan(&s.Capitulo, &s.Count); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) LogSearch(ctx context.Context, l *SearchLog) error {
	l.CreatedAt = time.Now().UTC()
	return r.db.QueryRowContext(ctx, `
		INSERT INTO busquedas (user_id, termino, tipo, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		l.UserID, l.Termino, l.Tipo, l.CreatedAt).Scan(&l.ID)
}

func (r *PostgresRepository) TopSearchTerms(ctx context.Context, limit int) ([]TermStat, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT termino, COUNT(*) AS c FROM busquedas
		GROUP BY termino ORDER BY c DESC, termino LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []TermStat{}
	for rows.Next() {
		var s TermStat
		if err := rows.Scan(&s.Termino, &s.Count); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
