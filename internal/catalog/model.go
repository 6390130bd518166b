// Package catalog holds the tariff-entry catalog: the searchable set of
// customs classification codes and their required-document metadata.
package catalog

import "time"

// TariffEntry is one classified product code (a "partida arancelaria").
// Codigo is the business key; Capitulo is always the two-digit prefix of
// Codigo for entries that went through the importer.
type TariffEntry struct {
	ID               int64     `json:"id"`
	Capitulo         string    `json:"capitulo"`
	Partida          string    `json:"partida"`
	Subpartida       string    `json:"subpartida"`
	Codigo           string    `json:"codigo"`
	Descripcion      string    `json:"descripcion"`
	Gravamen         string    `json:"gravamen"`
	ICEIEHD          string    `json:"ice_iehd"`
	UnidadMedida     string    `json:"unidad_medida"`
	DespachoFrontera string    `json:"despacho_frontera"`
	TipoDocumento    string    `json:"tipo_documento"`
	EntidadEmite     string    `json:"entidad_emite"`
	DispLegal        string    `json:"disp_legal"`
	CANACE36ACE47Ven string    `json:"can_ace36_ace47_ven"`
	ACE22ChiProt     string    `json:"ace22_chi_prot"`
	ACE66Mexico      string    `json:"ace66_mexico"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SearchFilter narrows a catalog search. Termino matches code or
// description; the rest match their column with a contains comparison.
type SearchFilter struct {
	Termino       string
	Capitulo      string
	Gravamen      string
	TipoDocumento string
	EntidadEmite  string
	Limit         int
	Offset        int
}

// SearchLog records one search a user ran, for popularity statistics.
type SearchLog struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Termino   string    `json:"termino"`
	Tipo      string    `json:"tipo"`
	CreatedAt time.Time `json:"created_at"`
}

// ChapterStat is the per-chapter entry count used by the stats endpoint.
type ChapterStat struct {
	Capitulo string `json:"capitulo"`
	Count    int    `json:"count"`
}

// TermStat is one row of the search-popularity report.
type TermStat struct {
	Termino string `json:"termino"`
	Count   int    `json:"count"`
}

// FilterValues lists the distinct values available for each search filter.
type FilterValues struct {
	Capitulos      []string `json:"capitulos"`
	Gravamenes     []string `json:"gravamenes"`
	TiposDocumento []string `json:"tipos_documento"`
	Entidades      []string `json:"entidades"`
}
