package catalog

import "context"

// Repository is the storage contract for tariff entries. The importer and
// the search handlers both run against this interface so tests can swap in
// fakes.
type Repository interface {
	GetByCode(ctx context.Context, codigo string) (*TariffEntry, error)
	ExistsByCode(ctx context.Context, codigo string) (bool, error)
	ListByChapterPrefix(ctx context.Context, capitulo string) ([]TariffEntry, error)
	Create(ctx context.Context, e *TariffEntry) error
	Update(ctx context.Context, e *TariffEntry) error
	DeleteByCodes(ctx context.Context, capitulo string, codigos []string) (int, error)
	Search(ctx context.Context, f SearchFilter) ([]TariffEntry, error)
	AutocompleteCodes(ctx context.Context, prefix string, limit int) ([]string, error)
	ListAll(ctx context.Context) ([]TariffEntry, error)
	Filters(ctx context.Context) (*FilterValues, error)
	StatsByChapter(ctx context.Context) ([]ChapterStat, error)
	LogSearch(ctx context.Context, l *SearchLog) error
	TopSearchTerms(ctx context.Context, limit int) ([]TermStat, error)
}
