package importer

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/sisarm/sisarm-search/internal/catalog"
)

// fakeCatalog is an in-memory catalog.Repository for committer and preview
// tests. Write failures can be injected per code.
type fakeCatalog struct {
	mu      sync.Mutex
	entries map[string]catalog.TariffEntry
	nextID  int64

	failCreate map[string]error
	failUpdate map[string]error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		entries:    map[string]catalog.TariffEntry{},
		failCreate: map[string]error{},
		failUpdate: map[string]error{},
	}
}

func (f *fakeCatalog) seed(entries ...catalog.TariffEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		f.nextID++
		e.ID = f.nextID
		f.entries[e.Codigo] = e
	}
}

func (f *fakeCatalog) codes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for c := range f.entries {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (f *fakeCatalog) GetByCode(_ context.Context, codigo string) (*catalog.TariffEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[codigo]; ok {
		cp := e
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeCatalog) ExistsByCode(_ context.Context, codigo string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[codigo]
	return ok, nil
}

func (f *fakeCatalog) ListByChapterPrefix(_ context.Context, capitulo string) ([]catalog.TariffEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []catalog.TariffEntry
	for _, e := range f.entries {
		if strings.HasPrefix(e.Codigo, capitulo) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Codigo < out[j].Codigo })
	return out, nil
}

func (f *fakeCatalog) Create(_ context.Context, e *catalog.TariffEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failCreate[e.Codigo]; ok {
		return err
	}
	f.nextID++
	e.ID = f.nextID
	f.entries[e.Codigo] = *e
	return nil
}

func (f *fakeCatalog) Update(_ context.Context, e *catalog.TariffEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failUpdate[e.Codigo]; ok {
		return err
	}
	f.entries[e.Codigo] = *e
	return nil
}

func (f *fakeCatalog) DeleteByCodes(_ context.Context, capitulo string, codigos []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range codigos {
		if !strings.HasPrefix(c, capitulo) {
			continue
		}
		if _, ok := f.entries[c]; ok {
			delete(f.entries, c)
			n++
		}
	}
	return n, nil
}

func (f *fakeCatalog) Search(context.Context, catalog.SearchFilter) ([]catalog.TariffEntry, error) {
	return nil, nil
}

func (f *fakeCatalog) AutocompleteCodes(context.Context, string, int) ([]string, error) {
	return nil, nil
}

func (f *fakeCatalog) ListAll(_ context.Context) ([]catalog.TariffEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []catalog.TariffEntry
	for _, e := range f.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Codigo < out[j].Codigo })
	return out, nil
}

func (f *fakeCatalog) Filters(context.Context) (*catalog.FilterValues, error) { return nil, nil }

func (f *fakeCatalog) StatsByChapter(context.Context) ([]catalog.ChapterStat, error) {
	return nil, nil
}

func (f *fakeCatalog) LogSearch(context.Context, *catalog.SearchLog) error { return nil }

func (f *fakeCatalog) TopSearchTerms(context.Context, int) ([]catalog.TermStat, error) {
	return nil, nil
}

// fakeRuns records ImportRun writes.
type fakeRuns struct {
	runs []ImportRun
	err  error
}

func (f *fakeRuns) Create(_ context.Context, run *ImportRun) error {
	if f.err != nil {
		return f.err
	}
	run.ID = int64(len(f.runs) + 1)
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeRuns) List(context.Context, int) ([]ImportRun, error) {
	return f.runs, nil
}
