package importer

import "time"

// PreviewRow is one line of the dry-run diagnostics shown to the operator
// before a commit is possible.
type PreviewRow struct {
	Line        int      `json:"line"`
	Codigo      string   `json:"codigo"`
	Descripcion string   `json:"descripcion"`
	Capitulo    string   `json:"capitulo"`
	Partida     string   `json:"partida"`
	ACE22       string   `json:"ace22"`
	Errors      []string `json:"errors"`
}

// PreviewResult aggregates the dry run. It is never persisted; the uploaded
// file survives between preview and confirm via the uploads store.
type PreviewResult struct {
	Rows           []PreviewRow   `json:"rows"`
	Total          int            `json:"total"`
	ErrorsCount    int            `json:"errors_count"`
	Chapters       []string       `json:"chapters"`
	ChaptersDetail map[string]int `json:"chapters_detail"`
}

// CommitResult summarizes one commit pass.
type CommitResult struct {
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Deleted  int      `json:"deleted"`
	Omitted  int      `json:"omitted"`
	Errors   []string `json:"errors"`
	LogID    int64    `json:"log_id,omitempty"`
}

// ImportRun is the immutable log row written once per commit.
type ImportRun struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Filename  string    `json:"filename"`
	TotalRows int       `json:"total_rows"`
	Imported  int       `json:"imported"`
	Omitted   int       `json:"omitted"`
	Errors    string    `json:"errors"`
	CreatedAt time.Time `json:"created_at"`
}
