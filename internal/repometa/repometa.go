// Package repometa captures a lightweight metadata snapshot of a remote
// GitHub target via a shallow clone, giving the executive summary something
// analogous to the local source collector's directory summary when the
// target itself is not on disk. The snapshot is not passed to the review
// agents.
package repometa

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// languageByExtension maps a small set of common source extensions to a
// display name for the executive summary's language breakdown. Anything
// else is counted under "other".
var languageByExtension = map[string]string{
	".go":   "Go",
	".py":   "Python",
	".js":   "JavaScript",
	".ts":   "TypeScript",
	".java": "Java",
	".rb":   "Ruby",
	".rs":   "Rust",
	".c":    "C",
	".h":    "C",
	".cpp":  "C++",
	".md":   "Markdown",
	".yaml": "YAML",
	".yml":  "YAML",
}

// Snapshot is a plain-text description of a GitHub target's current state,
// cheap enough to fetch once per run and fold into the executive summary.
// It never carries file content: the review prompt's source bundle stays
// empty for remote targets regardless of what this snapshot reports.
type Snapshot struct {
	HeadSHA      string
	Branch       string
	CommitCount  int
	FileCount    int
	LanguageTops []LanguageCount
	Summary      string
}

// LanguageCount is one row of the snapshot's language breakdown.
type LanguageCount struct {
	Language string
	Files    int
}

// Fetcher produces a Snapshot for an "owner/repo" handle.
type Fetcher struct {
	logger *slog.Logger
}

// New constructs a Fetcher.
func New(logger *slog.Logger) *Fetcher {
	return &Fetcher{logger: logger}
}

// Fetch performs a depth-1 clone of ownerRepo into a temporary directory,
// reads its HEAD, and removes the clone before returning. token, when
// non-empty, authenticates the clone over HTTP basic auth, sent as the
// password for the "x-access-token" user.
func (f *Fetcher) Fetch(ctx context.Context, ownerRepo, token string) (Snapshot, error) {
	dir, err := os.MkdirTemp("", "repometa-*")
	if err != nil {
		return Snapshot{}, fmt.Errorf("creating temp clone dir: %w", err)
	}
	defer os.RemoveAll(dir)

	cloneURL := fmt.Sprintf("https://github.com/%s.git", ownerRepo)
	opts := &git.CloneOptions{
		URL:   cloneURL,
		Depth: 1,
	}
	if token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: token}
	}

	f.logger.InfoContext(ctx, "fetching repository metadata snapshot", "repo", ownerRepo)
	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		return Snapshot{}, fmt.Errorf("shallow-cloning %s: %w", ownerRepo, err)
	}

	head, err := repo.Head()
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading HEAD of %s: %w", ownerRepo, err)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading HEAD commit of %s: %w", ownerRepo, err)
	}

	fileCount, languages := countLanguages(dir)

	snapshot := Snapshot{
		HeadSHA:      head.Hash().String(),
		Branch:       head.Name().Short(),
		CommitCount:  1, // depth-1 clone only ever sees its single commit
		FileCount:    fileCount,
		LanguageTops: languages,
	}
	snapshot.Summary = render(ownerRepo, snapshot, commit.Author.When)
	return snapshot, nil
}

// countLanguages walks a working tree and tallies file extensions. It never
// reads file content, only names, so the result carries no review material.
func countLanguages(root string) (int, []LanguageCount) {
	counts := make(map[string]int)
	total := 0

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort walk, skip unreadable entries
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		total++
		lang, ok := languageByExtension[strings.ToLower(filepath.Ext(path))]
		if !ok {
			lang = "other"
		}
		counts[lang]++
		return nil
	})

	languages := make([]LanguageCount, 0, len(counts))
	for lang, n := range counts {
		languages = append(languages, LanguageCount{Language: lang, Files: n})
	}
	sort.Slice(languages, func(i, j int) bool {
		if languages[i].Files != languages[j].Files {
			return languages[i].Files > languages[j].Files
		}
		return languages[i].Language < languages[j].Language
	})

	return total, languages
}

func render(ownerRepo string, snapshot Snapshot, authoredAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", ownerRepo)
	fmt.Fprintf(&b, "Branch: %s\n", snapshot.Branch)
	fmt.Fprintf(&b, "HEAD: %s\n", snapshot.HeadSHA)
	fmt.Fprintf(&b, "Last commit authored: %s\n", authoredAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Files: %d\n", snapshot.FileCount)
	for _, lc := range snapshot.LanguageTops {
		fmt.Fprintf(&b, "  %s: %d\n", lc.Language, lc.Files)
	}
	return b.String()
}
