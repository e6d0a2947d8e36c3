// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package batch parses many G-EQDSK files in parallel and records the
// results in the catalog.
package batch

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mdhender/eqdsk"
	store "github.com/mdhender/eqdsk/stores/sqlite"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

var (
	// EFIT names its files g<shot>.<time>, e.g. g141459.03000.
	rxEfitFile = regexp.MustCompile(`^g\d+\.\d+$`)
)

// Store defines the catalog operations needed by Service.
type Store interface {
	BeginRun(ctx context.Context, runID string, startedAt time.Time) error
	FinishRun(ctx context.Context, runID string, files, failed int, finishedAt time.Time) error
	InsertEquilibrium(ctx context.Context, eq *store.Equilibrium) (int64, bool, error)
	InsertFailure(ctx context.Context, f *store.Failure) (int64, error)
}

// Service parses files and, when it has a store, catalogs them.
type Service struct {
	fs      afero.Fs
	store   Store
	workers int
	logger  *slog.Logger
	opts    []eqdsk.Option
}

// NewService creates a new Service. st may be nil, in which case results
// are only returned. workers less than 1 means one worker.
func NewService(st Store, workers int, logger *slog.Logger, opts ...eqdsk.Option) *Service {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		fs:      afero.NewOsFs(),
		store:   st,
		workers: workers,
		logger:  logger,
		opts:    opts,
	}
}

// SetFS sets the filesystem for testing.
func (s *Service) SetFS(fs afero.Fs) {
	s.fs = fs
}

// Result is the outcome for one file.
type Result struct {
	Path      string
	Size      int64
	Digest    string
	Content   *eqdsk.Content // nil when Err is set
	ID        int64          // catalog id, 0 without a store
	Duplicate bool           // the catalog already held this file
	Err       error
	ErrorCode string
	Elapsed   time.Duration
}

// Report summarizes a run.
type Report struct {
	RunID   string
	Results []*Result // in the order the paths were given
	Failed  int
	Elapsed time.Duration
}

// Collect expands roots into the list of files to parse. Files named on
// the command line are always included; directories are walked for names
// that look like G-EQDSK files. The result is sorted and free of duplicates.
func (s *Service) Collect(roots ...string) ([]string, error) {
	seen := map[string]bool{}
	var paths []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}
	for _, root := range roots {
		fi, err := s.fs.Stat(root)
		if err != nil {
			return nil, &eqdsk.IOError{Op: "stat", Path: root, Err: err}
		}
		if !fi.IsDir() {
			add(root)
			continue
		}
		err = afero.Walk(s.fs, root, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if path != root && strings.HasPrefix(info.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if IsCandidate(info.Name()) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, &eqdsk.IOError{Op: "walk", Path: root, Err: err}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// IsCandidate reports whether a file name looks like a G-EQDSK file.
func IsCandidate(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".geqdsk", ".eqdsk", ".gfile":
		return true
	}
	return rxEfitFile.MatchString(name)
}

// Run parses paths with up to workers files in flight. A file that fails
// to parse is recorded in its Result and never stops the others; only
// catalog errors and cancellation abort the run.
func (s *Service) Run(ctx context.Context, paths []string) (*Report, error) {
	started := time.Now()
	rpt := &Report{
		RunID:   uuid.NewString(),
		Results: make([]*Result, len(paths)),
	}
	if s.store != nil {
		if err := s.store.BeginRun(ctx, rpt.RunID, started); err != nil {
			return nil, &DatabaseError{Op: "begin run", Err: err}
		}
	}
	s.logger.Info("batch: run started", "run", rpt.RunID, "files", len(paths), "workers", s.workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := s.parse(path)
			rpt.Results[i] = res
			return s.record(gctx, rpt.RunID, res)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, res := range rpt.Results {
		if res.Err != nil {
			rpt.Failed++
		}
	}
	rpt.Elapsed = time.Since(started)
	if s.store != nil {
		if err := s.store.FinishRun(ctx, rpt.RunID, len(paths), rpt.Failed, time.Now()); err != nil {
			return nil, &DatabaseError{Op: "finish run", Err: err}
		}
	}
	s.logger.Info("batch: run finished", "run", rpt.RunID, "files", len(paths), "failed", rpt.Failed, "elapsed", rpt.Elapsed)
	return rpt, nil
}

// parse reads and parses one file. Each call owns its own buffer and Content.
func (s *Service) parse(path string) *Result {
	started := time.Now()
	res := &Result{Path: path}
	defer func() {
		res.Elapsed = time.Since(started)
	}()

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		res.Err = &eqdsk.IOError{Op: "read", Path: path, Err: err}
		res.ErrorCode = eqdsk.ErrorCode(res.Err)
		s.logger.Warn("batch: read failed", "path", path, "err", err)
		return res
	}
	res.Size = int64(len(data))
	res.Digest = store.Digest(data)

	c, err := eqdsk.Parse(path, data, s.opts...)
	if err != nil {
		res.Err = err
		res.ErrorCode = eqdsk.ErrorCode(err)
		s.logger.Warn("batch: parse failed", "path", path, "code", res.ErrorCode, "err", err)
		return res
	}
	res.Content = c
	s.logger.Debug("batch: parsed", "path", path, "nw", c.Nw, "nh", c.Nh)
	return res
}

// record writes the outcome of one file to the catalog.
func (s *Service) record(ctx context.Context, runID string, res *Result) error {
	if s.store == nil {
		return nil
	}
	if res.Err != nil {
		_, err := s.store.InsertFailure(ctx, &store.Failure{
			RunID:     runID,
			Name:      res.Path,
			ErrorCode: res.ErrorCode,
			ErrorMsg:  res.Err.Error(),
			CreatedAt: time.Now(),
		})
		if err != nil {
			return &DatabaseError{Op: "insert failure", Path: res.Path, Err: err}
		}
		return nil
	}
	id, dup, err := s.store.InsertEquilibrium(ctx, &store.Equilibrium{
		RunID:     runID,
		Name:      res.Path,
		Digest:    res.Digest,
		Content:   res.Content,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return &DatabaseError{Op: "insert equilibrium", Path: res.Path, Err: err}
	}
	res.ID, res.Duplicate = id, dup
	return nil
}
