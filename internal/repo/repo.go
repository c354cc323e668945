// Package repo ties the object store, staging index, refs and working tree
// of one repository together and exposes the user-level operations.
package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"pit/internal/config"
	"pit/internal/content"
	"pit/internal/diff"
	"pit/internal/errors"
	"pit/internal/index"
	"pit/internal/refs"
	"pit/internal/storage"
	"pit/internal/validation"
	"pit/internal/workspace"
)

const (
	objectsDir = "objects"
	infoFile   = "info"
	dbDir      = "db"
)

// Repo is an open repository. Only one process may hold it open.
type Repo struct {
	Root      string
	MetaDir   string
	Config    *config.Config
	DB        *badger.DB
	Store     *content.FileStore
	Index     *index.Index
	Refs      *refs.Manager
	Workspace *workspace.LocalWorkspace
	Logger    *zap.Logger
}

// Options override what Open would otherwise read from disk.
type Options struct {
	Config *config.Config
	Logger *zap.Logger
}

// Init creates the metadata directory under root with an empty object
// store, an empty staging index and an unborn branch checked out.
func Init(root, branch string) error {
	if err := validation.BranchName(branch); err != nil {
		return err
	}
	meta := filepath.Join(root, workspace.MetaDir)
	if _, err := os.Stat(meta); err == nil {
		return errors.ValidationError(fmt.Sprintf("repository already exists in %s", root), root)
	}

	// Create subdirectories
	dirs := []string{
		filepath.Join(meta, objectsDir),
		filepath.Join(meta, refs.Dir),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.IO(fmt.Sprintf("creating directory %s", dir), err)
		}
	}

	if err := os.WriteFile(filepath.Join(meta, objectsDir, infoFile), nil, 0644); err != nil {
		return errors.IO("creating staging index", err)
	}

	rm := refs.NewManager(meta)
	if err := rm.CreateBranch(branch, ""); err != nil {
		return err
	}
	return rm.SetHead(branch)
}

// Open finds the repository containing start and opens it.
func Open(start string, opts Options) (*Repo, error) {
	root, err := workspace.FindRoot(start)
	if err != nil {
		return nil, err
	}
	meta := filepath.Join(root, workspace.MetaDir)

	cfg := opts.Config
	if cfg == nil {
		if cfg, err = config.LoadRepo(meta); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := storage.Open(filepath.Join(meta, dbDir), cfg.Database.InMemory)
	if err != nil {
		return nil, errors.IO("opening metadata database", err)
	}

	store, err := content.NewFileStore(filepath.Join(meta, objectsDir), content.Options{
		CacheSize: cfg.Store.CacheSize,
	}, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	idx, err := index.Open(filepath.Join(meta, objectsDir, infoFile), store, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	ws, err := workspace.NewLocalWorkspace(root, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Repo{
		Root:      root,
		MetaDir:   meta,
		Config:    cfg,
		DB:        db,
		Store:     store,
		Index:     idx,
		Refs:      refs.NewManager(meta),
		Workspace: ws,
		Logger:    logger,
	}, nil
}

// Close releases the metadata database.
func (r *Repo) Close() error {
	if r.DB == nil {
		return nil
	}
	if err := r.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	r.DB = nil
	return nil
}

func (r *Repo) differ() *diff.Differ {
	return diff.NewDiffer(r.Store, diff.NewEngine(r.Config.Diff.ContextLines), r.Logger)
}
