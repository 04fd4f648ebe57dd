package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/cuentas-dev/cuentas/internal/categories"
	"github.com/cuentas-dev/cuentas/internal/config"
	"github.com/cuentas-dev/cuentas/internal/importer"
	"github.com/cuentas-dev/cuentas/internal/logger"
	"github.com/cuentas-dev/cuentas/internal/similarity"
	"github.com/cuentas-dev/cuentas/internal/store"
	"github.com/cuentas-dev/cuentas/internal/transactions"
)

// auditDirName holds import-log.csv, beside the database.
const auditDirName = "logs"

// env is the wired application a command runs against.
type env struct {
	cfg    *config.Config
	log    zerolog.Logger
	dbPath string
	store  *store.Store

	importer     *importer.Importer
	transactions *transactions.Service
	categories   *categories.Service
	similarity   *similarity.Finder
}

// openEnv loads the config (defaults when the file is missing), applies
// environment overrides and opens the store.
func openEnv(cfgPath string) (*env, error) {
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	absCfg, err := filepath.Abs(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	dbPath := cfg.DatabasePath(filepath.Dir(absCfg))

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:    cfg,
		log:    log,
		dbPath: dbPath,
		store:  st,
		importer: importer.New(st, importer.Options{
			MaxUploadBytes: cfg.Import.MaxUploadBytes,
			Logger:         log,
			AuditDir:       filepath.Join(filepath.Dir(dbPath), auditDirName),
		}),
		transactions: transactions.NewService(st),
		categories:   categories.NewService(st),
		similarity:   similarity.NewFinder(st, cfg.Similarity.Threshold, log),
	}, nil
}

func (e *env) Close() error {
	return e.store.Close()
}
