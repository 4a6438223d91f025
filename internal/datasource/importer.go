package datasource

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-edge/internal/models"
	"github.com/yourusername/keiba-edge/internal/repository"
)

// Report source names
const (
	ReportEntries   = "import_entries"
	ReportHistory   = "import_history"
	ReportPedigrees = "import_pedigrees"
	ReportPayouts   = "import_payouts"
)

// ImportSummary lists one report per imported table
type ImportSummary struct {
	Source  string
	Reports []models.ParseReport
}

// Importer writes validated bundles to the raw-table repositories. Rows of a
// delivered race (or horse, for history) replace what is stored for it.
type Importer struct {
	entries   repository.EntryRepository
	history   repository.HistoryRepository
	pedigrees repository.PedigreeRepository
	payouts   repository.PayoutRepository
	validate  *validator.Validate
	logger    *logrus.Entry
}

// NewImporter creates an importer over the raw-table repositories
func NewImporter(repos *repository.Repositories, logger *logrus.Logger) *Importer {
	return &Importer{
		entries:   repos.Entry,
		history:   repos.History,
		pedigrees: repos.Pedigree,
		payouts:   repos.Payout,
		validate:  validator.New(),
		logger:    logger.WithField("component", "importer"),
	}
}

// Import fetches one bundle from source and stores it
func (im *Importer) Import(ctx context.Context, source Source) (*ImportSummary, error) {
	bundle, err := source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from %s: %w", source.Name(), err)
	}

	entries, entryReport := clean(im.validate, ReportEntries, bundle.Entries, func(e models.RawEntry) string {
		return e.RaceID + "/" + e.HorseNumber
	})
	history, historyReport := clean(im.validate, ReportHistory, bundle.History, nil)
	pedigrees, pedigreeReport := clean(im.validate, ReportPedigrees, bundle.Pedigrees, func(p models.Pedigree) string {
		return p.HorseID
	})
	payouts, payoutReport := clean(im.validate, ReportPayouts, bundle.Payouts, func(p models.RawPayout) string {
		return p.RaceID + "/" + p.BetType
	})

	if err := im.entries.UpsertBatch(ctx, entries); err != nil {
		return nil, fmt.Errorf("failed to import race entries: %w", err)
	}
	if err := im.history.ReplaceBatch(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to import horse history: %w", err)
	}
	if err := im.pedigrees.UpsertBatch(ctx, pedigrees); err != nil {
		return nil, fmt.Errorf("failed to import pedigrees: %w", err)
	}
	if err := im.payouts.UpsertBatch(ctx, payouts); err != nil {
		return nil, fmt.Errorf("failed to import payouts: %w", err)
	}

	summary := &ImportSummary{
		Source:  source.Name(),
		Reports: []models.ParseReport{entryReport, historyReport, pedigreeReport, payoutReport},
	}
	for _, report := range summary.Reports {
		im.logger.WithFields(logrus.Fields{
			"table":   report.Source,
			"total":   report.Total,
			"stored":  report.Parsed,
			"skipped": report.Skipped,
		}).Info("Imported raw table")
	}
	return summary, nil
}

// clean drops rows failing struct validation and, when key is set, all but the
// last row of each duplicated key. Surviving rows keep their order.
func clean[T any](validate *validator.Validate, source string, rows []T, key func(T) string) ([]T, models.ParseReport) {
	report := models.NewParseReport(source)

	valid := make([]T, 0, len(rows))
	for _, row := range rows {
		if err := validate.Struct(row); err != nil {
			report.Skip(models.NewValidationError(CodeMissingKey, err.Error()))
			continue
		}
		valid = append(valid, row)
	}
	if key == nil {
		for range valid {
			report.Ok()
		}
		return valid, report
	}

	last := make(map[string]int, len(valid))
	for i, row := range valid {
		last[key(row)] = i
	}
	kept := make([]T, 0, len(last))
	for i, row := range valid {
		k := key(row)
		if last[k] != i {
			report.Skip(models.NewValidationError(CodeDuplicateKey, "superseded by a later row").WithKey(k))
			continue
		}
		report.Ok()
		kept = append(kept, row)
	}
	return kept, report
}
