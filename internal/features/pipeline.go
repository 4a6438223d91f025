package features

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/keiba-edge/internal/config"
	"github.com/yourusername/keiba-edge/internal/logger"
	"github.com/yourusername/keiba-edge/internal/models"
)

// Identifier codec fields.
const (
	FieldHorseID  = "horse_id"
	FieldJockeyID = "jockey_id"
)

// baseColumns are the numeric entry columns, in output order.
var baseColumns = []string{
	"frame_number",
	"horse_number",
	"impost",
	"course_len",
	"age",
	"body_weight",
	"weight_change",
}

// Config holds feature pipeline settings.
type Config struct {
	Mode            Mode
	Windows         []Window
	NominalColumns  []string
	PedigreeColumns int
	Workers         int
}

// DefaultConfig returns the standard three-window labeled configuration.
func DefaultConfig() Config {
	five, _ := LastN(5)
	nine, _ := LastN(9)
	return Config{
		Mode:    ModeLabeled,
		Windows: []Window{five, nine, WindowAll},
		NominalColumns: []string{
			models.ColumnWeather,
			models.ColumnRaceType,
			models.ColumnGroundState,
			models.ColumnSex,
		},
		PedigreeColumns: 62,
		Workers:         4,
	}
}

// FromConfig creates a pipeline Config from application config.
func FromConfig(cfg *config.FeaturesConfig, mode Mode) (Config, error) {
	windows, err := ParseWindows(cfg.Windows)
	if err != nil {
		return Config{}, err
	}
	c := Config{
		Mode:            mode,
		Windows:         windows,
		NominalColumns:  append([]string(nil), cfg.NominalColumns...),
		PedigreeColumns: cfg.PedigreeColumns,
		Workers:         cfg.Workers,
	}
	return c, c.Validate()
}

// Validate checks the pipeline configuration.
func (c Config) Validate() error {
	if c.Mode != ModeLabeled && c.Mode != ModeUnlabeled {
		return fmt.Errorf("%w: unknown pipeline mode %s", models.ErrInvalidArgument, c.Mode)
	}
	if len(c.Windows) == 0 {
		return fmt.Errorf("%w: at least one aggregation window is required", models.ErrInvalidArgument)
	}
	for _, column := range c.NominalColumns {
		if !models.IsNominalColumn(column) {
			return fmt.Errorf("%w: %q is not a nominal column", models.ErrInvalidArgument, column)
		}
	}
	if c.PedigreeColumns < 0 {
		return fmt.Errorf("%w: pedigree column count must not be negative", models.ErrInvalidArgument)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", models.ErrInvalidArgument)
	}
	return nil
}

// PedigreeColumn names the i-th ancestor column.
func PedigreeColumn(i int) string {
	return "ped_" + strconv.Itoa(i)
}

// Pipeline turns raw tables into a feature table.
type Pipeline struct {
	cfg    Config
	logger *logger.PipelineLogger
}

// NewPipeline creates a pipeline for cfg.
func NewPipeline(cfg Config, log *logrus.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	return &Pipeline{
		cfg:    cfg,
		logger: logger.NewPipelineLogger(log),
	}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Inputs are the raw tables a pipeline run consumes.
// A nil Vocabularies builds the one-hot vocabulary from the batch itself,
// which is only appropriate for the reference corpus.
type Inputs struct {
	Entries      []models.RawEntry
	History      []models.RawHistoricalResult
	Pedigrees    []models.Pedigree
	Vocabularies []Vocabulary
}

// Result is the output of a pipeline run.
type Result struct {
	Table           *FeatureTable
	State           CodecState
	Vocabularies    []Vocabulary
	EntryReport     models.ParseReport
	HistoryReport   models.ParseReport
	MissingPedigree []string
}

// Build runs every stage in order.
func (p *Pipeline) Build(ctx context.Context, in Inputs, state CodecState) (*Result, error) {
	start := time.Now()
	entries, entryReport := p.NormalizeEntries(in.Entries)
	p.logger.LogParseReport(entryReport)
	p.logger.LogStage("normalize_entries", len(in.Entries), len(entries), time.Since(start))

	start = time.Now()
	history, historyReport := ParseHistory(in.History)
	p.logger.LogParseReport(historyReport)
	p.logger.LogStage("parse_history", len(in.History), len(history), time.Since(start))

	start = time.Now()
	rows, err := p.MergeHorseResults(ctx, entries, history)
	if err != nil {
		return nil, fmt.Errorf("failed to merge horse results: %w", err)
	}
	p.logger.LogStage("merge_horse_results", len(entries), len(rows), time.Since(start))

	start = time.Now()
	missing, err := p.AttachPedigree(rows, in.Pedigrees)
	if err != nil {
		return nil, fmt.Errorf("failed to attach pedigree: %w", err)
	}
	p.logger.LogMissingPedigree(missing)
	p.logger.LogStage("attach_pedigree", len(rows), len(rows), time.Since(start))

	vocabs := in.Vocabularies
	if vocabs == nil {
		vocabs, err = BuildVocabularies(entries, p.cfg.NominalColumns)
		if err != nil {
			return nil, fmt.Errorf("failed to build vocabularies: %w", err)
		}
	}

	start = time.Now()
	table, next, err := p.EncodeCategoricals(rows, state, vocabs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode categoricals: %w", err)
	}
	p.logger.LogStage("encode_categoricals", len(rows), table.Len(), time.Since(start))

	return &Result{
		Table:           table,
		State:           next,
		Vocabularies:    vocabs,
		EntryReport:     entryReport,
		HistoryReport:   historyReport,
		MissingPedigree: missing,
	}, nil
}

// NormalizeEntries normalizes raw entries under the pipeline's mode.
func (p *Pipeline) NormalizeEntries(raw []models.RawEntry) ([]models.RaceEntry, models.ParseReport) {
	return NormalizeEntries(raw, p.cfg.Mode)
}

// MergeHorseResults joins every configured window's aggregates onto entries.
// Each race date is aggregated independently; dates run on a bounded worker
// pool and write only to their own rows, so the output does not depend on
// completion order.
func (p *Pipeline) MergeHorseResults(ctx context.Context, entries []models.RaceEntry, history []models.HistoricalResult) ([]Row, error) {
	rows := make([]Row, len(entries))
	byDate := make(map[int64][]int)
	var dateKeys []int64
	for i, entry := range entries {
		rows[i] = Row{RaceEntry: entry, Aggregates: make(map[string]float64, 2*len(p.cfg.Windows))}
		key := entry.Date.UnixNano()
		if _, ok := byDate[key]; !ok {
			dateKeys = append(dateKeys, key)
		}
		byDate[key] = append(byDate[key], i)
	}
	sort.Slice(dateKeys, func(i, j int) bool { return dateKeys[i] < dateKeys[j] })

	aggregator := NewAggregator(history)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, key := range dateKeys {
		indices := byDate[key]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return mergeDate(aggregator, rows, indices, p.cfg.Windows)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, window := range p.cfg.Windows {
		withHistory := 0
		for _, row := range rows {
			if _, ok := row.Aggregates[window.RankColumn()]; ok {
				withHistory++
			}
		}
		p.logger.LogWindowAggregation(window.String(), len(dateKeys), withHistory, len(rows))
	}
	return rows, nil
}

func mergeDate(aggregator *Aggregator, rows []Row, indices []int, windows []Window) error {
	asOf := rows[indices[0]].Date
	horseIDs := make([]string, 0, len(indices))
	seen := make(map[string]struct{}, len(indices))
	for _, i := range indices {
		id := rows[i].HorseID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		horseIDs = append(horseIDs, id)
	}

	for _, window := range windows {
		aggregates, err := aggregator.Aggregate(horseIDs, asOf, window)
		if err != nil {
			return fmt.Errorf("window %s on %s: %w", window, asOf.Format("2006-01-02"), err)
		}
		for _, i := range indices {
			agg, ok := aggregates[rows[i].HorseID]
			if !ok {
				continue
			}
			rows[i].Aggregates[window.RankColumn()] = agg.AvgFinishRank
			rows[i].Aggregates[window.PrizeColumn()] = agg.AvgPrizeMoney
		}
	}
	return nil
}

// AttachPedigree sets each row's ancestors and returns the horse ids with no
// pedigree row, in first-seen order. Short pedigrees are padded with the
// missing-ancestor marker; empty ancestors are replaced by it.
func (p *Pipeline) AttachPedigree(rows []Row, pedigrees []models.Pedigree) ([]string, error) {
	byHorse := make(map[string][]string, len(pedigrees))
	for _, pedigree := range pedigrees {
		if len(pedigree.Ancestors) > p.cfg.PedigreeColumns {
			return nil, fmt.Errorf("%w: horse %s has %d ancestors, expected at most %d",
				models.ErrSchemaMismatch, pedigree.HorseID, len(pedigree.Ancestors), p.cfg.PedigreeColumns)
		}
		ancestors := make([]string, p.cfg.PedigreeColumns)
		for i := range ancestors {
			ancestors[i] = models.PedigreeMissingValue
			if i < len(pedigree.Ancestors) && pedigree.Ancestors[i] != "" {
				ancestors[i] = pedigree.Ancestors[i]
			}
		}
		byHorse[pedigree.HorseID] = ancestors
	}

	var missing []string
	reported := make(map[string]struct{})
	for i := range rows {
		ancestors, ok := byHorse[rows[i].HorseID]
		if ok {
			rows[i].Pedigree = ancestors
			continue
		}
		rows[i].Pedigree = nil
		if _, done := reported[rows[i].HorseID]; !done {
			reported[rows[i].HorseID] = struct{}{}
			missing = append(missing, rows[i].HorseID)
		}
	}
	return missing, nil
}

// Columns returns the feature columns produced for vocabs, in output order.
func (p *Pipeline) Columns(vocabs []Vocabulary) []string {
	columns := append([]string(nil), baseColumns...)
	columns = append(columns, FieldHorseID, FieldJockeyID)
	for _, window := range p.cfg.Windows {
		columns = append(columns, window.RankColumn(), window.PrizeColumn())
	}
	for i := 0; i < p.cfg.PedigreeColumns; i++ {
		columns = append(columns, PedigreeColumn(i))
	}
	for _, vocab := range vocabs {
		columns = append(columns, vocab.OneHotColumns()...)
	}
	return columns
}

// EncodeCategoricals codes identifier and pedigree columns against state and
// one-hot expands nominal columns against vocabs. It returns the feature
// table and the extended state; state itself is not modified.
func (p *Pipeline) EncodeCategoricals(rows []Row, state CodecState, vocabs []Vocabulary) (*FeatureTable, CodecState, error) {
	if state.Fields == nil {
		state = NewCodecState()
	}
	if err := p.checkVocabularies(vocabs); err != nil {
		return nil, state, err
	}
	before := make(map[string]int)
	for field, values := range state.Fields {
		before[field] = len(values)
	}

	horseIDs := make([]string, len(rows))
	jockeyIDs := make([]string, len(rows))
	for i, row := range rows {
		horseIDs[i] = row.HorseID
		jockeyIDs[i] = row.JockeyID
	}
	state, horseCodes := EncodeIdentifier(state, FieldHorseID, horseIDs)
	state, jockeyCodes := EncodeIdentifier(state, FieldJockeyID, jockeyIDs)

	// Only rows with a pedigree take part in pedigree coding.
	pedigreeCodes := make([][]int, p.cfg.PedigreeColumns)
	var withPedigree []int
	for i, row := range rows {
		if row.Pedigree != nil {
			withPedigree = append(withPedigree, i)
		}
	}
	for col := 0; col < p.cfg.PedigreeColumns; col++ {
		values := make([]string, len(withPedigree))
		for j, i := range withPedigree {
			values[j] = rows[i].Pedigree[col]
		}
		state, pedigreeCodes[col] = EncodeIdentifier(state, PedigreeColumn(col), values)
	}

	oneHot := make([][][]bool, len(vocabs))
	for v, vocab := range vocabs {
		values := make([]string, len(rows))
		for i, row := range rows {
			values[i], _ = row.Nominal(vocab.Column)
		}
		encoded, err := EncodeNominal(values, vocab)
		if err != nil {
			return nil, state, err
		}
		oneHot[v] = encoded
	}

	columns := p.Columns(vocabs)
	pedigreeSlot := make(map[int]int, len(withPedigree))
	for j, i := range withPedigree {
		pedigreeSlot[i] = j
	}

	table := &FeatureTable{Columns: columns, Rows: make([]FeatureRow, len(rows))}
	for i, row := range rows {
		values := make([]float64, 0, len(columns))
		values = append(values,
			float64(row.FrameNumber),
			float64(row.HorseNumber),
			row.Impost,
			float64(row.CourseLength),
			float64(row.Age),
			optional(row.BodyWeight),
			optional(row.WeightChange),
			float64(horseCodes[i]),
			float64(jockeyCodes[i]),
		)
		for _, window := range p.cfg.Windows {
			values = append(values, aggregateValue(row, window.RankColumn()), aggregateValue(row, window.PrizeColumn()))
		}
		slot, hasPedigree := pedigreeSlot[i]
		for col := 0; col < p.cfg.PedigreeColumns; col++ {
			if !hasPedigree {
				values = append(values, math.NaN())
				continue
			}
			values = append(values, float64(pedigreeCodes[col][slot]))
		}
		for v := range vocabs {
			for _, hot := range oneHot[v][i] {
				if hot {
					values = append(values, 1)
				} else {
					values = append(values, 0)
				}
			}
		}
		table.Rows[i] = FeatureRow{
			RaceID:      row.RaceID,
			HorseNumber: row.HorseNumber,
			Date:        row.Date,
			Label:       row.Label,
			Values:      values,
		}
	}

	added := make(map[string]int)
	for field, values := range state.Fields {
		if n := len(values) - before[field]; n > 0 {
			added[field] = n
		}
	}
	p.logger.LogEncoding(state.Version, len(columns), added)
	return table, state, nil
}

func (p *Pipeline) checkVocabularies(vocabs []Vocabulary) error {
	if len(vocabs) != len(p.cfg.NominalColumns) {
		return fmt.Errorf("%w: got %d vocabularies for %d nominal columns",
			models.ErrSchemaMismatch, len(vocabs), len(p.cfg.NominalColumns))
	}
	for i, vocab := range vocabs {
		if vocab.Column != p.cfg.NominalColumns[i] {
			return fmt.Errorf("%w: vocabulary %d is for %q, expected %q",
				models.ErrSchemaMismatch, i, vocab.Column, p.cfg.NominalColumns[i])
		}
	}
	return nil
}

func optional(v *int) float64 {
	if v == nil {
		return math.NaN()
	}
	return float64(*v)
}

func aggregateValue(row Row, column string) float64 {
	v, ok := row.Aggregates[column]
	if !ok {
		return math.NaN()
	}
	return v
}
