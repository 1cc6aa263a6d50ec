// Package ingest drives spreadsheet rows through validation, blood group
// normalization, geolocation and dedup-guarded insertion.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bloodbuddy/donor-cli/internal/bloodgroup"
	"github.com/bloodbuddy/donor-cli/internal/fetcher"
	"github.com/bloodbuddy/donor-cli/internal/geo"
	"github.com/bloodbuddy/donor-cli/internal/metrics"
	"github.com/bloodbuddy/donor-cli/internal/model"
	"github.com/bloodbuddy/donor-cli/internal/store"
	"github.com/bloodbuddy/donor-cli/internal/validate"
)

// Columns maps donor fields to spreadsheet header text.
type Columns struct {
	Name       string `yaml:"name" mapstructure:"name"`
	Mobile     string `yaml:"mobile" mapstructure:"mobile"`
	Address    string `yaml:"address" mapstructure:"address"`
	BloodGroup string `yaml:"blood_group" mapstructure:"blood_group"`
}

// DefaultColumns matches the college registration export.
func DefaultColumns() Columns {
	return Columns{
		Name:       "Student Full Name",
		Mobile:     "Mobile Number",
		Address:    "Permanent Address",
		BloodGroup: "Blood Group",
	}
}

// Config controls a Pipeline.
type Config struct {
	Columns Columns
	// Source is recorded in the report.
	Source string
	// DryRun validates and resolves every row but writes to a throwaway
	// in-memory store instead of the real one.
	DryRun bool
}

// Locator resolves addresses. *geo.Resolver implements it.
type Locator interface {
	Resolve(ctx context.Context, address string) geo.Location
	Fallback() geo.Location
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records row outcomes and location sources.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline ingests donor rows one at a time.
type Pipeline struct {
	store   store.Store
	locator Locator
	cfg     Config
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a Pipeline. Empty column names fall back to DefaultColumns.
func New(st store.Store, loc Locator, cfg Config, opts ...Option) *Pipeline {
	def := DefaultColumns()
	if cfg.Columns.Name == "" {
		cfg.Columns.Name = def.Name
	}
	if cfg.Columns.Mobile == "" {
		cfg.Columns.Mobile = def.Mobile
	}
	if cfg.Columns.Address == "" {
		cfg.Columns.Address = def.Address
	}
	if cfg.Columns.BloodGroup == "" {
		cfg.Columns.BloodGroup = def.BloodGroup
	}
	p := &Pipeline{store: st, locator: loc, cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Outcomes recorded per row.
const (
	OutcomeInserted       = "inserted"
	OutcomeInvalidName    = "invalid_name"
	OutcomeInvalidMobile  = "invalid_mobile"
	OutcomeDuplicate      = "duplicate"
	OutcomeBatchDuplicate = "batch_duplicate"
	OutcomeEmpty          = "empty"
)

// Run processes rows in order and returns the run report. Row problems are
// counted, never returned. A store failure other than a duplicate contact
// aborts the run and is returned together with the report so far. Cancelling
// ctx stops the run between rows with Stopped set and a nil error; the row in
// flight when ctx is cancelled is still resolved and inserted.
func (p *Pipeline) Run(ctx context.Context, rows []fetcher.Row) (model.RunReport, error) {
	report := model.RunReport{
		RunID:     uuid.New().String(),
		Source:    p.cfg.Source,
		StartedAt: p.now().UTC(),
		DryRun:    p.cfg.DryRun,
	}
	start := time.Now()

	log := zap.L().With(zap.String("run_id", report.RunID))
	log.Info("ingest: starting run", zap.Int("rows", len(rows)), zap.Bool("dry_run", p.cfg.DryRun))

	st := p.store
	if p.cfg.DryRun {
		st = store.NewMemory()
	}

	batch := p.prepare(rows, &report)

	for _, r := range batch {
		if ctx.Err() != nil {
			report.Stopped = true
			log.Warn("ingest: run stopped early", zap.Int("processed", report.Processed()))
			break
		}
		if err := p.processRow(ctx, st, r, &report, log); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}
	}
	// A cancel that lands during the final row still marks the run stopped.
	if !report.Stopped && ctx.Err() != nil {
		report.Stopped = true
		log.Warn("ingest: run interrupted on final row", zap.Int("processed", report.Processed()))
	}

	report.Duration = time.Since(start)
	log.Info("ingest: run finished",
		zap.Int("inserted", report.Inserted),
		zap.Int("rejected", report.Rejected()),
		zap.Bool("stopped", report.Stopped),
	)
	return report, nil
}

type batchRow struct {
	line int
	row  fetcher.Row
}

// prepare drops blank rows and collapses repeated valid mobiles, keeping the
// first occurrence. Invalid mobiles are left for per-row rejection.
func (p *Pipeline) prepare(rows []fetcher.Row, report *model.RunReport) []batchRow {
	report.Total = len(rows)
	seen := make(map[string]bool, len(rows))
	batch := make([]batchRow, 0, len(rows))
	for i, r := range rows {
		// Line numbers match the spreadsheet: header is line 1.
		line := i + 2
		if r.Blank() {
			report.Empty++
			p.metrics.IncRow(OutcomeEmpty)
			continue
		}
		raw := r.Get(p.cfg.Columns.Mobile)
		if validate.ValidMobile(raw) {
			key := validate.NormalizeMobile(raw)
			if seen[key] {
				report.BatchDuplicate++
				p.metrics.IncRow(OutcomeBatchDuplicate)
				zap.L().Debug("ingest: repeated mobile in batch", zap.Int("line", line))
				continue
			}
			seen[key] = true
		}
		batch = append(batch, batchRow{line: line, row: r})
	}
	return batch
}

func (p *Pipeline) processRow(ctx context.Context, st store.Store, br batchRow, report *model.RunReport, log *zap.Logger) error {
	cols := p.cfg.Columns
	name := br.row.Get(cols.Name)
	rawMobile := br.row.Get(cols.Mobile)
	address := br.row.Get(cols.Address)
	rawGroup := br.row.Get(cols.BloodGroup)

	trace := func(outcome string, fields ...zap.Field) {
		p.metrics.IncRow(outcome)
		log.Debug("ingest: row",
			append([]zap.Field{
				zap.Int("line", br.line),
				zap.String("name", name),
				zap.String("blood_group_raw", rawGroup),
				zap.String("outcome", outcome),
			}, fields...)...,
		)
	}

	if !validate.ValidName(name) {
		report.InvalidName++
		trace(OutcomeInvalidName)
		return nil
	}
	if !validate.ValidMobile(rawMobile) {
		report.InvalidMobile++
		trace(OutcomeInvalidMobile)
		return nil
	}

	// An unrecognized group is not a rejection; the donor is stored without one.
	group, known := bloodgroup.Normalize(rawGroup)

	// Once started, a row is resolved and inserted even if ctx is cancelled.
	rowCtx := context.WithoutCancel(ctx)

	loc := p.locator.Resolve(rowCtx, address)
	if !validate.ValidCoordinate(loc.Latitude, loc.Longitude) {
		log.Warn("ingest: resolver returned invalid coordinate, resampling",
			zap.Int("line", br.line),
			zap.Float64("latitude", loc.Latitude),
			zap.Float64("longitude", loc.Longitude),
		)
		loc = p.locator.Fallback()
	}
	if loc.Source == geo.SourceGeocoder {
		report.Geocoded++
	} else {
		report.Fallback++
	}
	p.metrics.IncLocation(string(loc.Source))

	d := model.Donor{
		Name:      name,
		Contact:   validate.NormalizeMobile(rawMobile),
		City:      loc.City,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
	}
	if known {
		d.BloodGroup = model.GroupPtr(group)
	}

	_, err := st.InsertDonor(rowCtx, d)
	switch {
	case errors.Is(err, store.ErrDuplicateContact):
		report.Duplicate++
		trace(OutcomeDuplicate)
		return nil
	case err != nil:
		return eris.Wrapf(err, "ingest: insert line %d", br.line)
	}

	report.Inserted++
	if !known {
		report.MissingBloodGroup++
	}
	trace(OutcomeInserted,
		zap.String("blood_group", d.Group()),
		zap.String("source", string(loc.Source)),
	)
	return nil
}
