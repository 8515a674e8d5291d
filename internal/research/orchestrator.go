// Package research drives single and batch research runs: it consults the
// store, asks the source selector for data, validates and derives the
// quarterly record, and persists the outcome.
package research

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/finresearch/internal/derive"
	"github.com/sells-group/finresearch/internal/model"
	"github.com/sells-group/finresearch/internal/resilience"
	"github.com/sells-group/finresearch/internal/store"
	"github.com/sells-group/finresearch/internal/validate"
)

// Validation statuses stamped on derived records.
const (
	ValidationValid   = "valid"
	ValidationInvalid = "invalid"
)

const (
	defaultDelay      = 500 * time.Millisecond
	defaultMaxWorkers = 3
)

// Selector produces a result for a period and never fails.
type Selector interface {
	Select(ctx context.Context, p model.Period) *model.ExtractionResult
}

// Orchestrator coordinates research runs.
type Orchestrator struct {
	store     store.Store
	selector  Selector
	validator *validate.Validator
	validate  *validator.Validate
	delay     time.Duration
	now       func() time.Time
	newID     func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDelay sets the pause between consecutive items of one company.
func WithDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.delay = d }
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New returns an Orchestrator. A nil validator uses the default thresholds.
func New(st store.Store, sel Selector, v *validate.Validator, opts ...Option) *Orchestrator {
	if v == nil {
		v = validate.New(validate.DefaultThresholds())
	}
	o := &Orchestrator{
		store:     st,
		selector:  sel,
		validator: v,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		delay:     defaultDelay,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ResearchOne returns the stored record for p when there is one. Otherwise
// it researches p, persists the outcome and returns it. Records that fail
// validation are still persisted with their report.
func (o *Orchestrator) ResearchOne(ctx context.Context, p model.Period) (*model.ResearchRecord, error) {
	if err := o.validate.Struct(p); err != nil {
		return nil, eris.Wrapf(err, "research: invalid request %s", p)
	}
	log := zap.L().With(zap.String("company", p.Company), zap.String("quarter", string(p.Quarter)), zap.Int("year", p.Year))

	existing, err := o.store.Load(ctx, p)
	if err != nil {
		return nil, eris.Wrapf(err, "research: load %s", p)
	}
	if existing != nil {
		log.Info("research: found existing research")
		return existing, nil
	}

	log.Info("research: researching")
	res := o.selector.Select(ctx, p)
	if res == nil {
		res = model.NewResult(p, model.SourceNone)
	}

	now := o.now().UTC()
	rec := &model.ResearchRecord{
		ID:               o.newID(),
		ExtractionResult: *res,
		Status:           model.StatusNoData,
		ResearchedAt:     now,
		SavedAt:          now,
		Version:          model.RecordVersion,
	}

	report := model.NewValidationReport()
	if !res.Empty() {
		rec.Status = model.StatusSuccess
		report = o.validator.Check(res.ExtractedData)

		derived, derr := derive.Record(p, res.ExtractedData, res.Source)
		if derr != nil {
			report.AddError(derr.Error())
		}
		prev := o.previous(ctx, p)
		merge(&report, o.validator.CheckRecord(derived, prev))

		derived.ValidationStatus = ValidationValid
		if !report.Valid {
			derived.ValidationStatus = ValidationInvalid
		}
		rec.Derived = derived
	}
	rec.Validation = &report

	if err := o.store.Save(ctx, rec); err != nil {
		return nil, eris.Wrapf(err, "research: save %s", p)
	}
	log.Info("research: saved",
		zap.String("status", string(rec.Status)),
		zap.String("source", string(rec.Source)),
		zap.Int("indicators", len(rec.ExtractedData)),
		zap.Bool("valid", report.Valid),
	)
	return rec, nil
}

// previous returns the derived record of the quarter before p, when stored.
func (o *Orchestrator) previous(ctx context.Context, p model.Period) *model.QuarterlyRecord {
	prev, err := o.store.Load(ctx, p.Previous())
	if err != nil {
		zap.L().Warn("research: load previous quarter", zap.String("period", p.Previous().String()), zap.Error(err))
		return nil
	}
	if prev == nil {
		return nil
	}
	return prev.Derived
}

func merge(dst *model.ValidationReport, src model.ValidationReport) {
	for _, e := range src.Errors {
		dst.AddError(e)
	}
	for _, w := range src.Warnings {
		dst.AddWarning(w)
	}
}

// BatchRequest describes a companies x quarters research run.
type BatchRequest struct {
	Companies  []string        `json:"companies" validate:"required,min=1,dive,required"`
	Quarters   []model.Quarter `json:"quarters" validate:"required,min=1,dive,oneof=Q1 Q2 Q3 Q4"`
	Year       int             `json:"year" validate:"gte=2000,lte=2100"`
	Parallel   bool            `json:"parallel"`
	MaxWorkers int             `json:"max_workers" validate:"gte=0"`

	// OnProgress, when set, receives a snapshot after every item. Calls
	// are serialized.
	OnProgress func(ProgressSummary) `json:"-" validate:"-"`
	// Tracker lets a caller poll progress while the batch runs. A fresh
	// one is created when nil.
	Tracker *Tracker `json:"-" validate:"-"`
}

// Outcome is the result of one company-quarter in a batch.
type Outcome struct {
	Period model.Period          `json:"period"`
	Status model.ResearchStatus  `json:"status"`
	Record *model.ResearchRecord `json:"record,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// BatchResult holds per-item outcomes in request order.
type BatchResult struct {
	ID       string                `json:"id"`
	Outcomes []Outcome             `json:"outcomes"`
	Failures []resilience.DLQEntry `json:"failures"`
	Progress ProgressSummary       `json:"progress"`
}

// Succeeded counts outcomes with data.
func (r *BatchResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == model.StatusSuccess {
			n++
		}
	}
	return n
}

// batchRun is the shared state of one ResearchMany call.
type batchRun struct {
	req      BatchRequest
	tracker  *Tracker
	outcomes []Outcome
	errs     []error
	cbMu     sync.Mutex
}

// ResearchMany researches every company-quarter of req. A failing item is
// recorded in its outcome and in Failures and never stops the batch. The
// returned error reports only an invalid request.
func (o *Orchestrator) ResearchMany(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	if err := o.validate.Struct(req); err != nil {
		return nil, eris.Wrap(err, "research: invalid batch request")
	}

	run := &batchRun{
		req:      req,
		tracker:  req.Tracker,
		outcomes: make([]Outcome, len(req.Companies)*len(req.Quarters)),
		errs:     make([]error, len(req.Companies)*len(req.Quarters)),
	}
	if run.tracker == nil {
		run.tracker = NewTracker()
	}
	for _, company := range req.Companies {
		for _, q := range req.Quarters {
			p := model.Period{Company: company, Quarter: q, Year: req.Year}
			run.tracker.Register(ItemID(p), ItemDescription(p))
		}
	}

	zap.L().Info("research: starting batch",
		zap.Int("companies", len(req.Companies)),
		zap.Int("quarters", len(req.Quarters)),
		zap.Int("year", req.Year),
		zap.Bool("parallel", req.Parallel),
	)

	if req.Parallel {
		o.runParallel(ctx, run)
	} else {
		for ci := range req.Companies {
			if err := o.runCompany(ctx, run, ci); err != nil {
				o.failRest(run, ci+1, err)
				break
			}
		}
	}

	res := &BatchResult{
		ID:       o.newID(),
		Outcomes: run.outcomes,
		Failures: []resilience.DLQEntry{},
		Progress: run.tracker.Summary(),
	}
	for i, err := range run.errs {
		if err != nil {
			res.Failures = append(res.Failures, resilience.NewDLQEntry(run.outcomes[i].Period, err, o.now().UTC()))
		}
	}

	zap.L().Info("research: batch complete",
		zap.Int("succeeded", res.Succeeded()),
		zap.Int("failed", len(res.Failures)),
		zap.Float64("success_rate", res.Progress.SuccessRate),
	)
	return res, nil
}

// runParallel fans companies out over a bounded pool. Quarters of one
// company stay sequential.
func (o *Orchestrator) runParallel(ctx context.Context, run *batchRun) {
	workers := run.req.MaxWorkers
	if workers <= 0 {
		workers = defaultMaxWorkers
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for ci := range run.req.Companies {
		ci := ci
		g.Go(func() error {
			_ = o.runCompany(ctx, run, ci)
			return nil // one company never stops the others
		})
	}
	_ = g.Wait()
}

// runCompany researches every quarter of company ci, pausing between
// items. It returns an error only when ctx ends during a pause.
func (o *Orchestrator) runCompany(ctx context.Context, run *batchRun, ci int) error {
	company := run.req.Companies[ci]
	zap.L().Info("research: processing company", zap.String("company", company))

	for qi, q := range run.req.Quarters {
		idx := ci*len(run.req.Quarters) + qi
		if qi > 0 || (ci > 0 && !run.req.Parallel) {
			if err := sleepCtx(ctx, o.delay); err != nil {
				o.failFrom(run, idx, err)
				return err
			}
		}
		p := model.Period{Company: company, Quarter: q, Year: run.req.Year}
		run.outcomes[idx], run.errs[idx] = o.runItem(ctx, run.tracker, p)
		run.report()
	}
	return nil
}

// runItem researches one period, converting errors and panics into a
// failed outcome.
func (o *Orchestrator) runItem(ctx context.Context, tr *Tracker, p model.Period) (out Outcome, err error) {
	id := ItemID(p)
	tr.Start(id, ItemDescription(p))

	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("research: panic researching %s: %v", p, r)
			zap.L().Error("research: recovered panic", zap.String("period", p.String()), zap.Any("panic", r))
			out = Outcome{Period: p, Status: model.StatusFailed, Error: err.Error()}
			tr.Fail(id, err.Error())
		}
	}()

	if err := ctx.Err(); err != nil {
		tr.Fail(id, err.Error())
		return Outcome{Period: p, Status: model.StatusFailed, Error: err.Error()}, err
	}

	rec, err := o.ResearchOne(ctx, p)
	if err != nil {
		zap.L().Error("research: item failed", zap.String("period", p.String()), zap.Error(err))
		tr.Fail(id, err.Error())
		return Outcome{Period: p, Status: model.StatusFailed, Error: err.Error()}, err
	}
	if rec.Status != model.StatusSuccess {
		msg := rec.Error
		if msg == "" {
			msg = "no data"
		}
		tr.Fail(id, msg)
		return Outcome{Period: p, Status: rec.Status, Record: rec, Error: msg}, nil
	}
	tr.Complete(id)
	return Outcome{Period: p, Status: model.StatusSuccess, Record: rec}, nil
}

func (r *batchRun) report() {
	if r.req.OnProgress == nil {
		return
	}
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	r.req.OnProgress(r.tracker.Summary())
}

// failFrom fails the remaining quarters of one company starting at idx.
func (o *Orchestrator) failFrom(run *batchRun, idx int, err error) {
	n := len(run.req.Quarters)
	ci := idx / n
	for i := idx; i < (ci+1)*n; i++ {
		o.failIndex(run, i, err)
	}
}

// failRest fails every item of companies from ci on.
func (o *Orchestrator) failRest(run *batchRun, ci int, err error) {
	n := len(run.req.Quarters)
	for i := ci * n; i < len(run.outcomes); i++ {
		o.failIndex(run, i, err)
	}
}

func (o *Orchestrator) failIndex(run *batchRun, i int, err error) {
	n := len(run.req.Quarters)
	p := model.Period{Company: run.req.Companies[i/n], Quarter: run.req.Quarters[i%n], Year: run.req.Year}
	run.outcomes[i] = Outcome{Period: p, Status: model.StatusFailed, Error: err.Error()}
	run.errs[i] = err
	run.tracker.Fail(ItemID(p), err.Error())
}

// Statistics combines the store summary with an optional batch snapshot.
type Statistics struct {
	store.Summary
	Progress *ProgressSummary `json:"progress,omitempty"`
}

// Statistics summarizes stored research. tr may be nil.
func (o *Orchestrator) Statistics(ctx context.Context, tr *Tracker) (*Statistics, error) {
	sum, err := store.SummaryOf(ctx, o.store)
	if err != nil {
		return nil, eris.Wrap(err, "research: statistics")
	}
	s := &Statistics{Summary: sum}
	if tr != nil {
		ps := tr.Summary()
		s.Progress = &ps
	}
	return s, nil
}

// QuarterlyRecord rebuilds the derived record for p from storage. It
// returns nil when nothing successful is stored.
func (o *Orchestrator) QuarterlyRecord(ctx context.Context, p model.Period) (*model.QuarterlyRecord, error) {
	rec, err := o.store.Load(ctx, p)
	if err != nil {
		return nil, eris.Wrapf(err, "research: load %s", p)
	}
	if rec == nil || rec.Status != model.StatusSuccess {
		return nil, nil
	}
	q, err := derive.Record(p, rec.ExtractedData, rec.Source)
	if err != nil {
		return q, eris.Wrap(err, "research: rebuild record")
	}
	if rec.Derived != nil {
		q.ValidationStatus = rec.Derived.ValidationStatus
	}
	return q, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "research: interrupted")
	case <-t.C:
		return nil
	}
}
