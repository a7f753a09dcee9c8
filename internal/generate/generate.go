// Package generate drives a description through generation, validation and
// materialization, retrying rejected output.
package generate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/renderinc/notion-architect/internal/architect"
	"github.com/renderinc/notion-architect/internal/blueprint"
	"github.com/renderinc/notion-architect/internal/extract"
	"github.com/renderinc/notion-architect/internal/llm"
	"github.com/renderinc/notion-architect/internal/metrics"
	"github.com/renderinc/notion-architect/internal/prompt"
	"github.com/renderinc/notion-architect/internal/storage"
)

// DefaultSampling is the sampling of the first attempt.
var DefaultSampling = llm.Sampling{Temperature: 1.0, TopP: 0.4}

const (
	temperatureStep = 0.2
	topPStep        = 0.1
	samplingFloor   = 0.1

	// DefaultExamples is how many few-shot examples a request carries.
	DefaultExamples = 2
)

// Attempt outcomes, as recorded and counted.
const (
	OutcomeOK          = "ok"
	OutcomeMalformed   = "malformed"
	OutcomeInvalid     = "invalid"
	OutcomeStreamError = "stream_error"
	OutcomeCancelled   = "cancelled"
)

// Recorder keeps the history of runs. *storage.DB implements it.
type Recorder interface {
	CreateRun(run *storage.Run) error
	AddAttempt(a *storage.Attempt) error
	FinishRun(id, state, pageID, errMsg string, at time.Time) error
}

var _ Recorder = (*storage.DB)(nil)

// Result is a successful run.
type Result struct {
	RunID     string
	PageID    string
	Narrative string
	Document  *blueprint.Page
	Attempts  int
}

// Controller runs generations. It is safe for concurrent use; every Run owns
// its own state.
type Controller struct {
	gen         llm.Generator
	mat         *architect.Materializer
	log         zerolog.Logger
	examples    prompt.Source
	nExamples   int
	recorder    Recorder
	sampling    llm.Sampling
	maxAttempts uint
	delay       time.Duration
	delayType   retry.DelayTypeFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithExamples sets where few-shot examples come from and how many to use.
func WithExamples(src prompt.Source, n int) Option {
	return func(c *Controller) {
		c.examples = src
		c.nExamples = n
	}
}

// WithRecorder stores every run and attempt.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithSampling sets the sampling of the first attempt.
func WithSampling(s llm.Sampling) Option {
	return func(c *Controller) {
		c.sampling = s
	}
}

// WithMaxAttempts bounds the number of attempts. 0 retries until the
// output is accepted or the context ends.
func WithMaxAttempts(n uint) Option {
	return func(c *Controller) {
		c.maxAttempts = n
	}
}

// WithDelay sets the pause between attempts.
func WithDelay(d time.Duration, delayType retry.DelayTypeFunc) Option {
	return func(c *Controller) {
		c.delay = d
		c.delayType = delayType
	}
}

// New creates a Controller generating with gen and writing through mat.
func New(gen llm.Generator, mat *architect.Materializer, log zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		gen:       gen,
		mat:       mat,
		log:       log,
		examples:  prompt.Static(prompt.Defaults()),
		nExamples: DefaultExamples,
		sampling:  DefaultSampling,
		delay:     time.Second,
		delayType: retry.BackOffDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// With returns a copy of c with opts applied. c itself is unchanged.
func (c *Controller) With(opts ...Option) *Controller {
	cp := *c
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// Sampling returns the sampling of the first attempt.
func (c *Controller) Sampling() llm.Sampling {
	return c.sampling
}

// Step returns the sampling of the attempt after the given number of
// rejected ones: each retry lowers temperature by 0.2 and top_p by 0.1,
// down to 0.1.
func Step(initial llm.Sampling, retries int) llm.Sampling {
	step := func(v, by float64) float64 {
		floor := math.Min(v, samplingFloor)
		return math.Round(math.Max(v-by*float64(retries), floor)*100) / 100
	}
	return llm.Sampling{
		Temperature: step(initial.Temperature, temperatureStep),
		TopP:        step(initial.TopP, topPStep),
		JSONMode:    initial.JSONMode,
	}
}

// Retryable reports whether err rejects the content of an attempt, as
// opposed to a transport, remote or cancellation failure.
func Retryable(err error) bool {
	return errors.Is(err, blueprint.ErrMalformed) || errors.Is(err, blueprint.ErrInvalid)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled):
		return OutcomeCancelled
	case errors.Is(err, blueprint.ErrMalformed):
		return OutcomeMalformed
	case errors.Is(err, blueprint.ErrInvalid):
		return OutcomeInvalid
	default:
		return OutcomeStreamError
	}
}

// run is the state of one Run call.
type run struct {
	c       *Controller
	ctx     context.Context
	id      string
	emit    func(Event)
	attempt int
}

func (r *run) state(s State, mut func(*Event)) {
	ev := Event{Kind: KindState, RunID: r.id, Attempt: r.attempt, State: s}
	if mut != nil {
		mut(&ev)
	}
	if ev.Err != nil {
		ev.Error = ev.Err.Error()
	}
	r.c.log.Debug().Str("run", r.id).Int("attempt", r.attempt).Str("state", string(s)).Err(ev.Err).Msg("state")
	if r.emit != nil {
		r.emit(ev)
	}
}

// Run generates a document for description and materializes it under
// parentID. Rejected output is sent back to the generation service with the
// reason, at lower temperature, until it is accepted or the attempt bound is
// reached. Transport, remote and cancellation errors end the run at once. A
// cancelled run never writes to the store. emit, which may be nil, sees every
// state change and narrative delta.
func (c *Controller) Run(ctx context.Context, parentID, description string, emit func(Event)) (*Result, error) {
	r := &run{c: c, ctx: ctx, id: uuid.NewString(), emit: emit}
	c.record(func(rec Recorder) error {
		return rec.CreateRun(&storage.Run{
			ID: r.id, Description: description, Provider: c.gen.Name(),
			State: string(StateGenerating), CreatedAt: time.Now().UTC(),
		})
	})

	res, err := r.generate(description)
	if err != nil {
		return nil, r.finish("", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, r.finish("", err)
	}
	r.state(StateMaterializing, nil)
	pageID, err := c.mat.Materialize(ctx, parentID, res.Document)
	if err != nil {
		return nil, r.finish("", err)
	}

	r.finish(pageID, nil)
	return &Result{
		RunID:     r.id,
		PageID:    pageID,
		Narrative: res.Narrative,
		Document:  res.Document,
		Attempts:  r.attempt,
	}, nil
}

// Generate runs the generate and validate loop without writing anything.
func (c *Controller) Generate(ctx context.Context, description string, emit func(Event)) (*blueprint.GenerationResult, error) {
	r := &run{c: c, ctx: ctx, id: uuid.NewString(), emit: emit}
	res, err := r.generate(description)
	if err != nil {
		r.state(StateFailed, func(ev *Event) { ev.Err = err })
		return nil, err
	}
	return res, nil
}

func (r *run) generate(description string) (*blueprint.GenerationResult, error) {
	c := r.c
	examples, err := c.examples.Examples(r.ctx, description, c.nExamples)
	if err != nil {
		c.log.Warn().Err(err).Msg("example lookup failed, using built-in examples")
		examples, _ = prompt.Static(prompt.Defaults()).Examples(r.ctx, description, c.nExamples)
	}
	base, err := prompt.Build(description, examples)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	var lastRaw string
	var lastErr error
	res, err := retry.DoWithData(
		func() (*blueprint.GenerationResult, error) {
			r.attempt++
			msgs := base
			if lastErr != nil {
				msgs = prompt.Retry(base, lastRaw, blueprint.Describe(lastErr))
			}
			sampling := Step(c.sampling, r.attempt-1)

			res, raw, err := r.try(llm.Request{Messages: msgs, Sampling: sampling})
			lastRaw, lastErr = raw, err
			last := c.maxAttempts > 0 && uint(r.attempt) >= c.maxAttempts
			if err != nil && Retryable(err) && !last {
				r.state(StateFailed, func(ev *Event) {
					ev.Err = err
					ev.Retrying = true
				})
			}
			return res, err
		},
		retry.Context(r.ctx),
		retry.Attempts(c.maxAttempts),
		retry.RetryIf(Retryable),
		retry.LastErrorOnly(true),
		retry.Delay(c.delay),
		retry.MaxDelay(30*time.Second),
		retry.DelayType(c.delayType),
		retry.OnRetry(func(_ uint, err error) {
			c.log.Info().Str("run", r.id).Int("attempt", r.attempt).Err(err).Msg("output rejected, retrying")
		}),
	)
	return res, err
}

// try runs one attempt: stream, extract, parse and preflight.
func (r *run) try(req llm.Request) (*blueprint.GenerationResult, string, error) {
	c := r.c
	started := time.Now().UTC()
	r.state(StateGenerating, func(ev *Event) { ev.Sampling = &req.Sampling })

	raw, err := r.stream(req)
	var res *blueprint.GenerationResult
	if err == nil {
		r.state(StateValidating, nil)
		res, err = blueprint.Parse([]byte(raw))
		if err == nil {
			err = architect.Preflight(res.Document)
		}
	}

	out := outcome(err)
	metrics.Attempts.WithLabelValues(out).Inc()
	c.record(func(rec Recorder) error {
		a := &storage.Attempt{
			RunID: r.id, N: r.attempt, Temperature: req.Sampling.Temperature, TopP: req.Sampling.TopP,
			Outcome: out, Raw: raw, StartedAt: started,
		}
		if err != nil {
			a.Error = err.Error()
		}
		return rec.AddAttempt(a)
	})
	if err != nil {
		return nil, raw, err
	}
	return res, raw, nil
}

func (r *run) stream(req llm.Request) (string, error) {
	s, err := r.c.gen.Stream(r.ctx, req)
	if err != nil {
		return "", fmt.Errorf("start generation: %w", err)
	}
	defer s.Close()

	extracting := false
	raw, err := extract.Run(r.ctx, s, func(delta string) {
		if !extracting {
			extracting = true
			r.state(StateExtracting, nil)
		}
		if r.emit != nil {
			r.emit(Event{Kind: KindDelta, RunID: r.id, Attempt: r.attempt, Delta: delta})
		}
	})
	if err != nil {
		return raw, fmt.Errorf("read generation: %w", err)
	}
	return raw, nil
}

// finish reports and records the end of a run and returns err.
func (r *run) finish(pageID string, err error) error {
	state := StateDone
	final := string(StateDone)
	if err != nil {
		state = StateFailed
		final = string(StateFailed)
		if errors.Is(err, context.Canceled) {
			final = OutcomeCancelled
		}
	}
	metrics.Runs.WithLabelValues(final).Inc()

	r.state(state, func(ev *Event) {
		ev.PageID = pageID
		ev.Err = err
		var merr *architect.MaterializationError
		if errors.As(err, &merr) {
			ev.Remote = true
			ev.Created = merr.Created
		}
	})
	r.c.record(func(rec Recorder) error {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		return rec.FinishRun(r.id, final, pageID, msg, time.Now().UTC())
	})
	return err
}

func (c *Controller) record(fn func(Recorder) error) {
	if c.recorder == nil {
		return
	}
	if err := fn(c.recorder); err != nil {
		c.log.Warn().Err(err).Msg("record run history")
	}
}
