package storecheck

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Result is the outcome of one verification run.
type Result struct {
	Flow            string
	State           RunState
	Checkpoints     []string // artifact paths, in checkpoint order
	FailureArtifact string   // empty unless the run failed and a screenshot could be taken
	Err             error
	Started         time.Time
	Duration        time.Duration
}

// OK reports whether the run completed.
func (r *Result) OK() bool {
	return r.State == StateCompleted
}

func (r *Result) enter(s RunState) error {
	if !canTransition(r.State, s) {
		return fmt.Errorf("invalid run transition %s -> %s", r.State, s)
	}
	r.State = s
	return nil
}

// Runner executes flows against one target application.
type Runner struct {
	cfg    Config
	driver Driver
	creds  Credentials
	logger *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

func WithCredentials(creds Credentials) Option {
	return func(r *Runner) { r.creds = creds }
}

func NewRunner(cfg Config, driver Driver, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		driver: driver,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.creds == (Credentials{}) {
		r.creds = GenerateCredentials()
	}
	return r
}

// Run drives one fresh session through flow. It stops at the first failing
// step, in which case it writes error.png instead of the remaining
// checkpoints. The session is closed whatever the outcome.
func (r *Runner) Run(ctx context.Context, flow Flow) *Result {
	res := &Result{Flow: flow.Name, State: StateIdle, Started: time.Now()}
	log := r.logger.With(zap.String("flow", flow.Name), zap.String("driver", r.driver.Name()))
	defer func() {
		res.Duration = time.Since(res.Started)
		recordRun(res)
	}()

	fail := func(err error) *Result {
		_ = res.enter(StateFailed)
		res.Err = err
		log.Error("verification failed", zap.Error(err), zap.Int("checkpoints", len(res.Checkpoints)))
		return res
	}

	if err := flow.Validate(); err != nil {
		return fail(err)
	}
	store := NewArtifactStore(r.cfg.OutputDir, flow.Name)
	if err := store.Reset(); err != nil {
		return fail(&StepError{Kind: KindArtifact, Index: 0, Step: "prepare " + store.Dir(), Err: err})
	}

	// 1. Acquire an isolated session
	log.Info("starting verification", zap.String("base_url", r.cfg.BaseURL), zap.Int("steps", len(flow.Steps)))
	session, err := r.driver.NewSession(ctx)
	if err != nil {
		return fail(&StepError{Kind: KindNavigation, Index: 0, Step: "open session", Err: err})
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("session close failed", zap.Error(err))
		}
	}()

	page, err := session.NewPage(ctx)
	if err != nil {
		return fail(&StepError{Kind: KindNavigation, Index: 0, Step: "open page", Err: err})
	}

	// 2. Execute steps in order
	for i, step := range flow.Steps {
		if err := r.runStep(ctx, page, store, res, i, step); err != nil {
			fail(err)
			res.FailureArtifact = r.captureFailure(ctx, page, store, log)
			return res
		}
	}

	// 3. Done
	if err := res.enter(StateCompleted); err != nil {
		return fail(err)
	}
	log.Info("verification completed",
		zap.Int("checkpoints", len(res.Checkpoints)),
		zap.Duration("elapsed", time.Since(res.Started)))
	return res
}

func (r *Runner) runStep(ctx context.Context, page Page, store *ArtifactStore, res *Result, i int, step Step) error {
	stepErr := func(kind ErrorKind, err error) error {
		return &StepError{Kind: kind, Index: i, Step: step.Name, Err: err}
	}

	timeout := r.timeoutFor(step)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := r.logger.With(zap.String("flow", res.Flow), zap.Int("step", i+1))
	log.Debug("step", zap.String("kind", string(step.Kind)), zap.String("name", step.Name), zap.Duration("timeout", timeout))

	switch step.Kind {
	case StepNavigate:
		if err := res.enter(StateNavigating); err != nil {
			return stepErr(KindNavigation, err)
		}
		target := r.resolveURL(r.creds.expand(step.Path, r.cfg.BaseURL))
		log.Info("navigating", zap.String("url", target))
		if err := page.Navigate(ctx, target, step.Wait); err != nil {
			return stepErr(KindNavigation, err)
		}

	case StepClick, StepFill:
		if err := res.enter(StateInteracting); err != nil {
			return stepErr(KindInteraction, err)
		}
		var err error
		if step.Kind == StepClick {
			err = page.Click(ctx, step.Target)
		} else {
			err = page.Fill(ctx, step.Target, r.creds.expand(step.Value, r.cfg.BaseURL))
		}
		if err != nil {
			return stepErr(KindInteraction, err)
		}

	case StepExpectVisible, StepExpectEnabled, StepExpectText, StepExpectURL:
		if err := res.enter(StateAsserting); err != nil {
			return stepErr(KindAssertion, err)
		}
		if err := r.assert(ctx, page, step); err != nil {
			return stepErr(KindAssertion, err)
		}

	case StepCheckpoint:
		png, err := page.Screenshot(ctx)
		if err != nil {
			return stepErr(KindArtifact, err)
		}
		path, err := store.SaveCheckpoint(len(res.Checkpoints)+1, step.Name, png)
		if err != nil {
			return stepErr(KindArtifact, err)
		}
		res.Checkpoints = append(res.Checkpoints, path)
		log.Info("checkpoint saved", zap.String("path", path))

	default:
		return stepErr(KindAssertion, fmt.Errorf("unknown step kind %q", step.Kind))
	}
	return nil
}

func (r *Runner) assert(ctx context.Context, page Page, step Step) error {
	switch step.Kind {
	case StepExpectVisible:
		return page.WaitVisible(ctx, step.Target)
	case StepExpectEnabled:
		return page.WaitEnabled(ctx, step.Target)
	case StepExpectText:
		return page.WaitText(ctx, step.Target, r.creds.expand(step.Value, r.cfg.BaseURL))
	default:
		re, err := regexp.Compile(step.Pattern)
		if err != nil {
			return err
		}
		return page.WaitURL(ctx, re)
	}
}

// captureFailure takes the error screenshot on a context detached from the
// one that just expired, since the failing step usually ran out of time.
func (r *Runner) captureFailure(ctx context.Context, page Page, store *ArtifactStore, log *zap.Logger) string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.StepTimeout)
	defer cancel()

	png, err := page.Screenshot(ctx)
	if err != nil {
		log.Warn("failure screenshot not captured", zap.Error(err))
		return ""
	}
	path, err := store.SaveFailure(png)
	if err != nil {
		log.Warn("failure screenshot not saved", zap.Error(err))
		return ""
	}
	log.Info("failure screenshot saved", zap.String("path", path))
	return path
}

func (r *Runner) timeoutFor(step Step) time.Duration {
	if step.Timeout > 0 {
		return time.Duration(step.Timeout)
	}
	if step.Kind == StepNavigate {
		return r.cfg.NavigationTimeout
	}
	return r.cfg.StepTimeout
}

// resolveURL joins path onto the base url, keeping any path prefix the base
// carries. Absolute urls pass through.
func (r *Runner) resolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(r.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// RunAll runs flows one after another, each in its own session, and returns
// their results. Once ctx is done the remaining flows are not started and are
// reported as failed. The returned error is non-nil when any run failed.
func (r *Runner) RunAll(ctx context.Context, flows []Flow) ([]*Result, error) {
	results := make([]*Result, 0, len(flows))
	var failed []string
	for _, f := range flows {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("flow skipped", zap.String("flow", f.Name), zap.Error(err))
			results = append(results, &Result{
				Flow:    f.Name,
				State:   StateFailed,
				Err:     fmt.Errorf("skipped: %w", err),
				Started: time.Now(),
			})
			failed = append(failed, f.Name)
			continue
		}
		res := r.Run(ctx, f)
		results = append(results, res)
		if !res.OK() {
			failed = append(failed, f.Name)
		}
	}
	if len(failed) > 0 {
		return results, fmt.Errorf("%w: %s", ErrRunFailed, strings.Join(failed, ", "))
	}
	return results, nil
}

// ErrRunFailed is returned by RunAll when at least one flow failed.
var ErrRunFailed = errors.New("verification failed")
