package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"scenesmith/internal/types"
)

// SceneContextInfo identifies the scene being compiled and carries the
// consistent snapshot of its siblings. Siblings are explicit input — there
// is deliberately no process-wide identifier registry.
type SceneContextInfo struct {
	SceneID   string
	ProjectID string
	SceneName string
	Siblings  []types.SiblingScene
}

// Result is the structured outcome of one synchronous compilation. It is
// always populated: on failure Code holds the fallback artifact, so the
// caller receives something renderable no matter what came in.
type Result struct {
	Success          bool
	Code             string
	CompiledAt       time.Time
	CompilationError string
	ErrorKind        types.ErrorKind
	Conflicts        []types.Rename
	Repairs          []string
}

// Pipeline is the synchronous source-to-artifact chain. The stages are pure
// and stateless; the only coordination is the per-project critical section
// around conflict resolution, so different projects compile fully in
// parallel while siblings of one project are serialized.
type Pipeline struct {
	mode      Mode
	validate  ValidateOptions
	logger    *zap.Logger
	maxSource int

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMode selects the artifact delivery mode.
func WithMode(mode Mode) Option {
	return func(p *Pipeline) { p.mode = mode }
}

// WithValidateOptions overrides the post-compile checks.
func WithValidateOptions(opts ValidateOptions) Option {
	return func(p *Pipeline) { p.validate = opts }
}

// WithLogger attaches a logger; a nop logger is the default.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithMaxSourceBytes caps accepted source size. Zero means unlimited.
func WithMaxSourceBytes(n int) Option {
	return func(p *Pipeline) { p.maxSource = n }
}

// withClock is a test seam for CompiledAt.
func withClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		mode:     ModeInline,
		validate: DefaultValidateOptions(),
		logger:   zap.NewNop(),
		locks:    make(map[string]*sync.Mutex),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// projectLock returns the mutex serializing conflict resolution for one
// project, creating it on first use.
func (p *Pipeline) projectLock(projectID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[projectID] = lock
	}
	return lock
}

// CompileScene runs the full chain: repair → sanitize → resolve conflicts →
// compile → validate. It always returns a structured Result and never
// panics outward; anything unrecoverable is converted into the fallback
// artifact carrying the classified diagnostic.
func (p *Pipeline) CompileScene(ctx context.Context, source string, info SceneContextInfo) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline panic recovered",
				zap.String("scene", info.SceneID),
				zap.Any("panic", r))
			result = p.fail(info, types.ErrCompileFailure, fmt.Sprintf("internal: %v", r), nil, nil)
		}
	}()

	if p.maxSource > 0 && len(source) > p.maxSource {
		return p.fail(info, types.ErrCompileFailure,
			fmt.Sprintf("source is %d bytes, limit is %d; not compiled", len(source), p.maxSource), nil, nil)
	}

	repaired := Repair(source)
	if repaired.Fixed {
		p.logger.Debug("preprocessor repaired source",
			zap.String("scene", info.SceneID),
			zap.Strings("issues", repaired.Issues))
	}

	sanitized := Sanitize(repaired.Code)
	if !sanitized.OK() {
		first := sanitized.Errors[0]
		return p.fail(info, first.Kind, joinErrors(sanitized.Errors), repaired.Issues, nil)
	}

	code := sanitized.Code
	var conflicts []types.Rename
	if len(info.Siblings) > 0 {
		lock := p.projectLock(info.ProjectID)
		lock.Lock()
		resolution := p.resolveAgainstSiblings(code, info)
		lock.Unlock()
		if !resolution.OK() {
			first := resolution.Errors[0]
			return p.fail(info, first.Kind, joinErrors(resolution.Errors), repaired.Issues, resolution.Renames)
		}
		code = resolution.Codes[info.SceneID]
		conflicts = resolution.Renames
	}

	compiled := Compile(code, p.mode)
	if !compiled.OK {
		return p.fail(info, types.ErrCompileFailure, strings.Join(compiled.Diagnostics, "; "), repaired.Issues, conflicts)
	}

	validated := Validate(ctx, compiled.Output, p.validate)
	if !validated.OK {
		return p.fail(info, validated.Kind, validated.Detail, repaired.Issues, conflicts)
	}

	return Result{
		Success:    true,
		Code:       compiled.Output,
		CompiledAt: p.now().UTC(),
		Conflicts:  conflicts,
		Repairs:    repaired.Issues,
	}
}

// resolveAgainstSiblings builds the ordered per-project snapshot — siblings
// repaired the same way the scene itself was — and runs the resolver over it.
func (p *Pipeline) resolveAgainstSiblings(code string, info SceneContextInfo) Resolution {
	sources := make([]SceneSource, 0, len(info.Siblings)+1)
	selfOrder := 0
	seenSelf := false
	for _, sib := range info.Siblings {
		if sib.ID == info.SceneID {
			// The caller's snapshot may include the scene itself; the code
			// in flight supersedes the stored copy.
			selfOrder = sib.Order
			seenSelf = true
			continue
		}
		sources = append(sources, SceneSource{
			ID:    sib.ID,
			Order: sib.Order,
			Code:  Repair(sib.SourceCode).Code,
		})
	}
	if !seenSelf {
		for _, sib := range info.Siblings {
			if sib.Order >= selfOrder {
				selfOrder = sib.Order + 1
			}
		}
	}
	sources = append(sources, SceneSource{ID: info.SceneID, Order: selfOrder, Code: code})
	return ResolveConflicts(sources)
}

// fail synthesizes the fallback artifact for a classified failure. The
// fallback passes validation by construction, so the caller still receives
// a loadable artifact next to the diagnostic.
func (p *Pipeline) fail(info SceneContextInfo, kind types.ErrorKind, detail string, repairs []string, conflicts []types.Rename) Result {
	name := info.SceneName
	if name == "" {
		name = info.SceneID
	}
	fb := SynthesizeFallback(name, kind, detail)
	if compiled := Compile(fb, p.mode); compiled.OK {
		fb = compiled.Output
	}
	p.logger.Warn("scene failed, fallback synthesized",
		zap.String("scene", info.SceneID),
		zap.String("kind", kind.String()),
		zap.String("detail", detail))
	return Result{
		Success:          false,
		Code:             fb,
		CompiledAt:       p.now().UTC(),
		CompilationError: formatError(kind, detail),
		ErrorKind:        kind,
		Conflicts:        conflicts,
		Repairs:          repairs,
	}
}

func formatError(kind types.ErrorKind, detail string) string {
	if detail == "" {
		return kind.String()
	}
	return kind.String() + ": " + detail
}

func joinErrors(errs []StageError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Detail
	}
	return strings.Join(parts, "; ")
}
