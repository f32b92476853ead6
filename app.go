package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/chazu/orient/pkg/config"
	"github.com/chazu/orient/pkg/engine"
	"github.com/chazu/orient/pkg/geom"
	"github.com/chazu/orient/pkg/kernel"
	"github.com/chazu/orient/pkg/kernel/manifold"
	"github.com/chazu/orient/pkg/kernel/sdfx"
	"github.com/chazu/orient/pkg/orient"
	"github.com/chazu/orient/pkg/tessellate"
	"github.com/google/uuid"
)

// colorPalette is a default palette used to assign distinct colors to meshes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App runs orient scripts: it evaluates them, executes every orient job
// against the resulting document and reports the outcome.
type App struct {
	cfg    config.Config
	engine *engine.Engine
	kernel kernel.Kernel
	logger *log.Logger
	meshes bool
	// producedOnly limits tessellation to objects the jobs produced.
	producedOnly bool
}

// AppOption configures an App.
type AppOption func(*App)

// WithLogger sets the logger for job progress.
func WithLogger(l *log.Logger) AppOption {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMeshes makes Run tessellate every solid in the final document.
func WithMeshes(on bool) AppOption {
	return func(a *App) { a.meshes = on }
}

// WithProducedMeshes makes Run tessellate only the objects the jobs
// produced: the copies of copy jobs and the moved originals of move jobs.
func WithProducedMeshes(on bool) AppOption {
	return func(a *App) {
		a.producedOnly = on
		if on {
			a.meshes = true
		}
	}
}

// MeshData is the JSON-serializable mesh format written by --mesh-out.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable script error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// TransformData describes the similarity transform used for one target.
type TransformData struct {
	Scale       float64    `json:"scale"`
	Axis        [3]float64 `json:"axis"`
	Angle       float64    `json:"angle"`
	Translation [3]float64 `json:"translation"`
	Quaternion  [4]float64 `json:"quaternion"`
}

// TargetResult is the report for one target of a job.
type TargetResult struct {
	Index     int            `json:"index"`
	Target    geom.Segment   `json:"target"`
	Copied    bool           `json:"copied"`
	Success   bool           `json:"success"`
	Objects   []uuid.UUID    `json:"objects"`
	Transform *TransformData `json:"transform,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// JobResult is the report for one orient call in a script. Error is set
// when the job was rejected before any target was solved.
type JobResult struct {
	Index     int            `json:"index"`
	Copy      bool           `json:"copy"`
	Targets   int            `json:"targets"`
	Succeeded int            `json:"succeeded"`
	Produced  []uuid.UUID    `json:"produced"`
	Results   []TargetResult `json:"results"`
	Error     string         `json:"error,omitempty"`
}

// RunResult is everything Run reports back to the CLI.
type RunResult struct {
	Jobs     []JobResult     `json:"jobs"`
	Produced int             `json:"produced"`
	Objects  int             `json:"objects"`
	Meshes   []MeshData      `json:"meshes,omitempty"`
	Errors   []EvalErrorData `json:"errors"`
}

// OK reports whether the script evaluated and every target succeeded.
func (r RunResult) OK() bool {
	if len(r.Errors) > 0 {
		return false
	}
	for _, j := range r.Jobs {
		if j.Error != "" || j.Succeeded != j.Targets {
			return false
		}
	}
	return true
}

// newKernel builds the kernel named in cfg.
func newKernel(cfg config.Config) (kernel.Kernel, error) {
	switch cfg.Kernel {
	case config.KernelManifold:
		return manifold.New()
	case config.KernelSdfx, "":
		return sdfx.New(sdfx.WithMeshCells(cfg.MeshCells)), nil
	}
	return nil, fmt.Errorf("unknown kernel %q", cfg.Kernel)
}

// NewApp creates an App from cfg.
func NewApp(cfg config.Config, opts ...AppOption) (*App, error) {
	k, err := newKernel(cfg)
	if err != nil {
		return nil, err
	}
	a := &App{
		cfg:    cfg,
		kernel: k,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.engine = engine.NewEngine(k,
		engine.WithTimeout(cfg.EvalTimeout.Duration),
		engine.WithChords(cfg.AllowChords),
	)
	return a, nil
}

// Run evaluates an orient script and executes its jobs in order.
// Script errors are returned in Errors; per-target failures never stop
// a job, and a rejected job never stops the ones after it.
func (a *App) Run(source string) RunResult {
	result := RunResult{
		Jobs:   []JobResult{},
		Errors: []EvalErrorData{},
	}

	// Step 1: Evaluate the script into a document plus jobs.
	p, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.logger.Error("evaluation failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	// Step 2: Run every job against the document.
	o := orient.NewOrienter(p.Doc, orient.WithLogger(a.logger))
	var produced []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, job := range p.Jobs {
		jr := a.runJob(o, p, job)
		result.Produced += len(jr.Produced)
		result.Jobs = append(result.Jobs, jr)
		for _, id := range jr.Produced {
			if !seen[id] {
				seen[id] = true
				produced = append(produced, id)
			}
		}
	}
	result.Objects = p.Doc.Len()

	// Step 3: Optionally tessellate the final document.
	if a.meshes {
		var meshes []*kernel.Mesh
		var err error
		if a.producedOnly {
			meshes, err = tessellate.Objects(p.Doc, a.kernel, produced)
		} else {
			meshes, err = tessellate.Tessellate(p.Doc, a.kernel)
		}
		if err != nil {
			a.logger.Error("tessellation failed", "err", err)
			result.Errors = append(result.Errors, EvalErrorData{
				Message: "tessellation failed: " + err.Error(),
			})
			return result
		}
		for i, m := range meshes {
			result.Meshes = append(result.Meshes, MeshData{
				Vertices: m.Vertices,
				Normals:  m.Normals,
				Indices:  m.Indices,
				Name:     m.Name,
				Color:    colorPalette[i%len(colorPalette)],
			})
		}
	}

	return result
}

func (a *App) runJob(o *orient.Orienter, p *engine.Program, job engine.Job) JobResult {
	copyPolicy := job.CopyPolicy(a.cfg.Copy)
	jr := JobResult{
		Index:    job.Index,
		Copy:     copyPolicy,
		Targets:  len(job.Targets),
		Produced: []uuid.UUID{},
		Results:  []TargetResult{},
	}

	source, targets, err := orient.ResolveSegments(p.Doc, job.Source, job.Targets)
	if err != nil {
		a.logger.Warn("job rejected", "job", job.Index, "err", err)
		jr.Error = err.Error()
		return jr
	}

	sum := o.Orient(job.Objects, source, targets, copyPolicy)
	jr.Succeeded = sum.Succeeded
	jr.Produced = append(jr.Produced, sum.Produced()...)
	for _, r := range sum.Results {
		jr.Results = append(jr.Results, targetResult(source, r))
	}
	a.logger.Info("job finished", "job", job.Index, "succeeded", sum.Succeeded, "targets", sum.Total())
	return jr
}

func targetResult(source geom.Segment, r orient.Result) TargetResult {
	tr := TargetResult{
		Index:   r.Index,
		Target:  r.Target,
		Copied:  r.Copied,
		Success: r.Success,
		Objects: append([]uuid.UUID{}, r.Objects...),
	}
	if r.Err != nil {
		tr.Error = r.Err.Error()
	}
	// Solve is deterministic: this is the transform the batch applied.
	if t, err := orient.Solve(source, r.Target); err == nil {
		tr.Transform = transformData(t)
	}
	return tr
}

func transformData(t *orient.Transform) *TransformData {
	axis, tr := t.Axis(), t.Translation()
	return &TransformData{
		Scale:       t.Scale(),
		Axis:        [3]float64{axis.X, axis.Y, axis.Z},
		Angle:       t.Angle(),
		Translation: [3]float64{tr.X, tr.Y, tr.Z},
		Quaternion:  t.Quaternion(),
	}
}
