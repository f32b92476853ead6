package main

import (
	"strings"
	"testing"

	"github.com/chazu/orient/pkg/config"
)

// ---------------------------------------------------------------------------
// 1. Empty script: no jobs, no errors.
// ---------------------------------------------------------------------------

func TestE2EEmptySource(t *testing.T) {
	app := newTestApp(t, nil)
	result := app.Run("")

	if len(result.Errors) != 0 {
		t.Errorf("expected 0 errors for empty source, got %d", len(result.Errors))
	}
	if len(result.Jobs) != 0 {
		t.Errorf("expected 0 jobs for empty source, got %d", len(result.Jobs))
	}
	// Ensure slices are non-nil (JSON should serialize as [] not null).
	if result.Jobs == nil {
		t.Error("Jobs should be non-nil empty slice, got nil")
	}
	if result.Errors == nil {
		t.Error("Errors should be non-nil empty slice, got nil")
	}
	if !result.OK() {
		t.Error("empty script should be OK")
	}
}

func TestE2ECommentsOnly(t *testing.T) {
	app := newTestApp(t, nil)
	result := app.Run(";; nothing to orient\n; still nothing\n")

	if len(result.Errors) != 0 {
		t.Errorf("expected 0 errors, got %v", result.Errors)
	}
	if len(result.Jobs) != 0 {
		t.Errorf("expected 0 jobs, got %d", len(result.Jobs))
	}
}

// ---------------------------------------------------------------------------
// 2. Script errors: reported with a message and no jobs run.
// ---------------------------------------------------------------------------

func TestE2ESyntaxError(t *testing.T) {
	app := newTestApp(t, nil)
	result := app.Run("(line (vec3 0 0 0)\n(vec3 1 0 0")

	if len(result.Errors) == 0 {
		t.Fatal("expected at least one eval error for unmatched parens")
	}
	if result.Errors[0].Message == "" {
		t.Error("syntax error should have a non-empty message")
	}
	if len(result.Jobs) != 0 {
		t.Errorf("expected no jobs on syntax error, got %d", len(result.Jobs))
	}
	if result.OK() {
		t.Error("syntax error should not be OK")
	}
}

func TestE2EUnknownObject(t *testing.T) {
	app := newTestApp(t, nil)
	source := `
(line (vec3 0 0 0) (vec3 1 0 0) :name "ref")
(orient :objects (object "ghost") :source (object "ref") :targets (list (object "ref")))
`
	result := app.Run(source)

	if len(result.Errors) == 0 {
		t.Fatal("expected eval error for unknown object")
	}
	found := false
	for _, e := range result.Errors {
		if strings.Contains(e.Message, "ghost") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected error mentioning 'ghost', got: %v", result.Errors)
	}
}

// ---------------------------------------------------------------------------
// 3. Degenerate lines: a zero-length source fails every target; a
//    zero-length target fails only itself.
// ---------------------------------------------------------------------------

func TestE2EDegenerateSource(t *testing.T) {
	app := newTestApp(t, nil)
	source := `
(point (vec3 1 1 1) :name "p")
(line (vec3 3 3 3) (vec3 3 3 3) :name "ref")
(orient :objects (object "p")
        :source (object "ref")
        :targets (list (line (vec3 0 0 0) (vec3 1 0 0))
                       (line (vec3 0 0 0) (vec3 0 1 0))))
`
	result := app.Run(source)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	j := result.Jobs[0]
	if j.Succeeded != 0 || len(j.Results) != 2 {
		t.Fatalf("succeeded %d with %d results, want 0 with 2", j.Succeeded, len(j.Results))
	}
	for i, r := range j.Results {
		if r.Success || !strings.Contains(r.Error, "degenerate") {
			t.Errorf("target %d: want degenerate failure, got %+v", i, r)
		}
		if r.Transform != nil {
			t.Errorf("target %d: failed target should have no transform", i)
		}
	}
	if result.Produced != 0 {
		t.Errorf("produced = %d, want 0", result.Produced)
	}
}

func TestE2EOneDegenerateTarget(t *testing.T) {
	app := newTestApp(t, nil)
	source := `
(point (vec3 1 0 0) :name "p")
(line (vec3 0 0 0) (vec3 1 0 0) :name "ref")
(orient :objects (object "p")
        :source (object "ref")
        :targets (list (line (vec3 0 0 0) (vec3 2 0 0))
                       (line (vec3 5 5 5) (vec3 5 5 5))
                       (line (vec3 0 0 0) (vec3 0 0 3))))
`
	result := app.Run(source)
	j := result.Jobs[0]
	if len(j.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(j.Results))
	}
	if j.Succeeded != 2 {
		t.Errorf("succeeded = %d, want 2", j.Succeeded)
	}
	for i, want := range []bool{true, false, true} {
		if j.Results[i].Success != want {
			t.Errorf("target %d success = %v, want %v", i, j.Results[i].Success, want)
		}
	}
}

// ---------------------------------------------------------------------------
// 4. Copy policy: script, config and default interplay.
// ---------------------------------------------------------------------------

const twoTargets = `
(point (vec3 1 0 0) :name "p")
(line (vec3 0 0 0) (vec3 1 0 0) :name "ref")
(orient :objects (object "p")
        :source (object "ref")
        :targets (list (line (vec3 0 0 0) (vec3 0 1 0))
                       (line (vec3 0 0 0) (vec3 0 0 1))))
`

func TestE2ECopyPolicyFromConfig(t *testing.T) {
	tests := []struct {
		name         string
		copy         bool
		wantProduced int
		wantObjects  int
	}{
		{name: "copy all", copy: true, wantProduced: 2, wantObjects: 6},
		{name: "move last", copy: false, wantProduced: 1, wantObjects: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, func(c *config.Config) { c.Copy = tt.copy })
			result := app.Run(twoTargets)
			if len(result.Errors) != 0 {
				t.Fatalf("unexpected errors: %v", result.Errors)
			}
			if result.Produced != tt.wantProduced {
				t.Errorf("produced = %d, want %d", result.Produced, tt.wantProduced)
			}
			if result.Objects != tt.wantObjects {
				t.Errorf("objects = %d, want %d", result.Objects, tt.wantObjects)
			}
			if result.Jobs[0].Copy != tt.copy {
				t.Errorf("job copy = %v, want %v", result.Jobs[0].Copy, tt.copy)
			}
		})
	}
}

func TestE2ESingleTargetMove(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.Copy = false })
	source := `
(point (vec3 1 0 0) :name "p")
(line (vec3 0 0 0) (vec3 1 0 0) :name "ref")
(orient :objects (object "p") :source (object "ref") :targets (list (line (vec3 0 0 0) (vec3 0 4 0))))
`
	result := app.Run(source)
	r := result.Jobs[0].Results[0]
	if r.Copied || !r.Success {
		t.Errorf("single target with copy off should move in place, got %+v", r)
	}
	if result.Produced != 0 {
		t.Errorf("produced = %d, want 0", result.Produced)
	}
}

// ---------------------------------------------------------------------------
// 5. Empty object set: targets are solved, nothing is touched.
// ---------------------------------------------------------------------------

func TestE2EEmptyObjects(t *testing.T) {
	app := newTestApp(t, nil)
	source := `
(line (vec3 0 0 0) (vec3 1 0 0) :name "ref")
(orient :objects (list) :source (object "ref") :targets (list (line (vec3 0 0 0) (vec3 0 2 0))))
`
	result := app.Run(source)
	j := result.Jobs[0]
	if j.Succeeded != 1 {
		t.Errorf("succeeded = %d, want 1", j.Succeeded)
	}
	if len(j.Results[0].Objects) != 0 || result.Produced != 0 {
		t.Error("empty object set should produce nothing")
	}
	if result.Objects != 2 {
		t.Errorf("objects = %d, want 2", result.Objects)
	}
}

// ---------------------------------------------------------------------------
// 6. Several jobs: a rejected job does not stop the next one.
// ---------------------------------------------------------------------------

func TestE2EMultipleJobs(t *testing.T) {
	app := newTestApp(t, nil)
	source := `
(point (vec3 1 0 0) :name "p")
(line (vec3 0 0 0) (vec3 1 0 0) :name "ref")
(def dot (point (vec3 9 9 9)))
(orient :objects (object "p") :source (object "ref") :targets (list dot))
(orient :objects (object "p") :source (object "ref") :targets (list (line (vec3 0 0 0) (vec3 -1 0 0))))
`
	result := app.Run(source)
	if len(result.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(result.Jobs))
	}
	if !strings.Contains(result.Jobs[0].Error, "not a line") {
		t.Errorf("job 1 error = %q, want not-a-line rejection", result.Jobs[0].Error)
	}
	j := result.Jobs[1]
	if j.Succeeded != 1 {
		t.Fatalf("job 2 succeeded = %d, want 1", j.Succeeded)
	}
	// Anti-parallel: half a turn.
	if tr := j.Results[0].Transform; tr == nil || tr.Angle < 3.14 {
		t.Errorf("expected a half-turn transform, got %+v", tr)
	}
	if result.OK() {
		t.Error("a rejected job should make the result not OK")
	}
}

// ---------------------------------------------------------------------------
// 7. Rapid runs on one App: each run starts from a fresh scene.
// ---------------------------------------------------------------------------

func TestE2ERapidRuns(t *testing.T) {
	app := newTestApp(t, nil)

	sources := []string{
		twoTargets,
		`(line (vec3 0 0 0)`,
		``,
		`(object "missing")`,
		twoTargets,
		`;; just a comment`,
		`(undefined-func 1 2 3)`,
		twoTargets,
	}

	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked on source %q: %v", i, source, r)
				}
			}()
			result := app.Run(source)
			if source == twoTargets && result.Objects != 6 {
				t.Errorf("iteration %d: objects = %d, want 6 from a fresh scene", i, result.Objects)
			}
		}()
	}
}

// ---------------------------------------------------------------------------
// 8. Kernel selection.
// ---------------------------------------------------------------------------

func TestNewAppUnknownKernel(t *testing.T) {
	cfg := config.Default()
	cfg.Kernel = "occt"
	if _, err := NewApp(cfg); err == nil {
		t.Error("expected error for unknown kernel")
	}
}

func TestE2ESolidsWithoutMeshes(t *testing.T) {
	app := newTestApp(t, nil)
	result := app.Run(`(solid "b" (box 1 2 3))`)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Meshes != nil {
		t.Errorf("meshes should only be built when requested, got %d", len(result.Meshes))
	}
}
