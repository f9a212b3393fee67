package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/quarry/pkg/csg"
	"github.com/chazu/quarry/pkg/engine"
	"github.com/chazu/quarry/pkg/kernel"
	"github.com/chazu/quarry/pkg/kernel/manifold"
	"github.com/chazu/quarry/pkg/kernel/sdfx"
	"github.com/chazu/quarry/pkg/scenefile"
	"github.com/chazu/quarry/pkg/tessellate"
	"github.com/samber/lo"
)

// ExtScript is the extension of scene DSL scripts.
const ExtScript = ".qs"

// App runs the pipeline from source to exportable meshes.
type App struct {
	cfg    Config
	log    *slog.Logger
	engine *engine.Engine
	kernel kernel.Kernel
}

// MeshData is the JSON-serializable mesh format handed to a renderer.
type MeshData struct {
	Material       string    `json:"material"`
	RenderMaterial string    `json:"renderMaterial,omitempty"`
	Vertices       []float32 `json:"vertices"`
	Normals        []float32 `json:"normals"`
	Tangents       []float32 `json:"tangents"`
	Bitangents     []float32 `json:"bitangents"`
	UVs            []float32 `json:"uvs"`
	Colors         []uint32  `json:"colors"`
	Indices        []uint32  `json:"indices"`
}

// EvalErrorData is a JSON-serializable error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of one pipeline run.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`

	// Scene is the resolved scene, nil when evaluation failed.
	Scene *csg.Scene `json:"-"`
}

func newEvalResult() EvalResult {
	return EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
}

// NewApp creates an App with an engine and the configured preview kernel.
func NewApp(cfg Config, log *slog.Logger) (*App, error) {
	k, err := previewKernel(cfg)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:    cfg,
		log:    log,
		engine: engine.NewEngine(engine.WithLogger(log)),
		kernel: k,
	}, nil
}

func previewKernel(cfg Config) (kernel.Kernel, error) {
	switch cfg.PreviewKernel {
	case KernelSdfx, "":
		return sdfx.NewWithCells(cfg.PreviewCells), nil
	case KernelManifold:
		return manifold.New()
	default:
		return nil, fmt.Errorf("unknown preview kernel %q", cfg.PreviewKernel)
	}
}

// Evaluate takes DSL source and returns mesh data + errors.
func (a *App) Evaluate(source string) EvalResult {
	result := newEvalResult()

	// Step 1: Evaluate the source into a scene.
	sc, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		a.log.Error("evaluate failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	// Step 2: Convert eval errors.
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

	a.finish(sc, &result)
	return result
}

// Open runs the pipeline on a script or a saved scene, chosen by the file
// extension.
func (a *App) Open(path string) EvalResult {
	if strings.EqualFold(filepath.Ext(path), ExtScript) {
		src, err := os.ReadFile(path)
		if err != nil {
			result := newEvalResult()
			result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
			return result
		}
		return a.Evaluate(string(src))
	}

	result := newEvalResult()
	sc := csg.NewScene(csg.WithLogger(a.log))
	if err := scenefile.Load(path, sc); err != nil {
		a.log.Error("load failed", "path", path, "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	sc.Update()
	a.finish(sc, &result)
	return result
}

// finish validates and tessellates a resolved scene into result.
func (a *App) finish(sc *csg.Scene, result *EvalResult) {
	result.Scene = sc

	// Step 3: Validation. Errors are reported but do not stop export.
	vr := csg.ValidateAll(sc)
	for _, e := range vr.Errors {
		result.Errors = append(result.Errors, EvalErrorData{Message: e.Error()})
	}
	for _, w := range vr.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: warningText(w)})
	}

	// Step 4: Tessellate the visible fragments into triangle meshes.
	meshes, err := tessellate.Tessellate(sc)
	if err != nil {
		a.log.Error("tessellate failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{
			Message: "tessellation failed: " + err.Error(),
		})
		return
	}

	// Step 5: Convert kernel meshes to the export format.
	result.Meshes = lo.Map(meshes, func(m *kernel.Mesh, _ int) MeshData {
		return a.meshData(sc, m)
	})
	a.log.Info("scene ready",
		"shapes", sc.Len(),
		"meshes", len(result.Meshes),
		"triangles", lo.SumBy(meshes, func(m *kernel.Mesh) int { return m.TriangleCount() }),
		"errors", len(result.Errors),
		"warnings", len(result.Warnings),
	)
}

func warningText(w csg.ValidationWarning) string {
	switch {
	case w.Shape == 0:
		return w.Message
	case w.Face < 0:
		return fmt.Sprintf("shape %d: %s", w.Shape, w.Message)
	default:
		return fmt.Sprintf("shape %d face %d: %s", w.Shape, w.Face, w.Message)
	}
}

func (a *App) meshData(sc *csg.Scene, m *kernel.Mesh) MeshData {
	md := MeshData{
		Material:   m.Material,
		Vertices:   m.Vertices,
		Normals:    m.Normals,
		Tangents:   m.Tangents,
		Bitangents: m.Bitangents,
		UVs:        m.UVs,
		Colors:     m.Colors,
		Indices:    m.Indices,
	}
	if mat := sc.LookupMaterial(m.Material); mat != nil {
		md.RenderMaterial = mat.RenderMaterial
	}
	if md.Material == "" {
		md.Material = a.cfg.DefaultMaterial
	}
	return md
}

// Preview meshes the scene with the preview kernel.
func (a *App) Preview(sc *csg.Scene) (MeshData, error) {
	m, err := tessellate.Preview(sc, a.kernel)
	if err != nil {
		return MeshData{}, fmt.Errorf("preview: %w", err)
	}
	a.log.Debug("preview meshed", "kernel", a.cfg.PreviewKernel, "triangles", m.TriangleCount())
	return MeshData{
		Material: m.Material,
		Vertices: m.Vertices,
		Normals:  m.Normals,
		Indices:  m.Indices,
	}, nil
}
