package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/chazu/quarry/pkg/csg"
)

func volume(s *csg.BrushShape) float64 {
	size := bounds(s).Size()
	return size.X() * size.Y() * size.Z()
}

func TestEvaluateSourcesWithoutShapes(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t  \n  "},
		{"comment", ";; nothing to build"},
		{"arithmetic", "(+ 1 2)"},
		{"definitions", "(def x 10)\n(def y 20)\n(+ x y)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := mustEvaluate(t, tt.source)
			if sc.Len() != 0 {
				t.Errorf("expected an empty scene, got %d shapes", sc.Len())
			}
			if !sc.Bounds().IsEmpty() {
				t.Errorf("expected empty bounds, got %v", sc.Bounds())
			}
		})
	}
}

func TestEvaluateBuildsScene(t *testing.T) {
	sc := mustEvaluate(t, `
(box :size (vec3 10 10 5) :solid :name "rock")
(box :size (vec3 6 4 3) :empty :name "room")
(box :size (vec3 1 1 1) :solid :name "crate")
`)
	if sc.Len() != 3 {
		t.Fatalf("expected 3 shapes, got %d", sc.Len())
	}

	tests := []struct {
		name    string
		volume  float64
		visible int
	}{
		{"rock", 500, 0},
		{"room", 72, 6},
		{"crate", 1, 6},
	}
	for _, tt := range tests {
		s := mustShape(t, sc, tt.name)
		if v := volume(s); math.Abs(v-tt.volume) > 1e-6 {
			t.Errorf("%s: volume %f, want %f", tt.name, v, tt.volume)
		}
		if n := visibleFragments(s); n != tt.visible {
			t.Errorf("%s: %d visible fragments, want %d", tt.name, n, tt.visible)
		}
	}
	if got := sc.Shapes()[2].UID(); got != 3 {
		t.Errorf("expected uids in script order, crate has %d", got)
	}
}

func TestEvaluateFreshScenePerCall(t *testing.T) {
	eng := NewEngine()
	first, _, err := eng.Evaluate(`(box :size (vec3 2 2 2) :empty :name "a")`)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, _, err := eng.Evaluate(`(box :size (vec3 4 4 4) :empty :name "b")`)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first == second {
		t.Fatal("expected a new scene per evaluation")
	}
	if second.Len() != 1 || second.Shape("a") != nil {
		t.Errorf("second scene leaked shapes from the first: %d shapes", second.Len())
	}
	if v := volume(mustShape(t, second, "b")); math.Abs(v-64) > 1e-6 {
		t.Errorf("b: volume %f, want 64", v)
	}
	if first.Len() != 1 || first.Shape("a") == nil {
		t.Error("first scene changed after a later evaluation")
	}
}

func TestEvaluateScriptErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"unbalanced", "(+ 1 2"},
		{"unbalanced on line 2", "(+ 1 2)\n(+ 3"},
		{"undefined symbol", "(+ 1 undefined-symbol)"},
		{"error after shapes", "(box :size (vec3 1 1 1))\n(shape \"missing\")"},
	}
	eng := NewEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, evalErrs, err := eng.Evaluate(tt.source)
			if err != nil {
				t.Fatalf("expected a script error, got fatal: %v", err)
			}
			if sc != nil {
				t.Fatalf("expected no scene, got %d shapes", sc.Len())
			}
			if len(evalErrs) == 0 || evalErrs[0].Message == "" {
				t.Fatalf("expected a described error, got %v", evalErrs)
			}
		})
	}
}

func TestEvalErrorString(t *testing.T) {
	tests := []struct {
		err  EvalError
		want string
	}{
		{EvalError{Line: 5, Message: "bad size"}, "line 5: bad size"},
		{EvalError{Message: "no location"}, "no location"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestAwaitTimeout(t *testing.T) {
	eng := NewEngine(WithTimeout(20 * time.Millisecond))
	if eng.timeout != 20*time.Millisecond {
		t.Fatalf("timeout = %s", eng.timeout)
	}

	start := time.Now()
	_, _, err := eng.await(context.Background(), make(chan outcome), 0)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !strings.Contains(err.Error(), "20ms") {
		t.Errorf("expected the limit in the message, got %q", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %s", elapsed)
	}

	if NewEngine(WithTimeout(0)).timeout != DefaultTimeout {
		t.Error("non-positive timeout should keep the default")
	}
}

func TestAwaitCanceled(t *testing.T) {
	eng := NewEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := eng.await(ctx, make(chan outcome), 0)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestAwaitSuperseded(t *testing.T) {
	eng := NewEngine()
	eng.generation = 2

	ch := make(chan outcome, 1)
	ch <- outcome{scene: csg.NewScene()}
	if _, _, err := eng.await(context.Background(), ch, 1); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}

	ch <- outcome{scene: csg.NewScene()}
	sc, _, err := eng.await(context.Background(), ch, 2)
	if err != nil || sc == nil {
		t.Fatalf("current generation: scene %v, err %v", sc, err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"line prefix", "line 3: bad plane", 3, "bad plane"},
		{"no line", "box: :size must be a vec3", 0, "box: :size must be a vec3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errors.New(tt.msg))
			if len(errs) != 1 {
				t.Fatalf("expected one error, got %d", len(errs))
			}
			if errs[0].Line != tt.wantLine || errs[0].Message != tt.wantMsg {
				t.Errorf("got line %d %q, want line %d %q", errs[0].Line, errs[0].Message, tt.wantLine, tt.wantMsg)
			}
		})
	}
}

func TestEvaluateUsesLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	eng := NewEngine(WithLogger(log))

	sc, evalErrs, err := eng.Evaluate(`(box :size (vec3 2 2 2) :empty)`)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("unexpected errors: %v %v", err, evalErrs)
	}
	if sc.Len() != 1 {
		t.Fatalf("expected 1 shape, got %d", sc.Len())
	}
	out := buf.String()
	if !strings.Contains(out, "engine: evaluated scene") || !strings.Contains(out, "shapes=1") || !strings.Contains(out, "visible=6") {
		t.Errorf("expected evaluation log line, got:\n%s", out)
	}
	if !strings.Contains(out, "csg: scene updated") {
		t.Errorf("expected the scene to log through the engine logger, got:\n%s", out)
	}
}
