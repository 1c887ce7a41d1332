package testsupport

import (
	"context"
	"sync"

	"fingergate/internal/engine"
	"fingergate/internal/template"
)

// CaptureStep is one scripted capture response.
type CaptureStep struct {
	Stdout   string
	ExitCode int
	Err      error
}

// CompareCall records one comparator invocation.
type CompareCall struct {
	Probe     template.Template
	Candidate template.Template
}

// FakeGateway is a scripted engine.Gateway. Captures are served in order; the
// last step repeats once the script is exhausted. Compare answers come from
// Scores keyed by the candidate encoding, falling back to DefaultScore.
type FakeGateway struct {
	mu           sync.Mutex
	captures     []CaptureStep
	captureCalls []engine.Purpose
	compareCalls []CompareCall
	scores       map[string]string
	compareErrs  map[string]error
	defaultScore string

	// Gate, when set, blocks each Capture until a value is received or the
	// context ends.
	Gate chan struct{}
	// Started, when set, receives a value as each Capture begins.
	Started chan struct{}
}

var _ engine.Gateway = (*FakeGateway)(nil)

// NewFakeGateway constructs a gateway answering "0" for unknown candidates.
func NewFakeGateway(steps ...CaptureStep) *FakeGateway {
	return &FakeGateway{
		captures:     steps,
		scores:       make(map[string]string),
		compareErrs:  make(map[string]error),
		defaultScore: "0",
	}
}

// CaptureOutput returns engine stdout carrying tpl after some diagnostics.
func CaptureOutput(tpl template.Template) string {
	return "Place finger on sensor\nImage quality: 87\n" + tpl.Encoded() + "\n"
}

// SetCaptures replaces the capture script.
func (g *FakeGateway) SetCaptures(steps ...CaptureStep) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.captures = steps
}

// SetScore scripts the comparator output for a candidate.
func (g *FakeGateway) SetScore(candidate template.Template, output string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scores[candidate.Encoded()] = output
}

// SetCompareError makes comparisons against candidate fail with err.
func (g *FakeGateway) SetCompareError(candidate template.Template, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.compareErrs[candidate.Encoded()] = err
}

// SetDefaultScore sets the output for candidates without a scripted score.
func (g *FakeGateway) SetDefaultScore(output string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.defaultScore = output
}

// Capture implements engine.Gateway.
func (g *FakeGateway) Capture(ctx context.Context, purpose engine.Purpose) (engine.CaptureResult, error) {
	if g.Started != nil {
		select {
		case g.Started <- struct{}{}:
		case <-ctx.Done():
			return engine.CaptureResult{}, ctx.Err()
		}
	}
	if g.Gate != nil {
		select {
		case <-g.Gate:
		case <-ctx.Done():
			return engine.CaptureResult{}, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.captureCalls = append(g.captureCalls, purpose)
	if len(g.captures) == 0 {
		return engine.CaptureResult{}, nil
	}
	step := g.captures[0]
	if len(g.captures) > 1 {
		g.captures = g.captures[1:]
	}
	return engine.CaptureResult{Stdout: step.Stdout, ExitCode: step.ExitCode}, step.Err
}

// Compare implements engine.Gateway.
func (g *FakeGateway) Compare(_ context.Context, probe, candidate template.Template) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.compareCalls = append(g.compareCalls, CompareCall{Probe: probe, Candidate: candidate})
	if err, ok := g.compareErrs[candidate.Encoded()]; ok {
		return "", err
	}
	if out, ok := g.scores[candidate.Encoded()]; ok {
		return out, nil
	}
	return g.defaultScore, nil
}

// CaptureCalls returns the purposes of every capture so far.
func (g *FakeGateway) CaptureCalls() []engine.Purpose {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]engine.Purpose(nil), g.captureCalls...)
}

// CompareCalls returns every comparator invocation so far.
func (g *FakeGateway) CompareCalls() []CompareCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]CompareCall(nil), g.compareCalls...)
}
