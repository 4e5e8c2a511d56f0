package refine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bobmatnyc/edgar-sub010/internal/logging"
)

// Loop defaults.
const (
	DefaultTargetAccuracy = 0.95
	DefaultMaxIterations  = 5
	DefaultMinImprovement = 0.02
)

// Sentinel errors for loop misconfiguration and infrastructure faults.
var (
	ErrNoCases     = errors.New("no labeled cases to evaluate against")
	ErrEvaluate    = errors.New("evaluation infrastructure failed")
	ErrRegenerate  = errors.New("artifact regeneration failed")
	ErrInvalidLoop = errors.New("invalid loop configuration")
)

// Outcome states why the loop stopped.
type Outcome string

const (
	// OutcomeTarget means the target accuracy was reached.
	OutcomeTarget Outcome = "target_reached"
	// OutcomePlateau means accuracy stopped improving meaningfully.
	OutcomePlateau Outcome = "plateau"
	// OutcomeMaxIterations means the iteration bound was hit.
	OutcomeMaxIterations Outcome = "max_iterations"
)

// Evaluator runs an artifact version against labeled cases. Individual
// case failures are returned inside the Evaluation; the error return is
// reserved for infrastructure faults that make evaluation impossible.
type Evaluator interface {
	Evaluate(ctx context.Context, cases []LabeledCase) (*Evaluation, error)
}

// Regenerator re-synthesizes the artifact with refinements folded in
// and makes the new version the one the Evaluator sees next.
type Regenerator interface {
	Regenerate(ctx context.Context, refinements []Refinement) error
}

// Config bounds the refinement loop.
type Config struct {
	TargetAccuracy float64
	MaxIterations  int
	// MinImprovement is the accuracy delta below which an iteration
	// counts toward the plateau. Two consecutive such iterations stop
	// the loop.
	MinImprovement float64
}

// DefaultConfig returns the standard loop bounds.
func DefaultConfig() Config {
	return Config{
		TargetAccuracy: DefaultTargetAccuracy,
		MaxIterations:  DefaultMaxIterations,
		MinImprovement: DefaultMinImprovement,
	}
}

func (c Config) validate() error {
	if c.TargetAccuracy <= 0 || c.TargetAccuracy > 1 {
		return fmt.Errorf("%w: target accuracy %v outside (0,1]", ErrInvalidLoop, c.TargetAccuracy)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations %d below 1", ErrInvalidLoop, c.MaxIterations)
	}
	if c.MinImprovement < 0 {
		return fmt.Errorf("%w: min improvement %v negative", ErrInvalidLoop, c.MinImprovement)
	}
	return nil
}

// Iteration records one pass through the loop.
type Iteration struct {
	Number      int          `json:"number"`
	Accuracy    float64      `json:"accuracy"`
	Failures    int          `json:"failures"`
	Patterns    []string     `json:"patterns,omitempty"`
	Refinements []Refinement `json:"refinements,omitempty"`
	Regenerated bool         `json:"regenerated"`
}

// Result summarizes a completed loop run.
type Result struct {
	Outcome       Outcome     `json:"outcome"`
	FinalAccuracy float64     `json:"final_accuracy"`
	Iterations    []Iteration `json:"iterations"`
	// FinalEvaluation is the last evaluation performed.
	FinalEvaluation *Evaluation `json:"final_evaluation,omitempty"`
}

// Loop drives evaluate, analyze, suggest, regenerate cycles until a
// stopping condition holds.
type Loop struct {
	cfg         Config
	evaluator   Evaluator
	regenerator Regenerator
	categorizer *Categorizer
	analyzer    *Analyzer
	suggester   *Suggester
	logger      *logging.Logger
}

// NewLoop wires a loop. Logger may be nil; a no-op logger is used.
func NewLoop(cfg Config, evaluator Evaluator, regenerator Regenerator, logger *logging.Logger) (*Loop, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if evaluator == nil || regenerator == nil {
		return nil, fmt.Errorf("%w: evaluator and regenerator are required", ErrInvalidLoop)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Loop{
		cfg:         cfg,
		evaluator:   evaluator,
		regenerator: regenerator,
		categorizer: NewCategorizer(),
		analyzer:    NewAnalyzer(AnalyzerOptions{}),
		suggester:   NewSuggester(),
		logger:      logger.Named("refine"),
	}, nil
}

// Run executes the loop against the labeled case set. Cancellation is
// cooperative: the context is checked at each iteration boundary, so a
// cancelled run finishes its in-flight evaluation and stops cleanly.
func (l *Loop) Run(ctx context.Context, cases []LabeledCase) (*Result, error) {
	if len(cases) == 0 {
		return nil, ErrNoCases
	}

	result := &Result{}
	prevAccuracy := -1.0
	lowDeltas := 0

	for i := 1; i <= l.cfg.MaxIterations; i++ {
		eval, err := l.evaluator.Evaluate(ctx, cases)
		if err != nil {
			return nil, fmt.Errorf("%w: iteration %d: %v", ErrEvaluate, i, err)
		}
		accuracy := eval.Accuracy()
		iter := Iteration{Number: i, Accuracy: accuracy, Failures: len(eval.Failures)}
		result.FinalAccuracy = accuracy
		result.FinalEvaluation = eval

		l.logger.Info(ctx, "iteration evaluated",
			zap.Int("iteration", i),
			zap.Float64("accuracy", accuracy),
			zap.Int("failures", len(eval.Failures)))

		if accuracy >= l.cfg.TargetAccuracy {
			result.Iterations = append(result.Iterations, iter)
			result.Outcome = OutcomeTarget
			return result, nil
		}

		if prevAccuracy >= 0 {
			if accuracy-prevAccuracy < l.cfg.MinImprovement {
				lowDeltas++
			} else {
				lowDeltas = 0
			}
			if lowDeltas >= 2 {
				result.Iterations = append(result.Iterations, iter)
				result.Outcome = OutcomePlateau
				l.logger.Warn(ctx, "accuracy plateaued",
					zap.Float64("accuracy", accuracy),
					zap.Int("iteration", i))
				return result, nil
			}
		}
		prevAccuracy = accuracy

		if err := ctx.Err(); err != nil {
			result.Iterations = append(result.Iterations, iter)
			return result, err
		}

		categorized := l.categorizer.CategorizeAll(eval.Failures)
		analysis := l.analyzer.Analyze(categorized)
		for _, p := range analysis.Patterns {
			iter.Patterns = append(iter.Patterns, p.Name)
		}
		iter.Refinements = l.suggester.Suggest(analysis)

		if i < l.cfg.MaxIterations {
			if err := l.regenerator.Regenerate(ctx, iter.Refinements); err != nil {
				result.Iterations = append(result.Iterations, iter)
				return result, fmt.Errorf("%w: iteration %d: %v", ErrRegenerate, i, err)
			}
			iter.Regenerated = true
		}
		result.Iterations = append(result.Iterations, iter)
	}

	result.Outcome = OutcomeMaxIterations
	return result, nil
}
