package flow

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidAlgorithm = errors.New("invalid optical flow algorithm")

// Upper bounds of the SimpleFlow params, the matching cost grows with the
// square of both
const (
	MaxLayers             = 16
	MaxAveragingBlockSize = 32
	MaxFlowLimit          = 64
)

// Kind tags the algorithm family of an Algorithm
type Kind int

const (
	KindInvalid Kind = iota
	KindSimpleFlow
	KindDenseRLOF
)

func (k Kind) String() string {
	switch k {
	case KindSimpleFlow:
		return "SimpleFlow"
	case KindDenseRLOF:
		return "DenseRLOF"
	default:
		return "Invalid"
	}
}

func ParseKind(s string) Kind {
	switch s {
	case "SimpleFlow":
		return KindSimpleFlow
	case "DenseRLOF":
		return KindDenseRLOF
	default:
		return KindInvalid
	}
}

type SimpleFlowParams struct {
	Layers             int `json:"layers" yaml:"layers"`
	AveragingBlockSize int `json:"averaging_block_size" yaml:"averagingBlockSize"`
	MaxFlow            int `json:"max_flow" yaml:"maxFlow"`
}

type DenseRLOFParams struct {
	ForwardBackwardThreshold float32 `json:"forward_backward_threshold" yaml:"forwardBackwardThreshold"`
	GridStepX                int     `json:"grid_step_x" yaml:"gridStepX"`
	GridStepY                int     `json:"grid_step_y" yaml:"gridStepY"`
	UsePostProc              bool    `json:"use_post_proc" yaml:"usePostProc"`
	UseVariationalRefinement bool    `json:"use_variational_refinement" yaml:"useVariationalRefinement"`
}

// Algorithm selects an algorithm family and carries its parameters.
// Only the params matching Kind are meaningful.
type Algorithm struct {
	Kind       Kind
	SimpleFlow SimpleFlowParams
	DenseRLOF  DenseRLOFParams
}

func (a Algorithm) String() string {
	switch a.Kind {
	case KindSimpleFlow:
		return fmt.Sprintf("SimpleFlow%+v", a.SimpleFlow)
	case KindDenseRLOF:
		return fmt.Sprintf("DenseRLOF%+v", a.DenseRLOF)
	default:
		return "Invalid"
	}
}

// Validate makes sure the algorithm can be handed to an Estimator
func (a Algorithm) Validate() error {
	switch a.Kind {
	case KindSimpleFlow:
		p := a.SimpleFlow
		if p.Layers < 1 || p.Layers > MaxLayers {
			return fmt.Errorf("%w: layers must be between 1 and %d, got %d", ErrInvalidAlgorithm, MaxLayers, p.Layers)
		}
		if p.AveragingBlockSize < 1 || p.AveragingBlockSize > MaxAveragingBlockSize {
			return fmt.Errorf("%w: averaging_block_size must be between 1 and %d, got %d", ErrInvalidAlgorithm, MaxAveragingBlockSize, p.AveragingBlockSize)
		}
		if p.MaxFlow < 1 || p.MaxFlow > MaxFlowLimit {
			return fmt.Errorf("%w: max_flow must be between 1 and %d, got %d", ErrInvalidAlgorithm, MaxFlowLimit, p.MaxFlow)
		}
	case KindDenseRLOF:
		p := a.DenseRLOF
		if p.GridStepX < 1 || p.GridStepY < 1 {
			return fmt.Errorf("%w: grid steps must be at least 1, got %dx%d", ErrInvalidAlgorithm, p.GridStepX, p.GridStepY)
		}
		if p.ForwardBackwardThreshold != p.ForwardBackwardThreshold {
			return fmt.Errorf("%w: forward_backward_threshold is NaN", ErrInvalidAlgorithm)
		}
	default:
		return fmt.Errorf("%w: no algorithm selected", ErrInvalidAlgorithm)
	}

	return nil
}

// The JSON form is internally tagged: the family name is stored under
// "optflow_alg" next to the family's own fields, so it can be flattened
// into an enclosing object.
const TagKey = "optflow_alg"

func (a Algorithm) MarshalJSON() ([]byte, error) {
	fields := map[string]any{}
	var params any
	switch a.Kind {
	case KindSimpleFlow:
		params = a.SimpleFlow
	case KindDenseRLOF:
		params = a.DenseRLOF
	}

	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
	}

	fields[TagKey] = a.Kind.String()
	return json.Marshal(fields)
}

func (a *Algorithm) UnmarshalJSON(data []byte) error {
	var tag struct {
		Kind string `json:"optflow_alg"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}

	*a = Algorithm{Kind: ParseKind(tag.Kind)}
	switch a.Kind {
	case KindSimpleFlow:
		return json.Unmarshal(data, &a.SimpleFlow)
	case KindDenseRLOF:
		return json.Unmarshal(data, &a.DenseRLOF)
	}

	return nil
}
