package engine

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/Zelak312/tweenarr/flow"
)

// Params configures one interpolation run. It is always replaced as a whole.
type Params struct {
	Inbetweens        int            `json:"inbetweens"`
	LoopSeamlessly    bool           `json:"loop_seamlessly"`
	FlowMultiplier    float32        `json:"flow_multiplier"`
	Algorithm         flow.Algorithm `json:"-"`
	ShowMotionVectors bool           `json:"show_motion_vectors"`
}

func (p Params) Validate() error {
	if p.Inbetweens < 0 {
		return fmt.Errorf("inbetweens can't be negative, got %d", p.Inbetweens)
	}

	if math.IsNaN(float64(p.FlowMultiplier)) || math.IsInf(float64(p.FlowMultiplier), 0) {
		return fmt.Errorf("flow multiplier must be a finite number, got %v", p.FlowMultiplier)
	}

	return p.Algorithm.Validate()
}

// The algorithm fields are flattened into the params object
func (p Params) MarshalJSON() ([]byte, error) {
	type plain Params
	raw, err := json.Marshal(plain(p))
	if err != nil {
		return nil, err
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	algRaw, err := json.Marshal(p.Algorithm)
	if err != nil {
		return nil, err
	}

	algFields := map[string]json.RawMessage{}
	if err := json.Unmarshal(algRaw, &algFields); err != nil {
		return nil, err
	}

	for k, v := range algFields {
		fields[k] = v
	}
	return json.Marshal(fields)
}

func (p *Params) UnmarshalJSON(data []byte) error {
	type plain Params
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	if err := json.Unmarshal(data, &decoded.Algorithm); err != nil {
		return err
	}

	*p = Params(decoded)
	return nil
}
