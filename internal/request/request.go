package request

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"

	"github.com/dmalakhov/resume-ranker/internal/criteria"
)

// Options are loosely-typed knobs carried inside a scoring request payload.
// Values arrive as whatever JSON type the producer chose, so decoding is
// weakly typed.
type Options struct {
	Workers int    `mapstructure:"workers"`
	Format  string `mapstructure:"format"`
}

// ScoringRequest is the batch scoring request boundary: a JSON object with a
// "criteria" key holding a criteria set, plus optional "options".
type ScoringRequest struct {
	Criteria *criteria.Set
	Options  Options
}

// Parse decodes a scoring request payload. The "criteria" key is required
// and must hold a JSON object.
func Parse(data []byte) (*ScoringRequest, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("scoring request is not valid JSON")
	}

	root := gjson.ParseBytes(data)
	criteriaValue := root.Get("criteria")
	if !criteriaValue.Exists() || !criteriaValue.IsObject() {
		return nil, fmt.Errorf("scoring request must contain a 'criteria' key holding a JSON object")
	}

	set, err := criteria.Parse([]byte(criteriaValue.Raw))
	if err != nil {
		return nil, fmt.Errorf("parse criteria: %w", err)
	}

	req := &ScoringRequest{Criteria: set}

	if options := root.Get("options"); options.Exists() && options.IsObject() {
		var loose map[string]any
		if err := json.Unmarshal([]byte(options.Raw), &loose); err != nil {
			return nil, fmt.Errorf("parse options: %w", err)
		}

		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &req.Options,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, fmt.Errorf("build options decoder: %w", err)
		}
		if err := decoder.Decode(loose); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
	}

	return req, nil
}
