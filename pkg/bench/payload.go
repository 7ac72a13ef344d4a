package bench

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Payload is the JSON body posted to the judge endpoint. It is built once
// per run and never mutated afterwards.
type Payload struct {
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
}

// DefaultPayload is the canonical benchmark body.
func DefaultPayload() Payload {
	return Payload{
		Prompt: "Explain Savant RRF briefly.",
		Answer: "Savant evaluates semantic quality with RRF meta-logic.",
	}
}

func (p Payload) Marshal() ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling request payload")
	}
	return b, nil
}
