package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	inputsKey     = "inputs"
	parametersKey = "parameters"
)

// GenerationRequest is the body of a generation request.
type GenerationRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters"`
}

// GenerationResponse is the body of a successful generation response.
type GenerationResponse struct {
	GeneratedText string `json:"generated_text"`
	Status        int    `json:"status"`
}

// NewGenerationResponse returns a response carrying the generated text.
// The status is always 200; soft failures of a generator (e.g., empty output)
// are not distinguished from success.
func NewGenerationResponse(text string) *GenerationResponse {
	return &GenerationResponse{
		GeneratedText: text,
		Status:        http.StatusOK,
	}
}

// MalformedRequestError is returned when a generation request body cannot be
// accepted.
type MalformedRequestError struct {
	// Field is the offending field. It is empty when the body itself is invalid.
	Field  string
	Reason string
}

func (e *MalformedRequestError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed request: %s", e.Reason)
	}
	return fmt.Sprintf("malformed request: %q %s", e.Field, e.Reason)
}

type fieldParseF func(r map[string]json.RawMessage, req *GenerationRequest) error

// ParseGenerationRequest parses and validates a generation request body.
// Both "inputs" and "parameters" must be present; neither is defaulted.
func ParseGenerationRequest(body []byte) (*GenerationRequest, error) {
	r := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, &MalformedRequestError{Reason: fmt.Sprintf("invalid JSON object: %s", err)}
	}
	// "null" decodes into a nil map without an error.
	if r == nil {
		return nil, &MalformedRequestError{Reason: "body must be a JSON object"}
	}

	var req GenerationRequest
	for _, f := range []fieldParseF{parseInputs, parseParameters} {
		if err := f(r, &req); err != nil {
			return nil, err
		}
	}
	return &req, nil
}

func parseInputs(r map[string]json.RawMessage, req *GenerationRequest) error {
	v, err := requiredField(r, inputsKey)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(v, &req.Inputs); err != nil {
		return &MalformedRequestError{Field: inputsKey, Reason: "must be a string"}
	}
	return nil
}

func parseParameters(r map[string]json.RawMessage, req *GenerationRequest) error {
	v, err := requiredField(r, parametersKey)
	if err != nil {
		return err
	}
	d := json.NewDecoder(bytes.NewReader(v))
	// Keep integer parameters (e.g., seeds) exact when they are forwarded to a backend.
	d.UseNumber()
	var params map[string]any
	if err := d.Decode(&params); err != nil {
		return &MalformedRequestError{Field: parametersKey, Reason: "must be an object"}
	}
	req.Parameters = params
	return nil
}

func requiredField(r map[string]json.RawMessage, key string) (json.RawMessage, error) {
	v, ok := r[key]
	if !ok {
		return nil, &MalformedRequestError{Field: key, Reason: "is required"}
	}
	if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, &MalformedRequestError{Field: key, Reason: "must not be null"}
	}
	return v, nil
}
