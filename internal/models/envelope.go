package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// envelope is the transport wrapper used by the shop API on success
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// UnwrapPayload returns the data member of a response envelope. Bodies that are not
// wrapped in an envelope are returned unchanged.
func UnwrapPayload(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] != '{' {
		return json.RawMessage(trimmed), nil
	}
	probe := map[string]json.RawMessage{}
	err := json.Unmarshal(trimmed, &probe)
	if err != nil {
		return nil, fmt.Errorf("cannot decode the response body: %w", err)
	}
	if _, found := probe["data"]; !found {
		return json.RawMessage(trimmed), nil
	}
	var env envelope
	err = json.Unmarshal(trimmed, &env)
	if err != nil {
		return nil, fmt.Errorf("cannot decode the response envelope: %w", err)
	}
	return env.Data, nil
}

type ErrorBodyKind string

const (
	UnknownErrorBody ErrorBodyKind = "unknown"
	// MessageErrorBody is {"statusCode": 400, "message": "..." | ["..."], "error": "..."}
	MessageErrorBody ErrorBodyKind = "message"
	// FieldErrorBody is {"message": "...", "errors": [{"field": "...", "message": "..."}]}
	FieldErrorBody ErrorBodyKind = "fieldErrors"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorBody is the decoded body of a failed response. Kind tells which of the known
// shapes matched, UnknownErrorBody keeps the raw bytes for anything else.
type ErrorBody struct {
	Kind        ErrorBodyKind
	Message     string
	FieldErrors []FieldError
	Raw         json.RawMessage
}

type errorShape struct {
	Message json.RawMessage `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Error   json.RawMessage `json:"error"`
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// ParseErrorBody decodes a failed response body against the known error shapes. The shapes are
// told apart by their members, other members such as timestamp or path are ignored.
func ParseErrorBody(body []byte) ErrorBody {
	trimmed := bytes.TrimSpace(body)
	unknown := ErrorBody{Kind: UnknownErrorBody, Raw: json.RawMessage(trimmed)}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return unknown
	}
	var shape errorShape
	if err := json.Unmarshal(trimmed, &shape); err != nil {
		return unknown
	}

	var fields []FieldError
	if present(shape.Errors) && json.Unmarshal(shape.Errors, &fields) == nil && len(fields) > 0 {
		output := ErrorBody{Kind: FieldErrorBody, FieldErrors: fields, Raw: json.RawMessage(trimmed)}
		_ = json.Unmarshal(shape.Message, &output.Message)
		return output
	}

	if !present(shape.Message) {
		return unknown
	}
	output := ErrorBody{Kind: MessageErrorBody, Raw: json.RawMessage(trimmed)}
	var single string
	if err := json.Unmarshal(shape.Message, &single); err == nil {
		output.Message = single
		return output
	}
	var many []string
	if err := json.Unmarshal(shape.Message, &many); err != nil {
		return unknown
	}
	for _, m := range many {
		output.FieldErrors = append(output.FieldErrors, FieldError{Message: m})
	}
	if len(many) > 0 {
		output.Message = many[0]
	} else {
		_ = json.Unmarshal(shape.Error, &output.Message)
	}
	return output
}

// FirstFieldError returns the message of the first field error, if any.
func (e ErrorBody) FirstFieldError() (string, bool) {
	for _, fe := range e.FieldErrors {
		if fe.Message != "" {
			return fe.Message, true
		}
	}
	return "", false
}
