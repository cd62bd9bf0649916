package goSession

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// extractMessage reads the backend's "errors" field. A string is used as is;
// an object (or array) is flattened value by value in document order and
// joined with "; ". Anything else yields fallback.
func extractMessage(body []byte, fallback string) string {
	var envelope struct {
		Errors json.RawMessage `json:"errors"`
	}
	if len(body) == 0 || json.Unmarshal(body, &envelope) != nil || len(envelope.Errors) == 0 {
		return fallback
	}

	var s string
	if err := json.Unmarshal(envelope.Errors, &s); err == nil {
		if s == "" {
			return fallback
		}
		return s
	}

	msgs, ok := flattenErrors(envelope.Errors)
	if !ok || len(msgs) == 0 {
		return fallback
	}
	return strings.Join(msgs, "; ")
}

func flattenErrors(raw json.RawMessage) ([]string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	delim, ok := tok.(json.Delim)
	if !ok || (delim != '{' && delim != '[') {
		return nil, false
	}

	var msgs []string
	for dec.More() {
		if delim == '{' {
			if _, err := dec.Token(); err != nil {
				return nil, false
			}
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, false
		}
		msgs = appendValue(msgs, v)
	}
	return msgs, true
}

// appendValue flattens one level: arrays contribute their elements.
func appendValue(msgs []string, v json.RawMessage) []string {
	var list []json.RawMessage
	if err := json.Unmarshal(v, &list); err == nil {
		for _, item := range list {
			msgs = appendScalar(msgs, item)
		}
		return msgs
	}
	return appendScalar(msgs, v)
}

func appendScalar(msgs []string, v json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if s != "" {
			msgs = append(msgs, s)
		}
		return msgs
	}
	text := string(bytes.TrimSpace(v))
	if text == "" || text == "null" {
		return msgs
	}
	return append(msgs, text)
}

// validationMessage renders validator errors with their JSON field names.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", ")))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}
