package transport

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/teamtrack/apierror"
	"github.com/pkg/errors"
)

const invalidBodyMessage = "Invalid response from server"

// envelope is the server's uniform response wrapper:
// {success: true, data, message?} or {success: false, message, code?, errors?}.
// Bodies without a success field are carried as the payload itself.
type envelope struct {
	success *bool
	payload json.RawMessage
	message string
	code    string
	details map[string]any
}

func (e envelope) failed() bool {
	return e.success != nil && !*e.success
}

func (e envelope) toError(status int) *apierror.Error {
	var cause error
	if e.failed() {
		cause = apierror.ErrUnsuccessful
	}
	return apierror.New(status, e.message, e.code, e.details, cause)
}

type wireEnvelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Code    string          `json:"code"`
	Errors  json.RawMessage `json:"errors"`
}

func parseEnvelope(body []byte) (envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return envelope{}, nil
	}
	if !json.Valid(trimmed) {
		return envelope{}, apierror.ErrInvalidBody
	}
	if trimmed[0] != '{' {
		return envelope{payload: trimmed}, nil
	}

	var wire wireEnvelope
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		// Valid JSON with unexpected field types is not an envelope.
		return envelope{payload: trimmed}, nil
	}

	env := envelope{
		success: wire.Success,
		message: wire.Message,
		code:    wire.Code,
		details: parseDetails(wire.Errors),
	}
	if env.message == "" {
		env.message = wire.Detail
	}
	switch {
	case wire.Success == nil:
		env.payload = trimmed
	case !isNull(wire.Data):
		env.payload = wire.Data
	}
	return env, nil
}

// parseDetails accepts field errors as an object, or a bare list of
// messages which is filed under non_field_errors.
func parseDetails(raw json.RawMessage) map[string]any {
	if isNull(raw) {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err == nil {
		return fields
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		return map[string]any{"non_field_errors": list}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// unwrap turns an HTTP status and body into the envelope payload or an
// *apierror.Error.
func unwrap(status int, body []byte) (json.RawMessage, error) {
	env, err := parseEnvelope(body)
	ok := status >= http.StatusOK && status < http.StatusMultipleChoices

	if err != nil {
		if !ok {
			return nil, apierror.New(status, "", "", nil, err)
		}
		return nil, apierror.New(status, invalidBodyMessage, "", nil, errors.Wrap(err, "transport unwrap"))
	}
	if !ok || env.failed() {
		return nil, env.toError(status)
	}
	return env.payload, nil
}

func decodePayload(status int, payload json.RawMessage, out any) error {
	if out == nil || isNull(payload) {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], payload...)
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return apierror.New(status, invalidBodyMessage, "", nil, errors.Wrap(err, "transport decode"))
	}
	return nil
}
