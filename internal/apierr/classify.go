package apierr

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Outcome describes a failed exchange as the transport saw it.
type Outcome struct {
	// Sent is true once the request was handed to the transport.
	Sent bool
	// Status is the response status, 0 when no response was received.
	Status int
	// Body is the raw response body, if any.
	Body []byte
	// Err is the transport or setup error, if any.
	Err error
}

// Classify maps a failed exchange to exactly one *Error.
// Rules are evaluated in order and the first match wins:
//
//  1. 401 -> ClassAuth, fixed text
//  2. 403 -> ClassForbidden, fixed text
//  3. 404 -> ClassNotFound, fixed text
//  4. >= 500 -> ClassServer, fixed text
//  5. sent without response -> ClassNetwork, fixed text
//  6. never sent -> ClassRequestSetup, setup error text
//  7. anything else -> ClassUnknown, backend detail or transport text
//
// Classify has no side effects; the same Outcome always yields equal errors.
func Classify(o Outcome, language string) *Error {
	fixed := func(c Class) *Error {
		return &Error{Message: Message(language, c), Class: c, Status: o.Status, Cause: o.Err}
	}

	switch {
	case o.Status == http.StatusUnauthorized:
		return fixed(ClassAuth)
	case o.Status == http.StatusForbidden:
		return fixed(ClassForbidden)
	case o.Status == http.StatusNotFound:
		return fixed(ClassNotFound)
	case o.Status >= http.StatusInternalServerError:
		return fixed(ClassServer)
	case o.Status == 0 && o.Sent:
		return fixed(ClassNetwork)
	case o.Status == 0:
		msg := Message(language, ClassRequestSetup)
		if o.Err != nil && o.Err.Error() != "" {
			msg = o.Err.Error()
		}
		return &Error{Message: msg, Class: ClassRequestSetup, Cause: o.Err}
	}

	msg := Detail(o.Body)
	if msg == "" && o.Err != nil {
		msg = o.Err.Error()
	}
	if msg == "" && o.Status != 0 {
		msg = fmt.Sprintf("request failed with status code %d", o.Status)
	}
	if msg == "" {
		msg = Message(language, ClassUnknown)
	}
	return &Error{Message: msg, Class: ClassUnknown, Status: o.Status, Cause: o.Err}
}

// Detail extracts the backend "detail" field from an error body.
// A string detail is returned as is. A validation list
// ([{"loc": [...], "msg": "..."}]) is flattened to its messages.
// Returns "" when the body carries no usable detail.
func Detail(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return ""
}
