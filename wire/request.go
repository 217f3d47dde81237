// Package wire owns the byte-level request/response contract: classifying a
// raw request buffer into one of the five operations, extracting the id and
// JSON payload the operation needs, and rendering the fixed-format reply.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"usersock/models"
)

// Op is the classified operation kind.
type Op int

const (
	OpUnknown Op = iota
	OpCreate
	OpReadOne
	OpReadAll
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpReadOne:
		return "read_one"
	case OpReadAll:
		return "read_all"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidID means the path segment where an id was required is missing
	// or not an integer.
	ErrInvalidID = errors.New("wire: invalid id")

	// ErrMalformedBody means the payload is missing, not valid JSON, or lacks
	// a required field.
	ErrMalformedBody = errors.New("wire: malformed body")
)

// Envelope is the parsed, structured form of one inbound request. ID and
// Params are populated only when the operation requires them.
type Envelope struct {
	Op     Op
	ID     int64
	Params models.UserParams
}

// bodyDelimiter separates the header-like preamble from the payload.
const bodyDelimiter = "\r\n\r\n"

// Parse classifies a raw request buffer and extracts the inputs the matched
// operation needs. Fields an operation does not use are never evaluated: a
// read-all never touches the body, a create never touches the path id.
//
// The returned Envelope always carries the classified Op, even when
// extraction fails, so the caller can shape its failure response.
func Parse(raw []byte) (Envelope, error) {
	s := string(raw)

	line := s
	if i := strings.Index(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	method, rest, _ := strings.Cut(line, " ")
	path := rest
	if i := strings.IndexByte(path, ' '); i >= 0 {
		path = path[:i]
	}

	env := Envelope{Op: classify(method, path)}

	switch env.Op {
	case OpCreate:
		params, err := parseBody(s)
		if err != nil {
			return env, err
		}
		env.Params = params

	case OpReadOne, OpDelete:
		id, err := parseID(path)
		if err != nil {
			return env, err
		}
		env.ID = id

	case OpUpdate:
		id, err := parseID(path)
		if err != nil {
			return env, err
		}
		params, err := parseBody(s)
		if err != nil {
			return env, err
		}
		env.ID = id
		env.Params = params
	}

	return env, nil
}

// classify tests the five fixed prefixes in order; first match wins. The
// trailing slash distinguishes read-one from read-all, so "GET /users/" with
// an empty id segment still routes to read-one.
func classify(method, path string) Op {
	switch {
	case method == "POST" && strings.HasPrefix(path, "/users"):
		return OpCreate
	case method == "GET" && strings.HasPrefix(path, "/users/"):
		return OpReadOne
	case method == "GET" && strings.HasPrefix(path, "/users"):
		return OpReadAll
	case method == "PUT" && strings.HasPrefix(path, "/users"):
		return OpUpdate
	case method == "DELETE" && strings.HasPrefix(path, "/users/"):
		return OpDelete
	default:
		return OpUnknown
	}
}

// parseID takes the third /-separated segment of the path ("/users/<id>")
// and parses it as a base-10 integer.
func parseID(path string) (int64, error) {
	parts := strings.Split(path, "/")
	seg := ""
	if len(parts) > 2 {
		seg = parts[2]
	}
	if i := strings.IndexFunc(seg, isSpace); i >= 0 {
		seg = seg[:i]
	}
	id, err := strconv.ParseInt(seg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, seg)
	}
	return id, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

// parseBody decodes the JSON payload after the first blank-line delimiter.
// Both name and email must be present (empty strings are accepted); any id
// field in the payload is ignored.
func parseBody(request string) (models.UserParams, error) {
	_, body, _ := strings.Cut(request, bodyDelimiter)

	var payload struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return models.UserParams{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if payload.Name == nil || payload.Email == nil {
		return models.UserParams{}, fmt.Errorf("%w: name and email are required", ErrMalformedBody)
	}
	return models.UserParams{Name: *payload.Name, Email: *payload.Email}, nil
}
