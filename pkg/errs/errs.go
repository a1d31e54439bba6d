// Package errs defines the error model shared by every stage of a translation.
//
// All failures surface as *Error values carrying a Code and enough context
// (the offending variable, label, relationship type or expression text) to
// diagnose the problem without re-parsing the query.
package errs

import (
	"errors"
	"fmt"
)

// Code categorizes translation errors.
type Code string

const (
	// CodeSyntax indicates the front end could not tokenize or parse the query text.
	CodeSyntax Code = "SYNTAX"

	// CodeParseShape indicates pattern or projection text outside the supported sub-grammar.
	CodeParseShape Code = "PARSE_SHAPE"

	// CodeUnsupportedFeature indicates a recognized but unsupported construct
	// (variable-length traversal, write statements).
	CodeUnsupportedFeature Code = "UNSUPPORTED_FEATURE"

	// CodeEmptyPattern indicates the query has no usable node pattern.
	CodeEmptyPattern Code = "EMPTY_PATTERN"

	// CodeAmbiguousLabel indicates an anonymous node whose neighbors disagree on its label.
	CodeAmbiguousLabel Code = "AMBIGUOUS_LABEL"

	// CodeUnknownLabel indicates a node label with no table mapping.
	CodeUnknownLabel Code = "UNKNOWN_LABEL"

	// CodeUnknownRelationshipType indicates a relationship type with no edge mapping.
	CodeUnknownRelationshipType Code = "UNKNOWN_RELATIONSHIP_TYPE"

	// CodeMismatchedEndpointLabels indicates a one-to-many edge whose endpoints
	// match neither orientation of its parent/child labels.
	CodeMismatchedEndpointLabels Code = "MISMATCHED_ENDPOINT_LABELS"

	// CodeUnsupportedEdgeProperty indicates a RETURN item asking for a property of an edge.
	CodeUnsupportedEdgeProperty Code = "UNSUPPORTED_EDGE_PROPERTY"

	// CodeUnknownReturnVariable indicates a RETURN item naming an unbound variable.
	CodeUnknownReturnVariable Code = "UNKNOWN_RETURN_VARIABLE"

	// CodeInvalidSchema indicates a schema document that cannot be loaded or is inconsistent.
	CodeInvalidSchema Code = "INVALID_SCHEMA"
)

// ReasonUnsupportedProjection refines CodeParseShape for RETURN items that are
// not a bare variable or a single variable.property access.
const ReasonUnsupportedProjection = "unsupported projection"

// Error is a translation failure.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Reason optionally refines Code (e.g. ReasonUnsupportedProjection).
	Reason string

	// Message is a human-readable description.
	Message string

	// Subject is the offending variable, label, type or expression text.
	Subject string

	// Index is the pattern position for node-scoped errors, -1 otherwise.
	Index int

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether err (or anything it wraps) is an *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// SubjectOf returns the subject of the first *Error in err's chain.
func SubjectOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Subject
	}
	return ""
}

func newError(code Code, subject, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Subject: subject,
		Index:   -1,
	}
}

// Syntax wraps a front-end parse failure.
func Syntax(query string, err error) *Error {
	e := newError(CodeSyntax, query, "cannot parse query")
	e.Err = err
	return e
}

// ParseShape reports surface text the extractor cannot interpret.
func ParseShape(text, format string, args ...any) *Error {
	return newError(CodeParseShape, text, format, args...)
}

// UnsupportedProjection reports a RETURN expression outside var / var.prop.
func UnsupportedProjection(expr string) *Error {
	e := newError(CodeParseShape, expr, "unsupported RETURN expression %q", expr)
	e.Reason = ReasonUnsupportedProjection
	return e
}

// UnsupportedFeature reports a recognized construct this translator refuses.
func UnsupportedFeature(feature string) *Error {
	return newError(CodeUnsupportedFeature, feature, "unsupported feature: %s", feature)
}

// EmptyPattern reports a query without a usable node pattern.
func EmptyPattern() *Error {
	return newError(CodeEmptyPattern, "", "no node pattern to translate")
}

// AmbiguousLabel reports conflicting inferred labels for the anonymous node at index.
func AmbiguousLabel(index int, left, right string) *Error {
	e := newError(CodeAmbiguousLabel, fmt.Sprintf("%s|%s", left, right),
		"unable to infer unique label for anonymous node at index %d (%s vs %s)", index, left, right)
	e.Index = index
	return e
}

// UnknownLabel reports a label lookup miss. An empty label means none could be resolved.
func UnknownLabel(label string) *Error {
	if label == "" {
		return newError(CodeUnknownLabel, label, "node has no label and none could be inferred")
	}
	return newError(CodeUnknownLabel, label, "no node mapping for label %q", label)
}

// UnknownRelationshipType reports a relationship type lookup miss.
func UnknownRelationshipType(typ string) *Error {
	if typ == "" {
		return newError(CodeUnknownRelationshipType, typ, "relationship has no type")
	}
	return newError(CodeUnknownRelationshipType, typ, "no edge mapping for relationship type %q", typ)
}

// MismatchedEndpointLabels reports a one-to-many edge whose endpoints fit neither orientation.
func MismatchedEndpointLabels(typ, left, right string) *Error {
	return newError(CodeMismatchedEndpointLabels, typ,
		"edge %s endpoints (%s, %s) match neither parent/child orientation", typ, left, right)
}

// UnsupportedEdgeProperty reports a RETURN item of the form edgeVar.property.
func UnsupportedEdgeProperty(variable, property string) *Error {
	return newError(CodeUnsupportedEdgeProperty, variable,
		"RETURN edge properties are not supported: %s.%s", variable, property)
}

// UnknownReturnVariable reports a RETURN item naming a variable the pattern never binds.
func UnknownReturnVariable(variable string) *Error {
	return newError(CodeUnknownReturnVariable, variable, "RETURN references unknown variable %q", variable)
}

// InvalidSchema reports a schema document problem.
func InvalidSchema(subject, format string, args ...any) *Error {
	return newError(CodeInvalidSchema, subject, format, args...)
}
