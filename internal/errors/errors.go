// Package errors wraps the standard library errors package with a builder
// that attaches a component, a category and structured context to an error
// and forwards it to the configured telemetry reporter.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sync"
)

// Category classifies an error for telemetry grouping.
type Category string

const (
	CategoryDatabase      Category = "database"
	CategoryNetwork       Category = "network"
	CategoryConfiguration Category = "configuration"
	CategoryValidation    Category = "validation"
	CategoryNotFound      Category = "not-found"
	CategoryDelivery      Category = "delivery"
	CategoryGeneric       Category = "generic"
)

// EnhancedError is an error annotated with component, category and context.
type EnhancedError struct {
	Err       error
	component string
	category  Category
	context   map[string]any
}

func (e *EnhancedError) Error() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

func (e *EnhancedError) Unwrap() error { return e.Err }

// GetComponent returns the component that produced the error.
func (e *EnhancedError) GetComponent() string { return e.component }

// GetCategory returns the error category.
func (e *EnhancedError) GetCategory() Category { return e.category }

// GetContext returns a copy of the structured context.
func (e *EnhancedError) GetContext() map[string]any { return maps.Clone(e.context) }

// ErrorBuilder assembles an EnhancedError.
type ErrorBuilder struct {
	err         error
	component   string
	category    Category
	categorySet bool
	context     map[string]any
}

// New starts a builder around err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err, category: CategoryGeneric}
}

// Newf starts a builder around a formatted error.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

func (b *ErrorBuilder) Component(name string) *ErrorBuilder {
	b.component = name
	return b
}

func (b *ErrorBuilder) Category(c Category) *ErrorBuilder {
	b.category = c
	b.categorySet = true
	return b
}

func (b *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if b.context == nil {
		b.context = make(map[string]any)
	}
	b.context[key] = value
	return b
}

// Build finalizes the error and reports it. An error that already carries an
// EnhancedError is reported once: building on the same error returns it
// unchanged, while a further wrap inherits its component, category and
// context unless the builder overrides them.
func (b *ErrorBuilder) Build() *EnhancedError {
	var existing *EnhancedError
	if stderrors.As(b.err, &existing) {
		if b.err == error(existing) {
			return existing
		}
		return b.wrap(existing)
	}
	ee := &EnhancedError{
		Err:       b.err,
		component: b.component,
		category:  b.category,
		context:   b.context,
	}
	report(ee)
	return ee
}

func (b *ErrorBuilder) wrap(inner *EnhancedError) *EnhancedError {
	ee := &EnhancedError{
		Err:       b.err,
		component: inner.component,
		category:  inner.category,
		context:   maps.Clone(inner.context),
	}
	if b.component != "" {
		ee.component = b.component
	}
	if b.categorySet {
		ee.category = b.category
	}
	if len(b.context) > 0 {
		if ee.context == nil {
			ee.context = make(map[string]any, len(b.context))
		}
		maps.Copy(ee.context, b.context)
	}
	return ee
}

// Reporter receives every built error.
type Reporter func(*EnhancedError)

var (
	reporterMu sync.RWMutex
	reporter   Reporter
)

// SetReporter installs the telemetry hook. A nil reporter disables reporting.
func SetReporter(r Reporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	reporter = r
}

func report(ee *EnhancedError) {
	reporterMu.RLock()
	r := reporter
	reporterMu.RUnlock()
	if r != nil && ee.Err != nil {
		r(ee)
	}
}

// Standard library passthroughs so callers need a single import.

func Is(err, target error) bool   { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }
func Join(errs ...error) error     { return stderrors.Join(errs...) }

// NewStd creates a plain sentinel error.
func NewStd(text string) error { return stderrors.New(text) }
