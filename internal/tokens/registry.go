// Package tokens counts tokens in generated contract text. The drafting
// assistant usually reports usage itself; this package fills the gap when it
// does not, so every generated contract carries usage metadata.
package tokens

import (
	"strings"
)

// Counter counts tokens in a piece of text for a given model.
type Counter interface {
	// Count returns the token count and whether it is an estimate rather
	// than an exact tokenizer count.
	Count(model, text string) (count int, estimated bool, err error)
	// SupportsModel reports whether this counter knows the model.
	SupportsModel(model string) bool
}

// Registry picks the right counter for a model, falling back to estimation
// for models without a known tokenizer.
type Registry struct {
	counters []Counter
	fallback Counter
}

// NewRegistry creates a registry with the estimator as fallback.
func NewRegistry() *Registry {
	return &Registry{
		fallback: NewEstimator(),
	}
}

// Register adds a counter to the registry.
func (r *Registry) Register(counter Counter) {
	r.counters = append(r.counters, counter)
}

// SetFallback replaces the fallback counter.
func (r *Registry) SetFallback(counter Counter) {
	r.fallback = counter
}

// Count counts tokens using the first counter that supports the model. When
// an exact counter fails the estimator still produces a usable number.
func (r *Registry) Count(model, text string) (int, bool, error) {
	for _, counter := range r.counters {
		if !counter.SupportsModel(model) {
			continue
		}
		count, estimated, err := counter.Count(model, text)
		if err == nil {
			return count, estimated, nil
		}
		break
	}
	return r.fallback.Count(model, text)
}

// Estimator approximates token counts from character length. Contract text is
// mostly French prose, where roughly 4 characters make a token.
type Estimator struct {
	CharsPerToken float64
}

// NewEstimator creates an estimator with the default ratio.
func NewEstimator() *Estimator {
	return &Estimator{CharsPerToken: 4.0}
}

// Count estimates the token count.
func (e *Estimator) Count(model, text string) (int, bool, error) {
	return int(float64(len(text)) / e.CharsPerToken), true, nil
}

// SupportsModel returns true, the estimator handles anything.
func (e *Estimator) SupportsModel(model string) bool {
	return true
}

// ModelMatcher matches model names against prefixes and exact names.
type ModelMatcher struct {
	prefixes []string
	exact    []string
}

// NewModelMatcher creates a matcher.
func NewModelMatcher(prefixes, exact []string) *ModelMatcher {
	return &ModelMatcher{prefixes: prefixes, exact: exact}
}

// Matches returns true if the model matches any pattern.
func (m *ModelMatcher) Matches(model string) bool {
	for _, e := range m.exact {
		if model == e {
			return true
		}
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}
