// Package projection narrows a document value with a JMESPath expression.
package projection

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jmespath/go-jmespath"
)

var ErrInvalidExpression = errors.New("invalid select expression")

// Evaluator compiles expressions once and reuses them.
type Evaluator struct {
	cache map[string]*jmespath.JMESPath
	mu    sync.RWMutex
}

func NewEvaluator() *Evaluator {
	return &Evaluator{
		cache: make(map[string]*jmespath.JMESPath),
	}
}

// Project applies expression to the JSON value and returns the JSON result.
// A compile failure wraps ErrInvalidExpression.
func (e *Evaluator) Project(expression string, value json.RawMessage) (json.RawMessage, error) {
	compiled, err := e.getOrCompile(expression)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidExpression, expression, err)
	}

	var data any
	if err := json.Unmarshal(value, &data); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}

	result, err := compiled.Search(data)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate expression %q: %w", expression, err)
	}

	return json.Marshal(result)
}

func (e *Evaluator) getOrCompile(expression string) (*jmespath.JMESPath, error) {
	e.mu.RLock()
	if compiled, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return compiled, nil
	}
	e.mu.RUnlock()

	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expression] = compiled
	e.mu.Unlock()

	return compiled, nil
}
