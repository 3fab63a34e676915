package address

import (
	"context"
)

// MockValidator is a test implementation of Validator.
type MockValidator struct {
	ValidateFunc func(ctx context.Context, q Query) (*Candidate, error)

	// Queries records every query passed to Validate, in order.
	Queries []Query
}

// NewMockValidator creates a new mock validator for testing.
// Without a ValidateFunc it reports every query as a miss.
func NewMockValidator() *MockValidator {
	return &MockValidator{}
}

// Validate records the query and delegates to the configured function.
// A blank-street query is an ordinary miss, mirroring the Validator
// contract that such queries are never sent to the provider.
func (m *MockValidator) Validate(ctx context.Context, q Query) (*Candidate, error) {
	m.Queries = append(m.Queries, q)
	if !q.HasStreet() {
		return nil, nil
	}
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, q)
	}
	return nil, nil
}
