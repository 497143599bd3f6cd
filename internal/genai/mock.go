package genai

import "context"

// MockClient returns canned responses for tests. When Err is set it is
// returned instead; otherwise responses are consumed in order, repeating the
// last one.
type MockClient struct {
	Responses []string
	Err       error
	Calls     []string
	next      int
}

// Generate records the user message and returns the next canned response.
func (m *MockClient) Generate(ctx context.Context, system, user string) (string, error) {
	m.Calls = append(m.Calls, user)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", ErrEmptyResponse
	}
	i := m.next
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	}
	m.next++
	return m.Responses[i], nil
}
