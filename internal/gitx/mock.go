package gitx

import "context"

// MockRunner implements Runner for testing.
// Each method can be configured with a custom function to control behavior.
type MockRunner struct {
	CloneFunc  func(url string) error
	StatusFunc func() ([]StatusEntry, error)
	AddAllFunc func() error
	CommitFunc func(message, user, email string) error
	PushFunc   func() error
	workDir    string

	// Calls records the method names invoked, in order
	Calls []string
}

// NewMockRunner creates a new MockRunner with the specified working directory
func NewMockRunner(workDir string) *MockRunner {
	return &MockRunner{
		workDir: workDir,
	}
}

// Clone clones a repository URL into the working directory
func (m *MockRunner) Clone(_ context.Context, url string) error {
	m.Calls = append(m.Calls, "clone")
	if m.CloneFunc != nil {
		return m.CloneFunc(url)
	}
	return nil
}

// Status returns the current git status as a list of StatusEntry
func (m *MockRunner) Status(_ context.Context) ([]StatusEntry, error) {
	m.Calls = append(m.Calls, "status")
	if m.StatusFunc != nil {
		return m.StatusFunc()
	}
	return nil, nil
}

// AddAll stages every change in the working tree
func (m *MockRunner) AddAll(_ context.Context) error {
	m.Calls = append(m.Calls, "add")
	if m.AddAllFunc != nil {
		return m.AddAllFunc()
	}
	return nil
}

// Commit creates a git commit with the specified message and author
func (m *MockRunner) Commit(_ context.Context, message, user, email string) error {
	m.Calls = append(m.Calls, "commit")
	if m.CommitFunc != nil {
		return m.CommitFunc(message, user, email)
	}
	return nil
}

// Push pushes commits to the remote repository
func (m *MockRunner) Push(_ context.Context) error {
	m.Calls = append(m.Calls, "push")
	if m.PushFunc != nil {
		return m.PushFunc()
	}
	return nil
}

// WorkDir returns the working directory of the git repository
func (m *MockRunner) WorkDir() string {
	return m.workDir
}

// Ensure MockRunner implements Runner interface
var _ Runner = (*MockRunner)(nil)
