package commandstructure

// mockCommand is a simple mock implementation of the Command interface for testing
type mockCommand struct {
	name        string
	executeFunc func(Page) (Page, bool, error)
}

func (m *mockCommand) Name() string {
	return m.name
}

func (m *mockCommand) Execute(page Page) (Page, bool, error) {
	if m.executeFunc != nil {
		return m.executeFunc(page)
	}
	return page, false, nil
}

// newMockCommand creates a mock command with default behavior (pass-through)
func newMockCommand(name string) *mockCommand {
	return &mockCommand{name: name}
}

// newModifyingMockCommand creates a mock command that reports a modification
func newModifyingMockCommand(name string) *mockCommand {
	return &mockCommand{
		name: name,
		executeFunc: func(page Page) (Page, bool, error) {
			page.Number++
			return page, true, nil
		},
	}
}

// newMockCommandWithError creates a mock command that returns an error
func newMockCommandWithError(name string, err error) *mockCommand {
	return &mockCommand{
		name: name,
		executeFunc: func(page Page) (Page, bool, error) {
			return page, false, err
		},
	}
}
