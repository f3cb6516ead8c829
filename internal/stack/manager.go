package stack

// Manager hands out Stacks under one container directory with a shared
// supervisor, hub and history store. It is the surface consumed by the
// HTTP API and the CLI.
type Manager struct {
	container string
	opts      []Option
}

// NewManager validates container and captures the options applied to every
// Stack it constructs.
func NewManager(container string, opts ...Option) (*Manager, error) {
	// Reuse Stack construction for container validation.
	if _, err := New("probe", container, opts...); err != nil {
		return nil, err
	}
	return &Manager{container: container, opts: opts}, nil
}

// Stack returns the workspace named name. Stacks are cheap handles; state
// lives on disk, so two handles for one name observe the same workspace.
func (m *Manager) Stack(name string) (*Stack, error) {
	return New(name, m.container, m.opts...)
}

// List enumerates workspace names under the container directory.
func (m *Manager) List() ([]string, error) {
	return List(m.container)
}

func (m *Manager) Save(name string, template, params any) error {
	s, err := m.Stack(name)
	if err != nil {
		return err
	}
	return s.Save(template, params)
}

func (m *Manager) Destroy(name string) error {
	s, err := m.Stack(name)
	if err != nil {
		return err
	}
	return s.Destroy()
}

func (m *Manager) Info(name string) (Info, error) {
	s, err := m.Stack(name)
	if err != nil {
		return Info{}, err
	}
	return s.Info()
}

func (m *Manager) Resources(name string) ([]Resource, error) {
	s, err := m.Stack(name)
	if err != nil {
		return nil, err
	}
	return s.Resources()
}

func (m *Manager) Events(name string) ([]WorkspaceEvent, error) {
	s, err := m.Stack(name)
	if err != nil {
		return nil, err
	}
	return s.Events()
}

func (m *Manager) Outputs(name string) (map[string]any, error) {
	s, err := m.Stack(name)
	if err != nil {
		return nil, err
	}
	return s.Outputs()
}

func (m *Manager) Template(name string) (string, error) {
	s, err := m.Stack(name)
	if err != nil {
		return "", err
	}
	return s.Template()
}
