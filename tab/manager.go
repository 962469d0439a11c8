package tab

import (
	"iter"
	"maps"
	"slices"
)

// Manager holds one Container per workspace. Workspace 0 is the default.
type Manager struct {
	opts       Options
	containers map[int]*Container
	active     int
}

// NewManager returns a manager whose containers are built from opts.
func NewManager(opts Options) *Manager {
	return &Manager{opts: opts, containers: make(map[int]*Container)}
}

// Container returns the container of workspace ws, creating it empty.
func (m *Manager) Container(ws int) *Container {
	c, ok := m.containers[ws]
	if !ok {
		c = NewContainer(m.opts)
		m.containers[ws] = c
	}
	return c
}

// Active returns the container of the active workspace.
func (m *Manager) Active() *Container { return m.Container(m.active) }

// ActiveWorkspace returns the active workspace index.
func (m *Manager) ActiveWorkspace() int { return m.active }

// SetActive switches the active workspace.
func (m *Manager) SetActive(ws int) {
	m.active = ws
}

// Workspaces returns the known workspace indexes in ascending order.
func (m *Manager) Workspaces() []int {
	return slices.Sorted(maps.Keys(m.containers))
}

// All yields every workspace with its container in ascending order.
func (m *Manager) All() iter.Seq2[int, *Container] {
	return func(yield func(int, *Container) bool) {
		for _, ws := range m.Workspaces() {
			if !yield(ws, m.containers[ws]) {
				return
			}
		}
	}
}

// ContainerOf returns the container holding t, nil if none does.
func (m *Manager) ContainerOf(t *Tab) *Container {
	for _, c := range m.All() {
		if c.IndexOf(t) >= 0 {
			return c
		}
	}
	return nil
}

// AliveCount returns the number of running terminals in all workspaces.
func (m *Manager) AliveCount() int {
	n := 0
	for _, c := range m.containers {
		n += c.AliveCount()
	}
	return n
}

// CloseAll destroys every tab of every workspace.
func (m *Manager) CloseAll() {
	for _, c := range m.containers {
		c.CloseAll()
	}
}
