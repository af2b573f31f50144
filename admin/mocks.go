package admin

import (
	"context"
	"path"
	"sort"
	"sync"
)

// Call records one request received by a Mock.
type Call struct {
	Op       string
	Index    string
	Target   string
	Settings map[string]interface{}
}

// Mock is an in-memory cluster used by tests. Every index acknowledges
// every request unless told otherwise through the Nack and Fail maps.
type Mock struct {
	mu sync.Mutex

	Configured     string
	ClusterVersion string

	// Live holds the settings applied per index.
	Live map[string]map[string]interface{}
	// Indices is the index catalog, clones included.
	Indices map[string]bool

	NackSettings map[string]bool
	NackClone    map[string]bool
	NackDelete   map[string]bool
	FailSettings map[string]error
	FailClone    map[string]error
	FailList     error
	FailVersion  error

	Calls []Call
}

// NewMock returns a Mock whose catalog holds indices.
func NewMock(refreshInterval string, indices ...string) *Mock {
	m := &Mock{
		Configured:     refreshInterval,
		ClusterVersion: "7.10.2",
		Live:           make(map[string]map[string]interface{}),
		Indices:        make(map[string]bool),
		NackSettings:   make(map[string]bool),
		NackClone:      make(map[string]bool),
		NackDelete:     make(map[string]bool),
		FailSettings:   make(map[string]error),
		FailClone:      make(map[string]error),
	}
	for _, name := range indices {
		m.Indices[name] = true
	}
	return m
}

func (m *Mock) record(c Call) {
	m.Calls = append(m.Calls, c)
}

// CallsTo returns the recorded calls of op, in order.
func (m *Mock) CallsTo(op string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Call
	for _, c := range m.Calls {
		if c.Op == op {
			res = append(res, c)
		}
	}
	return res
}

// Setting returns the live value of key on index.
func (m *Mock) Setting(index, key string) interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Live[index][key]
}

// Clones lists the catalog entries matching the clone pattern of source.
func (m *Mock) Clones(source string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []string
	for name := range m.Indices {
		if ok, _ := path.Match(source+"_clone_*", name); ok {
			res = append(res, name)
		}
	}
	sort.Strings(res)
	return res
}

func (m *Mock) RefreshInterval() string {
	return m.Configured
}

func (m *Mock) UpdateSettings(ctx context.Context, index string, settings map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(Call{Op: "settings", Index: index, Settings: settings})
	if err := m.FailSettings[index]; err != nil {
		return false, err
	}
	if m.NackSettings[index] {
		return false, nil
	}
	if m.Live[index] == nil {
		m.Live[index] = make(map[string]interface{})
	}
	for k, v := range settings {
		m.Live[index][k] = v
	}
	return true, nil
}

func (m *Mock) CurrentRefreshInterval(ctx context.Context, index string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.Live[index][RefreshIntervalSetting].(string); ok {
		return v, nil
	}
	return "1s", nil
}

func (m *Mock) Clone(ctx context.Context, source, target string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(Call{Op: "clone", Index: source, Target: target})
	if err := m.FailClone[source]; err != nil {
		return false, err
	}
	// an unacknowledged clone may still have created the target
	m.Indices[target] = true
	if m.NackClone[source] {
		return false, nil
	}
	return true, nil
}

func (m *Mock) Version(ctx context.Context) (string, error) {
	if m.FailVersion != nil {
		return "", m.FailVersion
	}
	return m.ClusterVersion, nil
}

func (m *Mock) ListIndices(ctx context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailList != nil {
		return nil, m.FailList
	}
	var res []string
	for name := range m.Indices {
		if ok, _ := path.Match(pattern, name); ok {
			res = append(res, name)
		}
	}
	sort.Strings(res)
	return res, nil
}

func (m *Mock) IndexExists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Indices[name], nil
}

func (m *Mock) CreateIndex(ctx context.Context, name string, body map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(Call{Op: "create", Index: name, Settings: body})
	m.Indices[name] = true
	return true, nil
}

func (m *Mock) PutMapping(ctx context.Context, name string, mapping map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(Call{Op: "mapping", Index: name, Settings: mapping})
	return true, nil
}

func (m *Mock) DeleteIndex(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(Call{Op: "delete", Index: name})
	if m.NackDelete[name] {
		return false, nil
	}
	delete(m.Indices, name)
	return true, nil
}
