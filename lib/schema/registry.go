package schema

import (
	"fmt"
	"slices"
)

// Registry holds every logical table in declaration order.
type Registry struct {
	tables []TableDescriptor
	byName map[string]int
}

func NewRegistry(tables ...TableDescriptor) (*Registry, error) {
	registry := &Registry{byName: make(map[string]int)}
	for _, table := range tables {
		if err := table.Validate(); err != nil {
			return nil, err
		}

		if _, ok := registry.byName[table.Name()]; ok {
			return nil, fmt.Errorf("table %q is declared more than once", table.Name())
		}

		registry.byName[table.Name()] = len(registry.tables)
		registry.tables = append(registry.tables, table)
	}

	for _, table := range registry.tables {
		for _, col := range table.ForeignKeys() {
			if _, ok := registry.byName[col.References]; !ok {
				return nil, fmt.Errorf("table %q: column %q references unknown table %q", table.Name(), col.Name, col.References)
			}
		}
	}

	return registry, nil
}

func (r *Registry) Tables() []TableDescriptor {
	return slices.Clone(r.tables)
}

func (r *Registry) TableNames() []string {
	names := make([]string, len(r.tables))
	for i, table := range r.tables {
		names[i] = table.Name()
	}
	return names
}

func (r *Registry) Get(name string) (TableDescriptor, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return TableDescriptor{}, false
	}
	return r.tables[idx], true
}

// Subset returns a registry restricted to [names]. Foreign keys may still point at tables outside of the subset
// since those targets already exist in the warehouse from earlier runs.
func (r *Registry) Subset(names []string) (*Registry, error) {
	if len(names) == 0 {
		return r, nil
	}

	subset := &Registry{byName: make(map[string]int)}
	for _, table := range r.tables {
		if !slices.Contains(names, table.Name()) {
			continue
		}

		subset.byName[table.Name()] = len(subset.tables)
		subset.tables = append(subset.tables, table)
	}

	for _, name := range names {
		if _, ok := subset.byName[name]; !ok {
			return nil, fmt.Errorf("table %q is not in the registry", name)
		}
	}

	return subset, nil
}
