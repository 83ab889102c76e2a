package table

import "slices"

// Register renames an array to userName and marks it registered, which
// protects it from Clear. Registering an array under its own name only marks it.
func (t *Table) Register(name, userName string) error {
	if userName == "" {
		return &ErrRegistration{Name: name, Reason: "empty user name"}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.byName[name]
	if !ok {
		return &ErrUndefinedSymbol{Name: name}
	}
	if other, exists := t.byName[userName]; exists && other != a {
		return &ErrRegistration{Name: userName, Reason: "name already in use"}
	}
	if t.registered.Contains(a.id) && name != userName {
		return &ErrRegistration{Name: name, Reason: "already registered"}
	}

	delete(t.byName, name)
	a.rename(userName)
	t.byName[userName] = a
	t.registered.Add(a.id)

	if t.logger != nil {
		t.logger.Debug("array registered", "from", name, "name", userName)
	}
	return nil
}

// Unregister clears the registered mark. The array stays in the table until
// deleted or cleared.
func (t *Table) Unregister(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.byName[name]
	if !ok {
		return &ErrUndefinedSymbol{Name: name}
	}
	if !t.registered.Contains(a.id) {
		return &ErrRegistration{Name: name, Reason: "not registered"}
	}
	t.registered.Remove(a.id)
	return nil
}

// Attach returns the descriptor of a registered array.
func (t *Table) Attach(name string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	a, ok := t.byName[name]
	if !ok {
		return "", &ErrUndefinedSymbol{Name: name}
	}
	if !t.registered.Contains(a.id) {
		return "", &ErrRegistration{Name: name, Reason: "not registered"}
	}
	return a.Descriptor(), nil
}

// IsRegistered reports whether name is a registered array.
func (t *Table) IsRegistered(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	a, ok := t.byName[name]
	return ok && t.registered.Contains(a.id)
}

// ListRegistry returns the names of registered arrays, sorted.
func (t *Table) ListRegistry() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, t.registered.GetCardinality())
	it := t.registered.Iterator()
	for it.HasNext() {
		if a, ok := t.byID[it.Next()]; ok {
			names = append(names, a.Name())
		}
	}
	slices.Sort(names)
	return names
}
