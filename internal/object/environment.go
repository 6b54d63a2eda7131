package object

import (
	"log/slog"
	"sync/atomic"
)

var nextID atomic.Uint64

// Environment is one scope frame. Frames form a tree through Outer; a frame
// stays reachable while any inner frame or closure points at it.
type Environment struct {
	ID       uint64
	Bindings map[string]Object
	Outer    *Environment
}

// UndefinedVariableError is returned when a name is bound in no reachable
// frame.
type UndefinedVariableError struct {
	Name string
}

func (e *UndefinedVariableError) Error() string {
	return "Undefined variable '" + e.Name + "'."
}

func nextEnvID() uint64 {
	return nextID.Add(1)
}

func NewEnvironment() *Environment {
	return &Environment{
		ID:       nextEnvID(),
		Bindings: make(map[string]Object),
	}
}

// NewEnclosedEnvironment creates a child frame of outer.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.Outer = outer
	return env
}

// Define binds name in this frame, replacing any existing binding. Rejecting
// illegal redeclarations is the resolver's job.
func (e *Environment) Define(name string, val Object) Object {
	e.Bindings[name] = val
	slog.Debug("binding value",
		slog.Uint64("env", e.ID),
		slog.String("name", name),
		slog.Any("type", val.Type()))
	return val
}

// Get looks name up in this frame and then in each enclosing frame.
func (e *Environment) Get(name string) (Object, bool) {
	for env := e; env != nil; env = env.Outer {
		if val, ok := env.Bindings[name]; ok {
			return val, true
		}
	}
	return nil, false
}

// Assign updates the nearest frame that binds name.
func (e *Environment) Assign(name string, val Object) (Object, error) {
	for env := e; env != nil; env = env.Outer {
		if _, ok := env.Bindings[name]; ok {
			env.Bindings[name] = val
			slog.Debug("assigning bound value",
				slog.Uint64("env", env.ID),
				slog.String("name", name),
				slog.Any("type", val.Type()))
			return val, nil
		}
	}
	return nil, &UndefinedVariableError{Name: name}
}

// Ancestor walks exactly distance Outer links. It returns nil if the chain is
// shorter than that.
func (e *Environment) Ancestor(distance int) *Environment {
	env := e
	for i := 0; i < distance && env != nil; i++ {
		env = env.Outer
	}
	return env
}

// GetAt reads name from the frame distance links up, without searching
// further.
func (e *Environment) GetAt(distance int, name string) (Object, bool) {
	env := e.Ancestor(distance)
	if env == nil {
		return nil, false
	}
	val, ok := env.Bindings[name]
	return val, ok
}

// AssignAt writes name in the frame distance links up. The name must already
// be bound there.
func (e *Environment) AssignAt(distance int, name string, val Object) (Object, error) {
	env := e.Ancestor(distance)
	if env == nil {
		return nil, &UndefinedVariableError{Name: name}
	}
	if _, ok := env.Bindings[name]; !ok {
		return nil, &UndefinedVariableError{Name: name}
	}
	env.Bindings[name] = val
	return val, nil
}
