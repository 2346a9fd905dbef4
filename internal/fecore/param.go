// Package fecore carries the application-level shell on top of the
// foundation: typed parameter lists, a command registry and a levelled log
// stream. It allocates exclusively through the memory package and stores
// everything in the container package's types.
package fecore

import (
	"github.com/pkg/errors"

	"github.com/skyline93/fenda/internal/container"
	"github.com/skyline93/fenda/internal/memory"
)

// ParamType enumerates the supported parameter value types.
type ParamType int

const (
	ParamInvalid ParamType = iota
	ParamInt
	ParamBool
	ParamFloat
	ParamVec3
	ParamString
)

func (t ParamType) String() string {
	switch t {
	case ParamInt:
		return "int"
	case ParamBool:
		return "bool"
	case ParamFloat:
		return "float"
	case ParamVec3:
		return "vec3"
	case ParamString:
		return "string"
	default:
		return "invalid"
	}
}

// ParamFlags qualify how a parameter is read and shown.
type ParamFlags uint32

const (
	// FlagAttribute marks a parameter read as an attribute.
	FlagAttribute ParamFlags = 1 << iota
	// FlagHidden hides the parameter from listings.
	FlagHidden
	// FlagVolatile marks a parameter that may change after setup.
	FlagVolatile
	// FlagObsolete marks a parameter kept only for input compatibility.
	FlagObsolete
)

// Vec3 is a three-component parameter value.
type Vec3 [3]float64

// Param describes one named parameter bound to a caller-owned variable.
// Assignments go through the Param so the optional watch flag records
// whether the value was ever set.
type Param struct {
	name     string
	longName string
	unit     string
	typ      ParamType
	flags    ParamFlags
	group    int

	// data points at the caller's variable; its concrete type is fixed by
	// typ at registration time.
	data  any
	watch *bool
}

// Name returns the parameter's registration name.
func (p *Param) Name() string { return p.name }

// LongName returns the descriptive name, falling back to the short name.
func (p *Param) LongName() string {
	if p.longName == "" {
		return p.name
	}
	return p.longName
}

// Type returns the parameter's value type.
func (p *Param) Type() ParamType { return p.typ }

// Unit returns the unit string, empty for dimensionless parameters.
func (p *Param) Unit() string { return p.unit }

// Flags returns the qualifier flags.
func (p *Param) Flags() ParamFlags { return p.flags }

// Group returns the group index, -1 when ungrouped.
func (p *Param) Group() int { return p.group }

// Watched reports whether an assignment went through this parameter.
func (p *Param) Watched() bool { return p.watch != nil && *p.watch }

// SetUnit attaches a unit string.
func (p *Param) SetUnit(unit string) *Param { p.unit = unit; return p }

// SetLongName attaches a descriptive name.
func (p *Param) SetLongName(name string) *Param { p.longName = name; return p }

// SetFlags replaces the qualifier flags.
func (p *Param) SetFlags(flags ParamFlags) *Param { p.flags = flags; return p }

func (p *Param) markWatch() {
	if p.watch != nil {
		*p.watch = true
	}
}

// SetInt assigns an int parameter.
func (p *Param) SetInt(v int) error {
	ptr, ok := p.data.(*int)
	if !ok {
		return errors.Errorf("fecore: parameter %q is %s, not int", p.name, p.typ)
	}
	*ptr = v
	p.markWatch()
	return nil
}

// SetBool assigns a bool parameter.
func (p *Param) SetBool(v bool) error {
	ptr, ok := p.data.(*bool)
	if !ok {
		return errors.Errorf("fecore: parameter %q is %s, not bool", p.name, p.typ)
	}
	*ptr = v
	p.markWatch()
	return nil
}

// SetFloat assigns a float parameter.
func (p *Param) SetFloat(v float64) error {
	ptr, ok := p.data.(*float64)
	if !ok {
		return errors.Errorf("fecore: parameter %q is %s, not float", p.name, p.typ)
	}
	*ptr = v
	p.markWatch()
	return nil
}

// SetVec3 assigns a vec3 parameter.
func (p *Param) SetVec3(v Vec3) error {
	ptr, ok := p.data.(*Vec3)
	if !ok {
		return errors.Errorf("fecore: parameter %q is %s, not vec3", p.name, p.typ)
	}
	*ptr = v
	p.markWatch()
	return nil
}

// SetString assigns a string parameter.
func (p *Param) SetString(v string) error {
	ptr, ok := p.data.(*string)
	if !ok {
		return errors.Errorf("fecore: parameter %q is %s, not string", p.name, p.typ)
	}
	*ptr = v
	p.markWatch()
	return nil
}

// Int reads an int parameter's current value.
func (p *Param) Int() (int, bool) {
	ptr, ok := p.data.(*int)
	if !ok {
		return 0, false
	}
	return *ptr, true
}

// Bool reads a bool parameter's current value.
func (p *Param) Bool() (bool, bool) {
	ptr, ok := p.data.(*bool)
	if !ok {
		return false, false
	}
	return *ptr, true
}

// Float reads a float parameter's current value.
func (p *Param) Float() (float64, bool) {
	ptr, ok := p.data.(*float64)
	if !ok {
		return 0, false
	}
	return *ptr, true
}

// String reads a string parameter's current value.
func (p *Param) String() (string, bool) {
	ptr, ok := p.data.(*string)
	if !ok {
		return "", false
	}
	return *ptr, true
}

// ParamList is a named collection of parameters with stable registration
// order and optional named groups.
type ParamList struct {
	alloc        memory.Allocator
	params       *container.VectorMap[string, *Param]
	groups       container.Vector[string]
	currentGroup int
}

// NewParamList returns an empty parameter list drawing from alloc.
func NewParamList(alloc memory.Allocator) *ParamList {
	l := &ParamList{
		alloc:        alloc,
		params:       container.NewVectorMap[string, *Param](alloc),
		currentGroup: -1,
	}
	l.groups.Init(alloc)
	return l
}

// BeginGroup opens a named parameter group; parameters added until the next
// BeginGroup or EndGroup belong to it.
func (l *ParamList) BeginGroup(name string) {
	l.currentGroup = l.groups.AppendAndGetIndex(name)
}

// EndGroup reverts to ungrouped registration.
func (l *ParamList) EndGroup() { l.currentGroup = -1 }

// GroupName returns the name of group index g.
func (l *ParamList) GroupName(g int) string { return l.groups.Get(g) }

// AddInt registers an int parameter bound to ptr.
func (l *ParamList) AddInt(ptr *int, name string, watch *bool) (*Param, error) {
	return l.add(name, ParamInt, ptr, watch)
}

// AddBool registers a bool parameter bound to ptr.
func (l *ParamList) AddBool(ptr *bool, name string, watch *bool) (*Param, error) {
	return l.add(name, ParamBool, ptr, watch)
}

// AddFloat registers a float parameter bound to ptr.
func (l *ParamList) AddFloat(ptr *float64, name string, watch *bool) (*Param, error) {
	return l.add(name, ParamFloat, ptr, watch)
}

// AddVec3 registers a vec3 parameter bound to ptr.
func (l *ParamList) AddVec3(ptr *Vec3, name string, watch *bool) (*Param, error) {
	return l.add(name, ParamVec3, ptr, watch)
}

// AddString registers a string parameter bound to ptr.
func (l *ParamList) AddString(ptr *string, name string, watch *bool) (*Param, error) {
	return l.add(name, ParamString, ptr, watch)
}

func (l *ParamList) add(name string, typ ParamType, data any, watch *bool) (*Param, error) {
	if name == "" {
		return nil, errors.New("fecore: empty parameter name")
	}
	p := memory.New[Param](l.alloc, "fecore.Param")
	*p = Param{
		name:  name,
		typ:   typ,
		group: l.currentGroup,
		data:  data,
		watch: watch,
	}
	if !l.params.Add(name, p) {
		memory.Delete(l.alloc, p)
		return nil, errors.Errorf("fecore: parameter %q already registered", name)
	}
	return p, nil
}

// Find returns the parameter registered under name, nil when absent.
func (l *ParamList) Find(name string) *Param {
	p, ok := l.params.Get(name)
	if !ok {
		return nil
	}
	return p
}

// Len returns the number of registered parameters.
func (l *ParamList) Len() int { return l.params.Len() }

// Params returns the parameters in registration order. The slice aliases
// the list's storage.
func (l *ParamList) Params() []*Param { return l.params.Slice() }

// Free releases the list and every parameter it owns.
func (l *ParamList) Free() {
	for _, p := range l.params.Slice() {
		memory.Delete(l.alloc, p)
	}
	l.params.Free()
	l.groups.Free()
}
