// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typing

import (
	"sort"
	"strings"
	"sync"

	"go.starlark.net/starlarkstruct"
)

// A CustomImpl is a host-defined type shape that the closed Basic
// variants cannot express.
//
// Implementations must be immutable and comparable among themselves.
// A CustomImpl may additionally implement CustomAttributes to answer
// attribute queries made through the StarlarkOracle.
type CustomImpl interface {
	// Name returns the nominal name of the type, if it has one.
	Name() (string, bool)

	// String returns the rendering of the type.
	String() string

	// Compare orders the receiver relative to other, which always has
	// the same dynamic type as the receiver.
	Compare(other CustomImpl) int
}

// CustomAttributes is implemented by custom types that know their own
// attributes. The error conventions are those of Oracle.
type CustomAttributes interface {
	Attribute(attr Attr) (Ty, error)
}

// CustomComponents is implemented by custom types that are determined
// by their name and an ordered list of component types. Such a type can
// be stored and rebuilt once its name is registered with
// RegisterCustomType.
type CustomComponents interface {
	CustomImpl
	Components() []Ty
}

// A CustomBuilder rebuilds a custom type from its components.
type CustomBuilder func(components []Ty) (CustomImpl, error)

var customTypes struct {
	sync.RWMutex
	m map[string]CustomBuilder
}

// RegisterCustomType makes build known to LookupCustomType under name,
// which must be the Name of the types it builds. A later registration
// of the same name replaces an earlier one.
func RegisterCustomType(name string, build CustomBuilder) {
	customTypes.Lock()
	if customTypes.m == nil {
		customTypes.m = make(map[string]CustomBuilder)
	}
	customTypes.m[name] = build
	customTypes.Unlock()
}

// LookupCustomType returns the builder registered under name.
func LookupCustomType(name string) (CustomBuilder, bool) {
	customTypes.RLock()
	build, ok := customTypes.m[name]
	customTypes.RUnlock()
	return build, ok
}

// Custom wraps a host-defined CustomImpl.
type Custom struct{ impl CustomImpl }

// CustomOf returns the basic type for impl.
func CustomOf(impl CustomImpl) Custom { return Custom{impl} }

// Impl returns the wrapped implementation.
func (c Custom) Impl() CustomImpl { return c.impl }

func (c Custom) String() string { return c.impl.String() }

// A StructField is a named field of a StructType.
type StructField struct {
	Name string
	Type Ty
}

// StructType is the type of a struct value with a known set of fields.
type StructType struct {
	fields []StructField // sorted by name
}

// NewStructType returns the struct type with the given fields.
// Later fields replace earlier ones of the same name.
func NewStructType(fields ...StructField) StructType {
	byName := make(map[string]Ty, len(fields))
	for _, f := range fields {
		byName[f.Name] = f.Type
	}
	sorted := make([]StructField, 0, len(byName))
	for name, t := range byName {
		sorted = append(sorted, StructField{name, t})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return StructType{sorted}
}

// StructOf returns the type of the struct value s.
func StructOf(s *starlarkstruct.Struct) StructType {
	names := s.AttrNames()
	fields := make([]StructField, 0, len(names))
	for _, name := range names {
		v, err := s.Attr(name)
		if err != nil || v == nil {
			continue
		}
		fields = append(fields, StructField{name, TypeOfValue(v)})
	}
	return NewStructType(fields...)
}

// Fields returns the fields of the struct, sorted by name.
func (s StructType) Fields() []StructField { return append([]StructField(nil), s.fields...) }

func (s StructType) Name() (string, bool) { return "struct", true }

func (s StructType) String() string {
	var buf strings.Builder
	buf.WriteString("struct(")
	for i, f := range s.fields {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(f.Name)
		buf.WriteString(" = ")
		buf.WriteString(f.Type.String())
	}
	buf.WriteByte(')')
	return buf.String()
}

func (s StructType) Compare(other CustomImpl) int {
	o := other.(StructType)
	for i := 0; i < len(s.fields) && i < len(o.fields); i++ {
		if c := strings.Compare(s.fields[i].Name, o.fields[i].Name); c != 0 {
			return c
		}
		if c := Compare(s.fields[i].Type, o.fields[i].Type); c != 0 {
			return c
		}
	}
	return cmpInt(len(s.fields), len(o.fields))
}

// Attribute returns the type of a field. Structs support no operation
// other than field selection.
func (s StructType) Attribute(attr Attr) (Ty, error) {
	if attr.Kind != AttrRegular {
		return Ty{}, ErrImpossible
	}
	i := sort.Search(len(s.fields), func(i int) bool { return s.fields[i].Name >= attr.Name })
	if i < len(s.fields) && s.fields[i].Name == attr.Name {
		return s.fields[i].Type, nil
	}
	return Ty{}, ErrImpossible
}

// ModuleType is the type of a named library module, such as math.
// Its members are typed like the fields of a struct.
type ModuleType struct {
	name    string
	members StructType
}

// ModuleOf returns the type of the module value m.
func ModuleOf(m *starlarkstruct.Module) ModuleType {
	fields := make([]StructField, 0, len(m.Members))
	for name, v := range m.Members {
		fields = append(fields, StructField{name, TypeOfValue(v)})
	}
	return NewModuleType(m.Name, fields...)
}

// NewModuleType returns the type of the module name with the given
// members.
func NewModuleType(name string, members ...StructField) ModuleType {
	return ModuleType{name, NewStructType(members...)}
}

// Module returns the name of the module.
func (m ModuleType) Module() string { return m.name }

// Members returns the members of the module, sorted by name.
func (m ModuleType) Members() []StructField { return m.members.Fields() }

func (m ModuleType) Name() (string, bool) { return "module", true }

func (m ModuleType) String() string { return "module(" + m.name + ")" }

func (m ModuleType) Compare(other CustomImpl) int {
	o := other.(ModuleType)
	if c := strings.Compare(m.name, o.name); c != 0 {
		return c
	}
	return m.members.Compare(o.members)
}

func (m ModuleType) Attribute(attr Attr) (Ty, error) { return m.members.Attribute(attr) }
