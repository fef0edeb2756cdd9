// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/buildstar/starcheck/typing"
)

// Current schema version. Increment when the encoding changes.
const schemaVersion uint16 = 2

// ErrSchema is returned by Decode for data of another schema version.
var ErrSchema = errors.New("cache: schema version mismatch")

// ErrUnencodable is returned by Encode for an interface holding a
// custom type that could not be rebuilt when decoded.
var ErrUnencodable = errors.New("cache: type cannot be encoded")

type payload struct {
	Schema uint16     `msgpack:"schema"`
	Names  []string   `msgpack:"names"`
	Types  []tyRecord `msgpack:"types"`
}

type tyRecord struct {
	Alts []basicRecord `msgpack:"alts"`
}

const (
	kindAny uint8 = iota
	kindName
	kindHost
	kindIter
	kindList
	kindTuple
	kindDict
	kindStruct
	kindModule
	kindCustom
)

// A basicRecord is the encoding of one typing.Basic. Host types are
// recorded by name and looked up in the host registry when decoded.
// Custom types other than structs and modules are recorded by name and
// components, and rebuilt by the builder registered for the name.
type basicRecord struct {
	Kind   uint8      `msgpack:"k"`
	Name   string     `msgpack:"n,omitempty"`
	Elems  []tyRecord `msgpack:"e,omitempty"`
	Fields []string   `msgpack:"f,omitempty"`
}

// Encode serializes an interface.
func Encode(iface *typing.Interface) ([]byte, error) {
	p := payload{Schema: schemaVersion, Names: iface.Names()}
	p.Types = make([]tyRecord, len(p.Names))
	for i, name := range p.Names {
		t, _ := iface.Get(name)
		rec, err := encodeTy(t)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		p.Types[i] = rec
	}
	return msgpack.Marshal(&p)
}

// Decode deserializes an interface written by Encode.
func Decode(data []byte) (*typing.Interface, error) {
	var p payload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.Schema != schemaVersion {
		return nil, ErrSchema
	}
	if len(p.Names) != len(p.Types) {
		return nil, fmt.Errorf("cache: %d names but %d types", len(p.Names), len(p.Types))
	}
	m := make(map[string]typing.Ty, len(p.Names))
	for i, name := range p.Names {
		t, err := decodeTy(p.Types[i])
		if err != nil {
			return nil, fmt.Errorf("cache: %s: %w", name, err)
		}
		m[name] = t
	}
	return typing.NewInterface(m), nil
}

func encodeTy(t typing.Ty) (tyRecord, error) {
	alts := t.Basics()
	rec := tyRecord{Alts: make([]basicRecord, len(alts))}
	for i, b := range alts {
		alt, err := encodeBasic(b)
		if err != nil {
			return tyRecord{}, err
		}
		rec.Alts[i] = alt
	}
	return rec, nil
}

func encodeBasic(b typing.Basic) (basicRecord, error) {
	rec := basicRecord{Kind: kindAny}
	elem := func(t typing.Ty) error {
		e, err := encodeTy(t)
		rec.Elems = append(rec.Elems, e)
		return err
	}
	field := func(f typing.StructField) error {
		rec.Fields = append(rec.Fields, f.Name)
		return elem(f.Type)
	}

	var err error
	switch b := b.(type) {
	case typing.AnyType:
	case typing.Name:
		rec.Kind, rec.Name = kindName, b.Value()
	case typing.HostValue:
		rec.Kind, rec.Name = kindHost, b.String()
	case typing.Iter:
		rec.Kind = kindIter
		err = elem(b.Item())
	case typing.List:
		rec.Kind = kindList
		err = elem(b.Elem())
	case typing.Tuple:
		rec.Kind = kindTuple
		for i := 0; i < b.Len() && err == nil; i++ {
			err = elem(b.Elem(i))
		}
	case typing.Dict:
		rec.Kind = kindDict
		if err = elem(b.Key()); err == nil {
			err = elem(b.Value())
		}
	case typing.Custom:
		switch impl := b.Impl().(type) {
		case typing.StructType:
			rec.Kind = kindStruct
			for _, f := range impl.Fields() {
				if err = field(f); err != nil {
					break
				}
			}
		case typing.ModuleType:
			rec.Kind, rec.Name = kindModule, impl.Module()
			for _, f := range impl.Members() {
				if err = field(f); err != nil {
					break
				}
			}
		case typing.CustomComponents:
			name, ok := impl.Name()
			if _, registered := typing.LookupCustomType(name); !ok || !registered {
				return basicRecord{}, fmt.Errorf("%w: %s", ErrUnencodable, b)
			}
			rec.Kind, rec.Name = kindCustom, name
			for _, c := range impl.Components() {
				if err = elem(c); err != nil {
					break
				}
			}
		default:
			return basicRecord{}, fmt.Errorf("%w: %s", ErrUnencodable, b)
		}
	}
	return rec, err
}

func decodeTy(rec tyRecord) (typing.Ty, error) {
	if len(rec.Alts) == 0 {
		return typing.Never(), nil
	}
	tys := make([]typing.Ty, len(rec.Alts))
	for i, alt := range rec.Alts {
		b, err := decodeBasic(alt)
		if err != nil {
			return typing.Ty{}, err
		}
		tys[i] = typing.Of(b)
	}
	return typing.Union(tys...), nil
}

func decodeBasic(rec basicRecord) (typing.Basic, error) {
	elems := make([]typing.Ty, len(rec.Elems))
	for i, e := range rec.Elems {
		t, err := decodeTy(e)
		if err != nil {
			return nil, err
		}
		elems[i] = t
	}
	arity := func(n int) error {
		if len(elems) != n {
			return fmt.Errorf("kind %d has %d elements, want %d", rec.Kind, len(elems), n)
		}
		return nil
	}

	switch rec.Kind {
	case kindAny:
		return typing.AnyType{}, nil
	case kindName:
		return typing.NameOf(rec.Name), nil
	case kindHost:
		if h, ok := typing.LookupHostType(rec.Name); ok {
			return h, nil
		}
		return typing.NameOf(rec.Name), nil
	case kindIter:
		if err := arity(1); err != nil {
			return nil, err
		}
		return typing.IterOf(elems[0]), nil
	case kindList:
		if err := arity(1); err != nil {
			return nil, err
		}
		return typing.ListOf(elems[0]), nil
	case kindTuple:
		return typing.TupleOf(elems...), nil
	case kindDict:
		if err := arity(2); err != nil {
			return nil, err
		}
		return typing.DictOf(elems[0], elems[1]), nil
	case kindStruct, kindModule:
		if err := arity(len(rec.Fields)); err != nil {
			return nil, err
		}
		fields := make([]typing.StructField, len(rec.Fields))
		for i, name := range rec.Fields {
			fields[i] = typing.StructField{Name: name, Type: elems[i]}
		}
		if rec.Kind == kindModule {
			return typing.CustomOf(typing.NewModuleType(rec.Name, fields...)), nil
		}
		return typing.CustomOf(typing.NewStructType(fields...)), nil
	case kindCustom:
		build, ok := typing.LookupCustomType(rec.Name)
		if !ok {
			return nil, fmt.Errorf("unregistered custom type %q", rec.Name)
		}
		impl, err := build(elems)
		if err != nil {
			return nil, err
		}
		return typing.CustomOf(impl), nil
	}
	return nil, fmt.Errorf("unknown kind %d", rec.Kind)
}
