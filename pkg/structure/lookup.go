package structure

import (
	"github.com/EchoTools/structedit/pkg/field"
)

// AttributeAt returns the field whose range contains off. With recursive set, a
// match inside a sub-structure wins over the sub-structure itself, so the result
// is the leaf under that byte.
func (s *Structure) AttributeAt(off int, recursive bool) field.Field {
	return s.AttributeAtFunc(off, recursive, nil)
}

// AttributeAtFunc is AttributeAt narrowed to fields accepted by match.
func (s *Structure) AttributeAtFunc(off int, recursive bool, match func(field.Field) bool) field.Field {
	for _, f := range s.fields {
		if off < f.Offset() || off >= f.Offset()+f.Size() {
			continue
		}
		if sub, ok := f.(*Structure); ok && recursive {
			if found := sub.AttributeAtFunc(off, true, match); found != nil {
				return found
			}
		}
		if match == nil || match(f) {
			return f
		}
	}
	return nil
}

// AttributeAtOf returns the deepest field of type T containing off.
func AttributeAtOf[T field.Field](s *Structure, off int, recursive bool) (T, bool) {
	found := s.AttributeAtFunc(off, recursive, func(f field.Field) bool {
		_, ok := f.(T)
		return ok
	})
	if found == nil {
		var zero T
		return zero, false
	}
	return found.(T), true
}

// StructureAt returns the deepest removable structure containing off.
func (s *Structure) StructureAt(off int) *Structure {
	found := s.AttributeAtFunc(off, true, func(f field.Field) bool {
		sub, ok := f.(*Structure)
		return ok && sub.removable
	})
	if found == nil {
		return nil
	}
	return found.(*Structure)
}

// Attribute returns the field called name. With recursive set, the most deeply
// nested match wins; among matches at the same depth the first in offset order wins.
func (s *Structure) Attribute(name string, recursive bool) field.Field {
	f, _ := s.findName(name, recursive, 0)
	return f
}

func (s *Structure) findName(name string, recursive bool, depth int) (field.Field, int) {
	var (
		best      field.Field
		bestDepth = -1
	)
	for _, f := range s.fields {
		if sub, ok := f.(*Structure); ok && recursive {
			if found, d := sub.findName(name, true, depth+1); found != nil && d > bestDepth {
				best, bestDepth = found, d
			}
		}
		if f.Name() == name && depth > bestDepth {
			best, bestDepth = f, depth
		}
	}
	return best, bestDepth
}

// Walk calls fn for s and every descendant in offset order, depth first.
// Returning an error stops the walk.
func (s *Structure) Walk(fn func(f field.Field, depth int) error) error {
	return s.walk(fn, 0)
}

func (s *Structure) walk(fn func(f field.Field, depth int) error, depth int) error {
	if err := fn(s, depth); err != nil {
		return err
	}
	for _, f := range s.fields {
		if sub, ok := f.(*Structure); ok {
			if err := sub.walk(fn, depth+1); err != nil {
				return err
			}
			continue
		}
		if err := fn(f, depth+1); err != nil {
			return err
		}
	}
	return nil
}
