package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/EchoTools/structedit/pkg/archive"
	"github.com/EchoTools/structedit/pkg/field"
	"github.com/EchoTools/structedit/pkg/layouts"
	"github.com/EchoTools/structedit/pkg/resource"
	"github.com/EchoTools/structedit/pkg/structure"
)

type environment struct {
	src      resource.Source
	registry *layouts.Registry
	opts     []structure.Option
	out      io.Writer
}

func (e *environment) stdout() io.Writer {
	if e.out != nil {
		return e.out
	}
	return os.Stdout
}

func (e *environment) load(id string) (*structure.Tree, error) {
	layout, err := e.registry.Lookup(id)
	if err != nil {
		return nil, err
	}
	return resource.Load(e.src, id, layout, e.opts...)
}

func (e *environment) runDump() error {
	return e.dump(resourceID)
}

func (e *environment) dump(id string) error {
	tree, err := e.load(id)
	if err != nil {
		return err
	}

	w := e.stdout()
	fmt.Fprintf(w, "%-8s %6s %s\n", "OFFSET", "SIZE", "FIELD")
	return tree.Root().Walk(func(f field.Field, depth int) error {
		indent := strings.Repeat("  ", depth)
		if s, ok := f.(*structure.Structure); ok {
			label := s.Name()
			if s.Removable() {
				label += " <" + s.Kind().Name() + ">"
			}
			_, err := fmt.Fprintf(w, "%08x %6d %s%s\n", f.Offset(), f.Size(), indent, label)
			return err
		}
		_, err := fmt.Fprintf(w, "%08x %6d %s%s = %v\n", f.Offset(), f.Size(), indent, f.Name(), f)
		return err
	})
}

func (e *environment) runVerify() error {
	ids := []string{resourceID}
	if resourceID == "" {
		dir, ok := e.src.(*resource.Dir)
		if !ok {
			return fmt.Errorf("verify needs -resource")
		}
		var err error
		if ids, err = dir.IDs(); err != nil {
			return err
		}
	}
	return e.verify(ids)
}

// verify checks that every resource serializes back to its original bytes.
func (e *environment) verify(ids []string) error {
	w := e.stdout()
	var failed, checked int

	for _, id := range ids {
		if _, err := e.registry.Lookup(id); errors.Is(err, layouts.ErrUnknownFormat) {
			continue
		}
		checked++

		data, err := e.src.Open(id)
		if err != nil {
			return fmt.Errorf("open %s: %w", id, err)
		}
		tree, err := e.load(id)
		if err != nil {
			failed++
			fmt.Fprintf(w, "FAIL %s: %v\n", id, err)
			continue
		}
		ok, err := tree.Equal(data)
		if err != nil || !ok {
			failed++
			fmt.Fprintf(w, "FAIL %s: round trip differs\n", id)
			continue
		}
		fmt.Fprintf(w, "OK   %s (%d bytes)\n", id, len(data))
	}

	fmt.Fprintf(w, "Verified %d resources, %d failed\n", checked, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d resources failed", failed, checked)
	}
	return nil
}

func (e *environment) runAdd() error {
	return e.add(resourceID, kindName, offsetArg)
}

// add inserts a new instance of kind into the structure that declares its
// section. With an offset, the deepest such structure containing it is used.
func (e *environment) add(id, name, offset string) error {
	kind, err := layouts.KindByName(name)
	if err != nil {
		return err
	}
	tree, err := e.load(id)
	if err != nil {
		return err
	}

	owner, err := findHost(tree.Root(), kind, offset)
	if err != nil {
		return err
	}

	child, err := layouts.New(kind)
	if err != nil {
		return err
	}
	idx, err := owner.Insert(child)
	if err != nil {
		return fmt.Errorf("insert %s: %w", kind.Name(), err)
	}

	if err := resource.Save(e.src, tree); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout(), "Inserted %s into %s at index %d, offset %#x (%d bytes)\n",
		kind.Name(), owner.Name(), idx, child.Offset(), child.Size())
	return nil
}

// declares reports whether s binds the section of kind itself, through an
// offset or, for sections stored without one, a count.
func declares(s *structure.Structure, kind field.Kind) bool {
	_, host := s.SectionOffset(kind)
	_, counter := s.SectionCount(kind)
	return host == s || counter == s
}

func findHost(root *structure.Structure, kind field.Kind, offset string) (*structure.Structure, error) {
	if offset != "" {
		off, err := parseOffset(offset)
		if err != nil {
			return nil, err
		}
		found := root.AttributeAtFunc(off, true, func(f field.Field) bool {
			s, ok := f.(*structure.Structure)
			return ok && declares(s, kind)
		})
		if found != nil {
			return found.(*structure.Structure), nil
		}
		if declares(root, kind) {
			return root, nil
		}
		return nil, fmt.Errorf("no structure at %#x holds a %s section", off, kind.Name())
	}

	var host *structure.Structure
	stop := errors.New("found")
	_ = root.Walk(func(f field.Field, _ int) error {
		if s, ok := f.(*structure.Structure); ok && declares(s, kind) {
			host = s
			return stop
		}
		return nil
	})
	if host == nil {
		return root, nil
	}
	return host, nil
}

func (e *environment) runRemove() error {
	off, err := parseOffset(offsetArg)
	if err != nil {
		return err
	}
	return e.remove(resourceID, off, recurse)
}

// remove deletes the innermost removable structure containing off.
func (e *environment) remove(id string, off int, recurse bool) error {
	tree, err := e.load(id)
	if err != nil {
		return err
	}

	target := tree.Root().StructureAt(off)
	if target == nil {
		return fmt.Errorf("no removable structure at %#x", off)
	}
	owner := target.ParentStructure()
	if _, err := owner.Remove(target, recurse); err != nil {
		return fmt.Errorf("remove %s: %w", target.Name(), err)
	}

	if err := resource.Save(e.src, tree); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout(), "Removed %s <%s> from %s (%d bytes)\n",
		target.Name(), target.Kind().Name(), owner.Name(), target.Size())
	return nil
}

func runPack() error {
	codec, err := archive.ParseCodec(codecName)
	if err != nil {
		return err
	}
	data, err := readInput()
	if err != nil {
		return err
	}
	if archive.IsArchive(data) {
		return fmt.Errorf("%s is already an archive", resourceID)
	}

	packed, err := archive.Compress(data, archive.WithCodec(codec), archive.WithCompressionLevel(level))
	if err != nil {
		return fmt.Errorf("compress: %w", err)
	}
	if err := writeOutput(packed); err != nil {
		return err
	}

	fmt.Printf("Packed %s with %s: %d -> %d bytes\n", resourceID, codec, len(data), len(packed))
	return nil
}

func runUnpack() error {
	data, err := readInput()
	if err != nil {
		return err
	}
	content, codec, err := archive.Decode(data)
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	if err := writeOutput(content); err != nil {
		return err
	}

	fmt.Printf("Unpacked %s (%s): %d -> %d bytes\n", resourceID, codec, len(data), len(content))
	return nil
}

// readInput returns the raw file bytes, without unwrapping containers.
func readInput() ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, filepath.FromSlash(resourceID)))
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func writeOutput(data []byte) error {
	if !forceOverwrite {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("output file exists (use -force to override)")
		}
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
