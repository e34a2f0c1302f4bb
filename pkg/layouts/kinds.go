// Package layouts declares the resource formats structedit understands.
//
// Each format is a structure.Layout. Removable sub-structures are identified by
// the kinds below, and New synthesizes empty instances ready for insertion.
package layouts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/EchoTools/structedit/pkg/field"
	"github.com/EchoTools/structedit/pkg/structure"
)

// Removable sub-structure kinds.
var (
	Record  = field.NewKind("record")
	Ability = field.NewKind("ability")
	Effect  = field.NewKind("effect")
	Entry   = field.NewKind("entry")
	Note    = field.NewKind("note")

	FrameContent = field.NewKind("framecontent")
	FileMetadata = field.NewKind("filemetadata")
	Frame        = field.NewKind("frame")
)

// ErrUnknownKind is returned for kind names no layout declares.
var ErrUnknownKind = errors.New("unknown kind")

var kinds = []field.Kind{Record, Ability, Effect, Entry, Note, FrameContent, FileMetadata, Frame}

// KindByName returns the kind called name, ignoring case.
func KindByName(name string) (field.Kind, error) {
	for _, k := range kinds {
		if strings.EqualFold(k.Name(), name) {
			return k, nil
		}
	}
	return field.Kind{}, fmt.Errorf("kind %q: %w", name, ErrUnknownKind)
}

// New synthesizes an empty, detached instance of kind.
func New(kind field.Kind) (*structure.Structure, error) {
	switch kind {
	case Record:
		return structure.Synthesize("Record", Record, recordLayout, RecordSize)
	case Ability:
		return structure.Synthesize("Ability", Ability, abilityLayout, AbilitySize)
	case Effect:
		return structure.Synthesize("Effect", Effect, effectLayout, EffectSize)
	case Entry:
		return structure.Synthesize("Entry", Entry, entryLayout, EntryNameSize+ItemHeaderSize)
	case Note:
		return structure.Synthesize("Note", Note, noteLayout, NoteSize)
	case FrameContent:
		return structure.Synthesize("FrameContent", FrameContent, frameContentLayout, FrameContentSize)
	case FileMetadata:
		return structure.Synthesize("FileMetadata", FileMetadata, fileMetadataLayout, FileMetadataSize)
	case Frame:
		return structure.Synthesize("Frame", Frame, frameLayout, FrameSize)
	}
	return nil, fmt.Errorf("synthesize %s: %w", kind, ErrUnknownKind)
}
