package layouts

import (
	"github.com/EchoTools/structedit/pkg/structure"
)

const (
	// ItemHeaderSize is the declared size of the item header. The bytes after
	// the last header field are reserved.
	ItemHeaderSize = 0x30

	// AbilitySize is the size of one ability.
	AbilitySize = 16

	// EffectSize is the size of one effect.
	EffectSize = 12
)

// Item is a resource holding an ability section followed by an effect section.
//
//	0x00 Signature     [4]byte
//	0x04 Version       [4]byte
//	0x08 Name          [16]byte
//	0x18 AbilityOffset uint32
//	0x1C AbilityCount  uint16
//	0x1E EffectCount   uint16
//	0x20 EffectOffset  uint32
//	0x24 reserved
type Item struct {
	// Relative makes section offsets relative to the item's own start, as they
	// are when the item is embedded in a bundle entry.
	Relative bool
}

var (
	_ structure.Layout        = Item{}
	_ structure.BoundaryRuler = Item{}
)

// Read declares the item header, its abilities and its effects.
func (l Item) Read(s *structure.Structure, buf []byte, off int) (int, error) {
	s.SetRelative(l.Relative)

	c := s.Cursor(buf, off)
	c.Text("Signature", 4)
	c.Text("Version", 4)
	c.Text("Name", 16)
	c.SectionOffset("AbilityOffset", 4, Ability)
	c.SectionCount("AbilityCount", 2, Ability)
	c.SectionCount("EffectCount", 2, Effect)
	c.SectionOffset("EffectOffset", 4, Effect)
	c.Declare(off + ItemHeaderSize)
	c.Children(Ability, newAbility)
	c.Children(Effect, newEffect)
	return c.End()
}

// BoundaryRules keeps the ability section ahead of the effect section when both
// start at the same offset.
func (Item) BoundaryRules() []structure.BoundaryRule {
	return []structure.BoundaryRule{
		{Inserted: Effect, Section: Ability, Push: false},
	}
}

func newAbility() *structure.Structure {
	return structure.NewRemovable("Ability", Ability, abilityLayout)
}

func newEffect() *structure.Structure {
	return structure.NewRemovable("Effect", Effect, effectLayout)
}

var abilityLayout = structure.LayoutFunc(func(s *structure.Structure, buf []byte, off int) (int, error) {
	c := s.Cursor(buf, off)
	c.Number("Type", 2)
	c.Number("Range", 2)
	c.Signed("Power", 4)
	c.Bytes("Params", 8)
	return c.End()
})

var effectLayout = structure.LayoutFunc(func(s *structure.Structure, buf []byte, off int) (int, error) {
	c := s.Cursor(buf, off)
	c.Number("Opcode", 2)
	c.Number("Target", 2)
	c.Signed("Param1", 4)
	c.Number("Param2", 4)
	return c.End()
})
