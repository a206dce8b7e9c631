package detection

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/ironsheep/stereo-objects-mcp/internal/colorparams"
	"github.com/ironsheep/stereo-objects-mcp/internal/imaging"
)

// ObjectType tags what an observation is believed to be.
type ObjectType int

// Object types. CompactObject is the generic type of a freshly segmented
// region unless the region filter is a RegionTyper, and is compatible with
// every other type during stereo matching.
const (
	CompactObject ObjectType = iota
	TexturedObject
	Head
	LeftHand
	RightHand
	UnknownObject
)

var objectTypeNames = [...]string{
	CompactObject:  "compact",
	TexturedObject: "textured",
	Head:           "head",
	LeftHand:       "left_hand",
	RightHand:      "right_hand",
	UnknownObject:  "unknown",
}

func (t ObjectType) String() string {
	if t < 0 || int(t) >= len(objectTypeNames) {
		return fmt.Sprintf("object_type(%d)", int(t))
	}
	return objectTypeNames[t]
}

// ParseObjectType converts a name produced by String back to an ObjectType.
func ParseObjectType(name string) (ObjectType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range objectTypeNames {
		if s == n {
			return ObjectType(i), nil
		}
	}
	return UnknownObject, errors.Errorf("unknown object type %q", name)
}

// CompatibleWith reports whether two observations may be the same object:
// equal types, or either side is CompactObject.
func (t ObjectType) CompatibleWith(o ObjectType) bool {
	return t == o || t == CompactObject || o == CompactObject
}

// Object2DEntry is one object observed in one camera view.
type Object2DEntry struct {
	// ID persists across frames while the object is re-found.
	ID     int               `json:"id"`
	Region imaging.Region    `json:"region"`
	Type   ObjectType        `json:"type"`
	Color  colorparams.Color `json:"color"`
	Name   string            `json:"name,omitempty"`
	Data   any               `json:"-"`

	// Reserved is set while stereo matching once the entry is consumed.
	Reserved bool `json:"-"`
}
