// Package colorparams maps the closed set of segmentation colors to their HSV
// threshold parameters and persists them as plain text.
//
// # File Format
//
// One color per line, whitespace separated:
//
//	<colorName> <hue> <hueTolerance> <minSaturation> <maxSaturation> <minValue> <maxValue>
//
// Hue is on the 0-179 scale (degrees / 2), saturation and value on 0-255.
// Blank lines and lines starting with '#' are ignored.
package colorparams

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Color enumerates the segmentation colors.
type Color int

// Colors. None is the "no color" sentinel used as a wildcard filter; Colored
// selects the generic "is this pixel colored at all" segmentation.
const (
	None Color = iota
	Blue
	Blue2
	Blue3
	Colored
	Green
	Green2
	Green3
	Orange
	Orange2
	Orange3
	Red
	Red2
	Red3
	Skin
	White
	Yellow
	Yellow2
	Yellow3
	numColors
)

var colorNames = [...]string{
	None:    "none",
	Blue:    "blue",
	Blue2:   "blue2",
	Blue3:   "blue3",
	Colored: "colored",
	Green:   "green",
	Green2:  "green2",
	Green3:  "green3",
	Orange:  "orange",
	Orange2: "orange2",
	Orange3: "orange3",
	Red:     "red",
	Red2:    "red2",
	Red3:    "red3",
	Skin:    "skin",
	White:   "white",
	Yellow:  "yellow",
	Yellow2: "yellow2",
	Yellow3: "yellow3",
}

// ErrUnknownColor is returned when a color name or value is not part of the
// enumeration.
var ErrUnknownColor = errors.New("unknown color")

// String returns the lower-case name used in parameter files.
func (c Color) String() string {
	if c < 0 || c >= numColors {
		return fmt.Sprintf("color(%d)", int(c))
	}
	return colorNames[c]
}

// Valid reports whether c is one of the enumerated colors.
func (c Color) Valid() bool { return c >= None && c < numColors }

// All returns every color except None, in enumeration order.
func All() []Color {
	out := make([]Color, 0, numColors-1)
	for c := None + 1; c < numColors; c++ {
		out = append(out, c)
	}
	return out
}

// Parse converts a color name (case-insensitive) to a Color.
func Parse(name string) (Color, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for c, s := range colorNames {
		if s == n {
			return Color(c), nil
		}
	}
	return None, errors.Wrapf(ErrUnknownColor, "%q", name)
}

// Params is the HSV threshold 6-tuple of one color.
type Params struct {
	Hue           int `json:"hue"`
	HueTolerance  int `json:"hue_tolerance"`
	MinSaturation int `json:"min_saturation"`
	MaxSaturation int `json:"max_saturation"`
	MinValue      int `json:"min_value"`
	MaxValue      int `json:"max_value"`
}

// Tuple returns the parameters in file order.
func (p Params) Tuple() [6]int {
	return [6]int{p.Hue, p.HueTolerance, p.MinSaturation, p.MaxSaturation, p.MinValue, p.MaxValue}
}

// FromTuple builds Params from file order.
func FromTuple(t [6]int) Params {
	return Params{
		Hue:           t[0],
		HueTolerance:  t[1],
		MinSaturation: t[2],
		MaxSaturation: t[3],
		MinValue:      t[4],
		MaxValue:      t[5],
	}
}

// Set holds the parameters of every color. The zero value is empty; use
// NewSet or Default.
type Set struct {
	params [numColors]Params
	known  [numColors]bool
}

// NewSet returns an empty parameter set.
func NewSet() *Set { return &Set{} }

// Default returns a parameter set with usable values for every color.
func Default() *Set {
	s := NewSet()
	defaults := map[Color][6]int{
		Blue:    {110, 10, 100, 255, 50, 255},
		Blue2:   {105, 15, 80, 255, 40, 255},
		Blue3:   {115, 20, 60, 255, 30, 255},
		Colored: {0, 90, 100, 255, 60, 255},
		Green:   {60, 15, 100, 255, 50, 255},
		Green2:  {70, 15, 80, 255, 40, 255},
		Green3:  {50, 20, 60, 255, 30, 255},
		Orange:  {12, 5, 120, 255, 80, 255},
		Orange2: {15, 8, 100, 255, 60, 255},
		Orange3: {10, 10, 80, 255, 50, 255},
		Red:     {0, 8, 120, 255, 60, 255},
		Red2:    {175, 8, 100, 255, 50, 255},
		Red3:    {0, 12, 80, 255, 40, 255},
		Skin:    {10, 10, 40, 160, 80, 255},
		White:   {0, 90, 0, 40, 200, 255},
		Yellow:  {30, 8, 100, 255, 80, 255},
		Yellow2: {28, 10, 80, 255, 60, 255},
		Yellow3: {32, 12, 60, 255, 50, 255},
	}
	for c, t := range defaults {
		s.SetParams(c, FromTuple(t))
	}
	return s
}

// SetParams stores p for color c. Out-of-range colors are ignored.
func (s *Set) SetParams(c Color, p Params) {
	if !c.Valid() {
		return
	}
	s.params[c] = p
	s.known[c] = true
}

// Get returns the parameters of c and whether they were set.
func (s *Set) Get(c Color) (Params, bool) {
	if !c.Valid() {
		return Params{}, false
	}
	return s.params[c], s.known[c]
}

// Colors returns every color with parameters, in enumeration order.
func (s *Set) Colors() []Color {
	out := make([]Color, 0, numColors)
	for c := None; c < numColors; c++ {
		if s.known[c] {
			out = append(out, c)
		}
	}
	return out
}

// Load reads parameter lines from r into the set. Colors not present in r
// keep their current values. The set is only changed when the whole input
// parses.
func (s *Set) Load(r io.Reader) error {
	staged := *s
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) != 7 {
			return errors.Errorf("line %d: expected color name and 6 values, got %d fields", line, len(fields))
		}
		c, err := Parse(fields[0])
		if err != nil {
			return errors.Wrapf(err, "line %d", line)
		}

		var t [6]int
		for i := range t {
			v, err := strconv.Atoi(fields[i+1])
			if err != nil {
				return errors.Wrapf(err, "line %d: value %d", line, i+1)
			}
			t[i] = v
		}
		staged.SetParams(c, FromTuple(t))
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "reading color parameters")
	}
	*s = staged
	return nil
}

// Save writes every set color to w in enumeration order.
func (s *Set) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, c := range s.Colors() {
		t := s.params[c].Tuple()
		if _, err := fmt.Fprintf(bw, "%s %d %d %d %d %d %d\n", c, t[0], t[1], t[2], t[3], t[4], t[5]); err != nil {
			return errors.Wrap(err, "writing color parameters")
		}
	}
	return errors.Wrap(bw.Flush(), "writing color parameters")
}

// LoadFromFile reads a parameter file into the set.
func (s *Set) LoadFromFile(path string) error {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "error opening color parameter file")
	}
	defer f.Close()
	return s.Load(f)
}

// SaveToFile writes the set to path, replacing any existing file.
func (s *Set) SaveToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "error creating color parameter file")
	}
	if err := s.Save(f); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "error closing color parameter file")
}
