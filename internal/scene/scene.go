// Package scene declares a small widget tree used by the rtti tool to
// exercise every field category.
package scene

import (
	"errors"
	"fmt"

	"github.com/conduit-lang/rtti/pkg/rtti"
)

// Type ids
const (
	TypeWidget        uint32 = 0x57494447 // "WIDG"
	TypeElement       uint32 = 0x454c454d // "ELEM"
	TypeButton        uint32 = 0x42544e20 // "BTN "
	TypeLabel         uint32 = 0x4c41424c // "LABL"
	TypeLayoutOptions uint32 = 0x4c594f54 // "LYOT"
)

// ErrInvalidLayout is returned when layout bounds are inverted
var ErrInvalidLayout = errors.New("invalid layout options")

// DefaultFontSize is given to labels whose stream carries no font size
const DefaultFontSize float32 = 12

// Node is implemented by every element kind
type Node interface {
	rtti.Reflectable
	Base() *Element
}

// LayoutOptions bounds the size of an element. It is stored inline.
type LayoutOptions struct {
	MinWidth  float32
	MaxWidth  float32
	MinHeight float32
	MaxHeight float32
	Stretch   bool
}

func (l *LayoutOptions) RTTI() *rtti.TypeDescriptor { return layoutOptionsType }

// Validate checks that the bounds are not inverted
func (l *LayoutOptions) Validate() error {
	if l.MaxWidth < l.MinWidth {
		return fmt.Errorf("%w: max width %g below min width %g", ErrInvalidLayout, l.MaxWidth, l.MinWidth)
	}
	if l.MaxHeight < l.MinHeight {
		return fmt.Errorf("%w: max height %g below min height %g", ErrInvalidLayout, l.MaxHeight, l.MinHeight)
	}
	return nil
}

// Element is the common part of every node in a widget
type Element struct {
	Width  float32
	Height float32
	Depth  int32
	Layout *LayoutOptions

	// Parent and Siblings are weak: they never own their targets
	Parent   *Widget
	Siblings []Node

	// NeedsLayout is not serialized. Version 1 streams stored it as "dirty".
	NeedsLayout bool
}

func (e *Element) RTTI() *rtti.TypeDescriptor { return elementType }
func (e *Element) Base() *Element             { return e }

// Button is a clickable element
type Button struct {
	Element
	Caption string
	Icon    []byte
}

func (b *Button) RTTI() *rtti.TypeDescriptor { return buttonType }

// Label is a text element
type Label struct {
	Element
	Text     string
	FontSize float32
}

func (l *Label) RTTI() *rtti.TypeDescriptor { return labelType }

// Widget owns a list of elements
type Widget struct {
	Name     string
	Elements []Node
	Skin     []byte
	Tags     []string
}

func (w *Widget) RTTI() *rtti.TypeDescriptor { return widgetType }

// Add appends nodes, wiring their parent and layout siblings
func (w *Widget) Add(nodes ...Node) {
	for _, n := range nodes {
		n.Base().Parent = w
	}
	w.Elements = append(w.Elements, nodes...)
	for i, n := range w.Elements {
		var sib []Node
		if i > 0 {
			sib = append(sib, w.Elements[i-1])
		}
		if i < len(w.Elements)-1 {
			sib = append(sib, w.Elements[i+1])
		}
		n.Base().Siblings = sib
	}
}

// clamp fits the element size into its layout bounds
func (e *Element) clamp() {
	if e.Layout == nil {
		return
	}
	e.Width = min(max(e.Width, e.Layout.MinWidth), e.Layout.MaxWidth)
	e.Height = min(max(e.Height, e.Layout.MinHeight), e.Layout.MaxHeight)
}
