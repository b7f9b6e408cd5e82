package scene

import (
	"github.com/conduit-lang/rtti/pkg/rtti"
)

var (
	layoutOptionsType *rtti.TypeDescriptor
	elementType       *rtti.TypeDescriptor
	buttonType        *rtti.TypeDescriptor
	labelType         *rtti.TypeDescriptor
	widgetType        *rtti.TypeDescriptor
)

// Element field ids. 5 held "dirty" until version 2.
const (
	elementDirtyV1 uint16 = 5
)

func init() {
	layoutOptionsType = rtti.NewType[LayoutOptions](TypeLayoutOptions, "LayoutOptions").
		Fields(
			rtti.Plain(1, "min_width", func(l *LayoutOptions) float32 { return l.MinWidth }, func(l *LayoutOptions, v float32) { l.MinWidth = v }),
			rtti.Plain(2, "max_width", func(l *LayoutOptions) float32 { return l.MaxWidth }, func(l *LayoutOptions, v float32) { l.MaxWidth = v }),
			rtti.Plain(3, "min_height", func(l *LayoutOptions) float32 { return l.MinHeight }, func(l *LayoutOptions, v float32) { l.MinHeight = v }),
			rtti.Plain(4, "max_height", func(l *LayoutOptions) float32 { return l.MaxHeight }, func(l *LayoutOptions, v float32) { l.MaxHeight = v }),
			rtti.Plain(5, "stretch", func(l *LayoutOptions) bool { return l.Stretch }, func(l *LayoutOptions, v bool) { l.Stretch = v }),
		).
		OnDeserialized(func(obj rtti.Reflectable) error {
			return obj.(*LayoutOptions).Validate()
		}).
		MustRegister()

	elementType = rtti.NewType[Element](TypeElement, "Element").
		Version(2).
		Fields(
			rtti.Plain(1, "width", func(e *Element) float32 { return e.Width }, func(e *Element, v float32) { e.Width = v }),
			rtti.Plain(2, "height", func(e *Element) float32 { return e.Height }, func(e *Element, v float32) { e.Height = v }),
			rtti.Plain(3, "depth", func(e *Element) int32 { return e.Depth }, func(e *Element, v int32) { e.Depth = v }),
			rtti.Value(4, "layout", func(e *Element) *LayoutOptions { return e.Layout }, func(e *Element, v *LayoutOptions) { e.Layout = v }),
			rtti.Reference(6, "parent", func(e *Element) *Widget { return e.Parent }, func(e *Element, v *Widget) { e.Parent = v }, rtti.Weak()),
			rtti.ReferenceArray(7, "siblings", func(e *Element) []Node { return e.Siblings }, func(e *Element, v []Node) { e.Siblings = v }, rtti.Weak()),
		).
		Migrate(1, func(obj rtti.Reflectable, legacy *rtti.Legacy) error {
			dirty, ok, err := rtti.LegacyValue[bool](legacy, elementDirtyV1)
			if err != nil || !ok {
				return err
			}
			obj.(Node).Base().NeedsLayout = dirty
			return nil
		}).
		OnDeserialized(func(obj rtti.Reflectable) error {
			obj.(*Element).clamp()
			return nil
		}).
		MustRegister()

	buttonType = rtti.NewType[Button](TypeButton, "Button").
		Base(elementType, func(b *Button) any { return &b.Element }).
		Fields(
			rtti.Plain(20, "caption", func(b *Button) string { return b.Caption }, func(b *Button, v string) { b.Caption = v }),
			rtti.DataBlock(21, "icon", func(b *Button) []byte { return b.Icon }, func(b *Button, v []byte) { b.Icon = v }),
		).
		MustRegister()

	labelType = rtti.NewType[Label](TypeLabel, "Label").
		Base(elementType, func(l *Label) any { return &l.Element }).
		Factory(func() *Label { return &Label{FontSize: DefaultFontSize} }).
		Fields(
			rtti.Plain(20, "text", func(l *Label) string { return l.Text }, func(l *Label, v string) { l.Text = v }),
			rtti.Plain(21, "font_size", func(l *Label) float32 { return l.FontSize }, func(l *Label, v float32) { l.FontSize = v }),
		).
		MustRegister()

	widgetType = rtti.NewType[Widget](TypeWidget, "Widget").
		Fields(
			rtti.Plain(1, "name", func(w *Widget) string { return w.Name }, func(w *Widget, v string) { w.Name = v }),
			rtti.ReferenceArray(2, "elements", func(w *Widget) []Node { return w.Elements }, func(w *Widget, v []Node) { w.Elements = v }),
			rtti.DataBlock(3, "skin", func(w *Widget) []byte { return w.Skin }, func(w *Widget, v []byte) { w.Skin = v }),
			rtti.PlainArray(4, "tags", func(w *Widget) []string { return w.Tags }, func(w *Widget, v []string) { w.Tags = v }),
		).
		MustRegister()
}
