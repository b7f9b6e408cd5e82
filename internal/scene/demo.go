package scene

// Demo builds the sample widget written by the encode command
func Demo() *Widget {
	w := &Widget{
		Name: "settings",
		Skin: []byte{0x89, 'P', 'N', 'G'},
		Tags: []string{"dialog", "modal"},
	}

	title := &Label{
		Element: Element{
			Width: 240, Height: 24,
			Layout: &LayoutOptions{MinWidth: 120, MaxWidth: 480, MinHeight: 16, MaxHeight: 32},
		},
		Text:     "Preferences",
		FontSize: 18,
	}
	ok := &Button{
		Element: Element{Width: 80, Height: 28, Depth: 1},
		Caption: "OK",
		Icon:    []byte{1, 2, 3, 4},
	}
	cancel := &Button{
		Element: Element{
			Width: 80, Height: 28, Depth: 1,
			Layout: &LayoutOptions{MinWidth: 64, MaxWidth: 96, MinHeight: 24, MaxHeight: 28, Stretch: true},
		},
		Caption: "Cancel",
	}

	w.Add(title, ok, cancel)
	return w
}
