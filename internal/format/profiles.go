package format

// Default is the format used when none is stored.
const Default = "PNG 24"

var rasterControls = []Control{ControlScaling, ControlTransparency, ControlTrimEdges, ControlSkipDefaultNames}

var profiles = [...]Profile{
	PNG8: {
		Kind: PNG8, Name: "PNG 8", Ext: ".png",
		Controls: rasterControls,
		options:  pngOptions,
	},
	PNG24: {
		Kind: PNG24, Name: "PNG 24", Ext: ".png",
		Controls: rasterControls,
		options:  pngOptions,
	},
	PDF: {
		Kind: PDF, Name: "PDF", Ext: ".pdf", saveAs: true,
		Controls: []Control{ControlTrimEdges, ControlSkipDefaultNames},
		options: func(Settings) Options {
			return Options{Compatibility: "ACROBAT5", GenerateThumbnails: true}
		},
	},
	JPG: {
		Kind: JPG, Name: "JPG", Ext: ".jpg",
		Controls: []Control{ControlScaling, ControlTrimEdges, ControlSkipDefaultNames},
		options: func(s Settings) Options {
			return Options{AntiAliasing: true, ArtboardClipping: true, HorizontalScale: s.Scaling, VerticalScale: s.Scaling}
		},
	},
	EPS: {
		Kind: EPS, Name: "EPS", Ext: ".eps", Isolation: true, saveAs: true,
		Controls: []Control{ControlEmbedImage, ControlEmbedFont, ControlTrimEdges, ControlSkipDefaultNames},
		options: func(s Settings) Options {
			return Options{EmbedLinkedFiles: s.EmbedImage, EmbedAllFonts: s.EmbedFont, IncludeDocumentThumbnails: true}
		},
	},
	SVG: {
		Kind: SVG, Name: "SVG", Ext: ".svg", Isolation: true,
		Controls: []Control{ControlEmbedImage, ControlTrimEdges, ControlSkipDefaultNames},
		options: func(s Settings) Options {
			return Options{EmbedRasterImages: s.EmbedImage, SaveMultipleArtboards: true}
		},
	},
	FXG1: {
		Kind: FXG1, Name: "FXG 1.0", Ext: ".fxg", Isolation: true, saveAs: true,
		Controls: []Control{ControlTrimEdges, ControlSkipDefaultNames},
		options:  func(Settings) Options { return Options{FXGVersion: "1.0"} },
	},
	FXG2: {
		Kind: FXG2, Name: "FXG 2.0", Ext: ".fxg", Isolation: true, saveAs: true,
		Controls: []Control{ControlTrimEdges, ControlSkipDefaultNames},
		options:  func(Settings) Options { return Options{FXGVersion: "2.0"} },
	},
}

func pngOptions(s Settings) Options {
	return Options{
		AntiAliasing:     true,
		Transparency:     s.Transparency,
		ArtboardClipping: true,
		HorizontalScale:  s.Scaling,
		VerticalScale:    s.Scaling,
	}
}

// All returns every profile in display order.
func All() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles[:])
	return out
}

// Names returns the profile names in display order.
func Names() []string {
	out := make([]string, len(profiles))
	for i, p := range profiles {
		out[i] = p.Name
	}
	return out
}

// Lookup resolves a profile by name.
func Lookup(name string) (Profile, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// Get returns the profile for k. It panics on an unknown kind.
func Get(k Kind) Profile { return profiles[k] }
