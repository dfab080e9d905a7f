package templates

import "wine-dashboard/internal/config"

type SlideKind string

const (
	SlideOverview SlideKind = "overview"
	SlideExplorer SlideKind = "explorer"
	SlideGallery  SlideKind = "gallery"
)

type Slide struct {
	Kind  SlideKind
	Title string
}

// Slides lists the enabled sections in carousel order. The overview is
// always present.
func Slides(f config.FeatureConfig) []Slide {
	slides := []Slide{{Kind: SlideOverview, Title: "EU wine overview"}}
	if f.Explorer {
		slides = append(slides, Slide{Kind: SlideExplorer, Title: "Explore wines"})
	}
	if f.Gallery {
		slides = append(slides, Slide{Kind: SlideGallery, Title: "Figures"})
	}
	return slides
}

// NormalizeSlide wraps i into [0, n). Navigating past either end cycles.
func NormalizeSlide(i, n int) int {
	if n <= 0 {
		return 0
	}
	return ((i % n) + n) % n
}
