package viewmodels

import (
	"html/template"

	"github.com/adampresley/picturegallery/cmd/website/internal/selection"
)

type GalleryPage struct {
	BaseViewModel

	PictureCount int
	Toolbar      selection.Toolbar
	ToolbarHTML  template.HTML
	GridHTML     template.HTML
}
