/*
Package galleryview renders gallery fragments from view models. Every
function here is pure: it reads only its arguments and writes markup.
*/
package galleryview

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/adampresley/picturegallery/cmd/website/internal/selection"
	"github.com/adampresley/picturegallery/cmd/website/internal/viewmodels"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(
	template.New("galleryview").
		Funcs(template.FuncMap{"json": toJSON}).
		ParseFS(templateFS, "templates/*.html"),
)

type gridData struct {
	Selecting bool
	Cards     []viewmodels.PictureCard
}

type uploadProgressData struct {
	Position int
	Total    int
	Label    string
}

type commentAppendData struct {
	Comment viewmodels.CommentView
	Card    viewmodels.PictureCard
}

func Grid(w io.Writer, cards []viewmodels.PictureCard, selecting bool) error {
	return execute(w, "grid", gridData{Selecting: selecting, Cards: cards})
}

func GridError(w io.Writer, message string) error {
	return execute(w, "gridError", message)
}

func Card(w io.Writer, card viewmodels.PictureCard) error {
	return execute(w, "card", card)
}

/*
Stars renders only the rating block of one card, for patching after a rating.
*/
func Stars(w io.Writer, card viewmodels.PictureCard) error {
	return execute(w, "stars", card)
}

/*
CommentAppend renders a new comment plus an out-of-band replacement of the
card's toggle button so its count follows the comment list.
*/
func CommentAppend(w io.Writer, comment viewmodels.CommentView, card viewmodels.PictureCard) error {
	return execute(w, "commentAppend", commentAppendData{Comment: comment, Card: card})
}

/*
SelectionSlots renders each card's checkbox slot as an out-of-band swap, so
a mode change patches the cards in place without replacing the grid.
*/
func SelectionSlots(w io.Writer, cards []viewmodels.PictureCard) error {
	for _, card := range cards {
		if err := execute(w, "selectSlotOOB", card); err != nil {
			return err
		}
	}

	return nil
}

/*
Comment renders a single comment with no toggle update.
*/
func Comment(w io.Writer, comment viewmodels.CommentView) error {
	return execute(w, "comment", comment)
}

func UploadProgress(w io.Writer, position, total int, label string) error {
	return execute(w, "uploadProgress", uploadProgressData{Position: position, Total: total, Label: label})
}

func Toolbar(w io.Writer, toolbar selection.Toolbar) error {
	return execute(w, "toolbar", toolbar)
}

func Notice(w io.Writer, vm viewmodels.BaseViewModel) error {
	return execute(w, "notice", vm)
}

func Stats(w io.Writer, stats viewmodels.StatsView) error {
	return execute(w, "stats", stats)
}

/*
HTML renders into a string for embedding in a full page.
*/
func HTML(render func(w io.Writer) error) (template.HTML, error) {
	b := strings.Builder{}

	if err := render(&b); err != nil {
		return "", err
	}

	return template.HTML(b.String()), nil
}

func execute(w io.Writer, name string, data any) error {
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("error rendering %s: %w", name, err)
	}

	return nil
}

func toJSON(value any) (string, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return "", err
	}

	return string(b), nil
}
