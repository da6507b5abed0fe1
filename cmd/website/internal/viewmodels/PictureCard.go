package viewmodels

import (
	"fmt"
	"net/url"

	"github.com/adampresley/picturegallery/pkg/models"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

const (
	dateFormat = "Jan _2, 2006"
)

var handleNamespace = uuid.MustParse("8f0d4d4e-3f5b-4c1f-9d0e-6a1b2c3d4e5f")

/*
CardHandle holds the element ids of one card. Fragment responses target
these instead of searching the page.
*/
type CardHandle struct {
	CardID     string
	StarsID    string
	CommentsID string
	ToggleID   string
	CheckboxID string
}

type Star struct {
	Value  int
	Filled bool
}

type CommentView struct {
	Author string
	Text   string
	Date   string
}

type PictureCard struct {
	Handle       CardHandle
	Name         string
	URL          string
	ThumbnailURL string
	Date         string
	Size         string
	Rating       int
	RatingLabel  string
	Stars        []Star
	Comments     []CommentView
	CommentCount int
	ToggleLabel  string
	Selectable   bool
	Selected     bool
}

/*
SelectionLookup is satisfied by *selection.State.
*/
type SelectionLookup interface {
	IsSelecting() bool
	IsSelected(name string) bool
}

func NewCardHandle(pictureName string) CardHandle {
	id := uuid.NewSHA1(handleNamespace, []byte(pictureName)).String()

	return CardHandle{
		CardID:     "card-" + id,
		StarsID:    "stars-" + id,
		CommentsID: "comments-" + id,
		ToggleID:   "toggle-" + id,
		CheckboxID: "check-" + id,
	}
}

func NewPictureCard(picture models.Picture, sel SelectionLookup) PictureCard {
	rating := clampRating(picture.Rating)

	result := PictureCard{
		Handle:       NewCardHandle(picture.Name),
		Name:         picture.Name,
		URL:          picture.URL,
		ThumbnailURL: "/thumbnails/" + url.PathEscape(picture.Name),
		Date:         FormatDate(picture.Date),
		Size:         "",
		Rating:       rating,
		RatingLabel:  fmt.Sprintf("%d/%d", rating, models.MaxRating),
		Stars:        NewStars(rating),
		Comments:     make([]CommentView, 0, len(picture.Comments)),
	}

	if picture.Size > 0 {
		result.Size = humanize.Bytes(uint64(picture.Size))
	}

	for _, c := range picture.Comments {
		result.Comments = append(result.Comments, NewCommentView(c))
	}

	result.CommentCount = len(result.Comments)
	result.ToggleLabel = fmt.Sprintf("Show %d", result.CommentCount)

	if sel != nil && sel.IsSelecting() {
		result.Selectable = true
		result.Selected = sel.IsSelected(picture.Name)
	}

	return result
}

func NewPictureCards(pictures []models.Picture, sel SelectionLookup) []PictureCard {
	result := make([]PictureCard, 0, len(pictures))

	for _, p := range pictures {
		result = append(result, NewPictureCard(p, sel))
	}

	return result
}

func NewStars(rating int) []Star {
	rating = clampRating(rating)
	result := make([]Star, 0, models.MaxRating)

	for value := 1; value <= models.MaxRating; value++ {
		result = append(result, Star{Value: value, Filled: value <= rating})
	}

	return result
}

func NewCommentView(comment models.Comment) CommentView {
	return CommentView{
		Author: comment.Author,
		Text:   comment.Text,
		Date:   FormatDate(comment.Date),
	}
}

func FormatDate(t models.Timestamp) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(dateFormat)
}

func clampRating(rating int) int {
	if rating < 0 {
		return 0
	}

	if rating > models.MaxRating {
		return models.MaxRating
	}

	return rating
}
