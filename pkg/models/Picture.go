package models

import (
	"fmt"
)

var (
	ErrPictureNotFound = fmt.Errorf("picture not found")
)

const (
	MaxRating = 5
)

type Picture struct {
	Name     string    `json:"name"`
	URL      string    `json:"url"`
	Date     Timestamp `json:"date"`
	Size     int64     `json:"size"`
	Rating   int       `json:"rating"`
	Comments []Comment `json:"comments"`
}

/*
Clone returns a copy of the picture that does not share its comment slice.
*/
func (p Picture) Clone() Picture {
	result := p
	result.Comments = make([]Comment, len(p.Comments))
	copy(result.Comments, p.Comments)

	return result
}

func PictureNames(pictures []Picture) []string {
	result := make([]string, 0, len(pictures))

	for _, p := range pictures {
		result = append(result, p.Name)
	}

	return result
}
