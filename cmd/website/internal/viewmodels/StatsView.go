package viewmodels

import (
	"fmt"

	"github.com/adampresley/picturegallery/pkg/models"
	"github.com/dustin/go-humanize"
)

type StatsView struct {
	TotalPictures    int
	TotalSize        string
	AverageRating    string
	TotalComments    int
	MostRecentUpload string
	Activity         []ActivityView
}

type ActivityView struct {
	Action string
	Detail string
	When   string
}

func NewStatsView(stats models.Stats, activity []models.Activity) StatsView {
	result := StatsView{
		TotalPictures:    stats.TotalPictures,
		TotalSize:        stats.TotalSize,
		AverageRating:    fmt.Sprintf("%g/%d", stats.AverageRating, models.MaxRating),
		TotalComments:    stats.TotalComments,
		MostRecentUpload: stats.MostRecentUpload,
		Activity:         make([]ActivityView, 0, len(activity)),
	}

	for _, a := range activity {
		result.Activity = append(result.Activity, ActivityView{
			Action: string(a.Action),
			Detail: a.Detail,
			When:   humanize.Time(a.CreatedAt),
		})
	}

	return result
}
