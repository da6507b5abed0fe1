package models

type Stats struct {
	TotalPictures    int     `json:"totalPictures"`
	TotalSize        string  `json:"totalSize"`
	AverageRating    float64 `json:"averageRating"`
	TotalComments    int     `json:"totalComments"`
	MostRecentUpload string  `json:"mostRecentUpload"`
}
