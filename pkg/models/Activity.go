package models

import (
	"time"
)

type ActivityAction string

const (
	ActivityUpload   ActivityAction = "upload"
	ActivityRate     ActivityAction = "rate"
	ActivityComment  ActivityAction = "comment"
	ActivityDelete   ActivityAction = "delete"
	ActivityDownload ActivityAction = "download"
)

type Activity struct {
	ID           uint           `db:"id"`
	Action       ActivityAction `db:"action"`
	Detail       string         `db:"detail"`
	PictureCount int            `db:"picture_count"`
	CreatedAt    time.Time      `db:"created_at"`
}
