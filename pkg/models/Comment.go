package models

type Comment struct {
	Author string    `json:"author"`
	Text   string    `json:"text"`
	Date   Timestamp `json:"date"`
}
