package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

/*
The backend writes object dates with a zone but comment dates without one,
so decoding tries each of these in order.
*/
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func ParseTimestamp(value string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Timestamp{Time: t}, nil
		}
	}

	return Timestamp{}, fmt.Errorf("unrecognized timestamp '%s'", value)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}

	return json.Marshal(t.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var (
		err   error
		value string
	)

	if bytes.Equal(b, []byte("null")) {
		*t = Timestamp{}
		return nil
	}

	if err = json.Unmarshal(b, &value); err != nil {
		return fmt.Errorf("error decoding timestamp: %w", err)
	}

	if value == "" {
		*t = Timestamp{}
		return nil
	}

	parsed, err := ParseTimestamp(value)
	if err != nil {
		return err
	}

	*t = parsed
	return nil
}
