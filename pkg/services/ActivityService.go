package services

import (
	"context"
	"fmt"
	"time"

	"github.com/adampresley/picturegallery/pkg/models"
	"github.com/rfberaldo/sqlz"
)

type ActivityServicer interface {
	Record(action models.ActivityAction, detail string, pictureCount int) error
	Recent(limit int) ([]models.Activity, error)
}

type ActivityServiceConfig struct {
	DB  *sqlz.DB
	Now func() time.Time
}

type ActivityService struct {
	db  *sqlz.DB
	now func() time.Time
}

func NewActivityService(config ActivityServiceConfig) ActivityService {
	now := config.Now

	if now == nil {
		now = time.Now
	}

	return ActivityService{
		db:  config.DB,
		now: now,
	}
}

func (s ActivityService) Record(action models.ActivityAction, detail string, pictureCount int) error {
	var (
		err error
	)

	sql := `
INSERT INTO activity (
	action
	, detail
	, picture_count
	, created_at
) VALUES (?, ?, ?, ?)
`

	params := []any{
		string(action),
		detail,
		pictureCount,
		s.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if _, err = s.db.Exec(ctx, sql, params...); err != nil {
		return fmt.Errorf("error recording %s activity: %w", action, err)
	}

	return nil
}

func (s ActivityService) Recent(limit int) ([]models.Activity, error) {
	var (
		err error
	)

	result := []models.Activity{}

	if limit <= 0 {
		limit = 10
	}

	sql := `
SELECT
	a.id
	, a.action
	, a.detail
	, a.picture_count
	, a.created_at
FROM activity AS a
ORDER BY a.created_at DESC, a.id DESC
LIMIT ?
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = s.db.Query(ctx, &result, sql, limit); err != nil && !sqlz.IsNotFound(err) {
		return result, fmt.Errorf("error querying for recent activity: %w", err)
	}

	return result, nil
}
