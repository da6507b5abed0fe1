package actions

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/adampresley/picturegallery/cmd/website/internal/selection"
	"github.com/adampresley/picturegallery/pkg/models"
	"github.com/adampresley/picturegallery/pkg/services"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type Outcome struct {
	Message string
	Count   int
}

type Download struct {
	Outcome

	Filename string
	Data     []byte
}

type HandlersConfig struct {
	ActivityService services.ActivityServicer
	ArchiveService  services.ArchiveServicer
	OnReload        func(pictures []models.Picture)
	PictureService  services.PictureServicer
	Store           *Store
	Now             func() time.Time
}

/*
Handlers runs the user-triggered flows. Each one validates first, talks to
the picture service, and only touches the store or selection on success.
*/
type Handlers struct {
	activityService services.ActivityServicer
	archiveService  services.ArchiveServicer
	onReload        func(pictures []models.Picture)
	pictureService  services.PictureServicer
	store           *Store
	now             func() time.Time
	validate        *validator.Validate
}

type commentInput struct {
	Picture string `validate:"required"`
	Author  string `validate:"required"`
	Text    string `validate:"required"`
}

type ratingInput struct {
	Picture string `validate:"required"`
	Rating  int    `validate:"min=1,max=5"`
}

func NewHandlers(config HandlersConfig) *Handlers {
	now := config.Now

	if now == nil {
		now = time.Now
	}

	store := config.Store

	if store == nil {
		store = NewStore()
	}

	archiveService := config.ArchiveService

	if archiveService == nil {
		archiveService = services.NewArchiveService(services.ArchiveServiceConfig{})
	}

	return &Handlers{
		activityService: config.ActivityService,
		archiveService:  archiveService,
		onReload:        config.OnReload,
		pictureService:  config.PictureService,
		store:           store,
		now:             now,
		validate:        validator.New(),
	}
}

func (h *Handlers) Store() *Store {
	return h.store
}

func (h *Handlers) Reload(ctx context.Context) ([]models.Picture, error) {
	var (
		err      error
		pictures []models.Picture
	)

	if pictures, err = h.pictureService.ListPictures(ctx); err != nil {
		return nil, fmt.Errorf("error loading pictures: %w", err)
	}

	h.store.Replace(pictures)

	if h.onReload != nil {
		h.onReload(h.store.Snapshot())
	}

	return h.store.Snapshot(), nil
}

/*
Upload sends files one at a time. The first failure stops the loop and
nothing after it is attempted.
*/
func (h *Handlers) Upload(ctx context.Context, files []UploadFile, presenter Presenter) (Outcome, error) {
	var (
		err error
	)

	if len(files) == 0 {
		return Outcome{}, newValidationError("Please select at least one file to upload.")
	}

	names := make([]string, 0, len(files))

	for _, f := range files {
		names = append(names, f.Name)
	}

	if !presenter.Confirm(fmt.Sprintf("Upload %d file(s)?\n\n%s", len(files), strings.Join(names, ", "))) {
		return Outcome{}, ErrCancelled
	}

	for index, f := range files {
		presenter.Progress(ProgressLabel(index+1, len(files)))

		if err = h.uploadOne(ctx, f, index, len(files)); err != nil {
			return Outcome{Count: index}, err
		}
	}

	h.record(models.ActivityUpload, strings.Join(names, ", "), len(files))

	result := Outcome{
		Message: fmt.Sprintf("Successfully uploaded %d picture(s)!", len(files)),
		Count:   len(files),
	}

	if _, err = h.Reload(ctx); err != nil {
		slog.Error("error reloading pictures after upload", "error", err)
	}

	return result, nil
}

/*
UploadPart sends the file at position (1-based) of a batch of total that
the browser posts one request at a time. Only the last part records the
activity and reloads the store.
*/
func (h *Handlers) UploadPart(ctx context.Context, f UploadFile, position, total int, presenter Presenter) (Outcome, error) {
	var (
		err error
	)

	if total < 1 || position < 1 || position > total {
		return Outcome{}, newValidationError("Upload position %d/%d is out of range.", position, total)
	}

	if !presenter.Confirm(fmt.Sprintf("Upload %d file(s)?", total)) {
		return Outcome{}, ErrCancelled
	}

	presenter.Progress(ProgressLabel(position, total))

	if err = h.uploadOne(ctx, f, position-1, total); err != nil {
		return Outcome{Count: position - 1}, err
	}

	if position < total {
		return Outcome{Count: position}, nil
	}

	h.record(models.ActivityUpload, fmt.Sprintf("%d file(s), last %s", total, f.Name), total)

	result := Outcome{
		Message: fmt.Sprintf("Successfully uploaded %d picture(s)!", total),
		Count:   total,
	}

	if _, err = h.Reload(ctx); err != nil {
		slog.Error("error reloading pictures after upload", "error", err)
	}

	return result, nil
}

func ProgressLabel(position, total int) string {
	return fmt.Sprintf("Uploading %d/%d...", position, total)
}

func (h *Handlers) uploadOne(ctx context.Context, f UploadFile, index, total int) error {
	contentType := f.ContentType

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(f.Data).String()
	}

	encoded := base64.StdEncoding.EncodeToString(f.Data)

	if err := h.pictureService.UploadPicture(ctx, f.Name, encoded, contentType); err != nil {
		slog.Error("upload failed", "error", err, "file", f.Name, "index", index, "total", total)
		return &UploadError{Index: index, Total: total, Name: f.Name, Err: err}
	}

	slog.Info("uploaded picture", "file", f.Name, "contentType", contentType, "bytes", len(f.Data))
	return nil
}

func (h *Handlers) Rate(ctx context.Context, pictureName string, rating int) (models.Picture, error) {
	var (
		err error
	)

	input := ratingInput{Picture: pictureName, Rating: rating}

	if strings.TrimSpace(pictureName) == "" {
		return models.Picture{}, newValidationError("No picture was chosen to rate.")
	}

	if err = h.validate.Struct(input); err != nil {
		return models.Picture{}, newValidationError("Rating must be between 1 and %d.", models.MaxRating)
	}

	if err = h.pictureService.RatePicture(ctx, pictureName, rating); err != nil {
		return models.Picture{}, fmt.Errorf("error rating %s: %w", pictureName, err)
	}

	h.record(models.ActivityRate, fmt.Sprintf("%s rated %d", pictureName, rating), 1)

	if picture, ok := h.store.SetRating(pictureName, rating); ok {
		return picture, nil
	}

	return models.Picture{Name: pictureName, Rating: rating, Comments: []models.Comment{}}, nil
}

/*
Comment posts a comment and returns it with the updated picture. Empty
author or text never reaches the network. The picture is empty when it
cannot be found even after a reload.
*/
func (h *Handlers) Comment(ctx context.Context, pictureName, author, text string) (models.Comment, models.Picture, error) {
	var (
		err error
	)

	input := commentInput{
		Picture: strings.TrimSpace(pictureName),
		Author:  strings.TrimSpace(author),
		Text:    strings.TrimSpace(text),
	}

	if err = h.validate.Struct(input); err != nil {
		return models.Comment{}, models.Picture{}, newValidationError("Please enter both your name and a comment.")
	}

	if err = h.pictureService.PostComment(ctx, input.Picture, input.Author, input.Text); err != nil {
		return models.Comment{}, models.Picture{}, fmt.Errorf("error posting comment on %s: %w", input.Picture, err)
	}

	comment := models.Comment{
		Author: input.Author,
		Text:   input.Text,
		Date:   models.NewTimestamp(h.now()),
	}

	h.record(models.ActivityComment, fmt.Sprintf("%s on %s", input.Author, input.Picture), 1)

	if picture, ok := h.store.AppendComment(input.Picture, comment); ok {
		return comment, picture, nil
	}

	if _, err = h.Reload(ctx); err != nil {
		slog.Error("error reloading pictures after comment", "error", err, "picture", input.Picture)
		return comment, models.Picture{}, nil
	}

	picture, _ := h.store.Find(input.Picture)
	return comment, picture, nil
}

/*
Toggle changes one picture's selection. Only pictures in the store can be
selected.
*/
func (h *Handlers) Toggle(sel *selection.State, pictureName string, checked bool) error {
	if !sel.IsSelecting() {
		return selection.ErrNotSelecting
	}

	if _, ok := h.store.Find(pictureName); !ok {
		return newValidationError("That picture is not in the gallery.")
	}

	return sel.Toggle(pictureName, checked)
}

func (h *Handlers) ToggleAll(sel *selection.State) error {
	return sel.ToggleAll(h.store.Names())
}

func (h *Handlers) Delete(ctx context.Context, sel *selection.State, presenter Presenter) (Outcome, error) {
	var (
		err error
	)

	if sel.Mode != selection.ModeDeleteSelect || sel.Count() == 0 {
		return Outcome{}, newValidationError("Please select at least one picture to delete.")
	}

	names := h.orderedSelection(sel)

	if !presenter.Confirm(fmt.Sprintf("Are you sure you want to delete %d picture(s)?\n\nThis action cannot be undone.", len(names))) {
		return Outcome{}, ErrCancelled
	}

	presenter.Progress("Deleting...")

	if err = h.pictureService.DeletePictures(ctx, names); err != nil {
		return Outcome{}, fmt.Errorf("error deleting %d picture(s): %w", len(names), err)
	}

	h.record(models.ActivityDelete, strings.Join(names, ", "), len(names))
	sel.Cancel()

	result := Outcome{
		Message: fmt.Sprintf("Successfully deleted %d picture(s)!", len(names)),
		Count:   len(names),
	}

	if _, err = h.Reload(ctx); err != nil {
		slog.Error("error reloading pictures after delete", "error", err)
	}

	return result, nil
}

func (h *Handlers) Download(ctx context.Context, sel *selection.State) (Download, error) {
	var (
		err     error
		data    []byte
		summary services.ArchiveSummary
	)

	if sel.Mode != selection.ModeDownloadSelect || sel.Count() == 0 {
		return Download{}, newValidationError("Please select at least one picture to download.")
	}

	names := h.orderedSelection(sel)

	if data, err = h.pictureService.DownloadPictures(ctx, names); err != nil {
		return Download{}, fmt.Errorf("error downloading %d picture(s): %w", len(names), err)
	}

	if summary, err = h.archiveService.Inspect(data); err != nil {
		slog.Error("download was not a readable zip archive", "error", err, "bytes", len(data))
		return Download{}, &services.ApiError{Status: 502, Message: "The download archive could not be read."}
	}

	if len(summary.Files) < len(names) {
		slog.Warn("download archive is missing pictures", "requested", len(names), "received", len(summary.Files))
	}

	h.record(models.ActivityDownload, strings.Join(names, ", "), len(names))
	sel.Cancel()

	return Download{
		Outcome: Outcome{
			Message: fmt.Sprintf("Successfully prepared download of %d picture(s)!", len(names)),
			Count:   len(names),
		},
		Filename: h.archiveService.FileName(h.now()),
		Data:     data,
	}, nil
}

/*
Stats is always fetched fresh.
*/
func (h *Handlers) Stats(ctx context.Context) (models.Stats, []models.Activity, error) {
	var (
		err      error
		stats    models.Stats
		activity []models.Activity
	)

	if stats, err = h.pictureService.GetStats(ctx); err != nil {
		return stats, nil, fmt.Errorf("error loading stats: %w", err)
	}

	if h.activityService != nil {
		if activity, err = h.activityService.Recent(10); err != nil {
			slog.Error("error loading recent activity", "error", err)
			activity = nil
		}
	}

	return stats, activity, nil
}

func (h *Handlers) orderedSelection(sel *selection.State) []string {
	result := sel.Names(h.store.Names()...)

	if len(result) == sel.Count() {
		return result
	}

	seen := map[string]bool{}

	for _, name := range result {
		seen[name] = true
	}

	rest := []string{}

	for _, name := range sel.Names() {
		if !seen[name] {
			rest = append(rest, name)
		}
	}

	return append(result, rest...)
}

func (h *Handlers) record(action models.ActivityAction, detail string, count int) {
	if h.activityService == nil {
		return
	}

	if err := h.activityService.Record(action, detail, count); err != nil {
		slog.Error("error recording activity", "error", err, "action", action)
	}
}
