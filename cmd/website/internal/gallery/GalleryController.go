package gallery

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/adamgokit/rendering"
	"github.com/adampresley/picturegallery/cmd/website/internal/actions"
	"github.com/adampresley/picturegallery/cmd/website/internal/galleryview"
	"github.com/adampresley/picturegallery/cmd/website/internal/selection"
	"github.com/adampresley/picturegallery/cmd/website/internal/thumbnails"
	"github.com/adampresley/picturegallery/cmd/website/internal/viewmodels"
	"github.com/adampresley/picturegallery/pkg/models"
	"github.com/google/uuid"
)

type GalleryHandlers interface {
	GalleryPage(w http.ResponseWriter, r *http.Request)
	Grid(w http.ResponseWriter, r *http.Request)
	Toolbar(w http.ResponseWriter, r *http.Request)
	Upload(w http.ResponseWriter, r *http.Request)
	Rate(w http.ResponseWriter, r *http.Request)
	Comment(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	Download(w http.ResponseWriter, r *http.Request)
	EnterDeleteMode(w http.ResponseWriter, r *http.Request)
	EnterDownloadMode(w http.ResponseWriter, r *http.Request)
	CancelSelection(w http.ResponseWriter, r *http.Request)
	Toggle(w http.ResponseWriter, r *http.Request)
	ToggleAll(w http.ResponseWriter, r *http.Request)
	Stats(w http.ResponseWriter, r *http.Request)
	Thumbnail(w http.ResponseWriter, r *http.Request)
}

/*
SessionIDs is the slice of the cookie session wrapper the controller needs.
The cookie only carries an id; selection state lives in a
selection.Registry. sessions.Session[string] satisfies it.
*/
type SessionIDs interface {
	Get(r *http.Request) (string, error)
	Set(r *http.Request, value string) error
	Save(w http.ResponseWriter, r *http.Request) error
}

type GalleryControllerConfig struct {
	Handlers       *actions.Handlers
	MaxUploadBytes int64
	Renderer       rendering.TemplateRenderer
	Selections     *selection.Registry
	SessionService SessionIDs
	Thumbnails     thumbnails.ThumbnailCacher
}

type GalleryController struct {
	handlers       *actions.Handlers
	maxUploadBytes int64
	renderer       rendering.TemplateRenderer
	selections     *selection.Registry
	sessionService SessionIDs
	thumbnails     thumbnails.ThumbnailCacher
}

func NewGalleryController(config GalleryControllerConfig) GalleryController {
	maxUploadBytes := config.MaxUploadBytes

	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}

	selections := config.Selections

	if selections == nil {
		selections = selection.NewRegistry(selection.RegistryConfig{})
	}

	return GalleryController{
		handlers:       config.Handlers,
		maxUploadBytes: maxUploadBytes,
		renderer:       config.Renderer,
		selections:     selections,
		sessionService: config.SessionService,
		thumbnails:     config.Thumbnails,
	}
}

/*
GET /
*/
func (c GalleryController) GalleryPage(w http.ResponseWriter, r *http.Request) {
	var (
		err error
	)

	pageName := "pages/gallery"

	viewData := viewmodels.GalleryPage{
		BaseViewModel: viewmodels.BaseViewModel{
			IsHtmx: httphelpers.IsHtmx(r),
			JavascriptIncludes: []rendering.JavascriptInclude{
				{Type: "module", Src: "/static/js/pages/gallery.js"},
			},
		},
	}

	id, state, err := c.loadSelection(w, r)

	if err != nil {
		slog.Error("error starting selection session", "error", err)
		viewData.SetError("Your session could not be started. Selections will not be kept.")
	}

	pictures, loadErr := c.handlers.Reload(r.Context())

	if loadErr != nil {
		slog.Error("error loading pictures for gallery page", "error", loadErr)
		pictures = c.handlers.Store().Snapshot()
	}

	state.Prune(models.PictureNames(pictures))
	c.saveSelection(id, state)

	viewData.PictureCount = len(pictures)
	viewData.Toolbar = state.Toolbar(len(pictures))

	if viewData.ToolbarHTML, err = galleryview.HTML(func(out io.Writer) error {
		return galleryview.Toolbar(out, viewData.Toolbar)
	}); err != nil {
		slog.Error("error rendering toolbar", "error", err)
	}

	viewData.GridHTML, err = galleryview.HTML(func(out io.Writer) error {
		if loadErr != nil {
			return galleryview.GridError(out, userMessage(loadErr))
		}

		return galleryview.Grid(out, viewmodels.NewPictureCards(pictures, state), state.IsSelecting())
	})

	if err != nil {
		slog.Error("error rendering gallery grid", "error", err)
		viewData.SetError("An unexpected error occurred while rendering the gallery.")
	}

	c.renderer.Render(pageName, viewData, w)
}

/*
GET /gallery/grid
*/
func (c GalleryController) Grid(w http.ResponseWriter, r *http.Request) {
	var (
		pictures []models.Picture
	)

	id, state, err := c.loadSelection(w, r)

	if err != nil {
		c.writeSessionError(w, err)
		return
	}

	buf := &bytes.Buffer{}

	if pictures, err = c.handlers.Reload(r.Context()); err != nil {
		slog.Error("error reloading gallery grid", "error", err)

		_ = galleryview.GridError(buf, userMessage(err))
		httphelpers.WriteHtml(w, http.StatusOK, buf.String())
		return
	}

	state.Prune(models.PictureNames(pictures))
	c.saveSelection(id, state)

	if err = galleryview.Grid(buf, viewmodels.NewPictureCards(pictures, state), state.IsSelecting()); err != nil {
		slog.Error("error rendering gallery grid", "error", err)
		httphelpers.TextInternalServerError(w, "Error rendering gallery")
		return
	}

	httphelpers.WriteHtml(w, http.StatusOK, buf.String())
}

/*
GET /selection/toolbar
*/
func (c GalleryController) Toolbar(w http.ResponseWriter, r *http.Request) {
	_, state, err := c.loadSelection(w, r)

	if err != nil {
		c.writeSessionError(w, err)
		return
	}

	c.writeToolbar(w, state, true)
}

/*
POST /pictures/upload
*/
func (c GalleryController) Upload(w http.ResponseWriter, r *http.Request) {
	var (
		err     error
		files   []actions.UploadFile
		outcome actions.Outcome
	)

	if err = r.ParseMultipartForm(c.maxUploadBytes); err != nil {
		slog.Error("error parsing upload form", "error", err)
		httphelpers.WriteText(w, http.StatusUnprocessableEntity, "Please select at least one file to upload.")
		return
	}

	if files, err = readUploadFiles(r.MultipartForm); err != nil {
		slog.Error("error reading uploaded files", "error", err)
		httphelpers.WriteText(w, http.StatusUnprocessableEntity, "The selected files could not be read.")
		return
	}

	position := httphelpers.GetFromRequest[int](r, "position")
	total := httphelpers.GetFromRequest[int](r, "total")

	if total > 0 {
		c.uploadPart(w, r, files, position, total)
		return
	}

	outcome, err = c.handlers.Upload(r.Context(), files, formPresenter{r: r})

	if err != nil {
		if outcome.Count > 0 {
			triggerEvents(w, map[string]any{"reloadGallery": true})
		}

		c.writeActionError(w, "Failed to upload pictures", err)
		return
	}

	triggerEvents(w, map[string]any{"reloadGallery": true})
	c.writeNotice(w, outcome.Message)
}

/*
uploadPart handles one file of a batch the page posts a file at a time.
Every part but the last answers with the progress label for the next one.
*/
func (c GalleryController) uploadPart(w http.ResponseWriter, r *http.Request, files []actions.UploadFile, position, total int) {
	var (
		err     error
		outcome actions.Outcome
	)

	if len(files) != 1 {
		httphelpers.WriteText(w, http.StatusUnprocessableEntity, "Each upload part must carry exactly one file.")
		return
	}

	if outcome, err = c.handlers.UploadPart(r.Context(), files[0], position, total, formPresenter{r: r}); err != nil {
		if outcome.Count > 0 {
			triggerEvents(w, map[string]any{"reloadGallery": true})
		}

		c.writeActionError(w, "Failed to upload pictures", err)
		return
	}

	if position < total {
		buf := &bytes.Buffer{}

		if err = galleryview.UploadProgress(buf, position+1, total, actions.ProgressLabel(position+1, total)); err != nil {
			slog.Error("error rendering upload progress", "error", err)
			httphelpers.TextInternalServerError(w, "Error rendering upload progress")
			return
		}

		httphelpers.WriteHtml(w, http.StatusOK, buf.String())
		return
	}

	triggerEvents(w, map[string]any{"reloadGallery": true})
	c.writeNotice(w, outcome.Message)
}

/*
POST /pictures/rate
*/
func (c GalleryController) Rate(w http.ResponseWriter, r *http.Request) {
	var (
		err     error
		picture models.Picture
	)

	name := httphelpers.GetFromRequest[string](r, "picture")
	rating := httphelpers.GetFromRequest[int](r, "rating")

	if picture, err = c.handlers.Rate(r.Context(), name, rating); err != nil {
		c.writeActionError(w, "Failed to save rating", err)
		return
	}

	buf := &bytes.Buffer{}
	card := viewmodels.NewPictureCard(picture, nil)

	if err = galleryview.Stars(buf, card); err != nil {
		slog.Error("error rendering stars", "error", err, "picture", name)
		httphelpers.TextInternalServerError(w, "Error rendering rating")
		return
	}

	httphelpers.WriteHtml(w, http.StatusOK, buf.String())
}

/*
POST /pictures/comment
*/
func (c GalleryController) Comment(w http.ResponseWriter, r *http.Request) {
	var (
		err     error
		comment models.Comment
		picture models.Picture
	)

	name := httphelpers.GetFromRequest[string](r, "picture")
	author := httphelpers.GetFromRequest[string](r, "author")
	text := httphelpers.GetFromRequest[string](r, "text")

	if comment, picture, err = c.handlers.Comment(r.Context(), name, author, text); err != nil {
		c.writeActionError(w, "Failed to post comment", err)
		return
	}

	buf := &bytes.Buffer{}

	if picture.Name == "" {
		err = galleryview.Comment(buf, viewmodels.NewCommentView(comment))
	} else {
		err = galleryview.CommentAppend(buf, viewmodels.NewCommentView(comment), viewmodels.NewPictureCard(picture, nil))
	}

	if err != nil {
		slog.Error("error rendering comment", "error", err, "picture", name)
		httphelpers.TextInternalServerError(w, "Error rendering comment")
		return
	}

	triggerEvents(w, map[string]any{"showMessage": "Comment posted successfully!"})
	httphelpers.WriteHtml(w, http.StatusOK, buf.String())
}

/*
POST /pictures/delete
*/
func (c GalleryController) Delete(w http.ResponseWriter, r *http.Request) {
	var (
		outcome actions.Outcome
	)

	id, state, err := c.loadSelection(w, r)

	if err != nil {
		c.writeSessionError(w, err)
		return
	}

	if outcome, err = c.handlers.Delete(r.Context(), state, formPresenter{r: r}); err != nil {
		c.writeActionError(w, "Failed to delete pictures", err)
		return
	}

	c.saveSelection(id, state)
	triggerEvents(w, map[string]any{"reloadGallery": true, "reloadToolbar": true})
	c.writeNotice(w, outcome.Message)
}

/*
POST /pictures/download
*/
func (c GalleryController) Download(w http.ResponseWriter, r *http.Request) {
	var (
		download actions.Download
	)

	id, state, err := c.loadSelection(w, r)

	if err != nil {
		c.writeSessionError(w, err)
		return
	}

	if download, err = c.handlers.Download(r.Context(), state); err != nil {
		if httphelpers.IsHtmx(r) {
			c.writeActionError(w, "Failed to download pictures", err)
			return
		}

		slog.Error("error downloading pictures", "error", err)
		c.renderPageWithError(w, r, state, "Failed to download pictures: "+userMessage(err))
		return
	}

	c.saveSelection(id, state)
	slog.Info("download prepared", "filename", download.Filename, "pictures", download.Count, "bytes", len(download.Data))

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", download.Filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(download.Data)))
	w.WriteHeader(http.StatusOK)

	if _, err = w.Write(download.Data); err != nil {
		slog.Error("error writing download to response", "error", err, "filename", download.Filename)
	}
}

/*
POST /selection/delete-mode
*/
func (c GalleryController) EnterDeleteMode(w http.ResponseWriter, r *http.Request) {
	c.changeSelection(w, r, func(state *selection.State) error {
		state.EnterDeleteMode()
		return nil
	})
}

/*
POST /selection/download-mode
*/
func (c GalleryController) EnterDownloadMode(w http.ResponseWriter, r *http.Request) {
	c.changeSelection(w, r, func(state *selection.State) error {
		state.EnterDownloadMode()
		return nil
	})
}

/*
POST /selection/cancel
*/
func (c GalleryController) CancelSelection(w http.ResponseWriter, r *http.Request) {
	c.changeSelection(w, r, func(state *selection.State) error {
		state.Cancel()
		return nil
	})
}

/*
POST /selection/toggle
*/
func (c GalleryController) Toggle(w http.ResponseWriter, r *http.Request) {
	var (
		err error
	)

	id, state, err := c.loadSelection(w, r)

	if err != nil {
		c.writeSessionError(w, err)
		return
	}

	name := httphelpers.GetFromRequest[string](r, "picture")
	checked := httphelpers.GetFromRequest[string](r, "checked") == "true"

	if err = c.handlers.Toggle(state, name, checked); err != nil {
		c.writeActionError(w, "Failed to update selection", err)
		return
	}

	c.saveSelection(id, state)
	c.writeToolbar(w, state, false)
}

/*
POST /selection/toggle-all
*/
func (c GalleryController) ToggleAll(w http.ResponseWriter, r *http.Request) {
	c.changeSelection(w, r, c.handlers.ToggleAll)
}

/*
GET /stats
*/
func (c GalleryController) Stats(w http.ResponseWriter, r *http.Request) {
	var (
		err      error
		stats    models.Stats
		activity []models.Activity
	)

	if stats, activity, err = c.handlers.Stats(r.Context()); err != nil {
		c.writeActionError(w, "Failed to load stats", err)
		return
	}

	buf := &bytes.Buffer{}

	if err = galleryview.Stats(buf, viewmodels.NewStatsView(stats, activity)); err != nil {
		slog.Error("error rendering stats", "error", err)
		httphelpers.TextInternalServerError(w, "Error rendering stats")
		return
	}

	httphelpers.WriteHtml(w, http.StatusOK, buf.String())
}

/*
GET /thumbnails/{name}
*/
func (c GalleryController) Thumbnail(w http.ResponseWriter, r *http.Request) {
	name := httphelpers.GetFromRequest[string](r, "name")

	if c.thumbnails != nil {
		if thumb, ok := c.thumbnails.Get(name); ok {
			w.Header().Set("Content-Type", "image/jpeg")
			w.Header().Set("Cache-Control", "public, max-age=300")
			w.Header().Set("Content-Length", fmt.Sprintf("%d", len(thumb.Data)))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(thumb.Data)
			return
		}
	}

	if picture, ok := c.handlers.Store().Find(name); ok && picture.URL != "" {
		http.Redirect(w, r, picture.URL, http.StatusFound)
		return
	}

	httphelpers.WriteText(w, http.StatusNotFound, "picture not found")
}

func (c GalleryController) renderPageWithError(w http.ResponseWriter, r *http.Request, state *selection.State, message string) {
	pictures := c.handlers.Store().Snapshot()

	viewData := viewmodels.GalleryPage{
		BaseViewModel: viewmodels.BaseViewModel{
			JavascriptIncludes: []rendering.JavascriptInclude{
				{Type: "module", Src: "/static/js/pages/gallery.js"},
			},
		},
		PictureCount: len(pictures),
		Toolbar:      state.Toolbar(len(pictures)),
	}

	viewData.SetError(message)

	viewData.ToolbarHTML, _ = galleryview.HTML(func(out io.Writer) error {
		return galleryview.Toolbar(out, viewData.Toolbar)
	})

	viewData.GridHTML, _ = galleryview.HTML(func(out io.Writer) error {
		return galleryview.Grid(out, viewmodels.NewPictureCards(pictures, state), state.IsSelecting())
	})

	c.renderer.Render("pages/gallery", viewData, w)
}

/*
changeSelection applies a mode or select-all change and answers with the
toolbar plus out-of-band checkbox patches rendered from the store. The
picture service is not called.
*/
func (c GalleryController) changeSelection(w http.ResponseWriter, r *http.Request, change func(state *selection.State) error) {
	id, state, err := c.loadSelection(w, r)

	if err != nil {
		c.writeSessionError(w, err)
		return
	}

	if err = change(state); err != nil {
		c.writeActionError(w, "Failed to update selection", err)
		return
	}

	c.saveSelection(id, state)
	c.writeToolbar(w, state, true)
}

/*
loadSelection returns the browser's session id and its selection state. A
browser without an id gets a new one written to its cookie.
*/
func (c GalleryController) loadSelection(w http.ResponseWriter, r *http.Request) (string, *selection.State, error) {
	var (
		err error
		id  string
	)

	if id, err = c.sessionService.Get(r); err == nil && id != "" {
		return id, c.selections.Load(id), nil
	}

	id = uuid.NewString()

	if err = c.sessionService.Set(r, id); err != nil {
		return "", selection.New(), fmt.Errorf("error setting selection session id: %w", err)
	}

	if err = c.sessionService.Save(w, r); err != nil {
		return "", selection.New(), fmt.Errorf("error saving selection session: %w", err)
	}

	return id, c.selections.Load(id), nil
}

func (c GalleryController) saveSelection(id string, state *selection.State) {
	if id == "" {
		return
	}

	c.selections.Store(id, state)
}

func (c GalleryController) writeSessionError(w http.ResponseWriter, err error) {
	slog.Error("selection session failure", "error", err)
	httphelpers.TextInternalServerError(w, "Your session could not be saved. Please reload the page.")
}

func (c GalleryController) writeToolbar(w http.ResponseWriter, state *selection.State, withSlots bool) {
	buf := &bytes.Buffer{}
	pictures := c.handlers.Store().Snapshot()

	if err := galleryview.Toolbar(buf, state.Toolbar(len(pictures))); err != nil {
		slog.Error("error rendering toolbar", "error", err)
		httphelpers.TextInternalServerError(w, "Error rendering toolbar")
		return
	}

	if withSlots {
		if err := galleryview.SelectionSlots(buf, viewmodels.NewPictureCards(pictures, state)); err != nil {
			slog.Error("error rendering selection checkboxes", "error", err)
			httphelpers.TextInternalServerError(w, "Error rendering toolbar")
			return
		}
	}

	httphelpers.WriteHtml(w, http.StatusOK, buf.String())
}

func (c GalleryController) writeNotice(w http.ResponseWriter, message string) {
	buf := &bytes.Buffer{}
	vm := viewmodels.BaseViewModel{}
	vm.SetSuccess(message)

	if err := galleryview.Notice(buf, vm); err != nil {
		slog.Error("error rendering notice", "error", err)
		httphelpers.TextOK(w, message)
		return
	}

	httphelpers.WriteHtml(w, http.StatusOK, buf.String())
}

/*
writeActionError maps an action failure to a plain text response the page
shows in an alert. Cancelled actions get an empty 204.
*/
func (c GalleryController) writeActionError(w http.ResponseWriter, prefix string, err error) {
	switch {
	case errors.Is(err, actions.ErrCancelled):
		w.WriteHeader(http.StatusNoContent)

	case actions.IsValidationError(err), errors.Is(err, selection.ErrNotSelecting):
		httphelpers.WriteText(w, http.StatusUnprocessableEntity, userMessage(err))

	default:
		slog.Error(prefix, "error", err)
		httphelpers.WriteText(w, http.StatusBadGateway, prefix+": "+userMessage(err))
	}
}

func triggerEvents(w http.ResponseWriter, events map[string]any) {
	b, err := json.Marshal(events)

	if err != nil {
		slog.Error("error encoding htmx trigger", "error", err)
		return
	}

	w.Header().Set("HX-Trigger", string(b))
}

func readUploadFiles(form *multipart.Form) ([]actions.UploadFile, error) {
	result := []actions.UploadFile{}

	if form == nil {
		return result, nil
	}

	for _, header := range form.File["files"] {
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("error opening uploaded file %s: %w", header.Filename, err)
		}

		data, err := io.ReadAll(f)
		_ = f.Close()

		if err != nil {
			return nil, fmt.Errorf("error reading uploaded file %s: %w", header.Filename, err)
		}

		result = append(result, actions.UploadFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	return result, nil
}
