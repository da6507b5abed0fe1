package gallery

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/adampresley/adamgokit/sessions"
	"github.com/adampresley/picturegallery/cmd/website/internal/actions"
	"github.com/adampresley/picturegallery/cmd/website/internal/selection"
	"github.com/adampresley/picturegallery/cmd/website/internal/thumbnails"
	"github.com/adampresley/picturegallery/pkg/models"
	"github.com/adampresley/picturegallery/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePictureService struct {
	pictures     []models.Picture
	listErr      error
	listCalls    int
	uploads      []string
	failUploadAt string
	comments     int
	deleted      [][]string
	downloadData []byte
	stats        models.Stats
	statsErr     error
}

func (f *fakePictureService) ListPictures(ctx context.Context) ([]models.Picture, error) {
	f.listCalls++

	if f.listErr != nil {
		return nil, f.listErr
	}

	result := []models.Picture{}
	for _, p := range f.pictures {
		result = append(result, p.Clone())
	}

	return result, nil
}

func (f *fakePictureService) UploadPicture(ctx context.Context, name, base64Data, contentType string) error {
	if name == f.failUploadAt {
		return &services.ApiError{Status: 500, Message: "disk full"}
	}

	f.uploads = append(f.uploads, name)
	return nil
}

func (f *fakePictureService) PostComment(ctx context.Context, pictureName, author, text string) error {
	f.comments++
	return nil
}

func (f *fakePictureService) RatePicture(ctx context.Context, pictureName string, rating int) error {
	return nil
}

func (f *fakePictureService) DeletePictures(ctx context.Context, names []string) error {
	f.deleted = append(f.deleted, names)
	return nil
}

func (f *fakePictureService) DownloadPictures(ctx context.Context, names []string) ([]byte, error) {
	return f.downloadData, nil
}

func (f *fakePictureService) GetStats(ctx context.Context) (models.Stats, error) {
	return f.stats, f.statsErr
}

type memorySessions struct {
	id      string
	saveErr error
}

func (m *memorySessions) Get(r *http.Request) (string, error) {
	if m.id == "" {
		return "", errors.New("no session")
	}

	return m.id, nil
}

func (m *memorySessions) Set(r *http.Request, value string) error {
	m.id = value
	return nil
}

func (m *memorySessions) Save(w http.ResponseWriter, r *http.Request) error {
	return m.saveErr
}

type fakeThumbnails struct {
	items map[string]thumbnails.Thumbnail
}

func (f fakeThumbnails) Get(name string) (thumbnails.Thumbnail, bool) {
	thumb, ok := f.items[name]
	return thumb, ok
}

func (f fakeThumbnails) Warm(pictures []models.Picture) int { return 0 }
func (f fakeThumbnails) Stop()                              {}

type fixture struct {
	controller GalleryController
	handlers   *actions.Handlers
	selections *selection.Registry
	service    *fakePictureService
	sessions   *memorySessions
}

func (f fixture) setSelection(state *selection.State) {
	f.sessions.id = "test-session"
	f.selections.Store(f.sessions.id, state)
}

func (f fixture) selection() *selection.State {
	return f.selections.Load(f.sessions.id)
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	service := &fakePictureService{
		pictures: []models.Picture{
			{Name: "a.jpg", URL: "https://pictures.example.com/a.jpg", Rating: 1},
			{Name: "b.jpg", URL: "https://pictures.example.com/b.jpg", Rating: 2},
			{Name: "c.jpg", URL: "https://pictures.example.com/c.jpg", Rating: 3},
		},
	}

	handlers := actions.NewHandlers(actions.HandlersConfig{
		PictureService: service,
		Now:            func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) },
	})

	_, err := handlers.Reload(context.Background())
	require.NoError(t, err)

	sessions := &memorySessions{}
	selections := selection.NewRegistry(selection.RegistryConfig{})

	controller := NewGalleryController(GalleryControllerConfig{
		Handlers:       handlers,
		Selections:     selections,
		SessionService: sessions,
		Thumbnails: fakeThumbnails{items: map[string]thumbnails.Thumbnail{
			"a.jpg": {Data: []byte("jpeg-bytes")},
		}},
	})

	return fixture{controller: controller, handlers: handlers, selections: selections, service: service, sessions: sessions}
}

func postForm(target string, values url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("HX-Request", "true")
	return r
}

func document(t *testing.T, w *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(w.Body)
	require.NoError(t, err)
	return doc
}

func TestRateReturnsStarFragment(t *testing.T) {
	f := newFixture(t)
	w := httptest.NewRecorder()

	f.controller.Rate(w, postForm("/pictures/rate", url.Values{"picture": {"a.jpg"}, "rating": {"4"}}))

	require.Equal(t, http.StatusOK, w.Code)
	doc := document(t, w)
	assert.Equal(t, 4, doc.Find(".star.filled").Length())
	assert.Equal(t, "4/5", doc.Find(".rating-text").Text())

	b, _ := f.handlers.Store().Find("b.jpg")
	assert.Equal(t, 2, b.Rating)
}

func TestRateOutOfRangeIsUnprocessable(t *testing.T) {
	f := newFixture(t)
	w := httptest.NewRecorder()

	f.controller.Rate(w, postForm("/pictures/rate", url.Values{"picture": {"a.jpg"}, "rating": {"9"}}))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Rating must be between 1 and 5.")
}

func TestCommentValidation(t *testing.T) {
	f := newFixture(t)
	w := httptest.NewRecorder()

	f.controller.Comment(w, postForm("/pictures/comment", url.Values{"picture": {"a.jpg"}, "author": {""}, "text": {"nice"}}))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Please enter both your name and a comment.", strings.TrimSpace(w.Body.String()))
	assert.Equal(t, 0, f.service.comments)
}

func TestCommentAppendsAndUpdatesToggle(t *testing.T) {
	f := newFixture(t)
	w := httptest.NewRecorder()

	f.controller.Comment(w, postForm("/pictures/comment", url.Values{"picture": {"a.jpg"}, "author": {"bob"}, "text": {"lovely"}}))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("HX-Trigger"), "Comment posted successfully!")

	doc := document(t, w)
	assert.Equal(t, "bob", doc.Find(".comment-author").Text())
	assert.Equal(t, "Show 1", doc.Find(".toggle-comments").Text())
}

func TestCommentOnUnknownPictureSkipsToggle(t *testing.T) {
	f := newFixture(t)
	f.service.listErr = &services.ApiError{Status: 500, Message: "Failed to get pictures: boom"}
	w := httptest.NewRecorder()

	f.controller.Comment(w, postForm("/pictures/comment", url.Values{"picture": {"d.jpg"}, "author": {"bob"}, "text": {"lovely"}}))

	require.Equal(t, http.StatusOK, w.Code)
	doc := document(t, w)
	assert.Equal(t, "bob", doc.Find(".comment-author").Text())
	assert.Equal(t, 0, doc.Find(".toggle-comments").Length())
}

func TestSelectionRoutes(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.controller.Toggle(w, postForm("/selection/toggle", url.Values{"picture": {"a.jpg"}, "checked": {"true"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = httptest.NewRecorder()
	f.controller.EnterDeleteMode(w, postForm("/selection/delete-mode", url.Values{}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, document(t, w).Find("#deleteSection").Length())

	w = httptest.NewRecorder()
	f.controller.ToggleAll(w, postForm("/selection/toggle-all", url.Values{}))
	doc := document(t, w)
	assert.Equal(t, "3 selected", doc.Find("#selectedCount").Text())
	assert.Equal(t, "Deselect All", doc.Find("#selectAllBtn").Text())

	w = httptest.NewRecorder()
	f.controller.Toggle(w, postForm("/selection/toggle", url.Values{"picture": {"b.jpg"}}))
	assert.Equal(t, "2 selected", document(t, w).Find("#selectedCount").Text())

	w = httptest.NewRecorder()
	f.controller.CancelSelection(w, postForm("/selection/cancel", url.Values{}))
	assert.Equal(t, 1, document(t, w).Find("#uploadForm").Length())
	assert.Equal(t, selection.ModeNormal, f.selection().Mode)
	assert.Equal(t, 0, f.selection().Count())
}

func TestModeChangesPatchCheckboxesWithoutReloading(t *testing.T) {
	f := newFixture(t)
	listCalls := f.service.listCalls

	w := httptest.NewRecorder()
	f.controller.EnterDownloadMode(w, postForm("/selection/download-mode", url.Values{}))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("HX-Trigger"))
	doc := document(t, w)
	assert.Equal(t, 1, doc.Find("#downloadSection").Length())
	assert.Equal(t, 3, doc.Find(`.select-slot[hx-swap-oob="true"] .picture-checkbox`).Length())
	assert.Equal(t, 0, doc.Find(".picture-card").Length())

	w = httptest.NewRecorder()
	f.controller.ToggleAll(w, postForm("/selection/toggle-all", url.Values{}))
	assert.Empty(t, w.Header().Get("HX-Trigger"))
	assert.Equal(t, 3, document(t, w).Find(".picture-checkbox[checked]").Length())

	f.service.listErr = &services.ApiError{Status: 500, Message: "Failed to get pictures: boom"}

	w = httptest.NewRecorder()
	f.controller.CancelSelection(w, postForm("/selection/cancel", url.Values{}))
	require.Equal(t, http.StatusOK, w.Code)
	doc = document(t, w)
	assert.Equal(t, 3, doc.Find(".select-slot").Length())
	assert.Equal(t, 0, doc.Find(".picture-checkbox").Length())
	assert.Equal(t, 0, doc.Find(".gallery-error").Length())

	assert.Equal(t, listCalls, f.service.listCalls)
}

func TestToggleRejectsUnknownPicture(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.controller.EnterDeleteMode(w, postForm("/selection/delete-mode", url.Values{}))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	f.controller.Toggle(w, postForm("/selection/toggle", url.Values{"picture": {"invented.jpg"}, "checked": {"true"}}))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "That picture is not in the gallery.", strings.TrimSpace(w.Body.String()))
	assert.Equal(t, 0, f.selection().Count())
}

func TestSessionSaveFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.sessions.saveErr = errors.New("securecookie: the value is too long")

	w := httptest.NewRecorder()
	f.controller.EnterDeleteMode(w, postForm("/selection/delete-mode", url.Values{}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Your session could not be saved.")
	assert.Equal(t, 0, f.selections.Len())
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	state := selection.New()
	state.EnterDeleteMode()
	require.NoError(t, state.Toggle("c.jpg", true))
	f.setSelection(state)

	w := httptest.NewRecorder()
	f.controller.Delete(w, postForm("/pictures/delete", url.Values{}))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, f.service.deleted)

	w = httptest.NewRecorder()
	f.controller.Delete(w, postForm("/pictures/delete", url.Values{"confirmed": {"true"}}))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Successfully deleted 1 picture(s)!")
	assert.Contains(t, w.Header().Get("HX-Trigger"), "reloadToolbar")
	assert.Equal(t, [][]string{{"c.jpg"}}, f.service.deleted)
	assert.Equal(t, selection.ModeNormal, f.selection().Mode)
}

func TestDownloadReturnsAttachment(t *testing.T) {
	f := newFixture(t)

	buf := bytes.Buffer{}
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("a.jpg")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	f.service.downloadData = buf.Bytes()

	state := selection.New()
	state.EnterDownloadMode()
	require.NoError(t, state.Toggle("a.jpg", true))
	f.setSelection(state)

	w := httptest.NewRecorder()
	f.controller.Download(w, httptest.NewRequest(http.MethodPost, "/pictures/download", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=photos_2024-06-15.zip", w.Header().Get("Content-Disposition"))
	assert.Equal(t, f.service.downloadData, w.Body.Bytes())
	assert.Equal(t, selection.ModeNormal, f.selection().Mode)
}

func TestDownloadWithoutSelectionIsUnprocessable(t *testing.T) {
	f := newFixture(t)
	w := httptest.NewRecorder()

	f.controller.Download(w, postForm("/pictures/download", url.Values{}))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Please select at least one picture to download.")
}

func TestUploadMultipart(t *testing.T) {
	tests := []struct {
		name         string
		failUploadAt string
		expectStatus int
		expectBody   string
		expectUpload []string
	}{
		{"all succeed", "", http.StatusOK, "Successfully uploaded 3 picture(s)!", []string{"one.jpg", "two.jpg", "three.jpg"}},
		{"second fails", "two.jpg", http.StatusBadGateway, "Failed to upload pictures: two.jpg (2/3): disk full", []string{"one.jpg"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := newFixture(t)
			f.service.failUploadAt = test.failUploadAt

			body := &bytes.Buffer{}
			mw := multipart.NewWriter(body)
			require.NoError(t, mw.WriteField("confirmed", "true"))

			for _, name := range []string{"one.jpg", "two.jpg", "three.jpg"} {
				part, err := mw.CreateFormFile("files", name)
				require.NoError(t, err)
				_, _ = part.Write([]byte("\xff\xd8\xff\xe0 jpeg"))
			}

			require.NoError(t, mw.Close())

			r := httptest.NewRequest(http.MethodPost, "/pictures/upload", body)
			r.Header.Set("Content-Type", mw.FormDataContentType())
			r.Header.Set("HX-Request", "true")
			w := httptest.NewRecorder()

			f.controller.Upload(w, r)

			assert.Equal(t, test.expectStatus, w.Code)
			assert.Contains(t, w.Body.String(), test.expectBody)
			assert.Equal(t, test.expectUpload, f.service.uploads)
			assert.Contains(t, w.Header().Get("HX-Trigger"), "reloadGallery")
		})
	}
}

func TestGridFragment(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.controller.Grid(w, httptest.NewRequest(http.MethodGet, "/gallery/grid", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, document(t, w).Find(".picture-card").Length())

	f.service.listErr = &services.ApiError{Status: 500, Message: "Failed to get pictures: boom"}

	w = httptest.NewRecorder()
	f.controller.Grid(w, httptest.NewRequest(http.MethodGet, "/gallery/grid", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, document(t, w).Find(".gallery-error").Text(), "Failed to get pictures: boom")
}

func TestStatsFragment(t *testing.T) {
	f := newFixture(t)
	f.service.stats = models.Stats{TotalPictures: 3, TotalSize: "1.0 MB", AverageRating: 2, TotalComments: 0, MostRecentUpload: "2024-06-01"}

	w := httptest.NewRecorder()
	f.controller.Stats(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3", document(t, w).Find(".stat-value").First().Text())

	f.service.statsErr = &services.NetworkError{Op: "GET /api/stats", Err: errors.New("refused")}

	w = httptest.NewRecorder()
	f.controller.Stats(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to load stats: Could not reach the picture service.")
}

func TestThumbnail(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name           string
		expectStatus   int
		expectLocation string
	}{
		{"a.jpg", http.StatusOK, ""},
		{"b.jpg", http.StatusFound, "https://pictures.example.com/b.jpg"},
		{"zzz.jpg", http.StatusNotFound, ""},
	}

	for _, test := range tests {
		r := httptest.NewRequest(http.MethodGet, "/thumbnails/"+test.name, nil)
		r.SetPathValue("name", test.name)
		w := httptest.NewRecorder()

		f.controller.Thumbnail(w, r)

		assert.Equal(t, test.expectStatus, w.Code, test.name)
		assert.Equal(t, test.expectLocation, w.Header().Get("Location"), test.name)
	}
}

func withCookies(r *http.Request, cookies []*http.Cookie) *http.Request {
	for _, cookie := range cookies {
		r.AddCookie(cookie)
	}

	return r
}

func TestLargeSelectionSurvivesCookieSession(t *testing.T) {
	service := &fakePictureService{}

	for i := 0; i < 120; i++ {
		name := fmt.Sprintf("family-reunion-2024-%03d-long-descriptive-name.jpg", i)
		service.pictures = append(service.pictures, models.Picture{Name: name, URL: "https://pictures.example.com/" + name})
	}

	handlers := actions.NewHandlers(actions.HandlersConfig{PictureService: service})
	_, err := handlers.Reload(context.Background())
	require.NoError(t, err)

	cookieStore := sessions.NewCookieStore("a-test-cookie-secret")

	controller := NewGalleryController(GalleryControllerConfig{
		Handlers:       handlers,
		SessionService: sessions.NewSessionWrapper[string](cookieStore, "picturegallery", "sessionID"),
	})

	w := httptest.NewRecorder()
	controller.EnterDeleteMode(w, postForm("/selection/delete-mode", url.Values{}))
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = httptest.NewRecorder()
	controller.ToggleAll(w, withCookies(postForm("/selection/toggle-all", url.Values{}), cookies))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "120 selected", document(t, w).Find("#selectedCount").Text())

	w = httptest.NewRecorder()
	controller.Delete(w, withCookies(postForm("/pictures/delete", url.Values{"confirmed": {"true"}}), cookies))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Successfully deleted 120 picture(s)!")
	require.Len(t, service.deleted, 1)
	assert.Len(t, service.deleted[0], 120)
}

func uploadPartRequest(t *testing.T, name string, position, total int) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("confirmed", "true"))
	require.NoError(t, mw.WriteField("position", fmt.Sprintf("%d", position)))
	require.NoError(t, mw.WriteField("total", fmt.Sprintf("%d", total)))

	part, err := mw.CreateFormFile("files", name)
	require.NoError(t, err)
	_, _ = part.Write([]byte("\xff\xd8\xff\xe0 jpeg"))
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/pictures/upload", body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r.Header.Set("HX-Request", "true")
	return r
}

func TestUploadPartsAnswerWithNextProgressLabel(t *testing.T) {
	f := newFixture(t)
	labels := []string{}

	for position, name := range []string{"one.jpg", "two.jpg"} {
		w := httptest.NewRecorder()
		f.controller.Upload(w, uploadPartRequest(t, name, position+1, 3))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("HX-Trigger"))
		labels = append(labels, document(t, w).Find("#uploadProgress").Text())
	}

	assert.Equal(t, []string{"Uploading 2/3...", "Uploading 3/3..."}, labels)

	w := httptest.NewRecorder()
	f.controller.Upload(w, uploadPartRequest(t, "three.jpg", 3, 3))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Successfully uploaded 3 picture(s)!")
	assert.Contains(t, w.Header().Get("HX-Trigger"), "reloadGallery")
	assert.Equal(t, []string{"one.jpg", "two.jpg", "three.jpg"}, f.service.uploads)
}

func TestUploadPartFailureStopsWithPosition(t *testing.T) {
	f := newFixture(t)
	f.service.failUploadAt = "two.jpg"

	w := httptest.NewRecorder()
	f.controller.Upload(w, uploadPartRequest(t, "two.jpg", 2, 3))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to upload pictures: two.jpg (2/3): disk full")
	assert.Contains(t, w.Header().Get("HX-Trigger"), "reloadGallery")
	assert.Empty(t, f.service.uploads)
}

func TestToolbarRefreshAfterDownloadClearsCheckboxes(t *testing.T) {
	f := newFixture(t)

	buf := bytes.Buffer{}
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("a.jpg")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	f.service.downloadData = buf.Bytes()

	state := selection.New()
	state.EnterDownloadMode()
	require.NoError(t, state.Toggle("a.jpg", true))
	f.setSelection(state)

	w := httptest.NewRecorder()
	f.controller.Download(w, postForm("/pictures/download", url.Values{}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename=photos_2024-06-15.zip", w.Header().Get("Content-Disposition"))

	w = httptest.NewRecorder()
	f.controller.Toolbar(w, httptest.NewRequest(http.MethodGet, "/selection/toolbar", nil))

	require.Equal(t, http.StatusOK, w.Code)
	doc := document(t, w)
	assert.Equal(t, "normal", doc.Find("#toolbar").AttrOr("data-mode", ""))
	assert.Equal(t, 1, doc.Find("#uploadForm[data-upload-form]").Length())
	assert.Equal(t, 3, doc.Find(`.select-slot[hx-swap-oob="true"]`).Length())
	assert.Equal(t, 0, doc.Find(".picture-checkbox").Length())
}
