package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adampresley/picturegallery/pkg/models"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type PictureServicer interface {
	ListPictures(ctx context.Context) ([]models.Picture, error)
	UploadPicture(ctx context.Context, name, base64Data, contentType string) error
	PostComment(ctx context.Context, pictureName, author, text string) error
	RatePicture(ctx context.Context, pictureName string, rating int) error
	DeletePictures(ctx context.Context, names []string) error
	DownloadPictures(ctx context.Context, names []string) ([]byte, error)
	GetStats(ctx context.Context) (models.Stats, error)
}

type PictureServiceConfig struct {
	BaseURL    string
	HttpClient *http.Client
	Limiter    *rate.Limiter
	Timeout    time.Duration
	UserAgent  string
}

type PictureService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

type uploadRequest struct {
	Name        string `json:"name"`
	Data        string `json:"data"`
	ContentType string `json:"contentType"`
}

type commentRequest struct {
	Picture string `json:"picture"`
	Author  string `json:"author"`
	Text    string `json:"text"`
}

type rateRequest struct {
	Picture string `json:"picture"`
	Rating  int    `json:"rating"`
}

type pictureNamesRequest struct {
	Pictures []string `json:"pictures"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewPictureService(config PictureServiceConfig) PictureService {
	httpClient := config.HttpClient

	if httpClient == nil {
		timeout := config.Timeout

		if timeout <= 0 {
			timeout = 60 * time.Second
		}

		httpClient = &http.Client{Timeout: timeout}
	}

	return PictureService{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		limiter:    config.Limiter,
		userAgent:  config.UserAgent,
	}
}

/*
GET /api/pictures
*/
func (s PictureService) ListPictures(ctx context.Context) ([]models.Picture, error) {
	var (
		err      error
		response *http.Response
	)

	result := []models.Picture{}

	if response, err = s.do(ctx, http.MethodGet, "/api/pictures", nil); err != nil {
		return result, err
	}

	defer response.Body.Close()

	if err = json.NewDecoder(response.Body).Decode(&result); err != nil {
		return []models.Picture{}, fmt.Errorf("error decoding picture list: %w", err)
	}

	for index := range result {
		if result[index].Comments == nil {
			result[index].Comments = []models.Comment{}
		}
	}

	return result, nil
}

/*
POST /api/pictures
*/
func (s PictureService) UploadPicture(ctx context.Context, name, base64Data, contentType string) error {
	body := uploadRequest{
		Name:        name,
		Data:        base64Data,
		ContentType: contentType,
	}

	return s.doAndDiscard(ctx, http.MethodPost, "/api/pictures", body)
}

/*
POST /api/pictures/comment
*/
func (s PictureService) PostComment(ctx context.Context, pictureName, author, text string) error {
	body := commentRequest{
		Picture: pictureName,
		Author:  author,
		Text:    text,
	}

	return s.doAndDiscard(ctx, http.MethodPost, "/api/pictures/comment", body)
}

/*
POST /api/pictures/rate
*/
func (s PictureService) RatePicture(ctx context.Context, pictureName string, rating int) error {
	body := rateRequest{
		Picture: pictureName,
		Rating:  rating,
	}

	return s.doAndDiscard(ctx, http.MethodPost, "/api/pictures/rate", body)
}

/*
DELETE /api/pictures
*/
func (s PictureService) DeletePictures(ctx context.Context, names []string) error {
	return s.doAndDiscard(ctx, http.MethodDelete, "/api/pictures", pictureNamesRequest{Pictures: names})
}

/*
POST /api/pictures/download
*/
func (s PictureService) DownloadPictures(ctx context.Context, names []string) ([]byte, error) {
	var (
		err      error
		response *http.Response
		b        []byte
	)

	if response, err = s.do(ctx, http.MethodPost, "/api/pictures/download", pictureNamesRequest{Pictures: names}); err != nil {
		return nil, err
	}

	defer response.Body.Close()

	if b, err = io.ReadAll(response.Body); err != nil {
		return nil, &NetworkError{Op: "POST /api/pictures/download", Err: err}
	}

	return b, nil
}

/*
GET /api/stats
*/
func (s PictureService) GetStats(ctx context.Context) (models.Stats, error) {
	var (
		err      error
		response *http.Response
	)

	result := models.Stats{}

	if response, err = s.do(ctx, http.MethodGet, "/api/stats", nil); err != nil {
		return result, err
	}

	defer response.Body.Close()

	if err = json.NewDecoder(response.Body).Decode(&result); err != nil {
		return models.Stats{}, fmt.Errorf("error decoding stats: %w", err)
	}

	return result, nil
}

func (s PictureService) doAndDiscard(ctx context.Context, method, path string, body any) error {
	response, err := s.do(ctx, method, path, body)

	if err != nil {
		return err
	}

	_, _ = io.Copy(io.Discard, response.Body)
	_ = response.Body.Close()
	return nil
}

/*
do sends a request and returns the response only when the status is 2xx.
The caller owns the response body.
*/
func (s PictureService) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var (
		err      error
		b        []byte
		request  *http.Request
		response *http.Response
		reader   io.Reader
	)

	op := method + " " + path

	if body != nil {
		if b, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("error encoding request body for %s: %w", op, err)
		}

		reader = bytes.NewReader(b)
	}

	if s.limiter != nil {
		if err = s.limiter.Wait(ctx); err != nil {
			return nil, &NetworkError{Op: op, Err: err}
		}
	}

	if request, err = http.NewRequestWithContext(ctx, method, s.baseURL+path, reader); err != nil {
		return nil, fmt.Errorf("error creating request for %s: %w", op, err)
	}

	request.Header.Set("Accept", "application/json")
	request.Header.Set("X-Request-ID", uuid.New().String())

	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	if s.userAgent != "" {
		request.Header.Set("User-Agent", s.userAgent)
	}

	if response, err = s.httpClient.Do(request); err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		defer response.Body.Close()
		return nil, newApiError(response)
	}

	return response, nil
}

func newApiError(response *http.Response) *ApiError {
	result := &ApiError{
		Status:  response.StatusCode,
		Message: fmt.Sprintf("HTTP status %d", response.StatusCode),
	}

	b, err := io.ReadAll(io.LimitReader(response.Body, 64*1024))
	if err != nil {
		return result
	}

	body := errorResponse{}

	if err = json.Unmarshal(b, &body); err == nil && strings.TrimSpace(body.Error) != "" {
		result.Message = body.Error
	}

	return result
}
