package gallery

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/adampresley/picturegallery/cmd/website/internal/actions"
	"github.com/adampresley/picturegallery/cmd/website/internal/selection"
	"github.com/adampresley/picturegallery/pkg/services"
)

/*
formPresenter reads the confirmation the page collected before posting.
*/
type formPresenter struct {
	r *http.Request
}

func (p formPresenter) Confirm(prompt string) bool {
	confirmed := p.r.FormValue("confirmed") == "true"
	slog.Debug("action confirmation", "path", p.r.URL.Path, "confirmed", confirmed)
	return confirmed
}

func (p formPresenter) Progress(label string) {
	slog.Debug("action progress", "path", p.r.URL.Path, "label", label)
}

func userMessage(err error) string {
	var (
		uploadErr     *actions.UploadError
		validationErr *actions.ValidationError
		apiErr        *services.ApiError
		networkErr    *services.NetworkError
	)

	switch {
	case errors.As(err, &uploadErr):
		return fmt.Sprintf("%s (%d/%d): %s", uploadErr.Name, uploadErr.Index+1, uploadErr.Total, userMessage(uploadErr.Err))

	case errors.As(err, &validationErr):
		return validationErr.Message

	case errors.Is(err, selection.ErrNotSelecting):
		return "Selection mode is not active."

	case errors.As(err, &apiErr):
		return apiErr.Message

	case errors.As(err, &networkErr):
		return "Could not reach the picture service. Please try again."
	}

	return err.Error()
}
