package gallery

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"photoGalleryAi/internal/apperr"
)

const maxBodyBytes = 32 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// InpaintingRequest is the body of POST /api/inpainting.
type InpaintingRequest struct {
	OriginalImageURL string `json:"originalImageUrl" validate:"required"`
	InpaintingPrompt string `json:"inpaintingPrompt" validate:"required"`
}

// SaveGeneratedRequest is the body of POST /api/save-generated-image.
type SaveGeneratedRequest struct {
	ImageData        string `json:"imageData" validate:"required"`
	OriginalImageKey string `json:"originalImageKey"`
	PromptUsed       string `json:"promptUsed"`
}

// decodeBody reads a JSON body into dest and validates it. Any missing required field is
// reported with invalidMessage so clients see one stable message per route.
func decodeBody(r *http.Request, dest any, invalidMessage string) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Wrap(apperr.CodeValidation, err, "invalid request body")
	}
	if err := validate.Struct(dest); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return apperr.Validation(invalidMessage)
		}
		return apperr.Wrap(apperr.CodeValidation, err, "invalid request body")
	}
	return nil
}
