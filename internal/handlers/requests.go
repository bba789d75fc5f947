package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/abrezinsky/basta/internal/models"
)

// CreateThemeRequest is the request body for creating a theme
type CreateThemeRequest struct {
	Name string `json:"name" validate:"required,trimmed_len=3-100"`
}

// CreateCategoryRequest is the request body for adding a category to a theme
type CreateCategoryRequest struct {
	ThemeID uuid.UUID `json:"theme_id" validate:"required"`
	Name    string    `json:"name" validate:"required,trimmed_len=3-100"`
	Order   int       `json:"order" validate:"min=0"`
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	ThemeID    uuid.UUID `json:"theme_id" validate:"required"`
	MaxPlayers *int      `json:"max_players" validate:"omitempty,min=2,max=16"`
}

// JoinRoomRequest is the request body for joining a room. An empty nickname
// is derived from the caller's email.
type JoinRoomRequest struct {
	Nickname string `json:"nickname" validate:"omitempty,trimmed_len=2-50"`
}

// SetReadyRequest is the request body for the ready toggle
type SetReadyRequest struct {
	IsReady *bool `json:"is_ready" validate:"required"`
}

// SubmitRoundRequest is the request body for a BASTA submission, keyed by category id
type SubmitRoundRequest struct {
	Answers map[uuid.UUID]string `json:"answers" validate:"required"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		// trimmed_len=min-max bounds the rune length after trimming whitespace
		_ = validate.RegisterValidation("trimmed_len", func(fl validator.FieldLevel) bool {
			var lo, hi int
			if _, err := fmt.Sscanf(fl.Param(), "%d-%d", &lo, &hi); err != nil {
				return false
			}
			n := len([]rune(strings.TrimSpace(fl.Field().String())))
			return n >= lo && n <= hi
		})
	})
	return validate
}

var fieldMessages = map[string]string{
	"required":    "%s is required",
	"min":         "%s must be at least %s",
	"max":         "%s must be at most %s",
	"trimmed_len": "%s must be between %s characters",
}

// bindJSON decodes and validates a request body
func bindJSON(r *http.Request, target interface{}) error {
	if err := decodeJSON(r, target); err != nil {
		return err
	}
	if err := requestValidator().Struct(target); err != nil {
		return resolveValidationError(err)
	}
	return nil
}

func resolveValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return ValidationFailed("invalid request")
	}
	verr := verrs[0]
	format, ok := fieldMessages[verr.Tag()]
	if !ok {
		return ValidationFailed(fmt.Sprintf("%s is invalid", verr.Field()))
	}
	if strings.Count(format, "%s") == 2 {
		return ValidationFailed(fmt.Sprintf(format, verr.Field(), strings.Replace(verr.Param(), "-", " and ", 1)))
	}
	return ValidationFailed(fmt.Sprintf(format, verr.Field()))
}

func (req CreateRoomRequest) maxPlayers() int {
	if req.MaxPlayers == nil {
		return models.DefaultPlayers
	}
	return *req.MaxPlayers
}

func (req JoinRoomRequest) nickname() string {
	return strings.TrimSpace(req.Nickname)
}
