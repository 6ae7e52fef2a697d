package handler

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/vedthemaster/lexsy-frontend/model"
	"github.com/vedthemaster/lexsy-frontend/service"
)

// pageData is what every page template receives.
type pageData struct {
	Title    string
	Refresh  bool
	Banner   *service.Banner
	View     service.SessionView
	Variants []model.Variant
	Selected model.Variant
}

var registerOnce sync.Once

// RegisterValidators adds the "variant" tag to gin's binding validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("variant", func(fl validator.FieldLevel) bool {
			_, err := model.ParseVariant(fl.Field().String())
			return err == nil
		})
	})
}

func bannerFor(err error) *service.Banner {
	b := service.ClassifyError(err)
	return &b
}

// statusFor maps an error to the HTTP status of the response carrying it.
func statusFor(err error) int {
	var apiErr *service.APIError
	switch {
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrTurnInFlight),
		errors.Is(err, service.ErrDownloadInFlight),
		errors.Is(err, service.ErrNoSession),
		errors.Is(err, service.ErrSessionComplete):
		return http.StatusConflict
	case errors.Is(err, service.ErrStatusUnsupported):
		return http.StatusNotImplemented
	}
	return http.StatusBadRequest
}

func jsonError(c *gin.Context, err error) {
	b := service.ClassifyError(err)
	c.JSON(statusFor(err), gin.H{"error": b.Detail, "title": b.Title})
}
