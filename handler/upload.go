package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/vedthemaster/lexsy-frontend/middleware"
	"github.com/vedthemaster/lexsy-frontend/model"
	"github.com/vedthemaster/lexsy-frontend/pkg/logger"
	"github.com/vedthemaster/lexsy-frontend/service"
)

var errUploadUnreadable = errors.New("Failed to read the uploaded file")

type UploadHandler struct {
	flow *service.UploadFlow
}

func NewUploadHandler(flow *service.UploadFlow) *UploadHandler {
	return &UploadHandler{flow: flow}
}

type uploadForm struct {
	File    *multipart.FileHeader `form:"file"`
	Variant string                `form:"variant" binding:"omitempty,variant"`
}

// Page renders the upload form with the tab's current variant selected.
func (h *UploadHandler) Page(c *gin.Context) {
	h.render(c, http.StatusOK, middleware.GetVariant(c), nil)
}

// Upload validates the file name, hands the file to the backend and
// redirects to the conversation for the new document.
func (h *UploadHandler) Upload(c *gin.Context) {
	var form uploadForm
	if err := c.ShouldBind(&form); err != nil {
		logger.Debug(c.Request.Context(), "upload form rejected", "error", err)
		h.render(c, http.StatusBadRequest, middleware.GetVariant(c), bannerFor(uploadBindError(err)))
		return
	}
	variant, _ := model.ParseVariant(form.Variant)

	filename := ""
	if form.File != nil {
		filename = form.File.Filename
	}
	if err := service.ValidateFilename(filename); err != nil {
		h.render(c, http.StatusBadRequest, variant, bannerFor(err))
		return
	}

	file, err := form.File.Open()
	if err != nil {
		h.render(c, http.StatusBadRequest, variant, bannerFor(errUploadUnreadable))
		return
	}
	defer file.Close()

	result, err := h.flow.Submit(c.Request.Context(), filename, file, variant)
	if err != nil {
		h.render(c, statusFor(err), variant, bannerFor(err))
		return
	}

	if err := middleware.SetVariant(c, variant); err != nil {
		logger.Warn(c.Request.Context(), "failed to persist variant", "error", err)
	}
	c.Redirect(http.StatusSeeOther, "/conversation/"+result.DocumentID.String())
}

// uploadBindError keeps the variant message for variant validation failures;
// anything else means the body itself could not be read.
func uploadBindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() == "Variant" {
				return service.ErrUnknownVariant
			}
		}
	}
	return errUploadUnreadable
}

func (h *UploadHandler) render(c *gin.Context, status int, selected model.Variant, banner *service.Banner) {
	c.HTML(status, "upload.html", pageData{
		Title:    "Upload",
		Banner:   banner,
		Variants: model.Variants,
		Selected: selected,
	})
}
