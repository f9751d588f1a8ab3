package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/alimtalk/internal/model"
	"github.com/xxxsen/alimtalk/internal/pkg/errcode"
	"github.com/xxxsen/alimtalk/internal/pkg/response"
	"github.com/xxxsen/alimtalk/internal/service"
)

type TemplateHandler struct {
	templates *service.TemplateService
}

func NewTemplateHandler(templates *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

type generateRequest struct {
	UserInput      string `json:"user_input"`
	BusinessType   string `json:"business_type"`
	MessagePurpose string `json:"message_purpose"`
	UserID         int64  `json:"user_id"`
}

func (r *generateRequest) toInput() *service.GenerateInput {
	return &service.GenerateInput{
		UserInput:      r.UserInput,
		BusinessType:   r.BusinessType,
		MessagePurpose: r.MessagePurpose,
		UserID:         r.UserID,
	}
}

type templateTypesResponse struct {
	TemplateTypes []model.TemplateType `json:"template_types"`
}

func (h *TemplateHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.templates.Generate(c.Request.Context(), req.toInput())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *TemplateHandler) GenerateAndSave(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.templates.GenerateAndSave(c.Request.Context(), req.toInput())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *TemplateHandler) Types(c *gin.Context) {
	response.Success(c, templateTypesResponse{TemplateTypes: h.templates.TemplateTypes()})
}
