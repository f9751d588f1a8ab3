package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/alimtalk/internal/model"
	"github.com/xxxsen/alimtalk/internal/pkg/errcode"
	"github.com/xxxsen/alimtalk/internal/pkg/response"
	"github.com/xxxsen/alimtalk/internal/service"
)

type PolicyHandler struct {
	templates *service.TemplateService
}

func NewPolicyHandler(templates *service.TemplateService) *PolicyHandler {
	return &PolicyHandler{templates: templates}
}

type policySearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type policySearchResponse struct {
	Results    []model.PolicyHit `json:"results"`
	TotalFound int               `json:"total_found"`
}

func (h *PolicyHandler) Search(c *gin.Context) {
	var req policySearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	hits, err := h.templates.SearchPolicies(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, policySearchResponse{Results: hits, TotalFound: len(hits)})
}
