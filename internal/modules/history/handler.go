package history

import (
	"github.com/gin-gonic/gin"
	"github.com/strategiq/swot/internal/pkg/pagination"
	"github.com/strategiq/swot/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/history")
	g.GET("", h.list)
	g.GET("/:id", h.get)
}

// GET /history?page=&size=
func (h *Handler) list(c *gin.Context) {
	items, pag, err := h.svc.List(c.Request.Context(), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

// GET /history/:id
func (h *Handler) get(c *gin.Context) {
	rec, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if rec == nil {
		response.NotFoundMsg(c, "analysis record not found")
		return
	}
	response.OK(c, rec)
}
