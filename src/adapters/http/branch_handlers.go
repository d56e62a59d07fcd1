package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"orghierarchy/src/domain"
)

func (s *Server) GetForest(c *gin.Context) {
	forest, err := s.branchService.ListForest(c.Request.Context(), callerFrom(c))
	if err != nil {
		s.writeError(c, "GetForest", err)
		return
	}

	c.JSON(http.StatusOK, MapForestToResponse(forest))
}

func (s *Server) GetSubtree(c *gin.Context) {
	tree, err := s.branchService.ListSubtree(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		s.writeError(c, "GetSubtree", err)
		return
	}

	c.JSON(http.StatusOK, MapTreeToResponse(tree))
}

func (s *Server) GetBranch(c *gin.Context) {
	branch, err := s.branchService.GetByID(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		s.writeError(c, "GetBranch", err)
		return
	}

	c.JSON(http.StatusOK, MapBranchToResponse(branch))
}

func (s *Server) ListBranches(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(http.StatusBadRequest, "Invalid page", err.Error()))
		return
	}

	pageSize, err := queryInt(c, "page_size", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(http.StatusBadRequest, "Invalid page_size", err.Error()))
		return
	}

	result, err := s.branchService.List(c.Request.Context(), callerFrom(c), page, pageSize)
	if err != nil {
		s.writeError(c, "ListBranches", err)
		return
	}

	items := make([]BranchResponse, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, MapBranchToResponse(&result.Items[i]))
	}

	c.JSON(http.StatusOK, BranchListResponse{
		Items:    items,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
	})
}

func (s *Server) CreateBranch(c *gin.Context) {
	var request CreateBranchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(http.StatusBadRequest, "Invalid request body", err.Error()))
		return
	}

	branch, err := s.branchService.Create(c.Request.Context(), callerFrom(c), request.ToDomain())
	if err != nil {
		s.writeError(c, "CreateBranch", err)
		return
	}

	c.JSON(http.StatusCreated, MapBranchToResponse(branch))
}

func (s *Server) EditBranch(c *gin.Context) {
	var request EditBranchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(http.StatusBadRequest, "Invalid request body", err.Error()))
		return
	}

	branch, err := s.branchService.Edit(c.Request.Context(), callerFrom(c), request.ToDomain(c.Param("id")))
	if err != nil {
		s.writeError(c, "EditBranch", err)
		return
	}

	c.JSON(http.StatusOK, MapBranchToResponse(branch))
}

func (s *Server) BlockBranch(c *gin.Context) {
	branch, err := s.branchService.Block(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		s.writeError(c, "BlockBranch", err)
		return
	}

	c.JSON(http.StatusOK, MapBranchToResponse(branch))
}

func (s *Server) UnblockBranch(c *gin.Context) {
	branch, err := s.branchService.Unblock(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		s.writeError(c, "UnblockBranch", err)
		return
	}

	c.JSON(http.StatusOK, MapBranchToResponse(branch))
}

func (s *Server) DeleteBranch(c *gin.Context) {
	if err := s.branchService.Delete(c.Request.Context(), callerFrom(c), c.Param("id")); err != nil {
		s.writeError(c, "DeleteBranch", err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "branch deleted"})
}

func (s *Server) Health(c *gin.Context) {
	if err := s.branchService.HealthCheck(c.Request.Context()); err != nil {
		s.logger.Error("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(http.StatusServiceUnavailable, "unhealthy", ""))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) writeError(c *gin.Context, handler string, err error) {
	switch {
	case errors.Is(err, domain.ErrBranchNotFound):
		c.JSON(http.StatusNotFound, NewErrorResponse(http.StatusNotFound, domain.ErrBranchNotFound.Error(), ""))
	case errors.Is(err, domain.ErrBranchAlreadyExists):
		c.JSON(http.StatusConflict, NewErrorResponse(http.StatusConflict, domain.ErrBranchAlreadyExists.Error(), err.Error()))
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, NewErrorResponse(http.StatusBadRequest, domain.ErrInvalidInput.Error(), validationDetails(err)))
	case errors.Is(err, domain.ErrClosureTooLarge):
		c.JSON(http.StatusUnprocessableEntity, NewErrorResponse(http.StatusUnprocessableEntity, domain.ErrClosureTooLarge.Error(), ""))
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("Request timed out", "handler", handler, "error", err)
		c.JSON(http.StatusGatewayTimeout, NewErrorResponse(http.StatusGatewayTimeout, "request timed out", ""))
	default:
		s.logger.Error("Unexpected error", "handler", handler, "error", err)
		c.JSON(http.StatusInternalServerError, NewErrorResponse(http.StatusInternalServerError, domain.ErrUnavailableServer.Error(), ""))
	}
}

func validationDetails(err error) string {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Field + " " + validationErr.Reason
	}
	return err.Error()
}

func queryInt(c *gin.Context, name string, defaultValue int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(raw)
}
