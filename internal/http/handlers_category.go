package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// handleListCategories handles GET /api/v1/categories
func (s *Server) handleListCategories(c echo.Context) error {
	cats, err := s.assets.Categories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCategoryResponses(cats))
}

// handleGetCategory handles GET /api/v1/categories/:id
func (s *Server) handleGetCategory(c echo.Context) error {
	cat, err := s.assets.Category(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCategoryResponse(cat))
}

// handleCreateCategory handles POST /api/v1/categories
func (s *Server) handleCreateCategory(c echo.Context) error {
	var req CategoryRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	cat, err := s.assets.CreateCategory(c.Request().Context(), sanitizeInput(req.Name), req.Icon)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCategoryResponse(cat))
}

// handleUpdateCategory handles PUT /api/v1/categories/:id. A missing icon keeps the current one.
func (s *Server) handleUpdateCategory(c echo.Context) error {
	var req CategoryRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	cat, err := s.assets.UpdateCategory(c.Request().Context(), c.Param("id"), sanitizeInput(req.Name), req.Icon)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCategoryResponse(cat))
}

// handleReorderCategories handles PUT /api/v1/categories/order
func (s *Server) handleReorderCategories(c echo.Context) error {
	var req ReorderRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := s.assets.ReorderCategories(ctx, req.IDs); err != nil {
		return err
	}
	cats, err := s.assets.Categories(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCategoryResponses(cats))
}

// handleDeleteCategory handles DELETE /api/v1/categories/:id. Its snapshots go with it.
func (s *Server) handleDeleteCategory(c echo.Context) error {
	if err := s.assets.DeleteCategory(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleCategoryDetail handles GET /api/v1/categories/:id/detail?date=
func (s *Server) handleCategoryDetail(c echo.Context) error {
	date, err := queryDate(c, s.today())
	if err != nil {
		return err
	}
	detail, err := s.dashboard.CategoryDetail(c.Request().Context(), c.Param("id"), date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCategoryDetailResponse(detail))
}
