package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vlab-edu/vlab-backend/internal/course"
	infra "github.com/vlab-edu/vlab-backend/internal/infrastructure"
)

// CourseHandler read-only catalog endpoints
type CourseHandler struct {
	catalog *course.Catalog
}

func NewCourseHandler(catalog *course.Catalog) *CourseHandler {
	return &CourseHandler{catalog}
}

// HandleListCourses list the whole catalog
func (ch *CourseHandler) HandleListCourses(c echo.Context) error {
	return c.JSON(http.StatusOK, ch.catalog.Courses())
}

// HandleGetCourse fetch a single course definition
func (ch *CourseHandler) HandleGetCourse(c echo.Context) error {
	id := c.Param("id")
	found, ok := ch.catalog.Course(id)
	if !ok {
		return c.JSON(http.StatusNotFound, infra.NewRESTStandardError(http.StatusNotFound, "No such course"))
	}
	return c.JSON(http.StatusOK, found)
}
