package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vlab-edu/vlab-backend/internal/course"
	"github.com/vlab-edu/vlab-backend/internal/event"
	infra "github.com/vlab-edu/vlab-backend/internal/infrastructure"
	"github.com/vlab-edu/vlab-backend/internal/infrastructure/validate"
	"github.com/vlab-edu/vlab-backend/internal/progress"
)

// ProgressHandler progress transitions and reads. Each mutating endpoint maps
// to exactly one store transition; the store recomputes the completion flag
// and the persistence gateway picks the new collection up through its
// observer, so handlers never touch storage themselves.
type ProgressHandler struct {
	store     *progress.Store
	catalog   *course.Catalog
	publisher *event.Publisher
	validator validate.Validator
}

func NewProgressHandler(
	store *progress.Store,
	catalog *course.Catalog,
	publisher *event.Publisher,
	validator validate.Validator,
) *ProgressHandler {
	return &ProgressHandler{store, catalog, publisher, validator}
}

// quizSubmission answers map question IDs to the chosen option index
type quizSubmission struct {
	Answers map[string]int `json:"answers" validate:"required"`
}

// HandleGetCollection the full progress collection
func (ph *ProgressHandler) HandleGetCollection(c echo.Context) error {
	return c.JSON(http.StatusOK, ph.store.Snapshot())
}

// HandleGetCourseProgress a single record, 404 when the course was never
// opened or its progress has been cleared
func (ph *ProgressHandler) HandleGetCourseProgress(c echo.Context) error {
	id := c.Param("id")
	cp, ok := ph.store.CourseProgress(id)
	if !ok {
		return c.JSON(http.StatusNotFound, infra.NewRESTStandardError(http.StatusNotFound, "No progress for course"))
	}
	return c.JSON(http.StatusOK, cp)
}

// HandleOpenCourse lazily create the progress record for a catalog course
func (ph *ProgressHandler) HandleOpenCourse(c echo.Context) error {
	id := c.Param("id")
	if _, ok := ph.catalog.Course(id); !ok {
		return c.JSON(http.StatusNotFound, infra.NewRESTStandardError(http.StatusNotFound, "No such course"))
	}
	cp, created := ph.store.OpenCourse(id)
	if created && cp.IsCompleted {
		// courses without sections are complete the moment they are opened
		ph.publisher.Publish(event.CourseCompleted, echo.Map{"course_id": id})
	}
	return c.JSON(http.StatusOK, cp)
}

// HandleCompleteLesson mark a content subsection as done
func (ph *ProgressHandler) HandleCompleteLesson(c echo.Context) error {
	courseID := c.Param("id")
	subsectionID := c.Param("subsectionID")

	found, ok := ph.catalog.Course(courseID)
	if !ok {
		return c.JSON(http.StatusNotFound, infra.NewRESTStandardError(http.StatusNotFound, "No such course"))
	}
	ss, ok := found.Subsection(subsectionID)
	if !ok {
		return c.JSON(http.StatusNotFound, infra.NewRESTStandardError(http.StatusNotFound, "No such subsection"))
	}
	if ss.Kind() != course.KindContent {
		return c.JSON(http.StatusBadRequest, infra.NewRESTValidationError(http.StatusBadRequest, "Failed to validate params", []*validate.FieldError{
			validate.NewFieldError("subsectionID", "subsection is not lesson content"),
		}))
	}

	cp, completed := ph.store.CompleteLesson(courseID, subsectionID)

	ph.publisher.Publish(event.LessonCompleted, echo.Map{"course_id": courseID, "subsection_id": subsectionID})
	if completed {
		ph.publisher.Publish(event.CourseCompleted, echo.Map{"course_id": courseID})
	}
	return c.JSON(http.StatusOK, cp)
}

// HandleSubmitQuiz grade a quiz submission and record the resulting score as
// the subsection's latest attempt
func (ph *ProgressHandler) HandleSubmitQuiz(c echo.Context) error {
	courseID := c.Param("id")
	subsectionID := c.Param("subsectionID")

	found, ok := ph.catalog.Course(courseID)
	if !ok {
		return c.JSON(http.StatusNotFound, infra.NewRESTStandardError(http.StatusNotFound, "No such course"))
	}
	ss, ok := found.Subsection(subsectionID)
	if !ok {
		return c.JSON(http.StatusNotFound, infra.NewRESTStandardError(http.StatusNotFound, "No such subsection"))
	}
	if ss.Kind() != course.KindQuiz {
		return c.JSON(http.StatusBadRequest, infra.NewRESTValidationError(http.StatusBadRequest, "Failed to validate params", []*validate.FieldError{
			validate.NewFieldError("subsectionID", "subsection is not a quiz"),
		}))
	}

	post := new(quizSubmission)
	if err := c.Bind(post); err != nil {
		internal := err.(*echo.HTTPError).Internal
		return c.JSON(http.StatusUnprocessableEntity,
			infra.NewRESTStandardError(http.StatusUnprocessableEntity, internal.Error()))
	}
	if errs := ph.validator.Struct(post); errs != nil {
		return c.JSON(http.StatusBadRequest,
			infra.NewRESTValidationError(http.StatusBadRequest, "Failed to validate fields", errs))
	}

	score, err := progress.ScoreQuiz(ss.Questions, post.Answers)
	if err != nil {
		return c.JSON(http.StatusBadRequest, infra.NewRESTStandardError(http.StatusBadRequest, err.Error()))
	}

	cp, completed, err := ph.store.RecordQuizScore(courseID, subsectionID, score)
	if err != nil {
		if errors.Is(err, progress.ErrScoreOutOfRange) {
			return c.JSON(http.StatusBadRequest, infra.NewRESTStandardError(http.StatusBadRequest, err.Error()))
		}
		return err
	}

	ph.publisher.Publish(event.QuizScored, echo.Map{
		"course_id":     courseID,
		"subsection_id": subsectionID,
		"score":         score,
	})
	if completed {
		ph.publisher.Publish(event.CourseCompleted, echo.Map{"course_id": courseID})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"score":    score,
		"passed":   score >= progress.PassThreshold,
		"progress": cp,
	})
}

// HandleClearProgress drop the record entirely, clearing twice is a no-op
func (ph *ProgressHandler) HandleClearProgress(c echo.Context) error {
	id := c.Param("id")
	if removed := ph.store.ClearProgress(id); removed {
		ph.publisher.Publish(event.ProgressCleared, echo.Map{"course_id": id})
	}
	return c.NoContent(http.StatusNoContent)
}
