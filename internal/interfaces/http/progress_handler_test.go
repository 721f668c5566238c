package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/vlab-edu/vlab-backend/internal/course"
	"github.com/vlab-edu/vlab-backend/internal/infrastructure/validate"
	"github.com/vlab-edu/vlab-backend/internal/progress"
	"go.uber.org/zap"
)

func handlerFixture(t *testing.T) (*ProgressHandler, *progress.Store) {
	t.Helper()
	catalog, err := course.NewCatalog([]course.Course{
		{
			ID: "c1",
			Sections: []course.Section{
				{
					ID: "s1",
					Subsections: []course.Subsection{
						{ID: "ss1", DurationMinutes: 5},
						{ID: "ss2", QuestionCount: 2, Questions: []course.Question{
							{ID: "1", CorrectAnswer: 0},
							{ID: "2", CorrectAnswer: 1},
						}},
					},
				},
			},
		},
		{ID: "c2", Sections: []course.Section{}},
	})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	store := progress.NewStore(catalog, zap.NewNop())
	return NewProgressHandler(store, catalog, nil, validate.NewValidator()), store
}

func jsonRequest(method, target, body string) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return req, httptest.NewRecorder()
}

func TestHandleOpenCourse(t *testing.T) {
	handler, _ := handlerFixture(t)
	app := echo.New()

	req, rec := jsonRequest(http.MethodPost, "/", "")
	c := app.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("c1")
	if err := handler.HandleOpenCourse(c); err != nil {
		t.Fatalf("HandleOpenCourse() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	var cp progress.CourseProgress
	if err := json.Unmarshal(rec.Body.Bytes(), &cp); err != nil {
		t.Fatalf("response is not a progress record: %v", err)
	}
	if cp.CourseID != "c1" || cp.IsCompleted {
		t.Errorf("unexpected record %+v", cp)
	}

	// unknown course
	req, rec = jsonRequest(http.MethodPost, "/", "")
	c = app.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("404")
	if err := handler.HandleOpenCourse(c); err != nil {
		t.Fatalf("HandleOpenCourse() error = %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleCompleteLesson(t *testing.T) {
	handler, _ := handlerFixture(t)
	app := echo.New()

	cases := []struct {
		name         string
		courseID     string
		subsectionID string
		wantStatus   int
	}{
		{"content subsection", "c1", "ss1", http.StatusOK},
		{"quiz subsection rejected", "c1", "ss2", http.StatusBadRequest},
		{"unknown subsection", "c1", "nope", http.StatusNotFound},
		{"unknown course", "404", "ss1", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, rec := jsonRequest(http.MethodPost, "/", "")
			c := app.NewContext(req, rec)
			c.SetParamNames("id", "subsectionID")
			c.SetParamValues(tc.courseID, tc.subsectionID)
			if err := handler.HandleCompleteLesson(c); err != nil {
				t.Fatalf("HandleCompleteLesson() error = %v", err)
			}
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestHandleSubmitQuiz(t *testing.T) {
	handler, store := handlerFixture(t)
	app := echo.New()
	store.CompleteLesson("c1", "ss1")

	req, rec := jsonRequest(http.MethodPost, "/", `{"answers":{"1":0,"2":1}}`)
	c := app.NewContext(req, rec)
	c.SetParamNames("id", "subsectionID")
	c.SetParamValues("c1", "ss2")
	if err := handler.HandleSubmitQuiz(c); err != nil {
		t.Fatalf("HandleSubmitQuiz() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var out struct {
		Score    float64                  `json:"score"`
		Passed   bool                     `json:"passed"`
		Progress *progress.CourseProgress `json:"progress"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unexpected response shape: %v", err)
	}
	if out.Score != 100 || !out.Passed {
		t.Errorf("score = %v passed = %v, want a full passing score", out.Score, out.Passed)
	}
	if !out.Progress.IsCompleted {
		t.Error("course should be complete after the last quiz passes")
	}

	// missing answers field fails validation
	req, rec = jsonRequest(http.MethodPost, "/", `{}`)
	c = app.NewContext(req, rec)
	c.SetParamNames("id", "subsectionID")
	c.SetParamValues("c1", "ss2")
	if err := handler.HandleSubmitQuiz(c); err != nil {
		t.Fatalf("HandleSubmitQuiz() error = %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	// content subsection rejected
	req, rec = jsonRequest(http.MethodPost, "/", `{"answers":{}}`)
	c = app.NewContext(req, rec)
	c.SetParamNames("id", "subsectionID")
	c.SetParamValues("c1", "ss1")
	if err := handler.HandleSubmitQuiz(c); err != nil {
		t.Fatalf("HandleSubmitQuiz() error = %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleClearProgress(t *testing.T) {
	handler, store := handlerFixture(t)
	app := echo.New()
	store.OpenCourse("c1")

	req, rec := jsonRequest(http.MethodDelete, "/", "")
	c := app.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("c1")
	if err := handler.HandleClearProgress(c); err != nil {
		t.Fatalf("HandleClearProgress() error = %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if _, ok := store.CourseProgress("c1"); ok {
		t.Error("record should be gone after clear")
	}

	// clearing again stays 204
	req, rec = jsonRequest(http.MethodDelete, "/", "")
	c = app.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("c1")
	if err := handler.HandleClearProgress(c); err != nil {
		t.Fatalf("HandleClearProgress() error = %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestHandleGetCourseProgress(t *testing.T) {
	handler, store := handlerFixture(t)
	app := echo.New()

	req, rec := jsonRequest(http.MethodGet, "/", "")
	c := app.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("c1")
	if err := handler.HandleGetCourseProgress(c); err != nil {
		t.Fatalf("HandleGetCourseProgress() error = %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 before the course is opened", rec.Code)
	}

	store.OpenCourse("c1")
	req, rec = jsonRequest(http.MethodGet, "/", "")
	c = app.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("c1")
	if err := handler.HandleGetCourseProgress(c); err != nil {
		t.Fatalf("HandleGetCourseProgress() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
