package http

import (
	"github.com/labstack/echo/v4"
	infra "github.com/vlab-edu/vlab-backend/internal/infrastructure"
)

func v1Endpoint(
	feed *ProgressFeed,
	UserHandler *UserHandler,
	CourseHandler *CourseHandler,
	ProgressHandler *ProgressHandler,
	jwtMiddleware echo.MiddlewareFunc,
	refreshMiddleware echo.MiddlewareFunc,
	requestIDMiddleware echo.MiddlewareFunc,
	traceLoggerMiddleware echo.MiddlewareFunc,
) *endpoint {
	return &endpoint{
		apiVersion:  "api/v1",
		middlewares: []echo.MiddlewareFunc{requestIDMiddleware, traceLoggerMiddleware},
		groups: []*apiGroup{
			{
				prefix: "/user",
				routes: []*route{
					{"POST", "/login", UserHandler.HandleSignIn, nil},
					{"PUT", "/sign-out", UserHandler.HandleSignOut, nil},
					{"POST", "/sign-up", UserHandler.HandleSignUp, nil},
					{"GET", "/exists", UserHandler.HandleUserExists, nil},
				},
			},
			{
				prefix: "/course",
				routes: []*route{
					{"GET", "/", CourseHandler.HandleListCourses, nil},
					{"GET", "/:id", CourseHandler.HandleGetCourse, nil},
				},
			},
			{
				prefix:      "/progress",
				middlewares: []echo.MiddlewareFunc{jwtMiddleware, refreshMiddleware},
				routes: []*route{
					{"GET", "/", ProgressHandler.HandleGetCollection, nil},
					{"GET", "/course/:id", ProgressHandler.HandleGetCourseProgress, nil},
					{"POST", "/course/:id/open", ProgressHandler.HandleOpenCourse, nil},
					{"POST", "/course/:id/lesson/:subsectionID/complete", ProgressHandler.HandleCompleteLesson, nil},
					{"POST", "/course/:id/quiz/:subsectionID/submit", ProgressHandler.HandleSubmitQuiz, nil},
					{"DELETE", "/course/:id", ProgressHandler.HandleClearProgress, nil},
				},
			},
			{
				prefix:      "/ws",
				middlewares: []echo.MiddlewareFunc{jwtMiddleware},
				routes: []*route{
					{"GET", "/progress", infra.WithHeartbeat(feed.Handle), nil},
				},
			},
		},
	}
}
