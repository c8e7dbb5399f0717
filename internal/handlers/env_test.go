package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yukikurage/project-board-api/internal/constants"
	"github.com/yukikurage/project-board-api/internal/database"
	"github.com/yukikurage/project-board-api/internal/dto"
	"github.com/yukikurage/project-board-api/internal/repository"
	"github.com/yukikurage/project-board-api/internal/services"
)

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine

	boardService *services.BoardService
}

// user is a signed-in test user.
type user struct {
	id      uint64
	cookies []*http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db, zap.NewNop()))

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	boardRepo := repository.NewBoardRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	linkRepo := repository.NewLinkRepository(db)

	projectService := services.NewProjectService(projectRepo)
	boardService := services.NewBoardService(boardRepo, projectRepo, nil, nil, nil)

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	RegisterRoutes(r, Handlers{
		Health:    NewHealthHandler(db, nil),
		Auth:      NewAuthHandler(services.NewAuthService(userRepo)),
		Project:   NewProjectHandler(projectService, boardService),
		Board:     NewBoardHandler(boardService, nil, nil),
		Task:      NewTaskHandler(services.NewTaskService(taskRepo, nil), nil),
		Content:   NewContentHandler(services.NewContentService(noteRepo, linkRepo)),
		Dashboard: NewDashboardHandler(services.NewDashboardService(taskRepo, boardRepo, noteRepo, linkRepo)),
	}, projectService)

	return &testEnv{t: t, db: db, router: r, boardService: boardService}
}

func (e *testEnv) do(method, path string, body any, as *user) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		for _, c := range as.cookies {
			req.AddCookie(c)
		}
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signup registers and logs in a user.
func (e *testEnv) signup(email string) *user {
	e.t.Helper()

	w := e.do(http.MethodPost, "/api/auth/signup", map[string]string{
		"email":    email,
		"password": "supersecret",
	}, nil)
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.UserDTO](e.t, w)

	w = e.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": "supersecret",
	}, nil)
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	require.NotEmpty(e.t, w.Result().Cookies(), "expected session cookie to be set")

	return &user{id: created.ID, cookies: w.Result().Cookies()}
}

func (e *testEnv) createProject(owner *user, name string) dto.ProjectDTO {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/projects", map[string]string{"name": name}, owner)
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.ProjectDTO](e.t, w)
}

func (e *testEnv) board(as *user, projectID uint64) dto.BoardResponse {
	e.t.Helper()
	w := e.do(http.MethodGet, projectPath(projectID, "/board"), nil, as)
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	return decode[dto.BoardResponse](e.t, w)
}

func projectPath(projectID uint64, suffix string) string {
	return fmt.Sprintf("/api/projects/%d%s", projectID, suffix)
}

func itoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type apiError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}
