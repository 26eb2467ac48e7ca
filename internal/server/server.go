package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"taskflow/internal/ai"
	"taskflow/internal/domain/errors"
	"taskflow/internal/domain/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// TaskRepository scopes every task operation by (id, userID) in one call.
// Ownership is never checked separately from the lookup.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id, userID string) (*models.Task, error)
	GetTasks(ctx context.Context, userID string, status models.Status, priority models.Priority) ([]models.Task, error)
	UpdateTask(ctx context.Context, id, userID string, task *models.Task) error
	DeleteTask(ctx context.Context, id, userID string) error
}

// TextGenerator is the external text-generation collaborator behind the
// suggestion endpoint.
type TextGenerator interface {
	Configured() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

type TaskAPI struct {
	httpSrv  *http.Server
	users    UserRepository
	tasks    TaskRepository
	sessions Sessions
	gen      TextGenerator
}

func NewTaskAPI(users UserRepository, tasks TaskRepository, sessions Sessions, gen TextGenerator, cfg *Config) *TaskAPI {
	if users == nil || tasks == nil || sessions == nil {
		return nil
	}
	if cfg == nil {
		cfg = &Config{Addr: defaultAddr, Port: defaultPort}
	}

	httpSrv := http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Addr, cfg.Port),
	}

	api := TaskAPI{
		httpSrv:  &httpSrv,
		users:    users,
		tasks:    tasks,
		sessions: sessions,
		gen:      gen,
	}

	api.configRoutes()

	return &api
}

func (api *TaskAPI) Start() error {
	if api.httpSrv == nil {
		return errors.ErrInternalServer
	}

	if api.httpSrv.Addr == "" {
		api.httpSrv.Addr = ":8080"
	}

	return api.httpSrv.ListenAndServe()
}

func (api *TaskAPI) Shutdown(ctx context.Context) error {
	if api.httpSrv == nil {
		return nil
	}
	return api.httpSrv.Shutdown(ctx)
}

func (api *TaskAPI) configRoutes() {
	router := gin.Default()
	router.Use(GzipRequestDecompress(), GzipResponseCompress())

	router.NoMethod(func(ctx *gin.Context) {
		ctx.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})
	router.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	auth := router.Group("/auth")
	{
		auth.POST("/register", api.register)
		auth.POST("/login", api.login)
		auth.POST("/logout", api.logout)
	}

	tasks := router.Group("/tasks", api.authRequired())
	{
		tasks.GET("", api.getTasks)
		tasks.GET(":taskID", api.getTaskByID)
		tasks.POST("", api.createTask)
		tasks.PUT(":taskID", api.updateTask)
		tasks.DELETE(":taskID", api.deleteTask)
	}

	aiGroup := router.Group("/ai", api.authRequired())
	{
		aiGroup.POST("/suggest", api.suggest)
	}

	api.httpSrv.Handler = router
}

func currentUserID(ctx *gin.Context) string {
	return ctx.GetString("userID")
}

func (api *TaskAPI) register(ctx *gin.Context) {
	var req models.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": validationErrorToErrorResponse(err).Error(), "details": err.Error()})
		return
	}

	existing, _ := api.users.GetUserByEmail(ctx.Request.Context(), req.Email)
	if existing != nil {
		ctx.JSON(http.StatusConflict, gin.H{"error": errors.ErrUserAlreadyExists.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		return
	}

	user := models.User{
		ID:       uuid.New().String(),
		Email:    req.Email,
		Name:     req.Name,
		Password: string(hash),
	}

	if err := api.users.CreateUser(ctx.Request.Context(), &user); err != nil {
		ctx.JSON(http.StatusConflict, gin.H{"error": errors.ErrUserAlreadyExists.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": user})
}

func (api *TaskAPI) login(ctx *gin.Context) {
	var req models.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrValidationFailed.Error(), "details": err.Error()})
		return
	}

	user, err := api.users.GetUserByEmail(ctx.Request.Context(), req.Email)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrInvalidCredentials.Error()})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errors.ErrInvalidCredentials.Error()})
		return
	}

	token, err := api.sessions.Issue(user.ID)
	if err != nil {
		log.Println("[ERROR] Failed to issue session token:", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		return
	}

	ctx.SetCookie(sessionCookie, token, int((24 * time.Hour).Seconds()), "/", "", false, true)
	ctx.JSON(http.StatusOK, gin.H{"message": "logged in successfully", "user": user})
}

func (api *TaskAPI) logout(ctx *gin.Context) {
	ctx.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	ctx.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

func (api *TaskAPI) getTasks(ctx *gin.Context) {
	userID := currentUserID(ctx)

	status := ctx.Query("status")
	if status != "" && !models.ValidStatus(status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidStatus.Error()})
		return
	}
	priority := ctx.Query("priority")
	if priority != "" && !models.ValidPriority(priority) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidPriority.Error()})
		return
	}

	tasks, err := api.tasks.GetTasks(ctx.Request.Context(), userID, models.Status(status), models.Priority(priority))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (api *TaskAPI) getTaskByID(ctx *gin.Context) {
	id := ctx.Param("taskID")
	task, err := api.tasks.GetTask(ctx.Request.Context(), id, currentUserID(ctx))
	if err != nil {
		if err == errors.ErrNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errors.ErrNotFound.Error()})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		}
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"task": task})
}

func (api *TaskAPI) createTask(ctx *gin.Context) {
	var req models.TaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": validationErrorToErrorResponse(err).Error(), "details": err.Error()})
		return
	}

	task, err := taskFromRequest(&req)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidDueDate.Error(), "details": err.Error()})
		return
	}
	task.UserID = currentUserID(ctx)

	if err := api.tasks.CreateTask(ctx.Request.Context(), task); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"task": task})
}

func (api *TaskAPI) updateTask(ctx *gin.Context) {
	id := ctx.Param("taskID")
	userID := currentUserID(ctx)

	// Existence and ownership first: a bad id wins over a bad payload.
	existing, err := api.tasks.GetTask(ctx.Request.Context(), id, userID)
	if err != nil {
		if err == errors.ErrNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errors.ErrNotFound.Error()})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		}
		return
	}

	var req models.TaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	valid := validator.New()
	if err := valid.Struct(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": validationErrorToErrorResponse(err).Error(), "details": err.Error()})
		return
	}

	task, err := taskFromRequest(&req)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidDueDate.Error(), "details": err.Error()})
		return
	}
	task.ID = existing.ID
	task.CreatedAt = existing.CreatedAt
	task.UserID = existing.UserID

	if err := api.tasks.UpdateTask(ctx.Request.Context(), id, userID, task); err != nil {
		if err == errors.ErrNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errors.ErrNotFound.Error()})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"task": task})
}

func (api *TaskAPI) deleteTask(ctx *gin.Context) {
	id := ctx.Param("taskID")
	if err := api.tasks.DeleteTask(ctx.Request.Context(), id, currentUserID(ctx)); err != nil {
		if err == errors.ErrNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errors.ErrNotFound.Error()})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrInternalServer.Error()})
		}
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "task deleted successfully"})
}

func (api *TaskAPI) suggest(ctx *gin.Context) {
	var req models.SuggestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Println("[ERROR] AI suggestion request body unreadable:", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrAISuggestFailed.Error()})
		return
	}

	if api.gen == nil || !api.gen.Configured() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": errors.ErrAINotConfigured.Error()})
		return
	}

	prompt := ai.BuildPrompt(req.TaskTitle, req.TaskDescription)
	text, err := api.gen.Generate(ctx.Request.Context(), prompt)
	if err != nil {
		log.Println("[ERROR] AI suggestion failed:", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errors.ErrAISuggestFailed.Error()})
		return
	}

	suggestion, ok := ai.ParseSuggestion(text)
	if !ok {
		suggestion = ai.FallbackSuggestion(text)
	}

	ctx.JSON(http.StatusOK, gin.H{"suggestions": suggestion})
}

// taskFromRequest converts a validated payload into a Task, applying the
// documented defaults. ID, CreatedAt and UserID are left for the caller.
func taskFromRequest(req *models.TaskRequest) (*models.Task, error) {
	task := &models.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.StatusTodo,
		Priority:    models.PriorityMedium,
		Tags:        []string{},
	}
	if req.Status != "" {
		task.Status = models.Status(req.Status)
	}
	if req.Priority != "" {
		task.Priority = models.Priority(req.Priority)
	}
	if req.Tags != nil {
		task.Tags = req.Tags
	}
	if req.DueDate != "" {
		due, err := parseDueDate(req.DueDate)
		if err != nil {
			return nil, err
		}
		task.DueDate = due
	}
	return task, nil
}

func parseDueDate(value string) (*time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, errors.ErrInvalidDueDate
}

func validationErrorToErrorResponse(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, verr := range verrs {
			switch verr.Field() {
			case "Email":
				return errors.ErrInvalidEmail
			case "Name":
				return errors.ErrInvalidName
			case "Password":
				return errors.ErrInvalidPassword
			case "Title":
				return errors.ErrInvalidTitle
			case "Description":
				return errors.ErrInvalidDescription
			case "Status":
				return errors.ErrInvalidStatus
			case "Priority":
				return errors.ErrInvalidPriority
			case "DueDate":
				return errors.ErrInvalidDueDate
			case "Tags":
				return errors.ErrInvalidTags
			}
		}
	}
	return errors.ErrValidationFailed
}
