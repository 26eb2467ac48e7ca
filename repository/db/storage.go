package db

import (
	"context"
	"log"
	"time"

	"taskflow/internal/domain/errors"
	"taskflow/internal/domain/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Storage struct {
	conn               *pgx.Conn
	prepCreateTask     string
	prepGetTask        string
	prepGetTasks       string
	prepUpdateTask     string
	prepDeleteTask     string
	prepCreateUser     string
	prepGetUserByID    string
	prepGetUserByEmail string
}

func NewStorage(connStr string) (*Storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		log.Println("[ERROR] Failed to connect to the database:", err)
		return nil, err
	}

	s := &Storage{
		conn:           conn,
		prepCreateTask: `INSERT INTO tasks (id, title, description, status, priority, due_date, tags, created_at, user_id) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		prepGetTask:    `SELECT id, title, description, status, priority, due_date, tags, created_at, user_id FROM tasks WHERE id = $1 AND user_id = $2`,
		prepGetTasks: `SELECT id, title, description, status, priority, due_date, tags, created_at, user_id FROM tasks
			WHERE user_id = $1 AND ($2 = '' OR status = $2) AND ($3 = '' OR priority = $3) ORDER BY created_at DESC`,
		prepUpdateTask:     `UPDATE tasks SET title = $1, description = $2, status = $3, priority = $4, due_date = $5, tags = $6 WHERE id = $7 AND user_id = $8`,
		prepDeleteTask:     `DELETE FROM tasks WHERE id = $1 AND user_id = $2`,
		prepCreateUser:     `INSERT INTO users (id, email, name, password) VALUES ($1, $2, $3, $4)`,
		prepGetUserByID:    `SELECT id, email, name, password FROM users WHERE id = $1`,
		prepGetUserByEmail: `SELECT id, email, name, password FROM users WHERE email = $1`,
	}
	log.Println("[SUCCESS] Database connection established")
	return s, nil
}

func (s *Storage) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	task.ID = uuid.New().String()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	stmt, err := s.conn.Prepare(ctx, "create_task", s.prepCreateTask)
	if err != nil {
		log.Println("[ERROR] Failed to prepare the create task query:", err)
		return err
	}
	_, err = s.conn.Exec(ctx, stmt.Name, task.ID, task.Title, task.Description, string(task.Status), string(task.Priority), task.DueDate, task.Tags, task.CreatedAt, task.UserID)
	if err != nil {
		log.Println("[ERROR] Failed to create task:", err)
		return err
	}
	log.Println("[SUCCESS] Task created:", task.ID)
	return nil
}

func (s *Storage) GetTask(ctx context.Context, id, userID string) (*models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "get_task", s.prepGetTask)
	if err != nil {
		log.Println("[ERROR] Failed to prepare the get task query:", err)
		return nil, err
	}
	row := s.conn.QueryRow(ctx, stmt.Name, id, userID)
	task := &models.Task{}
	if err := scanTask(row, task); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		log.Println("[ERROR] Failed to fetch task:", err)
		return nil, err
	}
	return task, nil
}

func (s *Storage) GetTasks(ctx context.Context, userID string, status models.Status, priority models.Priority) ([]models.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "get_tasks", s.prepGetTasks)
	if err != nil {
		log.Println("[ERROR] Failed to prepare the list tasks query:", err)
		return nil, err
	}
	rows, err := s.conn.Query(ctx, stmt.Name, userID, string(status), string(priority))
	if err != nil {
		log.Println("[ERROR] Failed to list tasks:", err)
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task := models.Task{}
		if err := scanTask(rows, &task); err != nil {
			log.Println("[ERROR] Failed to read task row:", err)
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	log.Println("[SUCCESS] Tasks fetched:", len(tasks))
	return tasks, nil
}

func (s *Storage) UpdateTask(ctx context.Context, id, userID string, task *models.Task) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "update_task", s.prepUpdateTask)
	if err != nil {
		log.Println("[ERROR] Failed to prepare the update task query:", err)
		return err
	}
	ct, err := s.conn.Exec(ctx, stmt.Name, task.Title, task.Description, string(task.Status), string(task.Priority), task.DueDate, task.Tags, id, userID)
	if err != nil {
		log.Println("[ERROR] Failed to update task:", err)
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrNotFound
	}
	log.Println("[SUCCESS] Task updated:", id)
	return nil
}

func (s *Storage) DeleteTask(ctx context.Context, id, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "delete_task", s.prepDeleteTask)
	if err != nil {
		log.Println("[ERROR] Failed to prepare the delete task query:", err)
		return err
	}
	ct, err := s.conn.Exec(ctx, stmt.Name, id, userID)
	if err != nil {
		log.Println("[ERROR] Failed to delete task:", err)
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrNotFound
	}
	log.Println("[SUCCESS] Task deleted:", id)
	return nil
}

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "create_user", s.prepCreateUser)
	if err != nil {
		log.Println("[ERROR] Failed to prepare the create user query:", err)
		return err
	}
	_, err = s.conn.Exec(ctx, stmt.Name, user.ID, user.Email, user.Name, user.Password)
	if err != nil {
		log.Println("[ERROR] Failed to create user:", err)
		return errors.ErrUserAlreadyExists
	}
	log.Println("[SUCCESS] User created:", user.ID)
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "get_user_by_id", s.prepGetUserByID)
	if err != nil {
		log.Println("[ERROR] Failed to prepare the get user query:", err)
		return nil, err
	}
	row := s.conn.QueryRow(ctx, stmt.Name, id)
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Password); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrUserNotFound
		}
		log.Println("[ERROR] Failed to fetch user:", err)
		return nil, err
	}
	return user, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	stmt, err := s.conn.Prepare(ctx, "get_user_by_email", s.prepGetUserByEmail)
	if err != nil {
		log.Println("[ERROR] Failed to prepare the get user by email query:", err)
		return nil, err
	}
	row := s.conn.QueryRow(ctx, stmt.Name, email)
	user := &models.User{}
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Password); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrUserNotFound
		}
		log.Println("[ERROR] Failed to fetch user:", err)
		return nil, err
	}
	return user, nil
}

func scanTask(row pgx.Row, task *models.Task) error {
	var status, priority string
	if err := row.Scan(&task.ID, &task.Title, &task.Description, &status, &priority, &task.DueDate, &task.Tags, &task.CreatedAt, &task.UserID); err != nil {
		return err
	}
	task.Status = models.Status(status)
	task.Priority = models.Priority(priority)
	if task.Tags == nil {
		task.Tags = []string{}
	}
	return nil
}
