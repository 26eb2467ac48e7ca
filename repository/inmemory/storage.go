package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskflow/internal/domain/errors"
	"taskflow/internal/domain/models"

	"github.com/google/uuid"
)

// Storage is a map-backed repository used when no database is reachable
// and as a test double. Safe for concurrent use.
type Storage struct {
	mu    sync.RWMutex
	users map[string]models.User
	tasks map[string]models.Task
}

func NewStorage() *Storage {
	return &Storage{
		users: make(map[string]models.User),
		tasks: make(map[string]models.Task),
	}
}

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return errors.ErrUserAlreadyExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, exists := s.users[id]
	if !exists {
		return nil, errors.ErrUserNotFound
	}
	return &user, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.ID = uuid.New().String()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	s.tasks[task.ID] = copyTask(task)
	return nil
}

func (s *Storage) GetTask(ctx context.Context, id, userID string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, exists := s.tasks[id]
	if !exists || task.UserID != userID {
		return nil, errors.ErrNotFound
	}
	t := copyTask(&task)
	return &t, nil
}

func (s *Storage) GetTasks(ctx context.Context, userID string, status models.Status, priority models.Priority) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := []models.Task{}
	for _, t := range s.tasks {
		if t.UserID != userID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		if priority != "" && t.Priority != priority {
			continue
		}
		tasks = append(tasks, copyTask(&t))
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *Storage) UpdateTask(ctx context.Context, id, userID string, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, exists := s.tasks[id]
	if !exists || existing.UserID != userID {
		return errors.ErrNotFound
	}
	task.ID = id
	task.UserID = existing.UserID
	task.CreatedAt = existing.CreatedAt
	if task.Tags == nil {
		task.Tags = []string{}
	}
	s.tasks[id] = copyTask(task)
	return nil
}

func (s *Storage) DeleteTask(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, exists := s.tasks[id]
	if !exists || existing.UserID != userID {
		return errors.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func copyTask(task *models.Task) models.Task {
	t := *task
	t.Tags = append([]string{}, task.Tags...)
	if task.DueDate != nil {
		due := *task.DueDate
		t.DueDate = &due
	}
	return t
}
