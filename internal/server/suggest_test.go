package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskflow/internal/ai"
	"taskflow/internal/domain/errors"
	"taskflow/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSuggest(t *testing.T) {
	tests := []struct {
		name string
		body string
		want struct {
			statusCode  int
			description string
			priority    string
		}
		mockSetup func(*MockTextGenerator)
	}{
		{
			name: "parsed suggestion returned verbatim",
			body: `{"taskTitle":"Write report","taskDescription":"Quarterly numbers"}`,
			want: struct {
				statusCode  int
				description string
				priority    string
			}{
				statusCode:  200,
				description: "Summarize Q3 figures",
				priority:    "HIGH",
			},
			mockSetup: func(mockGen *MockTextGenerator) {
				mockGen.On("Configured").Return(true)
				mockGen.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
					return bytes.Contains([]byte(prompt), []byte("Write report")) &&
						bytes.Contains([]byte(prompt), []byte("Quarterly numbers"))
				})).Return(`{"description":"Summarize Q3 figures","priority":"HIGH","subtasks":["gather data"],"tags":["finance"]}`, nil)
			},
		},
		{
			name: "non-JSON reply falls back to raw text",
			body: `{"taskTitle":"Write report"}`,
			want: struct {
				statusCode  int
				description string
				priority    string
			}{
				statusCode:  200,
				description: "Here are some thoughts on your task...",
				priority:    string(models.PriorityMedium),
			},
			mockSetup: func(mockGen *MockTextGenerator) {
				mockGen.On("Configured").Return(true)
				mockGen.On("Generate", mock.Anything, mock.Anything).Return("Here are some thoughts on your task...", nil)
			},
		},
		{
			name: "generator failure",
			body: `{"taskTitle":"Write report"}`,
			want: struct {
				statusCode  int
				description string
				priority    string
			}{
				statusCode: 500,
			},
			mockSetup: func(mockGen *MockTextGenerator) {
				mockGen.On("Configured").Return(true)
				mockGen.On("Generate", mock.Anything, mock.Anything).Return("", errors.ErrInternalServer)
			},
		},
		{
			name: "not configured",
			body: `{"taskTitle":"Write report"}`,
			want: struct {
				statusCode  int
				description string
				priority    string
			}{
				statusCode: 503,
			},
			mockSetup: func(mockGen *MockTextGenerator) {
				mockGen.On("Configured").Return(false)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockUserRepository{}
			mockTaskRepo := &MockTaskRepository{}
			mockGen := &MockTextGenerator{}
			tt.mockSetup(mockGen)

			api := newTestAPI(mockRepo, mockTaskRepo, mockGen)

			req, _ := http.NewRequest("POST", "/ai/suggest", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.AddCookie(sessionCookieFor(t, "user123"))

			w := httptest.NewRecorder()
			api.httpSrv.Handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want.statusCode, w.Code)

			if tt.want.statusCode == 200 {
				var resp struct {
					Suggestions ai.Suggestion `json:"suggestions"`
				}
				assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.want.description, resp.Suggestions.Description)
				assert.Equal(t, tt.want.priority, resp.Suggestions.Priority)
				assert.NotNil(t, resp.Suggestions.Subtasks)
				assert.NotNil(t, resp.Suggestions.Tags)
			} else {
				assert.Contains(t, w.Body.String(), "error")
			}

			// A 503 must not reach the generator.
			mockGen.AssertExpectations(t)
			if tt.want.statusCode == 503 {
				mockGen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
			}
		})
	}
}
