package validation

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/taskflow/taskflow/internal/model"
	"github.com/taskflow/taskflow/internal/service"
)

// dueDateLayouts are tried in order when parsing due_date.
var dueDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type createTaskBody struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Status      string `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate     string `json:"due_date"`
	UserID      *int64 `json:"user_id" validate:"omitempty,min=1"`
}

// CreateTask validates a task creation body.
func CreateTask(data []byte) (service.CreateTaskInput, error) {
	var body createTaskBody
	if err := decodeBody(data, &body); err != nil {
		return service.CreateTaskInput{}, err
	}

	problems, err := violations(&body)
	if err != nil {
		return service.CreateTaskInput{}, err
	}
	due := parseDueDate(body.DueDate, &problems)
	if len(problems) > 0 {
		return service.CreateTaskInput{}, newError(problems...)
	}

	return service.CreateTaskInput{
		Title:       strings.TrimSpace(body.Title),
		Description: body.Description,
		Status:      model.TaskStatus(body.Status),
		Priority:    model.TaskPriority(body.Priority),
		DueDate:     due,
		UserID:      body.UserID,
	}, nil
}

type updateTaskBody struct {
	Title       *string          `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	Status      *string          `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	Priority    *string          `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueDate     nullable[string] `json:"due_date"`
	UserID      nullable[int64]  `json:"user_id"`
}

// UpdateTask validates a partial task update. An explicit null for
// due_date or user_id clears it; an absent field leaves it unchanged.
func UpdateTask(data []byte) (service.UpdateTaskInput, error) {
	var body updateTaskBody
	if err := decodeBody(data, &body); err != nil {
		return service.UpdateTaskInput{}, err
	}

	problems, err := violations(&body)
	if err != nil {
		return service.UpdateTaskInput{}, err
	}

	input := service.UpdateTaskInput{
		Title:       body.Title,
		Description: body.Description,
	}
	if body.Title != nil {
		title := strings.TrimSpace(*body.Title)
		input.Title = &title
	}
	if body.Status != nil {
		status := model.TaskStatus(*body.Status)
		input.Status = &status
	}
	if body.Priority != nil {
		priority := model.TaskPriority(*body.Priority)
		input.Priority = &priority
	}
	if body.DueDate.Set {
		if body.DueDate.Value != nil {
			input.DueDate = parseDueDate(*body.DueDate.Value, &problems)
		}
		input.ClearDueDate = input.DueDate == nil && len(problems) == 0
	}
	if body.UserID.Set {
		switch id := body.UserID.Value; {
		case id == nil:
			input.UnassignUser = true
		case *id < 1:
			problems = append(problems, "user_id must be at least 1")
		default:
			input.UserID = id
		}
	}

	if len(problems) > 0 {
		return service.UpdateTaskInput{}, newError(problems...)
	}
	return input, nil
}

type taskListQuery struct {
	Status    string `schema:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	Priority  string `schema:"priority" validate:"omitempty,oneof=low medium high urgent"`
	UserID    string `schema:"userId" validate:"omitempty,digits"`
	Page      string `schema:"page" validate:"omitempty,digits"`
	Limit     string `schema:"limit" validate:"omitempty,digits"`
	SortBy    string `schema:"sortBy" validate:"omitempty,oneof=title status priority due_date created_at"`
	SortOrder string `schema:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// TaskList validates the GET /tasks query string.
func TaskList(values url.Values) (service.ListTasksInput, error) {
	var q taskListQuery
	if err := decodeQuery(values, &q); err != nil {
		return service.ListTasksInput{}, err
	}
	if err := check(&q); err != nil {
		return service.ListTasksInput{}, err
	}

	input := service.ListTasksInput{
		Status:    model.TaskStatus(q.Status),
		Priority:  model.TaskPriority(q.Priority),
		Page:      atoi(q.Page),
		Limit:     atoi(q.Limit),
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	}
	if q.UserID != "" {
		id, err := strconv.ParseInt(q.UserID, 10, 64)
		if err != nil || id <= 0 {
			return service.ListTasksInput{}, newError("userId must be a positive integer")
		}
		input.UserID = &id
	}

	return input, nil
}

// parseDueDate accepts the layouts in dueDateLayouts. An empty value means no due date.
// A value in no known layout adds a message to problems.
func parseDueDate(raw string, problems *[]string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	*problems = append(*problems, "due_date must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
	return nil
}
