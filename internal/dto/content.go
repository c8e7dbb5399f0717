package dto

import (
	"github.com/yukikurage/project-board-api/internal/models"
	"github.com/yukikurage/project-board-api/internal/utils"
)

// TaskListResponse represents a list of calendar tasks
type TaskListResponse struct {
	Tasks []models.Task `json:"tasks"`
	Count int           `json:"count"`
}

// NoteListResponse represents a page of notes
type NoteListResponse struct {
	Notes      []models.Note            `json:"notes"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// LinkListResponse represents a page of links
type LinkListResponse struct {
	Links      []models.Link            `json:"links"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

func ToTaskListResponse(tasks []models.Task) TaskListResponse {
	if tasks == nil {
		tasks = []models.Task{}
	}
	return TaskListResponse{Tasks: tasks, Count: len(tasks)}
}

func ToNoteListResponse(notes []models.Note, params utils.PaginationParams, total int64) NoteListResponse {
	if notes == nil {
		notes = []models.Note{}
	}
	return NoteListResponse{
		Notes:      notes,
		Pagination: utils.PaginationResponse{Page: params.Page, Limit: params.Limit, Total: total},
	}
}

func ToLinkListResponse(links []models.Link, params utils.PaginationParams, total int64) LinkListResponse {
	if links == nil {
		links = []models.Link{}
	}
	return LinkListResponse{
		Links:      links,
		Pagination: utils.PaginationResponse{Page: params.Page, Limit: params.Limit, Total: total},
	}
}
