package jibble

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/dakoku/internal/model"
)

// Person はJibbleの人物レコードを表す。
type Person struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// timeEntryPayload はJibbleの打刻エントリのワイヤ形式。
type timeEntryPayload struct {
	ID    string     `json:"id"`
	Start time.Time  `json:"startTime"`
	End   *time.Time `json:"endTime,omitempty"`
}

// projectPayload はJibbleのプロジェクトのワイヤ形式。
type projectPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListPeople はワークスペースの人物一覧を取得する。
func (c *Client) ListPeople(ctx context.Context) ([]Person, error) {
	body, err := c.do(ctx, request{
		operation:  "list_people",
		method:     http.MethodGet,
		candidates: []string{"/People", "/people", "/members"},
	})
	if err != nil {
		return nil, err
	}

	var people []Person
	if err := decodeCollection(body, &people); err != nil {
		return nil, err
	}
	return people, nil
}

// ListProjects はプロジェクト一覧を取得する。
func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	body, err := c.do(ctx, request{
		operation:  "list_projects",
		method:     http.MethodGet,
		candidates: []string{"/Projects", "/projects"},
	})
	if err != nil {
		return nil, err
	}

	var payloads []projectPayload
	if err := decodeCollection(body, &payloads); err != nil {
		return nil, err
	}

	projects := make([]model.Project, len(payloads))
	for i, p := range payloads {
		projects[i] = model.Project{ID: p.ID, Name: p.Name}
	}
	return projects, nil
}

// ListTimeEntries は指定人物の打刻エントリを期間指定で取得する。
// 返却順はJibble側の実装依存であり、ソートは呼び出し側の責務とする。
func (c *Client) ListTimeEntries(ctx context.Context, personID string, from, to time.Time) ([]model.TimeEntry, error) {
	query := url.Values{
		"personId": {personID},
		"from":     {from.Format(time.RFC3339)},
		"to":       {to.Format(time.RFC3339)},
	}

	body, err := c.do(ctx, request{
		operation:  "list_time_entries",
		method:     http.MethodGet,
		candidates: []string{"/TimeEntries", "/time-entries", "/timesheets/entries"},
		query:      query,
	})
	if err != nil {
		return nil, err
	}

	var payloads []timeEntryPayload
	if err := decodeCollection(body, &payloads); err != nil {
		return nil, err
	}

	entries := make([]model.TimeEntry, len(payloads))
	for i, p := range payloads {
		entries[i] = model.TimeEntry{ID: p.ID, Start: p.Start, End: p.End}
	}
	return entries, nil
}

// clockRequest はクロックイン/アウトのリクエストボディ。
type clockRequest struct {
	PersonID  string `json:"personId"`
	ProjectID string `json:"projectId,omitempty"`
	Note      string `json:"note,omitempty"`
}

// ClockIn は指定人物のクロックインを実行する。
// 成功時はJibbleのレスポンス本文をそのまま返す（監査ログ用）。
func (c *Client) ClockIn(ctx context.Context, personID, projectID, note string) ([]byte, error) {
	return c.do(ctx, request{
		operation:  "clock_in",
		method:     http.MethodPost,
		candidates: []string{"/TimeEntries/clockIn", "/time-entries/clock-in", "/clock-in"},
		body:       clockRequest{PersonID: personID, ProjectID: projectID, Note: note},
	})
}

// ClockOut は指定人物のクロックアウトを実行する。
// 成功時はJibbleのレスポンス本文をそのまま返す（監査ログ用）。
func (c *Client) ClockOut(ctx context.Context, personID string) ([]byte, error) {
	return c.do(ctx, request{
		operation:  "clock_out",
		method:     http.MethodPost,
		candidates: []string{"/TimeEntries/clockOut", "/time-entries/clock-out", "/clock-out"},
		body:       clockRequest{PersonID: personID},
	})
}
