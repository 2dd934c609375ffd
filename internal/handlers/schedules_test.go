package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"pumpcontrol/internal/models"
	"pumpcontrol/internal/service"

	"github.com/gin-gonic/gin"
)

func newScheduleRouter(sched *mockScheduler) *gin.Engine {
	return newTestRouter(&service.Service{
		Authorization: &mockAuth{parseID: 1},
		Scheduler:     sched,
	})
}

// Collection routes must answer on the slash-free path directly, not via
// gin's trailing-slash redirect.
func TestCollectionRoutes_ServedWithoutTrailingSlash(t *testing.T) {
	r := newTestRouter(&service.Service{
		Authorization: &mockAuth{parseID: 1},
		Scheduler:     &mockScheduler{},
		Telemetry:     &mockTelemetry{},
		EventLog:      &mockEventLog{},
	})

	cases := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/api/v1/schedules", `{"start_time":"06:30","duration_minutes":5}`},
		{http.MethodGet, "/api/v1/schedules", ""},
		{http.MethodPost, "/api/v1/telemetry", `{"temp":22.5}`},
		{http.MethodGet, "/api/v1/telemetry", ""},
		{http.MethodGet, "/api/v1/events", ""},
	}
	for _, tc := range cases {
		w := perform(r, tc.method, tc.path, tc.body)
		if w.Code == http.StatusMovedPermanently || w.Code == http.StatusTemporaryRedirect {
			t.Fatalf("%s %s: got redirect %d, want direct handler response", tc.method, tc.path, w.Code)
		}
		if w.Code >= 500 {
			t.Fatalf("%s %s: got %d (body=%s)", tc.method, tc.path, w.Code, w.Body.String())
		}
	}
}

func TestSubmitSchedule(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		sched    *mockScheduler
		wantCode int
	}{
		{
			name: "created",
			body: `{"start_time":"06:30","duration_minutes":5,"repeat_count":2}`,
			sched: &mockScheduler{submitResp: models.ScheduleEntry{
				ID: "e-1", StartTime: "06:30", DurationMinutes: 5, RepeatCount: 2,
			}},
			wantCode: http.StatusCreated,
		},
		{
			name:     "invalid start time",
			body:     `{"start_time":"sometime","duration_minutes":5}`,
			sched:    &mockScheduler{submitErr: service.ErrInvalidStartTime},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "invalid duration",
			body:     `{"start_time":"06:30","duration_minutes":-1}`,
			sched:    &mockScheduler{submitErr: service.ErrInvalidDuration},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing fields rejected by binding",
			body:     `{}`,
			sched:    &mockScheduler{},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "persistence failure",
			body:     `{"start_time":"06:30","duration_minutes":5}`,
			sched:    &mockScheduler{submitErr: errors.New("disk full")},
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newScheduleRouter(tc.sched)
			w := perform(r, http.MethodPost, "/api/v1/schedules", tc.body)

			if w.Code != tc.wantCode {
				t.Fatalf("status: got %d, want %d (body=%s)", w.Code, tc.wantCode, w.Body.String())
			}
			if tc.wantCode == http.StatusCreated {
				var resp struct {
					Entry models.ScheduleEntry `json:"entry"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshal: %v", err)
				}
				if resp.Entry.ID != "e-1" {
					t.Fatalf("unexpected entry: %+v", resp.Entry)
				}
				if tc.sched.lastSubmitted.StartTime != "06:30" {
					t.Fatalf("service saw %+v", tc.sched.lastSubmitted)
				}
			}
		})
	}
}

func TestListSchedules(t *testing.T) {
	sched := &mockScheduler{listResp: []service.ScheduleStatus{
		{ScheduleEntry: models.ScheduleEntry{ID: "e-1", StartTime: "06:30", DurationMinutes: 5}, Status: models.SchedulePending},
		{ScheduleEntry: models.ScheduleEntry{ID: "e-2", StartTime: "18:00", DurationMinutes: 10}, Status: models.ScheduleCompleted},
	}}
	r := newScheduleRouter(sched)

	w := perform(r, http.MethodGet, "/api/v1/schedules", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d (body=%s)", w.Code, w.Body.String())
	}

	var resp struct {
		Count   int                      `json:"count"`
		Entries []service.ScheduleStatus `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 2 || len(resp.Entries) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Entries[1].Status != models.ScheduleCompleted {
		t.Fatalf("status not serialized: %+v", resp.Entries[1])
	}
}

func TestRemoveSchedule(t *testing.T) {
	t.Run("removed", func(t *testing.T) {
		sched := &mockScheduler{}
		r := newScheduleRouter(sched)

		w := perform(r, http.MethodDelete, "/api/v1/schedules/e-1", "")
		if w.Code != http.StatusNoContent {
			t.Fatalf("status: got %d (body=%s)", w.Code, w.Body.String())
		}
		if len(sched.removed) != 1 || sched.removed[0] != "e-1" {
			t.Fatalf("Remove saw %v", sched.removed)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		sched := &mockScheduler{removeErr: errors.New("disk full")}
		r := newScheduleRouter(sched)

		w := perform(r, http.MethodDelete, "/api/v1/schedules/e-1", "")
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status: got %d (body=%s)", w.Code, w.Body.String())
		}
	})
}
