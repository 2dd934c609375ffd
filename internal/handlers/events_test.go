package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"pumpcontrol/internal/models"
	"pumpcontrol/internal/service"

	"github.com/gin-gonic/gin"
)

func newEventsRouter(log *mockEventLog) *gin.Engine {
	return newTestRouter(&service.Service{
		Authorization: &mockAuth{parseID: 1},
		EventLog:      log,
	})
}

func TestGetEvents_FilterParsing(t *testing.T) {
	cases := []struct {
		name     string
		query    string
		wantCode int
		wantFrom time.Time
		wantTo   time.Time
		wantType string
	}{
		{
			name:     "no filters",
			query:    "",
			wantCode: http.StatusOK,
		},
		{
			name:     "rfc3339 bounds",
			query:    "?from=2026-08-01T00:00:00Z&to=2026-08-02T12:30:00Z",
			wantCode: http.StatusOK,
			wantFrom: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2026, 8, 2, 12, 30, 0, 0, time.UTC),
		},
		{
			name:     "date-only to is end-of-day inclusive",
			query:    "?to=2026-08-02",
			wantCode: http.StatusOK,
			wantTo:   time.Date(2026, 8, 2, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC),
		},
		{
			name:     "type lowercased in query",
			query:    "?type=pump_on",
			wantCode: http.StatusOK,
			wantType: "PUMP_ON",
		},
		{
			name:     "bad from",
			query:    "?from=yesterday",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bad to",
			query:    "?to=tonight",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "inverted range",
			query:    "?from=2026-08-02T00:00:00Z&to=2026-08-01T00:00:00Z",
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			log := &mockEventLog{}
			r := newEventsRouter(log)

			w := perform(r, http.MethodGet, "/api/v1/events"+tc.query, "")
			if w.Code != tc.wantCode {
				t.Fatalf("status: got %d, want %d (body=%s)", w.Code, tc.wantCode, w.Body.String())
			}
			if tc.wantCode != http.StatusOK {
				return
			}
			if !log.lastFrom.Equal(tc.wantFrom) {
				t.Fatalf("from: got %v, want %v", log.lastFrom, tc.wantFrom)
			}
			if !log.lastTo.Equal(tc.wantTo) {
				t.Fatalf("to: got %v, want %v", log.lastTo, tc.wantTo)
			}
			if log.lastType != tc.wantType {
				t.Fatalf("type: got %q, want %q", log.lastType, tc.wantType)
			}
		})
	}
}

func TestGetEvents_Body(t *testing.T) {
	occurred := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)
	log := &mockEventLog{resp: []models.Event{
		{ID: "ev-1", Event: models.EventPumpOn, OccurredAt: occurred},
		{ID: "ev-2", Event: models.EventPumpOff, OccurredAt: occurred.Add(5 * time.Minute)},
	}}
	r := newEventsRouter(log)

	w := perform(r, http.MethodGet, "/api/v1/events", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d (body=%s)", w.Code, w.Body.String())
	}

	var resp struct {
		Count  int            `json:"count"`
		Events []models.Event `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 2 || len(resp.Events) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Events[0].Event != models.EventPumpOn {
		t.Fatalf("unexpected event: %+v", resp.Events[0])
	}
}
