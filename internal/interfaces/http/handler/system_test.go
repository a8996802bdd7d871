package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agency/backoffice/internal/infrastructure/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHealthChecker struct {
	err error
}

func (f *fakeHealthChecker) Ping() error { return f.err }

type fakeReminderAdmin struct {
	triggerErr error
	triggered  int
}

func (f *fakeReminderAdmin) TriggerManualRun() error {
	f.triggered++
	return f.triggerErr
}

func (f *fakeReminderAdmin) Status() map[string]any {
	return map[string]any{"is_running": true}
}

func newSystemRouter(db HealthChecker, reminders ReminderAdmin) *gin.Engine {
	router := gin.New()
	NewSystemHandler(db, reminders).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestSystemHandlerHealth(t *testing.T) {
	t.Run("ok when database responds", func(t *testing.T) {
		router := newSystemRouter(&fakeHealthChecker{}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("degraded when database is unreachable", func(t *testing.T) {
		router := newSystemRouter(&fakeHealthChecker{err: errors.New("down")}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "degraded", body["status"])
	})
}

func TestSystemHandlerReminders(t *testing.T) {
	t.Run("manual run triggers the scheduler", func(t *testing.T) {
		admin := &fakeReminderAdmin{}
		router := newSystemRouter(&fakeHealthChecker{}, admin)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/admin/reminders/run", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, admin.triggered)
	})

	t.Run("stopped scheduler yields 409", func(t *testing.T) {
		admin := &fakeReminderAdmin{triggerErr: scheduler.ErrSchedulerNotRunning}
		router := newSystemRouter(&fakeHealthChecker{}, admin)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/admin/reminders/run", nil))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing scheduler yields 409", func(t *testing.T) {
		router := newSystemRouter(&fakeHealthChecker{}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/admin/reminders/run", nil))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("status reports scheduler state", func(t *testing.T) {
		router := newSystemRouter(&fakeHealthChecker{}, &fakeReminderAdmin{})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/admin/reminders/status", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "is_running")
	})
}
