package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"homestay/src/common"
	"homestay/src/db"
	"homestay/src/policy"
	"homestay/src/types"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB   *gorm.DB
	Mock sqlmock.Sqlmock
}

// stubAuth injects an authenticated request context without hitting the
// users table.
func stubAuth(id uint, role types.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("id", id)
		ctx.Set("role", string(role))
	}
}

func (s *TestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("staydate", stayDateValidatorFunc)
		v.RegisterValidation("afterdate", afterDateValidatorFunc)
	}

	common.SetPolicyTables(policy.DefaultTables())

	d, mock := db.NewMockDB()
	db.NewDB(d)
	s.DB = d
	s.Mock = mock
}

func (s *TestSuite) authedRouter(id uint, role types.Role) *gin.Engine {
	router := setupRouter()
	authorized := router.Group(apiPrefix)
	authorized.Use(stubAuth(id, role))
	bookingHandlers(authorized)
	transactionHandlers(authorized)
	return router
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Setenv("MAINTENANCE_MODE", "false")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestTransitionRejectsUnknownStatus() {
	router := s.authedRouter(1, types.ROLE_ADMIN)

	body, _ := json.Marshal(map[string]any{"status": "archived"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/v1/bookings/1/status", strings.NewReader(string(body)))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 400, w.Code)
}

func (s *TestSuite) TestTransitionForbiddenForGuests() {
	router := s.authedRouter(5, types.ROLE_GUEST)

	body, _ := json.Marshal(map[string]any{"status": "confirmed"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/v1/bookings/1/status", strings.NewReader(string(body)))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 403, w.Code)
}

func (s *TestSuite) TestPaymentFieldsRequireAdmin() {
	router := s.authedRouter(2, types.ROLE_HOST)

	body, _ := json.Marshal(map[string]any{
		"status":         "cancelled",
		"payment_status": "refunded",
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/v1/bookings/1/status", strings.NewReader(string(body)))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 403, w.Code)
}

func (s *TestSuite) TestRescheduleRejectsInvertedDates() {
	router := s.authedRouter(5, types.ROLE_GUEST)

	in := time.Now().UTC().AddDate(0, 0, 10).Format("2006-01-02")
	out := time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
	body, _ := json.Marshal(map[string]any{"check_in": in, "check_out": out})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/bookings/1/reschedule", strings.NewReader(string(body)))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 400, w.Code)
}

func (s *TestSuite) TestRescheduleRejectsPastDates() {
	router := s.authedRouter(5, types.ROLE_GUEST)

	in := time.Now().UTC().AddDate(0, 0, -3).Format("2006-01-02")
	out := time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02")
	body, _ := json.Marshal(map[string]any{"check_in": in, "check_out": out})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/bookings/1/reschedule", strings.NewReader(string(body)))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 400, w.Code)
}

func (s *TestSuite) TestTransactionLookupRejectsBadId() {
	router := s.authedRouter(1, types.ROLE_ADMIN)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/transactions/not-a-uuid", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 400, w.Code)
}

func (s *TestSuite) TestTransitionUnknownBooking() {
	router := s.authedRouter(1, types.ROLE_ADMIN)

	s.Mock.ExpectBegin()
	s.Mock.
		ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnError(gorm.ErrRecordNotFound)
	s.Mock.ExpectRollback()

	body, _ := json.Marshal(map[string]any{"status": "confirmed"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/v1/bookings/99/status", strings.NewReader(string(body)))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 404, w.Code)
	assert.Contains(s.T(), w.Body.String(), "not_found")
}

func (s *TestSuite) outboxInsertRows(n int) {
	for i := 0; i < n; i++ {
		s.Mock.
			ExpectQuery(`INSERT INTO "outbox_events"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow("8a9742f9-43ac-4d92-a6eb-3c2c8e0b0001", "pending"))
	}
}

func (s *TestSuite) TestAdminConfirmDefaultsPaymentCompleted() {
	router := s.authedRouter(1, types.ROLE_ADMIN)

	s.Mock.ExpectBegin()
	s.Mock.
		ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "guest_id", "host_id", "listing_id", "status", "payment_status"}).
			AddRow(1, 5, 2, 3, "pending", "pending"))
	s.Mock.ExpectExec(`SAVEPOINT payment_write`).WillReturnResult(sqlmock.NewResult(0, 0))
	s.Mock.
		ExpectExec(`UPDATE "bookings" SET (.+)"payment_status"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.outboxInsertRows(4)
	s.Mock.
		ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "guest_id", "host_id", "listing_id", "status", "payment_status"}).
			AddRow(1, 5, 2, 3, "confirmed", "completed"))
	s.Mock.ExpectCommit()

	body, _ := json.Marshal(map[string]any{"status": "confirmed"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/v1/bookings/1/status", strings.NewReader(string(body)))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
	assert.Contains(s.T(), w.Body.String(), `"payment_status":"completed"`)
	assert.NoError(s.T(), s.Mock.ExpectationsWereMet())
}

func (s *TestSuite) TestTransitionSurvivesPaymentWriteFailure() {
	router := s.authedRouter(1, types.ROLE_ADMIN)

	s.Mock.ExpectBegin()
	s.Mock.
		ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "guest_id", "host_id", "listing_id", "status", "payment_status"}).
			AddRow(1, 5, 2, 3, "pending", "pending"))
	s.Mock.ExpectExec(`SAVEPOINT payment_write`).WillReturnResult(sqlmock.NewResult(0, 0))
	s.Mock.
		ExpectExec(`UPDATE "bookings" SET (.+)"payment_status"`).
		WillReturnError(fmt.Errorf(`column "payment_confirmed_by" of relation "bookings" does not exist`))
	s.Mock.ExpectExec(`ROLLBACK TO SAVEPOINT payment_write`).WillReturnResult(sqlmock.NewResult(0, 0))
	s.Mock.
		ExpectExec(`UPDATE "bookings" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.outboxInsertRows(4)
	s.Mock.
		ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "guest_id", "host_id", "listing_id", "status", "payment_status"}).
			AddRow(1, 5, 2, 3, "confirmed", "pending"))
	s.Mock.ExpectCommit()

	body, _ := json.Marshal(map[string]any{"status": "confirmed"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/v1/bookings/1/status", strings.NewReader(string(body)))
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
	assert.Contains(s.T(), w.Body.String(), `"status":"confirmed"`)
	assert.NoError(s.T(), s.Mock.ExpectationsWereMet())
}

func (s *TestSuite) rescheduleBookingRow() *sqlmock.Rows {
	checkIn := time.Now().UTC().AddDate(0, 0, 20)
	checkOut := checkIn.AddDate(0, 0, 3)
	return sqlmock.
		NewRows([]string{"id", "guest_id", "host_id", "listing_id", "status", "check_in", "check_out", "nights", "base_price", "total_price", "currency"}).
		AddRow(1, 5, 2, 3, "confirmed", checkIn, checkOut, 3, 3000000, 3300000, "VND")
}

func (s *TestSuite) rescheduleRequest(router *gin.Engine) *httptest.ResponseRecorder {
	in := time.Now().UTC().AddDate(0, 0, 30).Format("2006-01-02")
	out := time.Now().UTC().AddDate(0, 0, 33).Format("2006-01-02")
	body, _ := json.Marshal(map[string]any{"check_in": in, "check_out": out})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/bookings/1/reschedule", strings.NewReader(string(body)))
	router.ServeHTTP(w, req)
	return w
}

func (s *TestSuite) TestRescheduleConflictingDates() {
	router := s.authedRouter(5, types.ROLE_GUEST)

	s.Mock.ExpectBegin()
	s.Mock.
		ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(s.rescheduleBookingRow())
	s.Mock.
		ExpectQuery(`SELECT (.+) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "membership_status", "loyalty_tier"}).
			AddRow(5, "inactive", ""))
	s.Mock.
		ExpectQuery(`SELECT count\(\*\) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	s.Mock.ExpectRollback()

	w := s.rescheduleRequest(router)

	assert.Equal(s.T(), 409, w.Code)
	assert.Contains(s.T(), w.Body.String(), "date_conflict")
	assert.NoError(s.T(), s.Mock.ExpectationsWereMet())
}

func (s *TestSuite) TestRescheduleBlockedDates() {
	router := s.authedRouter(5, types.ROLE_GUEST)

	s.Mock.ExpectBegin()
	s.Mock.
		ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(s.rescheduleBookingRow())
	s.Mock.
		ExpectQuery(`SELECT (.+) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "membership_status", "loyalty_tier"}).
			AddRow(5, "inactive", ""))
	s.Mock.
		ExpectQuery(`SELECT count\(\*\) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	s.Mock.
		ExpectQuery(`SELECT count\(\*\) FROM "blocked_dates"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	s.Mock.ExpectRollback()

	w := s.rescheduleRequest(router)

	assert.Equal(s.T(), 409, w.Code)
	assert.Contains(s.T(), w.Body.String(), "date_blocked")
	assert.NoError(s.T(), s.Mock.ExpectationsWereMet())
}

func (s *TestSuite) TestBookingListScopedToGuest() {
	router := s.authedRouter(5, types.ROLE_GUEST)

	rows := sqlmock.NewRows([]string{"id", "guest_id", "host_id", "status"}).
		AddRow(1, 5, 2, "confirmed")
	s.Mock.
		ExpectQuery(`SELECT (.+) FROM "bookings" WHERE "bookings"."guest_id" = \$1`).
		WithArgs(5).
		WillReturnRows(rows)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/bookings", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
	assert.Contains(s.T(), w.Body.String(), fmt.Sprintf(`"guest_id":%d`, 5))
}

func TestSuiteRun(t *testing.T) {
	suite.Run(t, new(TestSuite))
}

func TestErrStatus(t *testing.T) {
	cases := map[common.ErrorKind]int{
		common.KindForbidden:        403,
		common.KindNotFound:         404,
		common.KindInvalidDateRange: 400,
		common.KindDateConflict:     409,
		common.KindAlreadyTerminal:  409,
		common.KindInternal:         500,
	}
	for kind, want := range cases {
		err := &common.OpError{Kind: kind, Message: "x"}
		assert.Equal(t, want, errStatus(err))
	}
}
