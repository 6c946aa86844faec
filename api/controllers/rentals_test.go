package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tamarLevanoni/couple-time-backend/api/middleware"
	"github.com/tamarLevanoni/couple-time-backend/internal/rentals"
	"github.com/tamarLevanoni/couple-time-backend/pkg/enums"
	"github.com/tamarLevanoni/couple-time-backend/pkg/logger"
	"github.com/tamarLevanoni/couple-time-backend/pkg/pagination"
)

type testRentalsService struct {
	createFn        func(ctx context.Context, input rentals.CreateInput) (*rentals.RentalSummary, error)
	createGuestFn   func(ctx context.Context, input rentals.GuestCreateInput) (*rentals.RentalSummary, error)
	approveFn       func(ctx context.Context, input rentals.DecisionInput) error
	cancelFn        func(ctx context.Context, input rentals.TransitionInput) error
	listForCenterFn func(ctx context.Context, actorID, centerID uuid.UUID, status *enums.RentalStatus, params pagination.Params) (*rentals.RentalList, error)
	bulkApplyFn     func(ctx context.Context, input rentals.BulkInput) (*rentals.BulkResult, error)
}

func (s *testRentalsService) Create(ctx context.Context, input rentals.CreateInput) (*rentals.RentalSummary, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return &rentals.RentalSummary{}, nil
}

func (s *testRentalsService) CreateGuest(ctx context.Context, input rentals.GuestCreateInput) (*rentals.RentalSummary, error) {
	if s.createGuestFn != nil {
		return s.createGuestFn(ctx, input)
	}
	return &rentals.RentalSummary{}, nil
}

func (s *testRentalsService) Get(ctx context.Context, actorID, rentalID uuid.UUID) (*rentals.RentalSummary, error) {
	return &rentals.RentalSummary{}, nil
}

func (s *testRentalsService) History(ctx context.Context, actorID, rentalID uuid.UUID) ([]rentals.ActionSummary, error) {
	return nil, nil
}

func (s *testRentalsService) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*rentals.RentalList, error) {
	return &rentals.RentalList{}, nil
}

func (s *testRentalsService) ListForCenter(ctx context.Context, actorID, centerID uuid.UUID, status *enums.RentalStatus, params pagination.Params) (*rentals.RentalList, error) {
	if s.listForCenterFn != nil {
		return s.listForCenterFn(ctx, actorID, centerID, status, params)
	}
	return &rentals.RentalList{}, nil
}

func (s *testRentalsService) Approve(ctx context.Context, input rentals.DecisionInput) error {
	if s.approveFn != nil {
		return s.approveFn(ctx, input)
	}
	return nil
}

func (s *testRentalsService) Reject(ctx context.Context, input rentals.DecisionInput) error {
	return nil
}

func (s *testRentalsService) Cancel(ctx context.Context, input rentals.TransitionInput) error {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, input)
	}
	return nil
}

func (s *testRentalsService) Return(ctx context.Context, input rentals.TransitionInput) error {
	return nil
}

func (s *testRentalsService) BulkApply(ctx context.Context, input rentals.BulkInput) (*rentals.BulkResult, error) {
	if s.bulkApplyFn != nil {
		return s.bulkApplyFn(ctx, input)
	}
	return &rentals.BulkResult{}, nil
}

func (s *testRentalsService) Overdue(ctx context.Context, cutoff time.Time) ([]rentals.RentalSummary, error) {
	return nil, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestRentalCreateForwardsActorAndBody(t *testing.T) {
	userID := uuid.New()
	instanceID := uuid.New()
	var captured rentals.CreateInput
	svc := &testRentalsService{
		createFn: func(ctx context.Context, input rentals.CreateInput) (*rentals.RentalSummary, error) {
			captured = input
			return &rentals.RentalSummary{}, nil
		},
	}

	body := `{"instance_ids":["` + instanceID.String() + `"],"notes":"pickup after 17:00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rentals", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	RentalCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if captured.UserID != userID {
		t.Fatalf("unexpected actor %s", captured.UserID)
	}
	if len(captured.InstanceIDs) != 1 || captured.InstanceIDs[0] != instanceID {
		t.Fatalf("unexpected instances %v", captured.InstanceIDs)
	}
	if captured.Notes == nil || *captured.Notes != "pickup after 17:00" {
		t.Fatalf("unexpected notes %v", captured.Notes)
	}
}

func TestRentalCreateRejectsEmptyInstances(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rentals", strings.NewReader(`{"instance_ids":[]}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	RentalCreate(&testRentalsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRentalCreateRequiresActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rentals", strings.NewReader(`{"instance_ids":["`+uuid.NewString()+`"]}`))
	resp := httptest.NewRecorder()
	RentalCreate(&testRentalsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRentalGuestCreateRejectsBadEmail(t *testing.T) {
	body := `{"email":"not-an-email","first_name":"Dana","last_name":"Levi","instance_ids":["` + uuid.NewString() + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rentals/guest", strings.NewReader(body))
	resp := httptest.NewRecorder()
	RentalGuestCreate(&testRentalsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRentalApproveForwardsDecision(t *testing.T) {
	userID := uuid.New()
	rentalID := uuid.New()
	var captured rentals.DecisionInput
	svc := &testRentalsService{
		approveFn: func(ctx context.Context, input rentals.DecisionInput) error {
			captured = input
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/staff/rentals/"+rentalID.String()+"/approve", strings.NewReader(`{"loan_days":14}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	req = addRouteParam(req, "rentalId", rentalID.String())
	resp := httptest.NewRecorder()
	RentalApprove(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if captured.RentalID != rentalID || captured.ActorUserID != userID {
		t.Fatalf("unexpected input %+v", captured)
	}
	if captured.LoanDays == nil || *captured.LoanDays != 14 {
		t.Fatalf("unexpected loan days %v", captured.LoanDays)
	}
}

func TestRentalApproveInvalidRentalID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/staff/rentals/nope/approve", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	req = addRouteParam(req, "rentalId", "nope")
	resp := httptest.NewRecorder()
	RentalApprove(&testRentalsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRentalCancelAcceptsEmptyBody(t *testing.T) {
	userID := uuid.New()
	rentalID := uuid.New()
	var captured rentals.TransitionInput
	svc := &testRentalsService{
		cancelFn: func(ctx context.Context, input rentals.TransitionInput) error {
			captured = input
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rentals/"+rentalID.String()+"/cancel", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	req = addRouteParam(req, "rentalId", rentalID.String())
	resp := httptest.NewRecorder()
	RentalCancel(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if captured.RentalID != rentalID || captured.ActorUserID != userID {
		t.Fatalf("unexpected input %+v", captured)
	}
	if captured.Comment != nil {
		t.Fatalf("unexpected comment %v", captured.Comment)
	}
}

func TestRentalListForCenterParsesStatus(t *testing.T) {
	userID := uuid.New()
	centerID := uuid.New()
	var captured *enums.RentalStatus
	svc := &testRentalsService{
		listForCenterFn: func(ctx context.Context, actorID, cID uuid.UUID, status *enums.RentalStatus, params pagination.Params) (*rentals.RentalList, error) {
			if actorID != userID || cID != centerID {
				t.Fatalf("unexpected scope actor=%s center=%s", actorID, cID)
			}
			captured = status
			return &rentals.RentalList{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/staff/centers/"+centerID.String()+"/rentals?status=pending", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	req = addRouteParam(req, "centerId", centerID.String())
	resp := httptest.NewRecorder()
	RentalListForCenter(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if captured == nil || *captured != enums.RentalStatusPending {
		t.Fatalf("unexpected status filter %v", captured)
	}
}

func TestRentalListForCenterRejectsUnknownStatus(t *testing.T) {
	centerID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/staff/centers/"+centerID.String()+"/rentals?status=SHIPPED", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	req = addRouteParam(req, "centerId", centerID.String())
	resp := httptest.NewRecorder()
	RentalListForCenter(&testRentalsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRentalBulkApplyForwardsInput(t *testing.T) {
	userID := uuid.New()
	first := uuid.New()
	second := uuid.New()
	var captured rentals.BulkInput
	svc := &testRentalsService{
		bulkApplyFn: func(ctx context.Context, input rentals.BulkInput) (*rentals.BulkResult, error) {
			captured = input
			return &rentals.BulkResult{}, nil
		},
	}

	body := `{"rental_ids":["` + first.String() + `","` + second.String() + `"],"action":"approve","loan_days":7}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/staff/rentals/bulk", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	RentalBulkApply(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if captured.ActorUserID != userID {
		t.Fatalf("unexpected actor %s", captured.ActorUserID)
	}
	if len(captured.RentalIDs) != 2 || captured.RentalIDs[0] != first || captured.RentalIDs[1] != second {
		t.Fatalf("unexpected rentals %v", captured.RentalIDs)
	}
	if captured.Action != rentals.BulkAction("approve") {
		t.Fatalf("unexpected action %q", captured.Action)
	}
}

func TestRentalBulkApplyRejectsUnknownAction(t *testing.T) {
	body := `{"rental_ids":["` + uuid.NewString() + `"],"action":"archive"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/staff/rentals/bulk", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	RentalBulkApply(&testRentalsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
