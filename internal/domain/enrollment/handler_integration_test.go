package enrollment_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/okulab/okulab-api/internal/domain/enrollment"
	"github.com/okulab/okulab-api/internal/middleware"
	"github.com/okulab/okulab-api/internal/pkg/cardgate"
	"github.com/okulab/okulab-api/internal/pkg/jwt"
)

type enrollmentAPIResponse struct {
	Success bool `json:"success"`
	Data    struct {
		// Receipt fields for POST /
		Enrollments     []enrollmentAPIItem `json:"enrollments"`
		Shape           string              `json:"shape"`
		ListTotalCents  int64               `json:"list_total_cents"`
		DiscountCents   int64               `json:"discount_cents"`
		CreditUsedCents int64               `json:"credit_used_cents"`
		ChargedCents    int64               `json:"charged_cents"`
		// Single enrollment fields for POST /trial
		ID      uuid.UUID `json:"id"`
		ClassID uuid.UUID `json:"class_id"`
		// List fields for GET /
		Items []enrollmentAPIItem `json:"items"`
		Total int                 `json:"total"`
	} `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type enrollmentAPIItem struct {
	ID      uuid.UUID `json:"id"`
	ClassID uuid.UUID `json:"class_id"`
}

func TestEnrollmentEndpointsIntegration(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(db)

	accountID := createTestAccount(t, db)
	studentID := createTestStudent(t, db, accountID)
	classA := createTestClass(t, db, 1, 10000)
	classB := createTestClass(t, db, 1, 10000)
	trialClass := createTrialClass(t, db)
	grantCredit(t, db, accountID, 2000)

	gw := &fakeGateway{}
	pub := newFakePublisher()
	svc := newTestService(db, enrollment.NewRepository(db), gw, pub)
	h := enrollment.NewHandler(svc)

	jwtSvc := jwt.NewService("enrollment-integration-secret", time.Hour)
	token, err := jwtSvc.GenerateAccessToken(accountID)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}

	r := chi.NewRouter()
	r.Mount("/api/v1/enrollments", h.Routes(middleware.Auth(jwtSvc)))

	t.Run("JWT required", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/enrollments/", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without jwt, got %d", rec.Code)
		}
	})

	t.Run("POST / invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/enrollments/", bytes.NewBufferString("{"))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("POST / validation", func(t *testing.T) {
		resp := performEnrollmentRequest(t, r, token, http.MethodPost, "/api/v1/enrollments/", map[string]interface{}{
			"class_ids": []string{classA.String()},
		})
		if resp.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", resp.Code)
		}
		body := decodeEnrollmentResponse(t, resp)
		if body.Error == nil || body.Error.Code != "VALIDATION_ERROR" {
			t.Fatalf("expected validation error, got %+v", body.Error)
		}
		if _, ok := body.Error.Details["student_id"]; !ok {
			t.Fatalf("expected student_id detail, got %v", body.Error.Details)
		}
	})

	t.Run("POST / happy path with credit", func(t *testing.T) {
		resp := performEnrollmentRequest(t, r, token, http.MethodPost, "/api/v1/enrollments/", map[string]interface{}{
			"student_id":           studentID.String(),
			"class_ids":            []string{classA.String()},
			"credit_cents":         int64(2000),
			"payment_method_nonce": "nonce-abc",
		})
		if resp.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d; body=%s", resp.Code, resp.Body.String())
		}
		body := decodeEnrollmentResponse(t, resp)
		if !body.Success {
			t.Fatalf("expected success, got %+v", body.Error)
		}
		if body.Data.Shape != "single" || body.Data.ListTotalCents != 10000 {
			t.Fatalf("unexpected quote: shape=%s total=%d", body.Data.Shape, body.Data.ListTotalCents)
		}
		if body.Data.CreditUsedCents != 2000 || body.Data.ChargedCents != 8000 {
			t.Fatalf("unexpected amounts: credit=%d charged=%d", body.Data.CreditUsedCents, body.Data.ChargedCents)
		}
		if len(body.Data.Enrollments) != 1 || body.Data.Enrollments[0].ClassID != classA {
			t.Fatalf("unexpected enrollments: %+v", body.Data.Enrollments)
		}
		waitForEvent(t, pub)
	})

	t.Run("POST / duplicate class", func(t *testing.T) {
		resp := performEnrollmentRequest(t, r, token, http.MethodPost, "/api/v1/enrollments/", map[string]interface{}{
			"student_id":           studentID.String(),
			"class_ids":            []string{classA.String()},
			"payment_method_nonce": "nonce-abc",
		})
		if resp.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", resp.Code)
		}
		body := decodeEnrollmentResponse(t, resp)
		if body.Error == nil || body.Error.Code != "CONFLICT" {
			t.Fatalf("expected conflict error, got %+v", body.Error)
		}
	})

	t.Run("POST / missing nonce", func(t *testing.T) {
		resp := performEnrollmentRequest(t, r, token, http.MethodPost, "/api/v1/enrollments/", map[string]interface{}{
			"student_id": studentID.String(),
			"class_ids":  []string{classB.String()},
		})
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.Code)
		}
	})

	t.Run("POST / declined", func(t *testing.T) {
		gw.setChargeErr(cardgate.ErrChargeDeclined)
		defer gw.setChargeErr(nil)

		resp := performEnrollmentRequest(t, r, token, http.MethodPost, "/api/v1/enrollments/", map[string]interface{}{
			"student_id":           studentID.String(),
			"class_ids":            []string{classB.String()},
			"payment_method_nonce": "nonce-abc",
		})
		if resp.Code != http.StatusPaymentRequired {
			t.Fatalf("expected 402, got %d", resp.Code)
		}
		body := decodeEnrollmentResponse(t, resp)
		if body.Error == nil || body.Error.Code != "PAYMENT_FAILED" {
			t.Fatalf("expected payment error, got %+v", body.Error)
		}
	})

	t.Run("POST /trial", func(t *testing.T) {
		resp := performEnrollmentRequest(t, r, token, http.MethodPost, "/api/v1/enrollments/trial", map[string]interface{}{
			"student_id": studentID.String(),
			"class_id":   trialClass.String(),
		})
		if resp.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d; body=%s", resp.Code, resp.Body.String())
		}
		body := decodeEnrollmentResponse(t, resp)
		if !body.Success || body.Data.ClassID != trialClass {
			t.Fatalf("unexpected trial enrollment: %+v", body.Data)
		}
		waitForEvent(t, pub)
	})

	t.Run("POST /trial rejects regular class", func(t *testing.T) {
		resp := performEnrollmentRequest(t, r, token, http.MethodPost, "/api/v1/enrollments/trial", map[string]interface{}{
			"student_id": studentID.String(),
			"class_id":   classB.String(),
		})
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.Code)
		}
	})

	t.Run("GET / lists committed enrollments", func(t *testing.T) {
		resp := performEnrollmentRequest(t, r, token, http.MethodGet, "/api/v1/enrollments/", nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
		body := decodeEnrollmentResponse(t, resp)
		if body.Data.Total != 2 || len(body.Data.Items) != 2 {
			t.Fatalf("expected the purchase and the trial, got total=%d items=%d", body.Data.Total, len(body.Data.Items))
		}
	})
}

func performEnrollmentRequest(t *testing.T, handler http.Handler, token, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload failed: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnrollmentResponse(t *testing.T, rec *httptest.ResponseRecorder) enrollmentAPIResponse {
	t.Helper()
	var out enrollmentAPIResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response failed: %v; body=%s", err, rec.Body.String())
	}
	return out
}
