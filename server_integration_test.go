package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("integration-test-secret")
	initDB()
	tmp := t.TempDir()
	_ = os.Setenv("UPLOAD_BASE", tmp)
	r := gin.Default()
	setupRoutes(r)
	return r
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)

	const password = "integration-pass"

	// 1. Set up the shared password (400 when a previous run already did)
	setupBody, _ := json.Marshal(map[string]string{"password": password})
	resp := performRequest(r, http.MethodPost, "/api/auth/setup-password", bytes.NewBuffer(setupBody), "", "application/json")
	if resp.Code != 200 && resp.Code != 400 {
		t.Fatalf("setup-password failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 2. Login
	loginBody, _ := json.Marshal(map[string]string{"password": password})
	resp = performRequest(r, http.MethodPost, "/api/auth/login", bytes.NewBuffer(loginBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}

	// 3. Create a loan with a quarterly schedule
	loanBody, _ := json.Marshal(map[string]any{
		"friendName":           "Integration Friend",
		"initialValue":         1000,
		"interestRate":         10,
		"latePaymentPenalty":   2,
		"numberOfInstallments": 3,
		"loanDate":             "2026-01-01",
		"finalPaymentDate":     "2026-04-01",
	})
	resp = performRequest(r, http.MethodPost, "/api/loans", bytes.NewBuffer(loanBody), token, "application/json")
	if resp.Code != 200 {
		t.Fatalf("create loan failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var createResp struct {
		Loan struct {
			ID           uint `json:"id"`
			Installments []struct {
				ID     uint   `json:"id"`
				Number int    `json:"installmentNumber"`
				Status string `json:"status"`
			} `json:"installments"`
		} `json:"loan"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &createResp)
	if createResp.Loan.ID == 0 || len(createResp.Loan.Installments) != 3 {
		t.Fatalf("unexpected create loan response: %s", resp.Body.String())
	}
	loanID := createResp.Loan.ID
	firstInst := createResp.Loan.Installments[0]

	// 4. List loans
	resp = performRequest(r, http.MethodGet, "/api/loans", nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("list loans failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 5. Get loan detail
	resp = performRequest(r, http.MethodGet, fmt.Sprintf("/api/loans/%d", loanID), nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("get loan failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var detail map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &detail)
	if detail["paymentStatus"] == nil {
		t.Fatalf("loan detail missing paymentStatus: %s", resp.Body.String())
	}

	// 6. Mark first installment paid
	instBody, _ := json.Marshal(map[string]any{"status": "paid", "loanId": loanID})
	resp = performRequest(r, http.MethodPut, fmt.Sprintf("/api/installments/%d", firstInst.ID), bytes.NewBuffer(instBody), token, "application/json")
	if resp.Code != 200 {
		t.Fatalf("update installment failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var updated map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &updated)
	if updated["status"] != "paid" || updated["paidDate"] == nil {
		t.Fatalf("installment not marked paid: %s", resp.Body.String())
	}

	// 7. Upload a payment proof (multipart)
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	_ = mw.WriteField("loanId", fmt.Sprint(loanID))
	_ = mw.WriteField("installmentId", fmt.Sprint(firstInst.ID))
	w, _ := mw.CreateFormFile("file", "receipt.jpg")
	_, _ = w.Write([]byte("not-really-a-jpeg-but-stored-as-is"))
	_ = mw.Close()
	resp = performRequest(r, http.MethodPost, "/api/upload-proof", buf, token, mw.FormDataContentType())
	if resp.Code != 200 {
		t.Fatalf("upload proof failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 8. Dashboard endpoints
	for _, path := range []string{
		"/api/dashboard/summary",
		"/api/dashboard/upcoming-payments",
		"/api/dashboard/profit-trends",
	} {
		resp = performRequest(r, http.MethodGet, path, nil, token, "")
		if resp.Code != 200 {
			t.Fatalf("%s failed status=%d body=%s", path, resp.Code, resp.Body.String())
		}
	}

	// 9. Unauthorized access to a protected endpoint should be 401
	unauth := performRequest(r, http.MethodGet, "/api/loans", nil, "", "")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthorized list loans got %d", unauth.Code)
	}

	// 10. Delete the loan (installments and proofs cascade)
	resp = performRequest(r, http.MethodDelete, fmt.Sprintf("/api/loans/%d", loanID), nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("delete loan failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodGet, fmt.Sprintf("/api/loans/%d", loanID), nil, token, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete got %d", resp.Code)
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	initDB()
}
