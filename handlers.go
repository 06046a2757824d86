package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"lendtrack/models"
	"lendtrack/pkg/ledger"
	"lendtrack/pkg/proofimg"
)

const maxInstallments = 360

const maxProofSize = 5 * 1024 * 1024

var startTime = time.Now()

func setupRoutes(r *gin.Engine) {
	r.Use(corsMiddleware())

	r.GET("/api/health", healthHandler)

	auth := r.Group("/api/auth")
	auth.Use(authRateLimit())
	auth.POST("/setup-password", setupPasswordHandler)
	auth.POST("/login", loginHandler)
	r.GET("/api/auth/status", authStatusHandler)

	// Google OAuth endpoints the browser is redirected through.
	r.GET("/api/google/auth-url", googleAuthURLHandler)
	r.GET("/api/google/callback", googleCallbackHandler)
	r.GET("/api/google/auth-status", googleAuthStatusHandler)

	api := r.Group("/api")
	api.Use(jwtAuthMiddleware())
	api.POST("/loans", createLoanHandler)
	api.GET("/loans", listLoansHandler)
	api.GET("/loans/:id", getLoanHandler)
	api.PUT("/loans/:id", updateLoanHandler)
	api.DELETE("/loans/:id", deleteLoanHandler)
	api.PUT("/installments/:id", updateInstallmentHandler)
	api.POST("/upload-proof", uploadProofHandler)
	api.GET("/dashboard/summary", dashboardSummaryHandler)
	api.GET("/dashboard/upcoming-payments", upcomingPaymentsHandler)
	api.GET("/dashboard/profit-trends", profitTrendsHandler)
	api.POST("/google/sync-loans", syncLoansHandler)
	api.POST("/google/sync-installments", syncInstallmentsHandler)

	r.Static("/uploads", uploadBaseDir())
	serveSPA(r)
}

func corsMiddleware() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowCredentials = true
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	if origins := os.Getenv("CORS_ORIGIN"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			cfg.AllowOrigins = append(cfg.AllowOrigins, strings.TrimSpace(o))
		}
	} else {
		cfg.AllowOriginFunc = func(string) bool { return true }
	}
	return cors.New(cfg)
}

// authRateLimit caps password attempts at 20 per 15 minutes per client IP.
func authRateLimit() gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = map[string]*rate.Limiter{}
	)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		mu.Lock()
		lim, ok := limiters[ip]
		if !ok {
			lim = rate.NewLimiter(rate.Every(15*time.Minute/20), 20)
			limiters[ip] = lim
		}
		mu.Unlock()
		if !lim.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many authentication attempts. Try again later."})
			c.Abort()
			return
		}
		c.Next()
	}
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		token, err := jwt.Parse(authHeader[7:], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ==================== auth ====================

func setupPasswordHandler(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := SetupPassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password set successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password required"})
		return
	}
	if err := Authenticate(req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	token, err := issueToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

func authStatusHandler(c *gin.Context) {
	set, err := passwordIsSet()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"passwordSet": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"passwordSet": set})
}

// ==================== loans ====================

type createLoanRequest struct {
	FriendName           string          `json:"friendName"`
	FriendEmail          string          `json:"friendEmail"`
	InitialValue         decimal.Decimal `json:"initialValue"`
	InterestRate         decimal.Decimal `json:"interestRate"`
	LatePaymentPenalty   decimal.Decimal `json:"latePaymentPenalty"`
	NumberOfInstallments int             `json:"numberOfInstallments"`
	LoanDate             string          `json:"loanDate"`
	FinalPaymentDate     string          `json:"finalPaymentDate"`
	Notes                string          `json:"notes"`
}

// validateCreateLoan checks every field and reports all problems at once,
// so the form can show the complete list.
func validateCreateLoan(req createLoanRequest) (loanDate, finalDate time.Time, errs []string) {
	if strings.TrimSpace(req.FriendName) == "" {
		errs = append(errs, "friendName is required")
	}
	if !req.InitialValue.IsPositive() {
		errs = append(errs, "initialValue must be greater than 0")
	}
	if req.InterestRate.IsNegative() {
		errs = append(errs, "interestRate must be 0 or greater")
	}
	if req.LatePaymentPenalty.IsNegative() {
		errs = append(errs, "latePaymentPenalty must be 0 or greater")
	}
	if req.NumberOfInstallments < 1 || req.NumberOfInstallments > maxInstallments {
		errs = append(errs, fmt.Sprintf("numberOfInstallments must be between 1 and %d", maxInstallments))
	}
	var err error
	if loanDate, err = ledger.ParseBoundaryDate(req.LoanDate); err != nil {
		errs = append(errs, "loanDate is invalid")
	}
	if finalDate, err = ledger.ParseBoundaryDate(req.FinalPaymentDate); err != nil {
		errs = append(errs, "finalPaymentDate is invalid")
	}
	if !loanDate.IsZero() && !finalDate.IsZero() && !finalDate.After(loanDate) {
		errs = append(errs, "finalPaymentDate must be after loanDate")
	}
	return loanDate, finalDate, errs
}

func createLoanHandler(c *gin.Context) {
	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	loanDate, finalDate, errs := validateCreateLoan(req)
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": strings.Join(errs, "; ")})
		return
	}

	totalValue := req.InitialValue.
		Mul(decimal.NewFromInt(100).Add(req.InterestRate)).
		Div(decimal.NewFromInt(100)).
		Round(2)
	profit := totalValue.Sub(req.InitialValue)
	installmentValue := totalValue.Div(decimal.NewFromInt(int64(req.NumberOfInstallments))).Round(2)

	dueDates, err := ledger.GenerateInstallmentDates(loanDate, finalDate, req.NumberOfInstallments)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loan := models.Loan{
		FriendName:         strings.TrimSpace(req.FriendName),
		FriendEmail:        strings.TrimSpace(req.FriendEmail),
		InitialValue:       req.InitialValue,
		InterestRate:       req.InterestRate,
		LatePaymentPenalty: req.LatePaymentPenalty,
		TotalValue:         totalValue,
		Profit:             profit,
		TotalLateFees:      decimal.Zero,
		LoanDate:           loanDate,
		FinalPaymentDate:   finalDate,
		Status:             models.LoanActive,
		Notes:              strings.TrimSpace(req.Notes),
	}

	// Loan and its full installment schedule are created atomically.
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&loan).Error; err != nil {
			return err
		}
		installments := make([]models.Installment, 0, req.NumberOfInstallments)
		for i, due := range dueDates {
			installments = append(installments, models.Installment{
				LoanID:  loan.ID,
				Number:  i + 1,
				Value:   installmentValue,
				DueDate: due,
				Status:  models.InstallmentPending,
			})
		}
		if err := tx.Create(&installments).Error; err != nil {
			return err
		}
		loan.Installments = installments
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create loan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "loan": loan})
}

type loanWithStatus struct {
	models.Loan
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
}

func listLoansHandler(c *gin.Context) {
	var loans []models.Loan
	err := db.Preload("Installments", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("number")
	}).Order("created_at desc").Find(&loans).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	out := make([]loanWithStatus, 0, len(loans))
	for _, loan := range loans {
		loan.Status = ledger.NormalizeLoanStatus(loan.Status)
		out = append(out, loanWithStatus{
			Loan:          loan,
			PaymentStatus: ledger.CalculatePaymentStatus(loan.Installments),
		})
	}
	c.JSON(http.StatusOK, out)
}

func getLoanHandler(c *gin.Context) {
	var loan models.Loan
	err := db.Preload("Installments", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("number")
	}).Preload("Installments.Proofs").First(&loan, "id = ?", c.Param("id")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Loan not found"})
		return
	}
	loan.Status = ledger.NormalizeLoanStatus(loan.Status)
	c.JSON(http.StatusOK, loanWithStatus{
		Loan:          loan,
		PaymentStatus: ledger.CalculatePaymentStatus(loan.Installments),
	})
}

func updateLoanHandler(c *gin.Context) {
	var req struct {
		FriendName *string `json:"friendName"`
		Notes      *string `json:"notes"`
		Status     *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	if req.FriendName != nil && strings.TrimSpace(*req.FriendName) != "" {
		updates["friend_name"] = strings.TrimSpace(*req.FriendName)
	}
	if req.Notes != nil {
		updates["notes"] = strings.TrimSpace(*req.Notes)
	}
	if req.Status != nil && *req.Status != "" {
		updates["status"] = ledger.NormalizeLoanStatus(models.LoanStatus(*req.Status))
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No valid fields to update"})
		return
	}

	var loan models.Loan
	if err := db.First(&loan, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Loan not found"})
		return
	}
	if err := db.Model(&loan).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, loan)
}

func deleteLoanHandler(c *gin.Context) {
	// FK constraints cascade to installments and their proofs.
	if err := db.Delete(&models.Loan{}, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ==================== installments ====================

func updateInstallmentHandler(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
		LoanID uint   `json:"loanId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.LoanID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "loanId is required"})
		return
	}
	status := models.InstallmentStatus(req.Status)
	if !models.ValidInstallmentStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be one of: pending, paid, overdue"})
		return
	}

	var installment models.Installment
	if err := db.First(&installment, "id = ? AND loan_id = ?", c.Param("id"), req.LoanID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Installment not found"})
		return
	}

	installment.Status = status
	if status == models.InstallmentPaid {
		now := time.Now().UTC()
		installment.PaidDate = &now
	} else {
		installment.PaidDate = nil
	}
	if err := db.Model(&installment).Select("status", "paid_date").Updates(&installment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	// Paying (or un-paying) an installment can move the loan between
	// active and completed; cancellation stays put.
	var loan models.Loan
	if err := db.Preload("Installments").First(&loan, req.LoanID).Error; err == nil {
		next := ledger.DeriveLoanStatus(loan.Installments, loan.Status)
		if next != loan.Status {
			if err := db.Model(&loan).Update("status", next).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update loan status"})
				return
			}
		}
	}

	c.JSON(http.StatusOK, installment)
}

// ==================== payment proofs ====================

func uploadProofHandler(c *gin.Context) {
	loanID := c.PostForm("loanId")
	installmentID := c.PostForm("installmentId")
	if loanID == "" || installmentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "loanId and installmentId are required"})
		return
	}

	var installment models.Installment
	if err := db.First(&installment, "id = ? AND loan_id = ?", installmentID, loanID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Installment not found"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	if file.Size > maxProofSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 5MB)"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}

	contentType := file.Header.Get("Content-Type")
	data, contentType = proofimg.Normalize(data, contentType)

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if contentType == "image/jpeg" && ext != ".jpg" && ext != ".jpeg" {
		ext = ".jpg"
	}
	key := fmt.Sprintf("proofs/%s%s", uuid.NewString(), ext)

	fullPath := filepath.Join(uploadBaseDir(), filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mkdir failed"})
		return
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	proof := models.PaymentProof{
		InstallmentID: installment.ID,
		ImageURL:      "/uploads/" + key,
		ImageKey:      key,
		ContentType:   contentType,
		UploadedAt:    time.Now().UTC(),
	}
	if err := db.Create(&proof).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db save failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "proof": proof})
}

// ==================== dashboard ====================

func dashboardSummaryHandler(c *gin.Context) {
	var loans []models.Loan
	if err := db.Preload("Installments").Find(&loans).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	now := time.Now()
	totalProfit := decimal.Zero
	active, completed, overduePayments := 0, 0, 0
	for _, loan := range loans {
		switch ledger.NormalizeLoanStatus(loan.Status) {
		case models.LoanActive:
			active++
		case models.LoanCompleted:
			completed++
		}
		totalProfit = totalProfit.Add(loan.Profit)
		for _, inst := range loan.Installments {
			pastDue := inst.Status == models.InstallmentPending && inst.DueDate.Before(now)
			if inst.Status == models.InstallmentOverdue || pastDue {
				overduePayments++
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"totalLoans":      len(loans),
		"activeLoans":     active,
		"completedLoans":  completed,
		"totalProfit":     totalProfit,
		"overduePayments": overduePayments,
	})
}

type upcomingPayment struct {
	ID         uint                     `json:"id"`
	LoanID     uint                     `json:"loanId"`
	Number     int                      `json:"installmentNumber"`
	Value      decimal.Decimal          `json:"value"`
	DueDate    time.Time                `json:"dueDate"`
	Status     models.InstallmentStatus `json:"status"`
	FriendName string                   `json:"friendName"`
}

// queryUpcomingPayments returns non-paid installments across all loans in
// due-date order, with the borrower's name attached.
func queryUpcomingPayments(limit int) ([]upcomingPayment, error) {
	var rows []upcomingPayment
	q := db.Model(&models.Installment{}).
		Select("installments.id, installments.loan_id, installments.number, installments.value, installments.due_date, installments.status, loans.friend_name").
		Joins("JOIN loans ON loans.id = installments.loan_id").
		Where("installments.status <> ?", models.InstallmentPaid).
		Order("installments.due_date")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Scan(&rows).Error
	return rows, err
}

func upcomingPaymentsHandler(c *gin.Context) {
	rows, err := queryUpcomingPayments(10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":                row.ID,
			"loanId":            row.LoanID,
			"installmentNumber": row.Number,
			"value":             row.Value,
			"dueDate":           row.DueDate,
			"status":            row.Status,
			"friendName":        row.FriendName,
			"loan":              gin.H{"friendName": row.FriendName},
		})
	}
	c.JSON(http.StatusOK, out)
}

func profitTrendsHandler(c *gin.Context) {
	var loans []models.Loan
	if err := db.Find(&loans).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, ledger.BuildProfitTrendSeries(loans))
}

// ==================== misc ====================

func healthHandler(c *gin.Context) {
	payload := gin.H{
		"status":        "ok",
		"service":       "lendtrack",
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"uptimeSeconds": int(time.Since(startTime).Seconds()),
	}
	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		payload["status"] = "degraded"
		payload["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, payload)
		return
	}
	payload["database"] = "ok"
	c.JSON(http.StatusOK, payload)
}

// serveSPA serves the frontend from public/ when the directory exists;
// non-API paths fall back to index.html for client-side routing.
func serveSPA(r *gin.Engine) {
	if fi, err := os.Stat("public"); err != nil || !fi.IsDir() {
		return
	}
	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		p := filepath.Join("public", filepath.Clean("/"+c.Request.URL.Path))
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			c.File(p)
			return
		}
		c.File(filepath.Join("public", "index.html"))
	})
}
