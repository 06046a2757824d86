package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"lendtrack/models"
	"lendtrack/pkg/ledger"
)

// googleOAuthConfig builds the OAuth2 config from env. Returns nil when the
// Google integration is not configured.
func googleOAuthConfig() *oauth2.Config {
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil
	}
	redirect := os.Getenv("GOOGLE_REDIRECT_URI")
	if redirect == "" {
		redirect = "http://localhost:3000/api/google/callback"
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirect,
		Scopes:       []string{gcal.CalendarScope},
		Endpoint:     google.Endpoint,
	}
}

// Tokens live in a single-row table so the connection survives restarts.

func loadCalendarToken() (*oauth2.Token, error) {
	var row models.CalendarToken
	if err := db.Order("id").First(&row).Error; err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		TokenType:    row.TokenType,
		Expiry:       row.Expiry,
	}, nil
}

// saveCalendarToken upserts the stored token. Google omits the refresh token
// on re-consent, so an empty one never overwrites a stored one.
func saveCalendarToken(tok *oauth2.Token) error {
	var row models.CalendarToken
	err := db.Order("id").First(&row).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}
	row.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		row.RefreshToken = tok.RefreshToken
	}
	row.TokenType = tok.TokenType
	row.Expiry = tok.Expiry
	return db.Save(&row).Error
}

// calendarService returns an authenticated Calendar client, refreshing the
// access token through the stored refresh token when needed.
func calendarService(c *gin.Context) (*gcal.Service, error) {
	cfg := googleOAuthConfig()
	if cfg == nil {
		return nil, fmt.Errorf("google calendar is not configured")
	}
	stored, err := loadCalendarToken()
	if err != nil {
		return nil, fmt.Errorf("google calendar not connected")
	}
	fresh, err := cfg.TokenSource(c.Request.Context(), stored).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh google token: %w", err)
	}
	if fresh.AccessToken != stored.AccessToken {
		if err := saveCalendarToken(fresh); err != nil {
			return nil, err
		}
	}
	return gcal.NewService(c.Request.Context(),
		option.WithTokenSource(oauth2.StaticTokenSource(fresh)))
}

// ==================== handlers ====================

func googleAuthURLHandler(c *gin.Context) {
	cfg := googleOAuthConfig()
	if cfg == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "google calendar is not configured"})
		return
	}
	url := cfg.AuthCodeURL("state",
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"))
	c.JSON(http.StatusOK, gin.H{"authUrl": url})
}

func googleCallbackHandler(c *gin.Context) {
	cfg := googleOAuthConfig()
	if cfg == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "google calendar is not configured"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusFound, "/?google_sync=error")
		return
	}
	tok, err := cfg.Exchange(c.Request.Context(), code)
	if err != nil {
		c.Redirect(http.StatusFound, "/?google_sync=error")
		return
	}
	if err := saveCalendarToken(tok); err != nil {
		c.Redirect(http.StatusFound, "/?google_sync=error")
		return
	}
	c.Redirect(http.StatusFound, "/?google_sync=success")
}

func googleAuthStatusHandler(c *gin.Context) {
	_, err := loadCalendarToken()
	c.JSON(http.StatusOK, gin.H{"authenticated": err == nil})
}

// syncLoansHandler creates an all-day event on each loan's final payment date.
func syncLoansHandler(c *gin.Context) {
	svc, err := calendarService(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var loans []models.Loan
	if err := db.Where("status = ?", models.LoanActive).Find(&loans).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	created := 0
	for _, loan := range loans {
		day := ledger.DateKey(loan.FinalPaymentDate)
		next := ledger.DateKey(loan.FinalPaymentDate.AddDate(0, 0, 1))
		event := &gcal.Event{
			Summary: fmt.Sprintf("Empréstimo - %s (Vencimento Final)", loan.FriendName),
			Description: fmt.Sprintf("Valor total: R$ %s\nLucro: R$ %s",
				loan.TotalValue.StringFixed(2), loan.Profit.StringFixed(2)),
			Start:   &gcal.EventDateTime{Date: day},
			End:     &gcal.EventDateTime{Date: next},
			ColorId: "2",
		}
		if _, err := svc.Events.Insert("primary", event).Do(); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("failed to create event: %v", err), "eventsCreated": created})
			return
		}
		created++
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "eventsCreated": created})
}

// syncInstallmentsHandler creates an all-day event per pending upcoming
// installment.
func syncInstallmentsHandler(c *gin.Context) {
	svc, err := calendarService(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var installments []models.Installment
	err = db.
		Where("status = ? AND due_date >= ?", models.InstallmentPending, time.Now().UTC().Truncate(24*time.Hour)).
		Order("due_date").
		Find(&installments).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	names := map[uint]string{}
	created := 0
	for _, inst := range installments {
		name, ok := names[inst.LoanID]
		if !ok {
			var loan models.Loan
			if err := db.Select("friend_name").First(&loan, inst.LoanID).Error; err != nil {
				continue
			}
			name = loan.FriendName
			names[inst.LoanID] = name
		}
		day := ledger.DateKey(inst.DueDate)
		next := ledger.DateKey(inst.DueDate.AddDate(0, 0, 1))
		event := &gcal.Event{
			Summary:     fmt.Sprintf("Parcela %d - %s", inst.Number, name),
			Description: fmt.Sprintf("Valor: R$ %s", inst.Value.StringFixed(2)),
			Start:       &gcal.EventDateTime{Date: day},
			End:         &gcal.EventDateTime{Date: next},
			ColorId:     "5",
		}
		if _, err := svc.Events.Insert("primary", event).Do(); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("failed to create event: %v", err), "eventsCreated": created})
			return
		}
		created++
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "eventsCreated": created})
}
