// Package notify sends installment reminder and collection emails on a
// daily schedule: reminders at 09:00 for installments due within three
// days, collection notices at 10:00 for installments past due (which are
// also flipped to overdue).
package notify

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"

	"lendtrack/models"
)

const reminderWindowDays = 3

// Config holds SMTP settings for outbound mail.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	From      string
	DefaultTo string
	AppURL    string
}

// ConfigFromEnv reads the SMTP_* variables the original deployment used.
func ConfigFromEnv() Config {
	port := 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}
	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:3000"
	}
	return Config{
		Host:      os.Getenv("SMTP_HOST"),
		Port:      port,
		User:      os.Getenv("SMTP_USER"),
		Password:  os.Getenv("SMTP_PASSWORD"),
		From:      os.Getenv("SMTP_USER"),
		DefaultTo: os.Getenv("DEFAULT_NOTIFICATION_EMAIL"),
		AppURL:    appURL,
	}
}

// Enabled reports whether enough SMTP configuration is present to send.
func (c Config) Enabled() bool {
	return c.Host != "" && c.User != ""
}

// Notifier queries installments and sends reminder/collection emails.
type Notifier struct {
	db   *gorm.DB
	cfg  Config
	send func(...*gomail.Message) error
	now  func() time.Time
}

func New(db *gorm.DB, cfg Config) *Notifier {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return &Notifier{db: db, cfg: cfg, send: dialer.DialAndSend, now: time.Now}
}

// Schedule registers the two daily jobs on c. The caller starts the cron.
func (n *Notifier) Schedule(c *cron.Cron) error {
	if _, err := c.AddFunc("0 9 * * *", n.RunReminders); err != nil {
		return err
	}
	if _, err := c.AddFunc("0 10 * * *", n.RunOverdueSweep); err != nil {
		return err
	}
	return nil
}

// RunReminders mails a reminder for every pending installment due within
// the reminder window.
func (n *Notifier) RunReminders() {
	now := n.now()
	cutoff := endOfDay(now.AddDate(0, 0, reminderWindowDays))

	var due []models.Installment
	err := n.db.
		Where("status = ? AND due_date >= ? AND due_date <= ?", models.InstallmentPending, now, cutoff).
		Order("due_date").
		Find(&due).Error
	if err != nil {
		log.Printf("reminder sweep query failed: %v", err)
		return
	}
	log.Printf("reminder sweep: %d installment(s) due within %d days", len(due), reminderWindowDays)

	for _, inst := range due {
		loan, err := n.loanFor(inst)
		if err != nil {
			log.Printf("reminder sweep: loan %d not found for installment %d: %v", inst.LoanID, inst.ID, err)
			continue
		}
		if err := n.SendReminder(inst, loan); err != nil {
			log.Printf("reminder email for installment %d failed: %v", inst.ID, err)
		}
	}
}

// RunOverdueSweep marks pending installments past their due date as
// overdue and mails a collection notice for each.
func (n *Notifier) RunOverdueSweep() {
	now := n.now()

	var late []models.Installment
	err := n.db.
		Where("status = ? AND due_date < ?", models.InstallmentPending, now).
		Order("due_date").
		Find(&late).Error
	if err != nil {
		log.Printf("overdue sweep query failed: %v", err)
		return
	}
	log.Printf("overdue sweep: %d installment(s) past due", len(late))

	for _, inst := range late {
		if err := n.db.Model(&models.Installment{}).
			Where("id = ?", inst.ID).
			Update("status", models.InstallmentOverdue).Error; err != nil {
			log.Printf("overdue sweep: marking installment %d failed: %v", inst.ID, err)
			continue
		}
		loan, err := n.loanFor(inst)
		if err != nil {
			log.Printf("overdue sweep: loan %d not found for installment %d: %v", inst.LoanID, inst.ID, err)
			continue
		}
		if err := n.SendOverdueNotice(inst, loan); err != nil {
			log.Printf("collection email for installment %d failed: %v", inst.ID, err)
		}
	}
}

func (n *Notifier) loanFor(inst models.Installment) (models.Loan, error) {
	var loan models.Loan
	err := n.db.First(&loan, inst.LoanID).Error
	return loan, err
}

// SendReminder mails a friendly due-date reminder for one installment.
func (n *Notifier) SendReminder(inst models.Installment, loan models.Loan) error {
	to := recipientFor(loan, n.cfg.DefaultTo)
	if to == "" {
		log.Printf("no recipient for loan %d; skipping reminder", loan.ID)
		return nil
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", n.cfg.From, "Payment Tracker")
	m.SetHeader("To", to)
	m.SetHeader("Subject", reminderSubject(inst, n.now()))
	m.SetBody("text/html", reminderBody(inst, loan, n.cfg.AppURL, n.now()))
	return n.send(m)
}

// SendOverdueNotice mails a collection notice for one overdue installment.
func (n *Notifier) SendOverdueNotice(inst models.Installment, loan models.Loan) error {
	to := recipientFor(loan, n.cfg.DefaultTo)
	if to == "" {
		log.Printf("no recipient for loan %d; skipping collection notice", loan.ID)
		return nil
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", n.cfg.From, "Payment Tracker")
	m.SetHeader("To", to)
	m.SetHeader("Subject", overdueSubject(inst, n.now()))
	m.SetHeader("X-Priority", "1")
	m.SetBody("text/html", overdueBody(inst, loan, n.cfg.AppURL, n.now()))
	return n.send(m)
}

func recipientFor(loan models.Loan, fallback string) string {
	if loan.FriendEmail != "" {
		return loan.FriendEmail
	}
	return fallback
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
