package notify

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"lendtrack/models"
)

var hundred = decimal.NewFromInt(100)

// daysUntil counts calendar days from now until due, rounding partial days
// up, so an installment due tomorrow morning reads as "1 day".
func daysUntil(due, now time.Time) int {
	return int(math.Ceil(due.Sub(now).Hours() / 24))
}

// daysSince counts how long past due an installment is, rounding up.
func daysSince(due, now time.Time) int {
	return int(math.Ceil(now.Sub(due).Hours() / 24))
}

// LateFee computes the penalty for one overdue installment: its value
// times the loan's late-payment penalty rate.
func LateFee(inst models.Installment, loan models.Loan) decimal.Decimal {
	return inst.Value.Mul(loan.LatePaymentPenalty).Div(hundred).Round(2)
}

func reminderSubject(inst models.Installment, now time.Time) string {
	return fmt.Sprintf("Lembrete: Parcela #%d vence em %d dia(s)", inst.Number, daysUntil(inst.DueDate, now))
}

func reminderBody(inst models.Installment, loan models.Loan, appURL string, now time.Time) string {
	days := daysUntil(inst.DueDate, now)
	when := fmt.Sprintf("vencendo em %d dia(s)", days)
	if days == 0 {
		when = "vencendo hoje"
	}
	return fmt.Sprintf(`<html><body>
<p>Olá %s,</p>
<p>Este é um lembrete amigável sobre a parcela do seu empréstimo que está %s.</p>
<p><strong>Parcela #%d</strong><br>
Valor: R$ %s<br>
Vencimento: %s</p>
<p>Valor Total do Empréstimo: R$ %s<br>
Taxa de Juros: %s%%</p>
<p>Para evitar multas por atraso, por favor efetue o pagamento até a data de vencimento.</p>
<p><a href="%s">Acessar Sistema</a></p>
<p>Atenciosamente,<br>Payment Tracker</p>
</body></html>`,
		loan.FriendName, when,
		inst.Number, inst.Value.StringFixed(2), inst.DueDate.Format("02/01/2006"),
		loan.TotalValue.StringFixed(2), loan.InterestRate.StringFixed(2),
		appURL)
}

func overdueSubject(inst models.Installment, now time.Time) string {
	return fmt.Sprintf("URGENTE: Parcela #%d vencida há %d dia(s)", inst.Number, daysSince(inst.DueDate, now))
}

func overdueBody(inst models.Installment, loan models.Loan, appURL string, now time.Time) string {
	fee := LateFee(inst, loan)
	feeLine := ""
	if fee.IsPositive() {
		total := inst.Value.Add(fee)
		feeLine = fmt.Sprintf("Multa por Atraso: R$ %s<br>Valor Total a Pagar: R$ %s<br>", fee.StringFixed(2), total.StringFixed(2))
	}
	return fmt.Sprintf(`<html><body>
<p>Olá %s,</p>
<p><strong>ATENÇÃO:</strong> a parcela #%d do seu empréstimo está atrasada há %d dia(s).</p>
<p>Valor Original: R$ %s<br>
Data de Vencimento: %s<br>
%s</p>
<p>Para regularizar sua situação e evitar cobranças adicionais, por favor efetue o pagamento o quanto antes.</p>
<p><a href="%s">Pagar Agora</a></p>
<p>Atenciosamente,<br>Payment Tracker</p>
</body></html>`,
		loan.FriendName,
		inst.Number, daysSince(inst.DueDate, now),
		inst.Value.StringFixed(2), inst.DueDate.Format("02/01/2006"),
		feeLine,
		appURL)
}
