package service

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"doneasy-checkout/internal/model"
)

// WIB is Western Indonesia Time, used for every displayed timestamp
var WIB = time.FixedZone("WIB", 7*60*60)

var rupiahPrinter = message.NewPrinter(language.Indonesian)

var bulan = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

var methodLabels = map[model.PaymentMethod]string{
	model.PaymentMethodBankTransfer: "Transfer Bank",
	model.PaymentMethodEWallet:      "E-Wallet",
	model.PaymentMethodCard:         "Kartu Kredit/Debit",
}

// FormatRupiah formats amount as "Rp 51.250"
func FormatRupiah(amount int64) string {
	return rupiahPrinter.Sprintf("Rp %d", amount)
}

// FormatCountdown formats d as mm:ss, clamping at zero
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// FormatDateTime formats t as "15 Oktober 2026 16:30 WIB"
func FormatDateTime(t time.Time) string {
	t = t.In(WIB)
	return fmt.Sprintf("%d %s %d %02d:%02d WIB", t.Day(), bulan[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

// MethodLabel returns the display label of a payment method
func MethodLabel(m model.PaymentMethod) string {
	if label, ok := methodLabels[m]; ok {
		return label
	}
	return string(m)
}

// FormatReceipt renders a confirmation as a plain-text receipt
func FormatReceipt(record *model.ConfirmationRecord) string {
	p := record.PledgeSnapshot

	var b strings.Builder
	b.WriteString("✅ DONASI BERHASIL\n")
	b.WriteString("━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "ID Transaksi: %s\n", record.TransactionID)
	fmt.Fprintf(&b, "Kampanye: %s\n", p.CampaignTitle)
	fmt.Fprintf(&b, "Donatur: %s\n", p.DisplayName())
	fmt.Fprintf(&b, "Nominal: %s\n", FormatRupiah(record.Fee.Amount))
	fmt.Fprintf(&b, "Biaya Admin: %s\n", FormatRupiah(record.Fee.AdminFee))
	fmt.Fprintf(&b, "Total: %s\n", FormatRupiah(record.Fee.Total))
	fmt.Fprintf(&b, "Metode: %s\n", MethodLabel(p.PaymentMethod))
	fmt.Fprintf(&b, "Waktu: %s\n", FormatDateTime(record.ConfirmedAt))
	if msg := strings.TrimSpace(p.Message); msg != "" {
		fmt.Fprintf(&b, "\nPesan/Doa:\n%s\n", msg)
	}
	return b.String()
}
