package checkout_test

import (
	"errors"
	"testing"

	"doneasy-checkout/internal/checkout"
	"doneasy-checkout/internal/model"
)

var testRules = checkout.FormRules{
	MinAmount:     10000,
	MaxAmount:     10000000000,
	PresetAmounts: []int64{25000, 50000, 100000, 250000, 500000, 1000000},
}

func newTestForm(t *testing.T) checkout.Form {
	t.Helper()
	f, err := checkout.NewForm(model.Seed{CampaignID: "1", CampaignTitle: "Beasiswa"}, testRules)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return f
}

func TestNewFormRequiresCampaign(t *testing.T) {
	_, err := checkout.NewForm(model.Seed{CampaignTitle: "no id"}, testRules)
	var missing *checkout.MissingContextError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingContextError, got %v", err)
	}
}

func TestNewFormSeedAmount(t *testing.T) {
	f, _ := checkout.NewForm(model.Seed{CampaignID: "1", Amount: 50000}, testRules)
	if f.PresetAmount() != 50000 || f.CustomAmount() != "" {
		t.Fatalf("expected preset 50000, got preset=%d custom=%q", f.PresetAmount(), f.CustomAmount())
	}

	f, _ = checkout.NewForm(model.Seed{CampaignID: "1", Amount: 12345}, testRules)
	if f.PresetAmount() != 0 || f.CustomAmount() != "12345" {
		t.Fatalf("expected custom 12345, got preset=%d custom=%q", f.PresetAmount(), f.CustomAmount())
	}

	f, _ = checkout.NewForm(model.Seed{CampaignID: "1"}, testRules)
	if f.Amount() != 0 {
		t.Fatalf("expected zero amount, got %d", f.Amount())
	}
	if f.Pledge().PaymentMethod != model.PaymentMethodBankTransfer {
		t.Fatalf("expected default method bank-transfer, got %q", f.Pledge().PaymentMethod)
	}
}

func TestCustomAmountStripsNonDigits(t *testing.T) {
	cases := map[string]int64{
		"":                        0,
		"abc":                     0,
		"Rp 15.000":               15000,
		"1,250,000":               1250000,
		" 20 000 ":                20000,
		"٣٠٠٠٠":                   0, // only ASCII digits count
		"-5000":                   5000,
		"99999999999999999999999": 0,
	}
	for input, want := range cases {
		f := newTestForm(t)
		f.EnterCustomAmount(input)
		if got := f.Amount(); got != want {
			t.Errorf("input %q: expected %d, got %d", input, want, got)
		}
	}
}

func TestPresetAndCustomAreExclusive(t *testing.T) {
	f := newTestForm(t)

	f.EnterCustomAmount("75000")
	if err := f.SelectPreset(100000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.CustomAmount() != "" {
		t.Fatalf("expected custom amount cleared, got %q", f.CustomAmount())
	}
	if f.Amount() != 100000 {
		t.Fatalf("expected 100000, got %d", f.Amount())
	}

	f.EnterCustomAmount("30000")
	if f.PresetAmount() != 0 {
		t.Fatalf("expected preset cleared, got %d", f.PresetAmount())
	}
	if f.Amount() != 30000 {
		t.Fatalf("expected 30000, got %d", f.Amount())
	}

	// a long alternating sequence never leaves both set
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			_ = f.SelectPreset(testRules.PresetAmounts[i%len(testRules.PresetAmounts)])
		} else {
			f.EnterCustomAmount("12000")
		}
		if f.PresetAmount() != 0 && f.CustomAmount() != "" {
			t.Fatalf("step %d: both preset and custom set", i)
		}
	}
}

func TestSelectPresetRejectsUnknownAmount(t *testing.T) {
	f := newTestForm(t)
	f.EnterCustomAmount("40000")
	err := f.SelectPreset(40000)

	var verr *checkout.ValidationError
	if !errors.As(err, &verr) || verr.Field != "amount" {
		t.Fatalf("expected amount ValidationError, got %v", err)
	}
	if f.CustomAmount() != "40000" {
		t.Fatal("rejected preset must not clear the custom amount")
	}
}

func TestCanAdvanceMinimum(t *testing.T) {
	for amount := int64(0); amount < 30000; amount += 500 {
		f := newTestForm(t)
		f.EnterCustomAmount(itoa(amount))
		want := amount >= testRules.MinAmount
		if f.CanAdvance() != want {
			t.Fatalf("amount %d: expected CanAdvance=%v", amount, want)
		}

		// donor stage with a name follows the same threshold
		f.SetDonor(checkout.DonorDetails{Name: "Ahmad"})
		if _, _, err := f.Advance(); err != nil {
			if want {
				t.Fatalf("amount %d: unexpected error %v", amount, err)
			}
			continue
		}
		if f.CanAdvance() != want {
			t.Fatalf("amount %d on donor stage: expected CanAdvance=%v", amount, want)
		}
	}
}

func TestAdvanceBelowMinimum(t *testing.T) {
	f := newTestForm(t)
	f.EnterCustomAmount("5000")

	_, done, err := f.Advance()
	var verr *checkout.ValidationError
	if !errors.As(err, &verr) || verr.Field != "amount" {
		t.Fatalf("expected amount ValidationError, got %v", err)
	}
	if done || f.Stage() != checkout.StageAmount {
		t.Fatal("form must stay on the amount stage")
	}
}

func TestAdvanceAboveMaximum(t *testing.T) {
	f := newTestForm(t)
	f.EnterCustomAmount("Rp 9.000.000.000.000.000.000")

	if f.CanAdvance() {
		t.Fatal("expected CanAdvance=false above the maximum")
	}
	_, done, err := f.Advance()
	var verr *checkout.ValidationError
	if !errors.As(err, &verr) || verr.Field != "amount" {
		t.Fatalf("expected amount ValidationError, got %v", err)
	}
	if done || f.Stage() != checkout.StageAmount {
		t.Fatal("form must stay on the amount stage")
	}
}

func TestCanAdvanceMaximumBoundary(t *testing.T) {
	cases := map[int64]bool{
		testRules.MaxAmount - 1: true,
		testRules.MaxAmount:     true,
		testRules.MaxAmount + 1: false,
	}
	for amount, want := range cases {
		f := newTestForm(t)
		f.EnterCustomAmount(itoa(amount))
		if f.CanAdvance() != want {
			t.Errorf("amount %d: expected CanAdvance=%v", amount, want)
		}
	}
}

func TestCustomAmountOverflowIsZero(t *testing.T) {
	f := newTestForm(t)
	f.EnterCustomAmount("99999999999999999999")
	if f.Amount() != 0 || f.CanAdvance() {
		t.Fatalf("expected overflowing input to count as zero, got %d", f.Amount())
	}
}

func TestDonorNameRequired(t *testing.T) {
	f := newTestForm(t)
	_ = f.SelectPreset(50000)
	if _, _, err := f.Advance(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Stage() != checkout.StageDonor {
		t.Fatalf("expected donor stage, got %s", f.Stage())
	}

	// anonymity does not waive the name
	f.SetDonor(checkout.DonorDetails{Name: "   ", IsAnonymous: true})
	if f.CanAdvance() {
		t.Fatal("expected CanAdvance=false with blank name")
	}
	_, _, err := f.Advance()
	var verr *checkout.ValidationError
	if !errors.As(err, &verr) || verr.Field != "name" {
		t.Fatalf("expected name ValidationError, got %v", err)
	}

	f.SetDonor(checkout.DonorDetails{Name: " Ahmad ", Email: "ahmad@contoh.com", IsAnonymous: true})
	pledge, done, err := f.Advance()
	if err != nil || !done {
		t.Fatalf("expected completed form, got done=%v err=%v", done, err)
	}
	if pledge.DonorName != "Ahmad" || pledge.Amount != 50000 || !pledge.IsAnonymous {
		t.Fatalf("unexpected pledge %+v", pledge)
	}
	if pledge.DisplayName() != model.AnonymousDisplayName {
		t.Fatalf("expected anonymous display name, got %q", pledge.DisplayName())
	}
}

func TestBackReturnsToAmountStage(t *testing.T) {
	f := newTestForm(t)
	if f.Back() {
		t.Fatal("Back on amount stage should report false")
	}
	_ = f.SelectPreset(25000)
	_, _, _ = f.Advance()
	if !f.Back() || f.Stage() != checkout.StageAmount {
		t.Fatal("expected to return to amount stage")
	}
}

func TestSelectMethod(t *testing.T) {
	f := newTestForm(t)
	for _, m := range model.PaymentMethods {
		if err := f.SelectMethod(m); err != nil {
			t.Fatalf("method %s: unexpected error %v", m, err)
		}
	}
	if err := f.SelectMethod("cash"); err == nil {
		t.Fatal("expected error for unknown method")
	}
	if f.Pledge().PaymentMethod != model.PaymentMethodCard {
		t.Fatalf("unknown method must not replace the selection, got %q", f.Pledge().PaymentMethod)
	}
}
