package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/mdp/qrterminal/v3"

	"doneasy-checkout/internal/checkout"
	"doneasy-checkout/internal/config"
	"doneasy-checkout/internal/model"
	"doneasy-checkout/internal/service"
	"doneasy-checkout/pkg/logger"
)

// systemClipboard writes to the OS clipboard
type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return errors.New("clipboard not supported on this system")
	}
	return clipboard.WriteAll(text)
}

func main() {
	campaignID := flag.String("campaign", "", "campaign id")
	title := flag.String("title", "", "campaign title")
	amount := flag.Int64("amount", 0, "initial amount in rupiah")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appLogger := logger.NewWithWriter(os.Stderr, cfg.LogLevel)

	var verifier checkout.Verifier = checkout.DelayVerifier{Delay: cfg.Checkout.VerifyDelay}
	if cfg.Verification.URL != "" {
		verifier = service.NewVerificationService(&cfg.Verification, appLogger)
	}

	machine := checkout.NewMachine(checkout.Settings{
		Rules: checkout.FormRules{
			MinAmount:     cfg.Checkout.MinAmount,
			MaxAmount:     cfg.Checkout.MaxAmount,
			PresetAmounts: cfg.Checkout.PresetAmounts,
		},
		AdminFeeBPS:   cfg.Checkout.AdminFeeBPS,
		PaymentWindow: cfg.Checkout.PaymentWindow,
		TickInterval:  cfg.Checkout.TickInterval,
	})

	changes := make(chan checkout.State, 16)
	last := checkout.StepForm
	flow, err := checkout.NewFlow(model.Seed{
		CampaignID:    *campaignID,
		CampaignTitle: *title,
		Amount:        *amount,
	}, machine, checkout.FlowOptions{
		Verifier: verifier,
		Logger:   appLogger,
		Observer: func(s checkout.State) {
			// only step changes wake the terminal, not countdown ticks
			if s.Step() == last {
				return
			}
			last = s.Step()
			select {
			case changes <- s:
			default:
			}
		},
	})
	if err != nil {
		var missing *checkout.MissingContextError
		if errors.As(err, &missing) {
			fmt.Fprintln(os.Stderr, "Pilih kampanye terlebih dahulu: jalankan dengan -campaign <id>")
			os.Exit(2)
		}
		log.Fatalf("Failed to start checkout: %v", err)
	}
	defer flow.Close()

	t := &terminal{
		flow:    flow,
		machine: machine,
		logger:  appLogger,
		lines:   readLines(os.Stdin),
		changes: changes,
	}
	if err := t.run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readLines forwards stdin lines until EOF, then closes the channel
func readLines(f *os.File) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			out <- strings.TrimSpace(scanner.Text())
		}
	}()
	return out
}

var errQuit = errors.New("checkout dibatalkan")

type terminal struct {
	flow    *checkout.Flow
	machine *checkout.Machine
	logger  *logger.Logger
	lines   <-chan string
	changes <-chan checkout.State
}

func (t *terminal) run(ctx context.Context) error {
	for {
		state, err := t.flow.State(ctx)
		if err != nil {
			return err
		}

		switch st := state.(type) {
		case checkout.FormStep:
			err = t.form(ctx, st.Form)
		case checkout.PaymentStep:
			err = t.payment(ctx, st)
		case checkout.ConfirmingStep:
			fmt.Println("Memverifikasi pembayaran...")
			err = t.waitChange(ctx)
		case checkout.SuccessStep:
			fmt.Println()
			fmt.Print(service.FormatReceipt(&st.Record))
			return nil
		case checkout.ExpiredStep:
			err = t.expired(ctx)
		case checkout.AbandonedStep:
			return errQuit
		}

		if errors.Is(err, errQuit) {
			t.flow.Close()
			fmt.Println("Checkout dibatalkan.")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// prompt prints label and returns the next input line
func (t *terminal) prompt(label string) (string, error) {
	fmt.Print(label)
	line, ok := <-t.lines
	if !ok {
		return "", errQuit
	}
	if line == "q" {
		return "", errQuit
	}
	return line, nil
}

func (t *terminal) dispatch(ctx context.Context, e checkout.Event) error {
	_, err := t.flow.Dispatch(ctx, e)
	var validation *checkout.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &validation):
		fmt.Printf("  ! %s\n", validationMessage(validation, t.machine))
		return nil
	case errors.Is(err, checkout.ErrFlowClosed):
		return errQuit
	default:
		fmt.Printf("  ! %v\n", err)
		return nil
	}
}

func (t *terminal) form(ctx context.Context, form checkout.Form) error {
	if form.Stage() == checkout.StageAmount {
		return t.amountStage(ctx, form)
	}
	return t.donorStage(ctx, form)
}

func (t *terminal) amountStage(ctx context.Context, form checkout.Form) error {
	pledge := form.Pledge()
	fmt.Printf("\nDonasi untuk: %s\n", pledge.CampaignTitle)
	for i, preset := range form.Rules().PresetAmounts {
		fmt.Printf("  %d) %s\n", i+1, service.FormatRupiah(preset))
	}
	if pledge.Amount > 0 {
		fmt.Printf("Nominal saat ini: %s\n", service.FormatRupiah(pledge.Amount))
	}

	line, err := t.prompt("Pilih nominal (nomor) atau ketik nominal lain, Enter untuk lanjut: ")
	if err != nil {
		return err
	}
	if line != "" {
		presets := form.Rules().PresetAmounts
		var event checkout.Event = checkout.EnterCustomAmount{Input: line}
		if n, convErr := strconv.Atoi(line); convErr == nil && n >= 1 && n <= len(presets) {
			event = checkout.SelectPreset{Amount: presets[n-1]}
		}
		if err := t.dispatch(ctx, event); err != nil {
			return err
		}
	}

	fmt.Println("Metode pembayaran:")
	for i, method := range model.PaymentMethods {
		ch := t.machine.Channels().Resolve(method)
		note := ""
		if ch.Unavailable {
			note = " (segera hadir)"
		}
		marker := " "
		if method == pledge.PaymentMethod {
			marker = "*"
		}
		fmt.Printf(" %s%d) %s%s\n", marker, i+1, ch.Label, note)
	}
	line, err = t.prompt("Pilih metode, Enter untuk tetap: ")
	if err != nil {
		return err
	}
	if n, convErr := strconv.Atoi(line); convErr == nil && n >= 1 && n <= len(model.PaymentMethods) {
		if err := t.dispatch(ctx, checkout.SelectMethod{Method: model.PaymentMethods[n-1]}); err != nil {
			return err
		}
	}

	return t.dispatch(ctx, checkout.Advance{})
}

func (t *terminal) donorStage(ctx context.Context, form checkout.Form) error {
	pledge := form.Pledge()
	fee := t.machine.Fees().Compute(pledge.Amount)
	fmt.Printf("\nNominal %s + biaya admin %s = %s\n",
		service.FormatRupiah(fee.Amount), service.FormatRupiah(fee.AdminFee), service.FormatRupiah(fee.Total))

	name, err := t.prompt("Nama lengkap (\"<\" untuk kembali): ")
	if err != nil {
		return err
	}
	if name == "<" {
		return t.dispatch(ctx, checkout.Back{})
	}
	email, err := t.prompt("Email (opsional): ")
	if err != nil {
		return err
	}
	message, err := t.prompt("Pesan atau doa (opsional): ")
	if err != nil {
		return err
	}
	anon, err := t.prompt("Sembunyikan nama (donasi anonim)? [y/N]: ")
	if err != nil {
		return err
	}

	donor := checkout.DonorDetails{
		Name:        name,
		Email:       email,
		Message:     message,
		IsAnonymous: strings.EqualFold(anon, "y"),
	}
	if err := t.dispatch(ctx, checkout.UpdateDonor{Donor: donor}); err != nil {
		return err
	}
	return t.dispatch(ctx, checkout.Advance{})
}

func (t *terminal) payment(ctx context.Context, st checkout.PaymentStep) error {
	donor := st.Pledge.DonorName
	if st.Pledge.IsAnonymous {
		donor = "Anonim"
	}
	fmt.Printf("\nDonatur: %s\n", donor)
	fmt.Printf("Total transfer: %s via %s\n", service.FormatRupiah(st.Fee.Total), st.Channel.Label)
	if st.Channel.Description != "" {
		fmt.Println(st.Channel.Description)
	}
	for i, opt := range st.Channel.SettlementOptions {
		fmt.Printf("  %d) %s %s a.n. %s\n", i+1, opt.ChannelLabel, opt.AccountNumber, opt.AccountHolderName)
	}
	if st.Notice != "" {
		fmt.Printf("  ! %s\n", st.Notice)
	}
	left := checkout.Remaining(st.Remaining, t.machine.TickInterval())
	fmt.Printf("Selesaikan dalam %s\n", service.FormatCountdown(left))
	fmt.Print("Perintah: salin <n>, qr <n>, waktu, konfirmasi, q: ")

	t.drainChanges()
	if state, err := t.flow.State(ctx); err != nil || state.Step() != checkout.StepPayment {
		return err
	}
	for {
		select {
		case <-t.changes:
			state, err := t.flow.State(ctx)
			if err != nil {
				return err
			}
			if state.Step() != checkout.StepPayment {
				fmt.Println()
				return nil
			}
		case line, ok := <-t.lines:
			if !ok || line == "q" {
				return errQuit
			}
			done, err := t.paymentCommand(ctx, line)
			if err != nil || done {
				return err
			}
			fmt.Print("> ")
		}
	}
}

// paymentCommand runs one command on the payment step; done reports a step change
func (t *terminal) paymentCommand(ctx context.Context, line string) (done bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	state, err := t.flow.State(ctx)
	if err != nil {
		return false, err
	}
	st, ok := state.(checkout.PaymentStep)
	if !ok {
		return true, nil
	}

	index := -1
	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[1]); err == nil {
			index = n - 1
		}
	}

	switch fields[0] {
	case "salin":
		account, copied, err := checkout.CopySettlement(systemClipboard{}, st, index, t.logger)
		switch {
		case err != nil:
			fmt.Printf("  ! %v\n", err)
		case copied:
			fmt.Printf("  Nomor %s disalin\n", account)
		default:
			fmt.Printf("  Salin manual: %s\n", account)
		}
	case "qr":
		account, err := checkout.SettlementOptionAt(st, index)
		if err != nil {
			fmt.Printf("  ! %v\n", err)
			return false, nil
		}
		qrterminal.GenerateHalfBlock(account, qrterminal.L, os.Stdout)
	case "waktu":
		left := checkout.Remaining(st.Remaining, t.machine.TickInterval())
		fmt.Printf("  Sisa waktu %s\n", service.FormatCountdown(left))
	case "konfirmasi":
		if err := t.dispatch(ctx, checkout.ConfirmPayment{}); err != nil {
			return false, err
		}
		next, err := t.flow.State(ctx)
		if err != nil {
			return false, err
		}
		return next.Step() != checkout.StepPayment, nil
	default:
		fmt.Println("  Perintah tidak dikenal")
	}
	return false, nil
}

// waitChange blocks until the flow leaves the confirming step
func (t *terminal) waitChange(ctx context.Context) error {
	t.drainChanges()
	for {
		state, err := t.flow.State(ctx)
		if err != nil {
			return err
		}
		if state.Step() != checkout.StepConfirming {
			return nil
		}
		select {
		case <-t.changes:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// drainChanges discards step changes the terminal has already rendered
func (t *terminal) drainChanges() {
	for {
		select {
		case <-t.changes:
		default:
			return
		}
	}
}

func (t *terminal) expired(ctx context.Context) error {
	fmt.Println("\nWaktu pembayaran habis.")
	line, err := t.prompt("Ulangi donasi? [y/N]: ")
	if err != nil {
		return err
	}
	if !strings.EqualFold(line, "y") {
		return errQuit
	}
	return t.dispatch(ctx, checkout.Restart{})
}

func validationMessage(err *checkout.ValidationError, m *checkout.Machine) string {
	switch err.Field {
	case "amount":
		rules := m.Rules()
		if rules.MaxAmount > 0 {
			return fmt.Sprintf("Nominal donasi antara %s dan %s",
				service.FormatRupiah(rules.MinAmount), service.FormatRupiah(rules.MaxAmount))
		}
		return "Minimal donasi " + service.FormatRupiah(rules.MinAmount)
	case "name":
		return "Nama wajib diisi"
	case "payment_method":
		return "Metode pembayaran tidak dikenal"
	}
	return err.Error()
}
