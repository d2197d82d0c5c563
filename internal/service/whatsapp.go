package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mdp/qrterminal/v3"
	qrcode "github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	"doneasy-checkout/internal/config"
	"doneasy-checkout/internal/model"
	"doneasy-checkout/pkg/logger"
)

var nonDigit = regexp.MustCompile(`[^\d]`)

// WhatsAppService posts donation receipts to the foundation's WhatsApp chat
type WhatsAppService struct {
	client      *whatsmeow.Client
	container   *sqlstore.Container
	logger      *logger.Logger
	destination types.JID
}

// NewWhatsAppService creates a new WhatsApp service
func NewWhatsAppService(cfg *config.WhatsAppConfig, log *logger.Logger) (*WhatsAppService, error) {
	ctx := context.Background()

	destination, _, err := ParseDestination(cfg.NotifyDestination)
	if err != nil {
		return nil, fmt.Errorf("invalid notify destination: %w", err)
	}

	// Ensure database directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Setup database for session storage
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", cfg.DBPath), waLog.Noop)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	// Get first device or create new one
	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return &WhatsAppService{
		client:      whatsmeow.NewClient(deviceStore, waLog.Noop),
		container:   container,
		logger:      log,
		destination: destination,
	}, nil
}

// Connect connects to WhatsApp, pairing with a QR code on first run
func (s *WhatsAppService) Connect(ctx context.Context) error {
	s.client.AddEventHandler(s.handleEvent)

	if s.client.Store.ID != nil {
		s.logger.Info("Existing session found, connecting...")
		if err := s.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return nil
	}

	s.logger.Info("No logged in session found, starting QR code pairing...")
	qrChan, err := s.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get QR channel: %w", err)
	}
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to WhatsApp: %w", err)
	}

	qrCount := 0
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			qrCount++
			s.showPairingCode(evt.Code, qrCount)
		case "success":
			s.logger.Info("Pairing successful")
			return nil
		case "timeout":
			return fmt.Errorf("QR code scan timeout")
		default:
			if evt.Error != nil {
				return fmt.Errorf("QR code error: %w", evt.Error)
			}
			s.logger.Info("QR channel event", "event", evt.Event)
		}
	}

	if !s.client.IsLoggedIn() {
		return fmt.Errorf("pairing ended without login")
	}
	return nil
}

// showPairingCode prints the pairing QR to the terminal and saves it as PNG
func (s *WhatsAppService) showPairingCode(code string, count int) {
	if count == 1 {
		fmt.Println("\nScan with WhatsApp > Linked Devices > Link a Device:")
	} else {
		fmt.Printf("\nQR Code refreshed (#%d)\n", count)
	}
	qrterminal.GenerateHalfBlock(code, qrterminal.L, os.Stdout)

	qrFilename := "whatsapp-qrcode.png"
	if err := qrcode.WriteFile(code, qrcode.Medium, 512, qrFilename); err != nil {
		s.logger.Error("Failed to generate QR code PNG", "error", err)
		return
	}
	s.logger.Info("QR code saved", "file", qrFilename, "refresh_count", count)
}

// Disconnect disconnects from WhatsApp
func (s *WhatsAppService) Disconnect() {
	s.client.Disconnect()
	s.logger.Info("WhatsApp client disconnected")
}

// IsConnected checks if client is connected
func (s *WhatsAppService) IsConnected() bool {
	return s.client.IsConnected()
}

// NotifyConfirmation posts the receipt to the configured chat
func (s *WhatsAppService) NotifyConfirmation(ctx context.Context, record *model.ConfirmationRecord) error {
	messageID, err := s.SendMessage(ctx, s.destination, FormatReceipt(record))
	if err != nil {
		return err
	}
	s.logger.WithTrxID(record.TransactionID).Info("Receipt sent to WhatsApp",
		"destination", s.destination.String(),
		"message_id", messageID,
	)
	return nil
}

// SendMessage sends a text message to WhatsApp
func (s *WhatsAppService) SendMessage(ctx context.Context, to types.JID, text string) (string, error) {
	if !s.IsConnected() {
		return "", fmt.Errorf("WhatsApp client not connected")
	}

	message := &waE2E.Message{
		Conversation: &text,
	}

	resp, err := s.client.SendMessage(ctx, to, message)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	return resp.ID, nil
}

// GetConnectionStatus returns connection status information
func (s *WhatsAppService) GetConnectionStatus() map[string]interface{} {
	status := map[string]interface{}{
		"connected":   s.IsConnected(),
		"destination": s.destination.String(),
	}

	if s.client.Store.ID != nil {
		status["phone"] = s.client.Store.ID.User
	}

	return status
}

func (s *WhatsAppService) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Connected:
		s.logger.Info("WhatsApp client connected")
	case *events.Disconnected:
		s.logger.Warn("WhatsApp client disconnected")
	case *events.LoggedOut:
		s.logger.Error("Device logged out", "reason", v.Reason)
	}
}

// ParseDestination parses a group JID or an Indonesian phone number.
// It returns the JID and "group" or "personal".
func ParseDestination(destination string) (types.JID, string, error) {
	if strings.Contains(destination, "@g.us") {
		jid, err := types.ParseJID(destination)
		if err != nil {
			return types.JID{}, "", fmt.Errorf("invalid group JID: %w", err)
		}
		return jid, "group", nil
	}

	phone := NormalizePhoneNumber(destination)
	if phone == "" {
		return types.JID{}, "", fmt.Errorf("invalid phone number format")
	}
	return types.NewJID(phone, types.DefaultUserServer), "personal", nil
}

// NormalizePhoneNumber normalizes phone number to format 628xxx, or "" when invalid
func NormalizePhoneNumber(phone string) string {
	phone = nonDigit.ReplaceAllString(phone, "")
	phone = strings.TrimLeft(phone, "0")

	if !strings.HasPrefix(phone, "62") {
		phone = "62" + phone
	}

	if len(phone) < 11 || len(phone) > 15 {
		return ""
	}

	return phone
}
