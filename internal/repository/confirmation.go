package repository

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"doneasy-checkout/internal/model"
)

// ErrNotFound is returned when a confirmation does not exist
var ErrNotFound = errors.New("confirmation not found")

// ConfirmationRepository handles database operations for confirmed donations
type ConfirmationRepository struct {
	db *sql.DB
}

// NewConfirmationRepository opens the SQLite database at dbPath and creates the schema
func NewConfirmationRepository(dbPath string) (*ConfirmationRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Create table if not exists
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS confirmations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			transaction_id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			campaign_id TEXT NOT NULL,
			campaign_title TEXT NOT NULL,
			amount INTEGER NOT NULL,
			admin_fee INTEGER NOT NULL,
			total INTEGER NOT NULL,
			donor_name TEXT NOT NULL,
			donor_email TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			is_anonymous BOOLEAN NOT NULL DEFAULT 0,
			payment_method TEXT NOT NULL,
			confirmed_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_campaign_id ON confirmations(campaign_id);
		CREATE INDEX IF NOT EXISTS idx_confirmed_at ON confirmations(confirmed_at);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &ConfirmationRepository{db: db}, nil
}

// Close closes database connection
func (r *ConfirmationRepository) Close() error {
	return r.db.Close()
}

// Save stores a confirmation record. Saving the same transaction twice is a no-op.
func (r *ConfirmationRepository) Save(record *model.ConfirmationRecord) error {
	p := record.PledgeSnapshot
	_, err := r.db.Exec(`
		INSERT OR IGNORE INTO confirmations (
			transaction_id, session_id, campaign_id, campaign_title, amount, admin_fee, total,
			donor_name, donor_email, message, is_anonymous, payment_method, confirmed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.TransactionID, record.SessionID, p.CampaignID, p.CampaignTitle,
		record.Fee.Amount, record.Fee.AdminFee, record.Fee.Total,
		p.DonorName, p.DonorEmail, p.Message, p.IsAnonymous, string(p.PaymentMethod),
		record.ConfirmedAt.UTC())
	return err
}

// GetByTransactionID gets a confirmation by its transaction id
func (r *ConfirmationRepository) GetByTransactionID(trxID string) (*model.ConfirmationRecord, error) {
	row := r.db.QueryRow(`
		SELECT transaction_id, session_id, campaign_id, campaign_title, amount, admin_fee, total,
			donor_name, donor_email, message, is_anonymous, payment_method, confirmed_at
		FROM confirmations
		WHERE transaction_id = ?
		LIMIT 1
	`, trxID)

	record, err := scanConfirmation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListByCampaign returns the latest confirmations for a campaign, newest first
func (r *ConfirmationRepository) ListByCampaign(campaignID string, limit int) ([]model.ConfirmationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`
		SELECT transaction_id, session_id, campaign_id, campaign_title, amount, admin_fee, total,
			donor_name, donor_email, message, is_anonymous, payment_method, confirmed_at
		FROM confirmations
		WHERE campaign_id = ?
		ORDER BY confirmed_at DESC, id DESC
		LIMIT ?
	`, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.ConfirmationRecord{}
	for rows.Next() {
		record, err := scanConfirmation(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// TotalByCampaign returns the sum of pledged amounts (excluding fees) and the donor count
func (r *ConfirmationRepository) TotalByCampaign(campaignID string) (int64, int64, error) {
	var total, count int64
	err := r.db.QueryRow(`
		SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM confirmations WHERE campaign_id = ?
	`, campaignID).Scan(&total, &count)
	return total, count, err
}

// Count returns total confirmations
func (r *ConfirmationRepository) Count() (int64, error) {
	var count int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM confirmations`).Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanConfirmation(s scanner) (*model.ConfirmationRecord, error) {
	var record model.ConfirmationRecord
	var method string
	var confirmedAt time.Time
	err := s.Scan(
		&record.TransactionID,
		&record.SessionID,
		&record.PledgeSnapshot.CampaignID,
		&record.PledgeSnapshot.CampaignTitle,
		&record.Fee.Amount,
		&record.Fee.AdminFee,
		&record.Fee.Total,
		&record.PledgeSnapshot.DonorName,
		&record.PledgeSnapshot.DonorEmail,
		&record.PledgeSnapshot.Message,
		&record.PledgeSnapshot.IsAnonymous,
		&method,
		&confirmedAt,
	)
	if err != nil {
		return nil, err
	}
	record.PledgeSnapshot.Amount = record.Fee.Amount
	record.PledgeSnapshot.PaymentMethod = model.PaymentMethod(method)
	record.ConfirmedAt = confirmedAt
	return &record, nil
}
