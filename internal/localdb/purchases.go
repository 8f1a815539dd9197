package localdb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

var ErrPurchaseNotFound = errors.New("purchase not found")

// Purchase is one row of the append-only purchase log.
type Purchase struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ItemCode  string    `json:"item_code"`
	Price     int       `json:"price"`
	Refunded  bool      `json:"refunded"`
	CreatedAt time.Time `json:"created_at"`
}

// SetupPurchasesTable creates the purchases table
func SetupPurchasesTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS purchases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		item_code TEXT NOT NULL,
		price INTEGER NOT NULL DEFAULT 0,
		refunded BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		logger.Error("Failed to create purchases table", zap.Error(err))
		return fmt.Errorf("failed to create purchases table: %w", err)
	}
	return nil
}

// InsertPurchase appends a purchase and returns its id.
func InsertPurchase(userID int64, itemCode string, price int) (int64, error) {
	db := GetDB()
	if db == nil {
		return 0, ErrNotInitialized
	}

	res, err := db.Exec(`INSERT INTO purchases (user_id, item_code, price) VALUES (?, ?, ?)`, userID, itemCode, price)
	if err != nil {
		logger.Error("Failed to insert purchase", zap.Error(err), zap.Int64("user_id", userID), zap.String("item", itemCode))
		return 0, fmt.Errorf("failed to insert purchase: %w", err)
	}
	return res.LastInsertId()
}

func GetPurchase(id int64) (*Purchase, error) {
	db := GetDB()
	if db == nil {
		return nil, ErrNotInitialized
	}

	var p Purchase
	err := db.QueryRow(`SELECT id, user_id, item_code, price, refunded, created_at FROM purchases WHERE id = ?`, id).
		Scan(&p.ID, &p.UserID, &p.ItemCode, &p.Price, &p.Refunded, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPurchaseNotFound
	}
	if err != nil {
		logger.Error("Failed to get purchase", zap.Error(err), zap.Int64("purchase_id", id))
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	return &p, nil
}

// ListPurchases returns the newest purchases first. userID 0 lists everyone.
func ListPurchases(userID int64, limit int) ([]Purchase, error) {
	db := GetDB()
	if db == nil {
		return []Purchase{}, ErrNotInitialized
	}
	if limit <= 0 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if userID != 0 {
		rows, err = db.Query(`SELECT id, user_id, item_code, price, refunded, created_at FROM purchases
			WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit)
	} else {
		rows, err = db.Query(`SELECT id, user_id, item_code, price, refunded, created_at FROM purchases
			ORDER BY id DESC LIMIT ?`, limit)
	}
	if err != nil {
		logger.Error("Failed to list purchases", zap.Error(err))
		return []Purchase{}, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	purchases := []Purchase{}
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.ItemCode, &p.Price, &p.Refunded, &p.CreatedAt); err != nil {
			logger.Error("Failed to scan purchase", zap.Error(err))
			continue
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

// MarkPurchaseRefunded flags the row; it reports false when the row was already refunded.
func MarkPurchaseRefunded(id int64) (bool, error) {
	db := GetDB()
	if db == nil {
		return false, ErrNotInitialized
	}

	res, err := db.Exec(`UPDATE purchases SET refunded = true WHERE id = ? AND refunded = false`, id)
	if err != nil {
		logger.Error("Failed to mark purchase refunded", zap.Error(err), zap.Int64("purchase_id", id))
		return false, fmt.Errorf("failed to mark purchase refunded: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
