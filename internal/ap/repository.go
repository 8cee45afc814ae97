package ap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-books/meridian/internal/platform/db"
)

// PgRepository is the PostgreSQL implementation of Repository.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository wraps the shared connection pool.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const billColumns = `id, number, vendor_id, vendor_ref, date, due_date, memo, vat_rate,
	subtotal, vat_amount, total, paid, status, journal_id, created_at, updated_at`

func (r *PgRepository) NextBillSeq(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT nextval('ap_bill_seq')`).Scan(&n)
	return n, err
}

func (r *PgRepository) CreateBill(ctx context.Context, bill Bill) (Bill, error) {
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO ap_bills (number, vendor_id, vendor_ref, date, due_date, memo, vat_rate,
				subtotal, vat_amount, total, paid, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			bill.Number, bill.VendorID, bill.VendorRef, bill.Date, bill.DueDate, bill.Memo,
			bill.VATRate, bill.Subtotal, bill.VATAmount, bill.Total, bill.Status,
		).Scan(&bill.ID, &bill.CreatedAt, &bill.UpdatedAt)
		if err != nil {
			return err
		}
		return insertLines(ctx, tx, bill.ID, bill.Lines)
	})
	if err != nil {
		return Bill{}, fmt.Errorf("ap: create bill: %w", err)
	}
	return r.GetBill(ctx, bill.ID)
}

func (r *PgRepository) UpdateBill(ctx context.Context, id int64, bill Bill) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE ap_bills SET vendor_id = $1, vendor_ref = $2, date = $3, due_date = $4,
				memo = $5, vat_rate = $6, subtotal = $7, vat_amount = $8, total = $9, updated_at = NOW()
			WHERE id = $10 AND status = 'DRAFT'`,
			bill.VendorID, bill.VendorRef, bill.Date, bill.DueDate, bill.Memo,
			bill.VATRate, bill.Subtotal, bill.VATAmount, bill.Total, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrBillNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM ap_bill_lines WHERE bill_id = $1`, id); err != nil {
			return err
		}
		return insertLines(ctx, tx, id, bill.Lines)
	})
}

func (r *PgRepository) GetBill(ctx context.Context, id int64) (Bill, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM ap_bills WHERE id = $1`, id)
	bill, err := scanBill(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bill{}, ErrBillNotFound
	}
	if err != nil {
		return Bill{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, bill_id, description, quantity, unit_price, line_total
		FROM ap_bill_lines WHERE bill_id = $1 ORDER BY id`, id)
	if err != nil {
		return Bill{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line BillLine
		if err := rows.Scan(&line.ID, &line.BillID, &line.Description,
			&line.Quantity, &line.UnitPrice, &line.LineTotal); err != nil {
			return Bill{}, err
		}
		bill.Lines = append(bill.Lines, line)
	}
	return bill, rows.Err()
}

func (r *PgRepository) ListBills(ctx context.Context, vendorID int64, status BillStatus) ([]Bill, error) {
	query := `SELECT ` + billColumns + ` FROM ap_bills WHERE 1=1`
	args := []interface{}{}
	if vendorID > 0 {
		args = append(args, vendorID)
		query += fmt.Sprintf(` AND vendor_id = $%d`, len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	return bills, rows.Err()
}

func (r *PgRepository) SetBillPosted(ctx context.Context, id, journalID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ap_bills SET status = 'POSTED', journal_id = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'DRAFT'`, journalID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBillNotFound
	}
	return nil
}

func (r *PgRepository) SetBillStatus(ctx context.Context, id int64, status BillStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ap_bills SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBillNotFound
	}
	return nil
}

// ApplyPayment inserts the payment with its allocations and bumps each
// bill's paid amount, flipping fully covered bills to PAID.
func (r *PgRepository) ApplyPayment(ctx context.Context, payment Payment) (Payment, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO ap_payments (vendor_id, date, amount, reference, created_at)
			VALUES ($1, $2, $3, $4, NOW()) RETURNING id, created_at`,
			payment.VendorID, payment.Date, payment.Amount, payment.Reference,
		).Scan(&payment.ID, &payment.CreatedAt)
		if err != nil {
			return err
		}
		for i, alloc := range payment.Allocations {
			payment.Allocations[i].PaymentID = payment.ID
			if _, err := tx.Exec(ctx, `
				INSERT INTO ap_payment_allocations (payment_id, bill_id, amount)
				VALUES ($1, $2, $3)`, payment.ID, alloc.BillID, alloc.Amount); err != nil {
				return err
			}
			tag, err := tx.Exec(ctx, `
				UPDATE ap_bills
				SET paid = paid + $1,
					status = CASE WHEN paid + $1 >= total - 0.005 THEN 'PAID' ELSE status END,
					updated_at = NOW()
				WHERE id = $2 AND status = 'POSTED' AND paid + $1 <= total + 0.005`,
				alloc.Amount, alloc.BillID)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return ErrOverAllocated
			}
		}
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	return payment, nil
}

func (r *PgRepository) SetPaymentJournal(ctx context.Context, paymentID, journalID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE ap_payments SET journal_id = $1 WHERE id = $2`, journalID, paymentID)
	return err
}

func (r *PgRepository) OutstandingPosted(ctx context.Context, asOf time.Time) ([]Bill, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+billColumns+` FROM ap_bills
		WHERE status = 'POSTED' AND date <= $1 AND paid < total
		ORDER BY vendor_id, due_date`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	return bills, rows.Err()
}

func insertLines(ctx context.Context, tx pgx.Tx, billID int64, lines []BillLine) error {
	for _, line := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO ap_bill_lines (bill_id, description, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5)`,
			billID, line.Description, line.Quantity, line.UnitPrice, line.LineTotal); err != nil {
			return err
		}
	}
	return nil
}

func scanBill(row pgx.Row) (Bill, error) {
	var bill Bill
	err := row.Scan(&bill.ID, &bill.Number, &bill.VendorID, &bill.VendorRef, &bill.Date,
		&bill.DueDate, &bill.Memo, &bill.VATRate, &bill.Subtotal, &bill.VATAmount,
		&bill.Total, &bill.Paid, &bill.Status, &bill.JournalID, &bill.CreatedAt, &bill.UpdatedAt)
	return bill, err
}
