package ar

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

const invoiceColumns = `id, number, customer_id, date, due_date, memo, vat_rate,
	subtotal, vat_amount, total, paid, status, journal_id, created_at, updated_at`

func (r *PgRepository) NextInvoiceSeq(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT nextval('ar_invoice_seq')`).Scan(&n)
	return n, err
}

func (r *PgRepository) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO ar_invoices (number, customer_id, date, due_date, memo, vat_rate,
				subtotal, vat_amount, total, paid, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			inv.Number, inv.CustomerID, inv.Date, inv.DueDate, inv.Memo, inv.VATRate,
			inv.Subtotal, inv.VATAmount, inv.Total, inv.Status,
		).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
		if err != nil {
			return err
		}
		return insertLines(ctx, tx, inv.ID, inv.Lines)
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("ar: create invoice: %w", err)
	}
	return r.GetInvoice(ctx, inv.ID)
}

func (r *PgRepository) UpdateInvoice(ctx context.Context, id int64, inv Invoice) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE ar_invoices SET customer_id = $1, date = $2, due_date = $3, memo = $4,
				vat_rate = $5, subtotal = $6, vat_amount = $7, total = $8, updated_at = NOW()
			WHERE id = $9 AND status = 'DRAFT'`,
			inv.CustomerID, inv.Date, inv.DueDate, inv.Memo, inv.VATRate,
			inv.Subtotal, inv.VATAmount, inv.Total, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrInvoiceNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM ar_invoice_lines WHERE invoice_id = $1`, id); err != nil {
			return err
		}
		return insertLines(ctx, tx, id, inv.Lines)
	})
}

func (r *PgRepository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM ar_invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrInvoiceNotFound
	}
	if err != nil {
		return Invoice{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price, line_total
		FROM ar_invoice_lines WHERE invoice_id = $1 ORDER BY id`, id)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line InvoiceLine
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.Description,
			&line.Quantity, &line.UnitPrice, &line.LineTotal); err != nil {
			return Invoice{}, err
		}
		inv.Lines = append(inv.Lines, line)
	}
	return inv, rows.Err()
}

func (r *PgRepository) ListInvoices(ctx context.Context, customerID int64, status InvoiceStatus) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM ar_invoices WHERE 1=1`
	args := []interface{}{}
	if customerID > 0 {
		args = append(args, customerID)
		query += fmt.Sprintf(` AND customer_id = $%d`, len(args))
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

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *PgRepository) SetInvoicePosted(ctx context.Context, id, journalID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ar_invoices SET status = 'POSTED', journal_id = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'DRAFT'`, journalID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *PgRepository) SetInvoiceStatus(ctx context.Context, id int64, status InvoiceStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ar_invoices SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

// ApplyPayment inserts the payment with its allocations and bumps each
// invoice's paid amount, flipping fully covered invoices to PAID. Runs
// in one transaction so a failed allocation rolls the receipt back.
func (r *PgRepository) ApplyPayment(ctx context.Context, payment Payment) (Payment, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO ar_payments (customer_id, date, amount, reference, created_at)
			VALUES ($1, $2, $3, $4, NOW()) RETURNING id, created_at`,
			payment.CustomerID, payment.Date, payment.Amount, payment.Reference,
		).Scan(&payment.ID, &payment.CreatedAt)
		if err != nil {
			return err
		}
		for i, alloc := range payment.Allocations {
			payment.Allocations[i].PaymentID = payment.ID
			if _, err := tx.Exec(ctx, `
				INSERT INTO ar_payment_allocations (payment_id, invoice_id, amount)
				VALUES ($1, $2, $3)`, payment.ID, alloc.InvoiceID, alloc.Amount); err != nil {
				return err
			}
			tag, err := tx.Exec(ctx, `
				UPDATE ar_invoices
				SET paid = paid + $1,
					status = CASE WHEN paid + $1 >= total - 0.005 THEN 'PAID' ELSE status END,
					updated_at = NOW()
				WHERE id = $2 AND status = 'POSTED' AND paid + $1 <= total + 0.005`,
				alloc.Amount, alloc.InvoiceID)
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
	_, err := r.pool.Exec(ctx, `UPDATE ar_payments SET journal_id = $1 WHERE id = $2`, journalID, paymentID)
	return err
}

func (r *PgRepository) OutstandingPosted(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+` FROM ar_invoices
		WHERE status = 'POSTED' AND date <= $1 AND paid < total
		ORDER BY customer_id, due_date`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func insertLines(ctx context.Context, tx pgx.Tx, invoiceID int64, lines []InvoiceLine) error {
	for _, line := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO ar_invoice_lines (invoice_id, description, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5)`,
			invoiceID, line.Description, line.Quantity, line.UnitPrice, line.LineTotal); err != nil {
			return err
		}
	}
	return nil
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.Date, &inv.DueDate,
		&inv.Memo, &inv.VATRate, &inv.Subtotal, &inv.VATAmount, &inv.Total,
		&inv.Paid, &inv.Status, &inv.JournalID, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}
