package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JandsonS/teste-sub000/internal/db"
	"github.com/JandsonS/teste-sub000/internal/reservation"
)

const reservationColumns = `id,establishment_id,customer_name,customer_phone,service_description,date,time,amount_cents,payment_method,plan,external_payment_id,status,created_at,updated_at`

// ReservationRepo is the Postgres ledger.
type ReservationRepo struct{ db *db.DB }

func NewReservationRepo(d *db.DB) *ReservationRepo { return &ReservationRepo{db: d} }

var _ reservation.Store = (*ReservationRepo)(nil)

func scanReservation(row db.Row) (reservation.Reservation, error) {
	var r reservation.Reservation
	var method, plan, status string
	var extID *string
	err := row.Scan(&r.ID, &r.EstablishmentID, &r.CustomerName, &r.CustomerPhone, &r.ServiceDescription,
		&r.Date, &r.Time, &r.AmountCents, &method, &plan, &extID, &status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	r.PaymentMethod = reservation.PaymentMethod(method)
	r.Plan = reservation.Plan(plan)
	r.Status = reservation.Status(status)
	if extID != nil {
		r.ExternalPaymentID = *extID
	}
	return r, nil
}

func collect(rows db.Rows) ([]reservation.Reservation, error) {
	defer rows.Close()
	var out []reservation.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func lock(ctx context.Context, tx db.Tx, key string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key)
	return err
}

func (r *ReservationRepo) Create(ctx context.Context, res *reservation.Reservation, g reservation.Guard) ([]string, error) {
	var expired []string
	err := r.db.InTx(ctx, func(tx db.Tx) error {
		if err := lockScope(ctx, tx, res); err != nil {
			return err
		}

		atSlot, sameCustomer, err := scope(ctx, tx, res)
		if err != nil {
			return err
		}

		stale, err := g.Check(atSlot, sameCustomer)
		if err != nil {
			return err
		}
		for _, id := range stale {
			tag, err := tx.Exec(ctx, `UPDATE reservations SET status='expired', updated_at=$2 WHERE id=$1 AND status='pending'`, id, g.Now)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 1 {
				expired = append(expired, id)
			}
		}

		_, err = tx.Exec(ctx, `INSERT INTO reservations(`+reservationColumns+`,customer_name_key)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			res.ID, res.EstablishmentID, res.CustomerName, res.CustomerPhone, res.ServiceDescription,
			res.Date, res.Time, res.AmountCents, string(res.PaymentMethod), string(res.Plan),
			nullable(res.ExternalPaymentID), string(res.Status), res.CreatedAt, res.UpdatedAt,
			reservation.NormalizeName(res.CustomerName))
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, reservation.ErrSlotUnavailable
		}
		if isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	return expired, nil
}

// lockScope takes the slot lock, then the customer lock. Every writer that can
// make a record blocking takes them in this order.
func lockScope(ctx context.Context, tx db.Tx, res *reservation.Reservation) error {
	if err := lock(ctx, tx, "slot:"+res.SlotKey()); err != nil {
		return err
	}
	return lock(ctx, tx, "customer:"+res.CustomerKey())
}

// scope returns the live records at res's slot and of res's customer that day.
func scope(ctx context.Context, tx db.Tx, res *reservation.Reservation) (atSlot, sameCustomer []reservation.Reservation, err error) {
	rows, err := tx.Query(ctx, `SELECT `+reservationColumns+` FROM reservations
WHERE establishment_id=$1 AND date=$2 AND time=$3 AND status NOT IN ('canceled','expired')
FOR UPDATE`, res.EstablishmentID, res.Date, res.Time)
	if err != nil {
		return nil, nil, err
	}
	if atSlot, err = collect(rows); err != nil {
		return nil, nil, err
	}

	rows, err = tx.Query(ctx, `SELECT `+reservationColumns+` FROM reservations
WHERE establishment_id=$1 AND date=$2 AND customer_name_key=$3 AND status NOT IN ('canceled','expired')`,
		res.EstablishmentID, res.Date, reservation.NormalizeName(res.CustomerName))
	if err != nil {
		return nil, nil, err
	}
	if sameCustomer, err = collect(rows); err != nil {
		return nil, nil, err
	}
	return atSlot, sameCustomer, nil
}

func isDomainError(err error) bool {
	return errors.Is(err, reservation.ErrSlotUnavailable) || errors.Is(err, reservation.ErrDuplicateBooking)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *ReservationRepo) Get(ctx context.Context, id string) (*reservation.Reservation, error) {
	res, err := scanReservation(r.db.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id=$1`, id))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, reservation.ErrNotFound
		}
		return nil, db.WrapNotFound(err)
	}
	return &res, nil
}

func (r *ReservationRepo) ListByDate(ctx context.Context, establishmentID, date string) ([]reservation.Reservation, error) {
	rows, err := r.db.Query(ctx, `SELECT `+reservationColumns+` FROM reservations
WHERE establishment_id=$1 AND date=$2 AND status NOT IN ('canceled','expired')
ORDER BY time`, establishmentID, date)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *ReservationRepo) List(ctx context.Context, f reservation.Filter) ([]reservation.Reservation, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.EstablishmentID != "" {
		add("establishment_id=$%d", f.EstablishmentID)
	}
	if f.Date != "" {
		add("date=$%d", f.Date)
	}
	if f.Status != "" {
		add("status=$%d", string(f.Status))
	}
	q := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *ReservationRepo) CompareAndSwapStatus(ctx context.Context, id string, from, to reservation.Status, externalPaymentID string) (bool, error) {
	n, err := r.db.ExecCount(ctx, `UPDATE reservations
SET status=$3, external_payment_id=COALESCE($4, external_payment_id), updated_at=now()
WHERE id=$1 AND status=$2`, id, string(from), string(to), nullable(externalPaymentID))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return false, reservation.ErrSlotUnavailable
		}
		return false, err
	}
	return n == 1, nil
}

func (r *ReservationRepo) ApplyPayment(ctx context.Context, id string, to reservation.Status, externalPaymentID string, g reservation.Guard) (bool, error) {
	// slot and customer never change, so the unlocked read is enough to find the locks
	cur, err := r.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if cur.Status != reservation.StatusPending {
		return false, nil
	}

	applied := false
	err = r.db.InTx(ctx, func(tx db.Tx) error {
		if err := lockScope(ctx, tx, cur); err != nil {
			return err
		}
		atSlot, sameCustomer, err := scope(ctx, tx, cur)
		if err != nil {
			return err
		}
		var self *reservation.Reservation
		for i := range atSlot {
			if atSlot[i].ID == id {
				self = &atSlot[i]
			}
		}
		if self == nil || self.Status != reservation.StatusPending {
			return nil
		}
		if err := g.CheckPaid(*self, atSlot, sameCustomer); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE reservations
SET status=$3, external_payment_id=COALESCE($4, external_payment_id), updated_at=$5
WHERE id=$1 AND status=$2`, id, string(reservation.StatusPending), string(to), nullable(externalPaymentID), g.Now)
		if err != nil {
			return err
		}
		applied = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return false, err
		}
		return false, fmt.Errorf("apply payment %s: %w", id, err)
	}
	return applied, nil
}

func (r *ReservationRepo) AttachPayment(ctx context.Context, id, externalPaymentID string) error {
	n, err := r.db.ExecCount(ctx, `UPDATE reservations SET external_payment_id=$2, updated_at=now() WHERE id=$1 AND status='pending'`, id, externalPaymentID)
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *ReservationRepo) ExpireStale(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.db.Query(ctx, `UPDATE reservations SET status='expired', updated_at=now()
WHERE status='pending' AND created_at <= $1
RETURNING id`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
