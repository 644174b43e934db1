package store

import (
	"context"
	"database/sql"
	"errors"

	"sales-service/internal/models"
)

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (name, email)
		VALUES ($1, $2)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, u, query, u.Name, u.Email)
}

// GetUserByID retrieves a user by ID. Returns nil when absent.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateAffiliate inserts a new affiliate.
func (s *Store) CreateAffiliate(ctx context.Context, a *models.Affiliate) error {
	query := `
		INSERT INTO affiliates (name, commission_percent)
		VALUES ($1, $2)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, a, query, a.Name, a.CommissionPercent)
}

// GetAffiliateByID retrieves an affiliate by ID. Returns nil when absent.
func (s *Store) GetAffiliateByID(ctx context.Context, id int64) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := s.db.GetContext(ctx, &affiliate, "SELECT * FROM affiliates WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &affiliate, nil
}

// GetAffiliates retrieves all affiliates.
func (s *Store) GetAffiliates(ctx context.Context) ([]models.Affiliate, error) {
	var affiliates []models.Affiliate
	err := s.db.SelectContext(ctx, &affiliates, "SELECT * FROM affiliates ORDER BY id")
	return affiliates, err
}

// GetShiftsByEmployee retrieves an employee's shifts, newest first.
func (s *Store) GetShiftsByEmployee(ctx context.Context, employeeID int64) ([]models.WorkShift, error) {
	var shifts []models.WorkShift
	err := s.db.SelectContext(ctx, &shifts,
		"SELECT * FROM work_shifts WHERE employee_id = $1 ORDER BY start_time DESC", employeeID)
	return shifts, err
}

func (t *sqlTx) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := t.tx.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (t *sqlTx) GetOpenShiftForUpdate(ctx context.Context, employeeID int64) (*models.WorkShift, error) {
	var shift models.WorkShift
	err := t.tx.GetContext(ctx, &shift,
		"SELECT * FROM work_shifts WHERE employee_id = $1 AND end_time IS NULL FOR UPDATE",
		employeeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (t *sqlTx) InsertShift(ctx context.Context, w *models.WorkShift) error {
	return t.tx.GetContext(ctx, &w.ID,
		"INSERT INTO work_shifts (employee_id, start_time) VALUES ($1, $2) RETURNING id",
		w.EmployeeID, w.StartTime)
}

func (t *sqlTx) UpdateShift(ctx context.Context, w *models.WorkShift) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE work_shifts SET end_time = $1 WHERE id = $2", w.EndTime, w.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
