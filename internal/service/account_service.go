package service

import (
	"context"
	"strings"
	"time"

	"sales-service/internal/models"
	"sales-service/internal/outcome"
	"sales-service/internal/store"
	"sales-service/internal/util"

	"go.uber.org/zap"
)

// accountStore is the persistence contract AccountService needs.
type accountStore interface {
	WithTx(ctx context.Context, fn func(tx store.Tx) error) error
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateAffiliate(ctx context.Context, a *models.Affiliate) error
	GetAffiliateByID(ctx context.Context, id int64) (*models.Affiliate, error)
	GetAffiliates(ctx context.Context) ([]models.Affiliate, error)
	GetShiftsByEmployee(ctx context.Context, employeeID int64) ([]models.WorkShift, error)
}

// AccountService manages users, affiliates and employee work shifts.
type AccountService struct {
	store  accountStore
	logger *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(store accountStore) *AccountService {
	return &AccountService{
		store:  store,
		logger: util.NamedLogger("account"),
	}
}

// CreateUser registers a new user.
func (s *AccountService) CreateUser(ctx context.Context, name, email string) (*models.User, error) {
	fields := map[string]string{}
	if name == "" {
		fields["name"] = "must not be empty"
	}
	if !strings.Contains(email, "@") {
		fields["email"] = "must be a valid email address"
	}
	if len(fields) > 0 {
		return nil, outcome.Invalid(fields)
	}

	user := &models.User{Name: name, Email: email}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, outcome.New(outcome.DuplicateData, "email %q already registered", email)
		}
		return nil, err
	}

	s.logger.Info("User created", zap.Int64("user_id", user.ID))
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AccountService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, outcome.New(outcome.NotFound, "user %d not found", id)
	}
	return user, nil
}

// CreateAffiliate registers a new affiliate.
func (s *AccountService) CreateAffiliate(ctx context.Context, name string, commissionPercent int) (*models.Affiliate, error) {
	fields := map[string]string{}
	if name == "" {
		fields["name"] = "must not be empty"
	}
	if commissionPercent < 0 || commissionPercent > 100 {
		fields["commission_percent"] = "must be between 0 and 100"
	}
	if len(fields) > 0 {
		return nil, outcome.Invalid(fields)
	}

	affiliate := &models.Affiliate{Name: name, CommissionPercent: commissionPercent}
	if err := s.store.CreateAffiliate(ctx, affiliate); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, outcome.New(outcome.DuplicateData, "affiliate %q already exists", name)
		}
		return nil, err
	}
	return affiliate, nil
}

// GetAffiliate retrieves an affiliate by ID.
func (s *AccountService) GetAffiliate(ctx context.Context, id int64) (*models.Affiliate, error) {
	affiliate, err := s.store.GetAffiliateByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, outcome.New(outcome.NotFound, "affiliate %d not found", id)
	}
	return affiliate, nil
}

// ListAffiliates lists all affiliates.
func (s *AccountService) ListAffiliates(ctx context.Context) ([]models.Affiliate, error) {
	return s.store.GetAffiliates(ctx)
}

// OpenShift opens a work shift for an employee. At most one open shift per
// employee; the open-shift row is locked so two concurrent opens cannot both
// pass the check.
func (s *AccountService) OpenShift(ctx context.Context, employeeID int64) (*models.WorkShift, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.OpenShift")
	defer span.End()

	shift := &models.WorkShift{EmployeeID: employeeID, StartTime: time.Now().UTC()}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		user, err := tx.GetUser(ctx, employeeID)
		if err != nil {
			return err
		}
		if user == nil {
			return outcome.New(outcome.NotFound, "employee %d not found", employeeID)
		}

		open, err := tx.GetOpenShiftForUpdate(ctx, employeeID)
		if err != nil {
			return err
		}
		if open != nil {
			return outcome.New(outcome.DuplicateData, "employee %d already has an open shift", employeeID)
		}

		if err := tx.InsertShift(ctx, shift); err != nil {
			if store.IsUniqueViolation(err) {
				return outcome.New(outcome.DuplicateData, "employee %d already has an open shift", employeeID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Shift opened", zap.Int64("employee_id", employeeID), zap.Int64("shift_id", shift.ID))
	return shift, nil
}

// CloseShift closes the employee's open shift.
func (s *AccountService) CloseShift(ctx context.Context, employeeID int64) (*models.WorkShift, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.CloseShift")
	defer span.End()

	var shift *models.WorkShift
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		shift, err = tx.GetOpenShiftForUpdate(ctx, employeeID)
		if err != nil {
			return err
		}
		if shift == nil {
			return outcome.New(outcome.NotFound, "employee %d has no open shift", employeeID)
		}

		if !shift.Close(time.Now().UTC()) {
			return outcome.New(outcome.IncorrectFormatData, "shift %d cannot be closed", shift.ID)
		}

		rows, err := tx.UpdateShift(ctx, shift)
		if err != nil {
			return err
		}
		if rows == 0 {
			return outcome.New(outcome.NoRowsAffected, "shift %d update affected no rows", shift.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Shift closed", zap.Int64("employee_id", employeeID), zap.Int64("shift_id", shift.ID))
	return shift, nil
}

// ListShifts lists an employee's shifts, newest first.
func (s *AccountService) ListShifts(ctx context.Context, employeeID int64) ([]models.WorkShift, error) {
	return s.store.GetShiftsByEmployee(ctx, employeeID)
}
