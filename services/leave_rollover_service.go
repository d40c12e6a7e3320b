package services

import (
	"errors"
	"fmt"
	"time"

	"campusbilling_go/models"
	"campusbilling_go/services/feecalc"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaveRolloverService allocates leave balances at period boundaries. Both
// passes are day-gated and existence-guarded, so running them any number of
// times per day is safe; that property is what makes recovery from downtime
// a non-event.
type LeaveRolloverService struct {
	db *gorm.DB
}

func NewLeaveRolloverService(db *gorm.DB) *LeaveRolloverService {
	return &LeaveRolloverService{db: db}
}

// RolloverSummary reports one pass.
type RolloverSummary struct {
	Period  string   `json:"period"` // monthly or yearly
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// RunMonthlyRollover allocates monthly balances. No-op unless now is the
// first day of a month.
func (s *LeaveRolloverService) RunMonthlyRollover(now time.Time) (*RolloverSummary, error) {
	summary := &RolloverSummary{Period: models.AllocationMonthly}
	if now.Day() != 1 {
		return summary, nil
	}

	year, month := now.Year(), int(now.Month())
	prevYear, prevMonth := year, month-1
	if prevMonth == 0 {
		prevYear, prevMonth = year-1, 12
	}

	return s.runPass(summary, models.AllocationMonthly, models.LeaveActionMonthlyRollover,
		year, month, prevYear, prevMonth)
}

// RunYearlyRollover allocates yearly balances (Month = 0 rows). No-op unless
// now is January 1st.
func (s *LeaveRolloverService) RunYearlyRollover(now time.Time) (*RolloverSummary, error) {
	summary := &RolloverSummary{Period: models.AllocationYearly}
	if now.Day() != 1 || now.Month() != time.January {
		return summary, nil
	}

	year := now.Year()
	return s.runPass(summary, models.AllocationYearly, models.LeaveActionYearlyRollover,
		year, 0, year-1, 0)
}

func (s *LeaveRolloverService) runPass(summary *RolloverSummary, period, actionType string, year, month, prevYear, prevMonth int) (*RolloverSummary, error) {
	var roles []models.EmployeeRole
	if err := s.db.Where("end_date IS NULL").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to load active employee roles: %w", err)
	}

	for _, role := range roles {
		var configs []models.LeaveConfig
		err := s.db.Where("employee_type = ? AND role_name = ? AND allocation_period = ? AND is_active = ?",
			role.EmployeeType, role.RoleName, period, true).
			Find(&configs).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load leave configs for role %d: %w", role.ID, err)
		}

		for _, cfg := range configs {
			created, err := s.rollForward(role.EmployeeID, cfg, actionType, year, month, prevYear, prevMonth)
			switch {
			case err != nil:
				msg := fmt.Sprintf("employee %d leave %s: %v", role.EmployeeID, cfg.LeaveType, err)
				summary.Errors = append(summary.Errors, msg)
				logrus.WithFields(logrus.Fields{
					"employee_id": role.EmployeeID,
					"leave_type":  cfg.LeaveType,
					"year":        year,
					"month":       month,
				}).Errorf("Leave rollover failed: %v", err)
			case created:
				summary.Created++
			default:
				summary.Skipped++
			}
		}
	}

	logrus.WithFields(logrus.Fields{
		"period":  period,
		"year":    year,
		"month":   month,
		"created": summary.Created,
		"skipped": summary.Skipped,
		"errors":  len(summary.Errors),
	}).Info("Leave rollover pass finished")

	return summary, nil
}

// rollForward creates one period balance plus its history row. Carry-forward
// reads only the single immediately preceding period; longer chains of
// unused leave never accumulate beyond what that period already carried.
func (s *LeaveRolloverService) rollForward(employeeID uint, cfg models.LeaveConfig, actionType string, year, month, prevYear, prevMonth int) (bool, error) {
	created := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.LeaveBalance{}).
			Where("employee_id = ? AND leave_type = ? AND year = ? AND month = ?",
				employeeID, cfg.LeaveType, year, month).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check existing balance: %w", err)
		}
		if existing > 0 {
			return nil
		}

		carried := decimal.Zero
		if cfg.IsCarryForward {
			var prior models.LeaveBalance
			err := tx.Where("employee_id = ? AND leave_type = ? AND year = ? AND month = ?",
				employeeID, cfg.LeaveType, prevYear, prevMonth).
				First(&prior).Error
			if err == nil {
				carried = feecalc.CarryForwardWithCap(prior.Available(), cfg.MaxCarryForwardDays)
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to load prior balance: %w", err)
			}
		}

		balance := models.LeaveBalance{
			EmployeeID:     employeeID,
			LeaveType:      cfg.LeaveType,
			Year:           year,
			Month:          month,
			TotalAllocated: cfg.AllowedDays,
			CarriedForward: carried,
			Used:           decimal.Zero,
		}
		if err := tx.Create(&balance).Error; err != nil {
			// Unique index on (employee_id, leave_type, year, month) closes
			// the check-then-insert race.
			if isDuplicateKeyError(err) {
				return nil
			}
			return fmt.Errorf("failed to create leave balance: %w", err)
		}

		history := models.LeaveBalanceHistory{
			LeaveBalanceID: balance.ID,
			EmployeeID:     employeeID,
			LeaveType:      cfg.LeaveType,
			ActionType:     actionType,
			Days:           balance.TotalAllocated.Add(carried),
			BalanceBefore:  decimal.Zero,
			BalanceAfter:   balance.TotalAllocated.Add(carried),
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to create leave balance history: %w", err)
		}

		created = true
		return nil
	})
	return created, err
}

// RecordUsage books approved leave days against the employee's current
// period balance (monthly row first, yearly row as fallback). The leave
// approval flow calls this; Available never goes below zero.
func (s *LeaveRolloverService) RecordUsage(employeeID uint, leaveType string, days decimal.Decimal, now time.Time) error {
	if days.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("usage days must be positive")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var balance models.LeaveBalance
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("employee_id = ? AND leave_type = ? AND year = ? AND month = ?",
				employeeID, leaveType, now.Year(), int(now.Month())).
			First(&balance).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("employee_id = ? AND leave_type = ? AND year = ? AND month = ?",
					employeeID, leaveType, now.Year(), 0).
				First(&balance).Error
		}
		if err != nil {
			return fmt.Errorf("no leave balance for employee %d leave %s: %w", employeeID, leaveType, err)
		}

		before := balance.Available()
		if before.LessThan(days) {
			return fmt.Errorf("insufficient leave balance: available %s, requested %s", before, days)
		}

		if err := tx.Model(&models.LeaveBalance{}).Where("id = ?", balance.ID).
			Update("used", balance.Used.Add(days)).Error; err != nil {
			return fmt.Errorf("failed to update leave balance: %w", err)
		}

		history := models.LeaveBalanceHistory{
			LeaveBalanceID: balance.ID,
			EmployeeID:     employeeID,
			LeaveType:      leaveType,
			ActionType:     models.LeaveActionUsage,
			Days:           days,
			BalanceBefore:  before,
			BalanceAfter:   before.Sub(days),
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to create usage history: %w", err)
		}
		return nil
	})
}

// Balances returns an employee's balances, newest period first.
func (s *LeaveRolloverService) Balances(employeeID uint) ([]models.LeaveBalance, error) {
	var balances []models.LeaveBalance
	err := s.db.Where("employee_id = ?", employeeID).
		Order("year DESC, month DESC").
		Find(&balances).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load leave balances: %w", err)
	}
	return balances, nil
}

// History returns an employee's balance history trail, newest first.
func (s *LeaveRolloverService) History(employeeID uint) ([]models.LeaveBalanceHistory, error) {
	var history []models.LeaveBalanceHistory
	err := s.db.Where("employee_id = ?", employeeID).
		Order("id DESC").
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load leave history: %w", err)
	}
	return history, nil
}
