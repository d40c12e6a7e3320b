package models

import (
	"github.com/shopspring/decimal"
)

// Leave allocation periods
const (
	AllocationMonthly = "monthly"
	AllocationYearly  = "yearly"
)

// Leave balance history action types
const (
	LeaveActionMonthlyRollover = "MonthlyRollover"
	LeaveActionYearlyRollover  = "YearlyRollover"
	LeaveActionUsage           = "Usage"
	LeaveActionAdjustment      = "Adjustment"
)

// LeaveConfig is the per (EmployeeType, RoleName, LeaveType) allocation
// rule. MaxCarryForwardDays <= 0 means carry-forward is uncapped.
type LeaveConfig struct {
	BaseModel
	EmployeeType        string          `json:"employee_type" gorm:"size:50;not null;index:idx_leave_config"`
	RoleName            string          `json:"role_name" gorm:"size:100;not null;index:idx_leave_config"`
	LeaveType           string          `json:"leave_type" gorm:"size:50;not null;index:idx_leave_config"` // casual, sick, annual, ...
	AllocationPeriod    string          `json:"allocation_period" gorm:"size:20;not null"`
	AllowedDays         decimal.Decimal `json:"allowed_days" gorm:"type:decimal(5,2);not null"`
	IsCarryForward      bool            `json:"is_carry_forward" gorm:"default:false"`
	MaxCarryForwardDays decimal.Decimal `json:"max_carry_forward_days" gorm:"type:decimal(5,2);default:0"`
	IsActive            bool            `json:"is_active" gorm:"default:true"`
}

// LeaveBalance is one employee's balance for one period. Month is 0 for
// yearly balances so the composite unique index stays enforceable (MySQL
// permits duplicate NULLs in unique indexes). Created once per period by the
// rollover engine; only Used mutates afterwards.
type LeaveBalance struct {
	BaseModel
	EmployeeID     uint            `json:"employee_id" gorm:"not null;uniqueIndex:uq_leave_period"`
	LeaveType      string          `json:"leave_type" gorm:"size:50;not null;uniqueIndex:uq_leave_period"`
	Year           int             `json:"year" gorm:"not null;uniqueIndex:uq_leave_period"`
	Month          int             `json:"month" gorm:"not null;uniqueIndex:uq_leave_period"`
	TotalAllocated decimal.Decimal `json:"total_allocated" gorm:"type:decimal(5,2);not null"`
	CarriedForward decimal.Decimal `json:"carried_forward" gorm:"type:decimal(5,2);not null"`
	Used           decimal.Decimal `json:"used" gorm:"type:decimal(5,2);not null"`

	// Relationships
	Employee Employee `json:"employee,omitempty" gorm:"foreignKey:EmployeeID"`
}

// Available is the remaining balance for the period.
func (b LeaveBalance) Available() decimal.Decimal {
	return b.TotalAllocated.Add(b.CarriedForward).Sub(b.Used)
}

// LeaveBalanceHistory is the append-only audit trail of every
// balance-affecting action, storing before/after values for reconstruction.
type LeaveBalanceHistory struct {
	BaseModel
	LeaveBalanceID uint            `json:"leave_balance_id" gorm:"not null;index"`
	EmployeeID     uint            `json:"employee_id" gorm:"not null;index"`
	LeaveType      string          `json:"leave_type" gorm:"size:50;not null"`
	ActionType     string          `json:"action_type" gorm:"size:50;not null"` // MonthlyRollover, YearlyRollover, Usage, Adjustment
	Days           decimal.Decimal `json:"days" gorm:"type:decimal(5,2);not null"`
	BalanceBefore  decimal.Decimal `json:"balance_before" gorm:"type:decimal(5,2);not null"`
	BalanceAfter   decimal.Decimal `json:"balance_after" gorm:"type:decimal(5,2);not null"`
	Note           string          `json:"note" gorm:"size:255"`

	// Relationships
	Balance LeaveBalance `json:"balance,omitempty" gorm:"foreignKey:LeaveBalanceID"`
}
