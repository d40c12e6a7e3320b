package models

import (
	"github.com/shopspring/decimal"
)

// Extra-charge recurrence categories
const (
	ChargeMonthly         = "monthly"
	ChargeOncePerLifetime = "once_per_lifetime"
	ChargeOncePerClass    = "once_per_class"
)

// ClassFeeExtraCharge is a charge definition scoped to a class (ClassID nil
// means campus-global) with a recurrence category. Soft-deletable and
// independently activatable.
type ClassFeeExtraCharge struct {
	BaseModel
	Name     string          `json:"name" gorm:"size:255;not null"`
	ClassID  *uint           `json:"class_id" gorm:"index"`
	CampusID uint            `json:"campus_id" gorm:"not null;index"`
	Category string          `json:"category" gorm:"size:50;not null"`
	Amount   decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	IsActive bool            `json:"is_active" gorm:"default:true"`
	IsDeleted bool           `json:"is_deleted" gorm:"default:false"`

	// Relationships
	Class  *Class `json:"class,omitempty" gorm:"foreignKey:ClassID"`
	Campus Campus `json:"campus,omitempty" gorm:"foreignKey:CampusID"`
}

// StudentChargeAssignment marks a charge as applicable to a student. Under
// the default applicability policy a charge applies only through this table.
type StudentChargeAssignment struct {
	BaseModel
	StudentID  uint `json:"student_id" gorm:"not null;index:idx_student_charge"`
	ChargeID   uint `json:"charge_id" gorm:"not null;index:idx_student_charge"`
	IsAssigned bool `json:"is_assigned" gorm:"default:true"`

	// Relationships
	Student Student             `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Charge  ClassFeeExtraCharge `json:"charge,omitempty" gorm:"foreignKey:ChargeID"`
}

// ChargePaymentHistory is the append-only ledger of charge payments and the
// sole source of truth for once-per-lifetime / once-per-class eligibility.
// ClassPaidForID is stamped only for once_per_class charges.
type ChargePaymentHistory struct {
	BaseModel
	StudentID       uint            `json:"student_id" gorm:"not null;index:idx_charge_history"`
	ChargeID        uint            `json:"charge_id" gorm:"not null;index:idx_charge_history"`
	BillingMasterID uint            `json:"billing_master_id" gorm:"not null;index"`
	ClassPaidForID  *uint           `json:"class_paid_for_id" gorm:"index"`
	CampusID        uint            `json:"campus_id" gorm:"not null"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`

	// Relationships
	Student Student             `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Charge  ClassFeeExtraCharge `json:"charge,omitempty" gorm:"foreignKey:ChargeID"`
}

// BillingMaster is one billing cycle for one student. Fee components are
// snapshots taken at billing time, never recomputed. Dues is a stored value;
// RecordPayment keeps it consistent with appended transactions. The unique
// index on (student_id, for_month, for_year) is the double-billing guard.
type BillingMaster struct {
	BaseModel
	StudentID            uint            `json:"student_id" gorm:"not null;uniqueIndex:uq_billing_cycle"`
	ForMonth             int             `json:"for_month" gorm:"not null;uniqueIndex:uq_billing_cycle"`
	ForYear              int             `json:"for_year" gorm:"not null;uniqueIndex:uq_billing_cycle"`
	ClassID              uint            `json:"class_id" gorm:"not null"`
	CampusID             uint            `json:"campus_id" gorm:"not null;index"`
	TuitionFee           decimal.Decimal `json:"tuition_fee" gorm:"type:decimal(12,2);not null"`
	AdmissionFee         decimal.Decimal `json:"admission_fee" gorm:"type:decimal(12,2);not null"`
	MiscellaneousCharges decimal.Decimal `json:"miscellaneous_charges" gorm:"type:decimal(12,2);not null"`
	Fine                 decimal.Decimal `json:"fine" gorm:"type:decimal(12,2);not null"`
	PreviousDues         decimal.Decimal `json:"previous_dues" gorm:"type:decimal(12,2);not null"`
	TotalPayable         decimal.Decimal `json:"total_payable" gorm:"type:decimal(12,2);not null"`
	TotalPaid            decimal.Decimal `json:"total_paid" gorm:"type:decimal(12,2);not null"`
	Dues                 decimal.Decimal `json:"dues" gorm:"type:decimal(12,2);not null"`

	// Relationships
	Student      Student              `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Transactions []BillingTransaction `json:"transactions,omitempty" gorm:"foreignKey:BillingMasterID"`
}

// BillingTransaction is an immutable payment event against a BillingMaster.
// Ordering by id separates "already paid" from "paying now" on receipts.
type BillingTransaction struct {
	BaseModel
	BillingMasterID uint            `json:"billing_master_id" gorm:"not null;index"`
	AmountPaid      decimal.Decimal `json:"amount_paid" gorm:"type:decimal(12,2);not null"`
	CashPaid        decimal.Decimal `json:"cash_paid" gorm:"type:decimal(12,2);not null"`
	OnlinePaid      decimal.Decimal `json:"online_paid" gorm:"type:decimal(12,2);not null"`
	BankAccountRef  string          `json:"bank_account_ref" gorm:"size:100"`
	ReceiptNumber   string          `json:"receipt_number" gorm:"size:64;not null;uniqueIndex"`
	ReceivedBy      string          `json:"received_by" gorm:"size:100;not null"`

	// Relationships
	BillingMaster BillingMaster `json:"billing_master,omitempty" gorm:"foreignKey:BillingMasterID"`
}

// SalaryDeduction records one fee deduction taken from an employee's salary.
// Rows are append-only; summing a month's rows yields the salary already
// spoken for when siblings share one parent.
type SalaryDeduction struct {
	BaseModel
	EmployeeID      uint            `json:"employee_id" gorm:"not null;index:idx_deduction_period"`
	StudentID       uint            `json:"student_id" gorm:"not null;index"`
	BillingMasterID uint            `json:"billing_master_id" gorm:"not null;index"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	ForMonth        int             `json:"for_month" gorm:"not null;index:idx_deduction_period"`
	ForYear         int             `json:"for_year" gorm:"not null;index:idx_deduction_period"`

	// Relationships
	Employee Employee      `json:"employee,omitempty" gorm:"foreignKey:EmployeeID"`
	Student  Student       `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Billing  BillingMaster `json:"billing,omitempty" gorm:"foreignKey:BillingMasterID"`
}
