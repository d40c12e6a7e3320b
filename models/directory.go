package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Student category types
const (
	CategoryRegular        = "regular"
	CategoryScholarship    = "scholarship"
	CategoryEmployeeParent = "employee_parent"
)

// Payment modes for employee-parent students
const (
	PaymentModeNone          = "none"
	PaymentModeCutFromSalary = "cut_from_salary"
	PaymentModeCustomRatio   = "custom_ratio"
)

// Class model
type Class struct {
	BaseModel
	Name     string `json:"name" gorm:"size:100;not null"`
	CampusID uint   `json:"campus_id" gorm:"not null;index"`
	Active   bool   `json:"active" gorm:"default:true"`

	// Relationships
	Campus Campus `json:"campus,omitempty" gorm:"foreignKey:CampusID"`
}

// ClassFee holds the tuition/admission fee schedule for a class.
type ClassFee struct {
	BaseModel
	ClassID      uint            `json:"class_id" gorm:"not null;index"`
	CampusID     uint            `json:"campus_id" gorm:"not null;index"`
	TuitionFee   decimal.Decimal `json:"tuition_fee" gorm:"type:decimal(12,2);not null"`
	AdmissionFee decimal.Decimal `json:"admission_fee" gorm:"type:decimal(12,2);not null"`
	IsActive     bool            `json:"is_active" gorm:"default:true"`

	// Relationships
	Class Class `json:"class,omitempty" gorm:"foreignKey:ClassID"`
}

// Student model. The engines read students and only ever flip
// AdmissionFeePaid; everything else belongs to the directory CRUD layer.
type Student struct {
	BaseModel
	FirstName        string `json:"first_name" gorm:"size:100;not null"`
	LastName         string `json:"last_name" gorm:"size:100"`
	CampusID         uint   `json:"campus_id" gorm:"not null;index"`
	ClassID          uint   `json:"class_id" gorm:"not null;index"`
	GuardianName     string `json:"guardian_name" gorm:"size:200"`
	GuardianPhone    string `json:"guardian_phone" gorm:"size:20"`
	AdmissionFeePaid bool   `json:"admission_fee_paid" gorm:"default:false"`
	HasLeft          bool   `json:"has_left" gorm:"default:false"`

	// Relationships
	Campus Campus `json:"campus,omitempty" gorm:"foreignKey:CampusID"`
	Class  Class  `json:"class,omitempty" gorm:"foreignKey:ClassID"`
}

// Employee model
type Employee struct {
	BaseModel
	UserID    *uint  `json:"user_id" gorm:"index"`
	FirstName string `json:"first_name" gorm:"size:100;not null"`
	LastName  string `json:"last_name" gorm:"size:100"`
	CampusID  uint   `json:"campus_id" gorm:"not null;index"`
	Active    bool   `json:"active" gorm:"default:true"`

	// Relationships
	User   *User  `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Campus Campus `json:"campus,omitempty" gorm:"foreignKey:CampusID"`
	Roles  []EmployeeRole `json:"roles,omitempty" gorm:"foreignKey:EmployeeID"`
}

// EmployeeRole links an employee to a role. A role with no EndDate is
// active; leave configs are matched on (EmployeeType, RoleName).
type EmployeeRole struct {
	BaseModel
	EmployeeID   uint       `json:"employee_id" gorm:"not null;index"`
	EmployeeType string     `json:"employee_type" gorm:"size:50;not null"` // teaching, non_teaching
	RoleName     string     `json:"role_name" gorm:"size:100;not null"`
	StartDate    time.Time  `json:"start_date" gorm:"not null"`
	EndDate      *time.Time `json:"end_date"`

	// Relationships
	Employee Employee `json:"employee,omitempty" gorm:"foreignKey:EmployeeID"`
}

// SalaryDefinition carries the employee's current net salary. The deduction
// batch locks this row while computing the shared-salary cap.
type SalaryDefinition struct {
	BaseModel
	EmployeeID    uint            `json:"employee_id" gorm:"not null;index"`
	NetSalary     decimal.Decimal `json:"net_salary" gorm:"type:decimal(12,2);not null"`
	IsActive      bool            `json:"is_active" gorm:"default:true"`
	EffectiveFrom time.Time       `json:"effective_from"`

	// Relationships
	Employee Employee `json:"employee,omitempty" gorm:"foreignKey:EmployeeID"`
}

// StudentCategoryAssignment links a student to a category. For
// employee-parent students it also carries the payroll linkage and the
// discount/deduction percentages that drive the monthly deduction batch.
type StudentCategoryAssignment struct {
	BaseModel
	StudentID               uint             `json:"student_id" gorm:"not null;index"`
	CategoryType            string           `json:"category_type" gorm:"size:50;not null"`
	EmployeeID              *uint            `json:"employee_id" gorm:"index"`
	PaymentMode             string           `json:"payment_mode" gorm:"size:50;not null;default:'none'"`
	CustomTuitionPercent    *decimal.Decimal `json:"custom_tuition_percent" gorm:"type:decimal(5,2)"`
	TuitionDiscountPercent  decimal.Decimal  `json:"tuition_discount_percent" gorm:"type:decimal(5,2);default:0"`
	AdmissionDiscountPercent decimal.Decimal `json:"admission_discount_percent" gorm:"type:decimal(5,2);default:0"`
	IsActive                bool             `json:"is_active" gorm:"default:true"`

	// Relationships
	Student  Student   `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Employee *Employee `json:"employee,omitempty" gorm:"foreignKey:EmployeeID"`
}

// StudentFineCharge is an outstanding fine. The deduction batch marks unpaid
// fines as paid and links them to the billing record that settled them.
type StudentFineCharge struct {
	BaseModel
	StudentID       uint            `json:"student_id" gorm:"not null;index"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Reason          string          `json:"reason" gorm:"size:255"`
	IsPaid          bool            `json:"is_paid" gorm:"default:false"`
	PaidDate        *time.Time      `json:"paid_date"`
	BillingMasterID *uint           `json:"billing_master_id" gorm:"index"`

	// Relationships
	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}
