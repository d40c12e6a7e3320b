package services

import (
	"fmt"

	"campusbilling_go/config"
	"campusbilling_go/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExtraChargeService resolves which extra charges apply to a student in the
// current billing cycle. Eligibility is always re-derived from the
// charge-payment ledger, never from a mutable "paid" flag.
type ExtraChargeService struct {
	db     *gorm.DB
	policy string
}

// NewExtraChargeService creates the service with the configured
// applicability policy.
func NewExtraChargeService(db *gorm.DB) *ExtraChargeService {
	policy := config.ChargeApplicabilityAssignmentOnly
	if config.AppConfig != nil && config.AppConfig.ChargeApplicability != "" {
		policy = config.AppConfig.ChargeApplicability
	}
	return &ExtraChargeService{db: db, policy: policy}
}

// WithPolicy overrides the applicability policy for this instance.
func (s *ExtraChargeService) WithPolicy(policy string) *ExtraChargeService {
	return &ExtraChargeService{db: s.db, policy: policy}
}

// GetApplicableCharges returns the active, non-deleted charges in the campus
// that apply to the student under the configured policy. Distinct by charge
// id, no side effects.
func (s *ExtraChargeService) GetApplicableCharges(classID, studentID, campusID uint) ([]models.ClassFeeExtraCharge, error) {
	return s.applicableCharges(s.db, classID, studentID, campusID)
}

func (s *ExtraChargeService) applicableCharges(tx *gorm.DB, classID, studentID, campusID uint) ([]models.ClassFeeExtraCharge, error) {
	assigned := tx.Model(&models.StudentChargeAssignment{}).
		Select("charge_id").
		Where("student_id = ? AND is_assigned = ?", studentID, true)

	q := tx.Model(&models.ClassFeeExtraCharge{}).
		Where("campus_id = ? AND is_active = ? AND is_deleted = ?", campusID, true, false)

	switch s.policy {
	case config.ChargeApplicabilityClassAndAssignment:
		q = q.Where("id IN (?) OR class_id = ?", assigned, classID)
	case config.ChargeApplicabilityGlobalAndAssignment:
		q = q.Where("id IN (?) OR class_id IS NULL OR class_id = ?", assigned, classID)
	default: // assignment_only
		q = q.Where("id IN (?)", assigned)
	}

	var charges []models.ClassFeeExtraCharge
	if err := q.Order("id").Find(&charges).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve applicable charges: %w", err)
	}
	return charges, nil
}

// EligibleCharges filters the applicable charges down to those the student
// still owes this cycle, by recurrence category:
//   - monthly: always eligible
//   - once_per_lifetime: eligible until any ledger row exists for (student, charge)
//   - once_per_class: eligible until a ledger row exists for (student, charge, class)
//
// Runs on the given tx so callers can make the eligibility read atomic with
// ledger and billing writes.
func (s *ExtraChargeService) EligibleCharges(tx *gorm.DB, classID, studentID, campusID uint) ([]models.ClassFeeExtraCharge, error) {
	charges, err := s.applicableCharges(tx, classID, studentID, campusID)
	if err != nil {
		return nil, err
	}

	eligible := make([]models.ClassFeeExtraCharge, 0, len(charges))
	for _, charge := range charges {
		paid, err := s.hasPaid(tx, studentID, charge, classID)
		if err != nil {
			return nil, err
		}
		if !paid {
			eligible = append(eligible, charge)
		}
	}
	return eligible, nil
}

// CalculateExtraCharges sums the amounts of all eligible charges. Calling it
// twice with no intervening payment returns the same value.
func (s *ExtraChargeService) CalculateExtraCharges(classID, studentID, campusID uint) (decimal.Decimal, error) {
	eligible, err := s.EligibleCharges(s.db, classID, studentID, campusID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, charge := range eligible {
		total = total.Add(charge.Amount)
	}
	return total, nil
}

// HasPaidCharge reports whether the student has already settled the charge,
// honouring its recurrence category. classID only matters for
// once_per_class charges.
func (s *ExtraChargeService) HasPaidCharge(studentID, chargeID, classID uint) (bool, error) {
	var charge models.ClassFeeExtraCharge
	if err := s.db.First(&charge, chargeID).Error; err != nil {
		return false, fmt.Errorf("charge %d not found: %w", chargeID, err)
	}
	return s.hasPaid(s.db, studentID, charge, classID)
}

func (s *ExtraChargeService) hasPaid(tx *gorm.DB, studentID uint, charge models.ClassFeeExtraCharge, classID uint) (bool, error) {
	var count int64
	switch charge.Category {
	case models.ChargeMonthly:
		// Unconditional monthly recurrence; the ledger never blocks it.
		return false, nil
	case models.ChargeOncePerLifetime:
		err := tx.Model(&models.ChargePaymentHistory{}).
			Where("student_id = ? AND charge_id = ?", studentID, charge.ID).
			Count(&count).Error
		if err != nil {
			return false, fmt.Errorf("failed to check payment history: %w", err)
		}
	case models.ChargeOncePerClass:
		err := tx.Model(&models.ChargePaymentHistory{}).
			Where("student_id = ? AND charge_id = ? AND class_paid_for_id = ?", studentID, charge.ID, classID).
			Count(&count).Error
		if err != nil {
			return false, fmt.Errorf("failed to check payment history: %w", err)
		}
	default:
		return false, fmt.Errorf("charge %d has unknown category %q", charge.ID, charge.Category)
	}
	return count > 0, nil
}

// SavePaymentHistory appends one ledger row for a settled charge. For
// once_per_class charges the class being paid for is stamped; other
// categories leave it null. Must run on the same tx that creates the
// billing records so a concurrent double-submit cannot pay a
// once-per-lifetime charge twice.
func (s *ExtraChargeService) SavePaymentHistory(tx *gorm.DB, charge models.ClassFeeExtraCharge, studentID, billingMasterID, classID, campusID uint) error {
	history := models.ChargePaymentHistory{
		StudentID:       studentID,
		ChargeID:        charge.ID,
		BillingMasterID: billingMasterID,
		CampusID:        campusID,
		Amount:          charge.Amount,
	}
	if charge.Category == models.ChargeOncePerClass {
		paidFor := classID
		history.ClassPaidForID = &paidFor
	}
	if err := tx.Create(&history).Error; err != nil {
		return fmt.Errorf("failed to record charge payment history: %w", err)
	}
	return nil
}
