package services

import (
	"testing"

	"campusbilling_go/config"
	"campusbilling_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicableChargesAssignmentOnly(t *testing.T) {
	db := setupTestDB(t)
	student := seedStudent(t, db, "1500.00", "5000.00")
	svc := NewExtraChargeService(db)

	assigned := assignCharge(t, db, student, "Exam Fee", models.ChargeMonthly, "200.00")

	// Active in the same campus, but never assigned.
	unassigned := models.ClassFeeExtraCharge{
		Name:     "Sports Fee",
		CampusID: student.CampusID,
		Category: models.ChargeMonthly,
		Amount:   dec("300.00"),
		IsActive: true,
	}
	require.NoError(t, db.Create(&unassigned).Error)

	charges, err := svc.GetApplicableCharges(student.ClassID, student.ID, student.CampusID)
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, assigned.ID, charges[0].ID)
}

func TestApplicableChargesClassPolicy(t *testing.T) {
	db := setupTestDB(t)
	student := seedStudent(t, db, "1500.00", "5000.00")
	svc := NewExtraChargeService(db).WithPolicy(config.ChargeApplicabilityClassAndAssignment)

	classCharge := models.ClassFeeExtraCharge{
		Name:     "Course Books",
		ClassID:  &student.ClassID,
		CampusID: student.CampusID,
		Category: models.ChargeOncePerClass,
		Amount:   dec("1200.00"),
		IsActive: true,
	}
	require.NoError(t, db.Create(&classCharge).Error)

	otherClassID := student.ClassID + 100
	otherCharge := models.ClassFeeExtraCharge{
		Name:     "Other Class Fee",
		ClassID:  &otherClassID,
		CampusID: student.CampusID,
		Category: models.ChargeMonthly,
		Amount:   dec("500.00"),
		IsActive: true,
	}
	require.NoError(t, db.Create(&otherCharge).Error)

	charges, err := svc.GetApplicableCharges(student.ClassID, student.ID, student.CampusID)
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, classCharge.ID, charges[0].ID)
}

func TestApplicableChargesSkipInactiveAndDeleted(t *testing.T) {
	db := setupTestDB(t)
	student := seedStudent(t, db, "1500.00", "5000.00")
	svc := NewExtraChargeService(db)

	inactive := assignCharge(t, db, student, "Old Fee", models.ChargeMonthly, "100.00")
	require.NoError(t, db.Model(&models.ClassFeeExtraCharge{}).
		Where("id = ?", inactive.ID).Update("is_active", false).Error)

	deleted := assignCharge(t, db, student, "Removed Fee", models.ChargeMonthly, "100.00")
	require.NoError(t, db.Model(&models.ClassFeeExtraCharge{}).
		Where("id = ?", deleted.ID).Update("is_deleted", true).Error)

	charges, err := svc.GetApplicableCharges(student.ClassID, student.ID, student.CampusID)
	require.NoError(t, err)
	assert.Empty(t, charges)
}

func TestEligibleChargesByCategory(t *testing.T) {
	db := setupTestDB(t)
	student := seedStudent(t, db, "1500.00", "5000.00")
	svc := NewExtraChargeService(db)

	monthly := assignCharge(t, db, student, "Exam Fee", models.ChargeMonthly, "200.00")
	lifetime := assignCharge(t, db, student, "ID Card", models.ChargeOncePerLifetime, "150.00")
	perClass := assignCharge(t, db, student, "Course Books", models.ChargeOncePerClass, "1200.00")

	eligible, err := svc.EligibleCharges(db, student.ClassID, student.ID, student.CampusID)
	require.NoError(t, err)
	require.Len(t, eligible, 3)

	// Settle all three against a billing cycle.
	master := models.BillingMaster{
		StudentID: student.ID, ForMonth: 4, ForYear: 2026,
		ClassID: student.ClassID, CampusID: student.CampusID,
	}
	require.NoError(t, db.Create(&master).Error)
	for _, charge := range eligible {
		require.NoError(t, svc.SavePaymentHistory(db, charge, student.ID, master.ID, student.ClassID, student.CampusID))
	}

	eligible, err = svc.EligibleCharges(db, student.ClassID, student.ID, student.CampusID)
	require.NoError(t, err)
	require.Len(t, eligible, 1, "only the monthly charge recurs")
	assert.Equal(t, monthly.ID, eligible[0].ID)

	// A class change frees the once-per-class charge but not the lifetime one.
	newClassID := student.ClassID + 1
	eligible, err = svc.EligibleCharges(db, newClassID, student.ID, student.CampusID)
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	ids := []uint{eligible[0].ID, eligible[1].ID}
	assert.Contains(t, ids, monthly.ID)
	assert.Contains(t, ids, perClass.ID)
	assert.NotContains(t, ids, lifetime.ID)
}

func TestCalculateExtraChargesIdempotent(t *testing.T) {
	db := setupTestDB(t)
	student := seedStudent(t, db, "1500.00", "5000.00")
	svc := NewExtraChargeService(db)

	assignCharge(t, db, student, "Exam Fee", models.ChargeMonthly, "200.00")
	assignCharge(t, db, student, "ID Card", models.ChargeOncePerLifetime, "150.00")

	first, err := svc.CalculateExtraCharges(student.ClassID, student.ID, student.CampusID)
	require.NoError(t, err)
	assert.True(t, dec("350.00").Equal(first))

	second, err := svc.CalculateExtraCharges(student.ClassID, student.ID, student.CampusID)
	require.NoError(t, err)
	assert.True(t, first.Equal(second), "preview has no side effects")
}

func TestHasPaidCharge(t *testing.T) {
	db := setupTestDB(t)
	student := seedStudent(t, db, "1500.00", "5000.00")
	svc := NewExtraChargeService(db)

	lifetime := assignCharge(t, db, student, "ID Card", models.ChargeOncePerLifetime, "150.00")

	paid, err := svc.HasPaidCharge(student.ID, lifetime.ID, student.ClassID)
	require.NoError(t, err)
	assert.False(t, paid)

	master := models.BillingMaster{
		StudentID: student.ID, ForMonth: 4, ForYear: 2026,
		ClassID: student.ClassID, CampusID: student.CampusID,
	}
	require.NoError(t, db.Create(&master).Error)
	require.NoError(t, svc.SavePaymentHistory(db, lifetime, student.ID, master.ID, student.ClassID, student.CampusID))

	paid, err = svc.HasPaidCharge(student.ID, lifetime.ID, student.ClassID)
	require.NoError(t, err)
	assert.True(t, paid)
}
