package services

import (
	"fmt"
	"testing"
	"time"

	"campusbilling_go/config"
	"campusbilling_go/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	config.AppConfig = &config.Config{
		ChargeApplicability: config.ChargeApplicabilityAssignmentOnly,
		JWTSecret:           "test-secret-test-secret",
		JWTExpiresIn:        time.Hour,
	}
}

// setupTestDB opens a private in-memory database and migrates the full
// schema, unique indexes included.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Campus{},
		&models.User{},
		&models.Class{},
		&models.ClassFee{},
		&models.Student{},
		&models.Employee{},
		&models.EmployeeRole{},
		&models.SalaryDefinition{},
		&models.StudentCategoryAssignment{},
		&models.StudentFineCharge{},
		&models.ClassFeeExtraCharge{},
		&models.StudentChargeAssignment{},
		&models.ChargePaymentHistory{},
		&models.BillingMaster{},
		&models.BillingTransaction{},
		&models.SalaryDeduction{},
		&models.LeaveConfig{},
		&models.LeaveBalance{},
		&models.LeaveBalanceHistory{},
	)
	require.NoError(t, err)

	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedStudent creates a campus, class, fee schedule and one student, ready
// for billing.
func seedStudent(t *testing.T, db *gorm.DB, tuition, admission string) models.Student {
	t.Helper()

	campus := models.Campus{Name: "Main Campus", Code: "MAIN", Active: true}
	require.NoError(t, db.Create(&campus).Error)

	class := models.Class{Name: "Grade 1", CampusID: campus.ID, Active: true}
	require.NoError(t, db.Create(&class).Error)

	fee := models.ClassFee{
		ClassID:      class.ID,
		CampusID:     campus.ID,
		TuitionFee:   dec(tuition),
		AdmissionFee: dec(admission),
		IsActive:     true,
	}
	require.NoError(t, db.Create(&fee).Error)

	student := models.Student{FirstName: "Asha", CampusID: campus.ID, ClassID: class.ID}
	require.NoError(t, db.Create(&student).Error)

	return student
}

// assignCharge creates an active charge and assigns it to the student.
func assignCharge(t *testing.T, db *gorm.DB, student models.Student, name, category, amount string) models.ClassFeeExtraCharge {
	t.Helper()

	charge := models.ClassFeeExtraCharge{
		Name:     name,
		CampusID: student.CampusID,
		Category: category,
		Amount:   dec(amount),
		IsActive: true,
	}
	require.NoError(t, db.Create(&charge).Error)
	require.NoError(t, db.Create(&models.StudentChargeAssignment{
		StudentID:  student.ID,
		ChargeID:   charge.ID,
		IsAssigned: true,
	}).Error)

	return charge
}
