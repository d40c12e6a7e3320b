package services

import (
	"testing"
	"time"

	"campusbilling_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// seedTeacher creates an employee holding an open-ended teaching role.
func seedTeacher(t *testing.T, db *gorm.DB) models.Employee {
	t.Helper()

	campus := models.Campus{Name: "Main Campus", Code: "MAIN", Active: true}
	require.NoError(t, db.Create(&campus).Error)

	employee := models.Employee{FirstName: "Dana", CampusID: campus.ID, Active: true}
	require.NoError(t, db.Create(&employee).Error)
	require.NoError(t, db.Create(&models.EmployeeRole{
		EmployeeID:   employee.ID,
		EmployeeType: "teaching",
		RoleName:     "teacher",
		StartDate:    time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}).Error)

	return employee
}

func seedLeaveConfig(t *testing.T, db *gorm.DB, leaveType, period, allowed string, carry bool, carryCap string) models.LeaveConfig {
	t.Helper()

	cfg := models.LeaveConfig{
		EmployeeType:        "teaching",
		RoleName:            "teacher",
		LeaveType:           leaveType,
		AllocationPeriod:    period,
		AllowedDays:         dec(allowed),
		IsCarryForward:      carry,
		MaxCarryForwardDays: dec(carryCap),
		IsActive:            true,
	}
	require.NoError(t, db.Create(&cfg).Error)
	return cfg
}

func TestMonthlyRolloverDayGate(t *testing.T) {
	db := setupTestDB(t)
	seedTeacher(t, db)
	seedLeaveConfig(t, db, "casual", models.AllocationMonthly, "1.00", false, "0")
	svc := NewLeaveRolloverService(db)

	summary, err := svc.RunMonthlyRollover(time.Date(2026, 4, 15, 3, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, summary.Created, "mid-month run is a no-op")

	var count int64
	require.NoError(t, db.Model(&models.LeaveBalance{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMonthlyRolloverAllocates(t *testing.T) {
	db := setupTestDB(t)
	employee := seedTeacher(t, db)
	seedLeaveConfig(t, db, "casual", models.AllocationMonthly, "1.00", false, "0")
	svc := NewLeaveRolloverService(db)

	summary, err := svc.RunMonthlyRollover(time.Date(2026, 4, 1, 0, 5, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)

	var balance models.LeaveBalance
	require.NoError(t, db.Where("employee_id = ?", employee.ID).First(&balance).Error)
	assert.Equal(t, 2026, balance.Year)
	assert.Equal(t, 4, balance.Month)
	assert.True(t, dec("1.00").Equal(balance.TotalAllocated))
	assert.True(t, balance.CarriedForward.IsZero())

	var history models.LeaveBalanceHistory
	require.NoError(t, db.Where("leave_balance_id = ?", balance.ID).First(&history).Error)
	assert.Equal(t, models.LeaveActionMonthlyRollover, history.ActionType)
	assert.True(t, history.BalanceBefore.IsZero())
	assert.True(t, dec("1.00").Equal(history.BalanceAfter))
}

func TestMonthlyRolloverRerunSkips(t *testing.T) {
	db := setupTestDB(t)
	seedTeacher(t, db)
	seedLeaveConfig(t, db, "casual", models.AllocationMonthly, "1.00", false, "0")
	svc := NewLeaveRolloverService(db)

	firstOfApril := time.Date(2026, 4, 1, 0, 5, 0, 0, time.UTC)
	_, err := svc.RunMonthlyRollover(firstOfApril)
	require.NoError(t, err)

	summary, err := svc.RunMonthlyRollover(firstOfApril)
	require.NoError(t, err)
	assert.Zero(t, summary.Created)
	assert.Equal(t, 1, summary.Skipped)

	var count int64
	require.NoError(t, db.Model(&models.LeaveBalance{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestMonthlyRolloverCarryForwardCapped(t *testing.T) {
	db := setupTestDB(t)
	employee := seedTeacher(t, db)
	seedLeaveConfig(t, db, "casual", models.AllocationMonthly, "1.50", true, "2.00")
	svc := NewLeaveRolloverService(db)

	// March balance with 3.5 days left unused.
	require.NoError(t, db.Create(&models.LeaveBalance{
		EmployeeID:     employee.ID,
		LeaveType:      "casual",
		Year:           2026,
		Month:          3,
		TotalAllocated: dec("1.50"),
		CarriedForward: dec("2.00"),
		Used:           dec("0.00"),
	}).Error)

	_, err := svc.RunMonthlyRollover(time.Date(2026, 4, 1, 0, 5, 0, 0, time.UTC))
	require.NoError(t, err)

	var april models.LeaveBalance
	require.NoError(t, db.Where("employee_id = ? AND month = ?", employee.ID, 4).First(&april).Error)
	assert.True(t, dec("2.00").Equal(april.CarriedForward), "carry capped at 2.00")
	assert.True(t, dec("3.50").Equal(april.Available()))
}

func TestMonthlyRolloverCarryReadsSingleHop(t *testing.T) {
	db := setupTestDB(t)
	employee := seedTeacher(t, db)
	seedLeaveConfig(t, db, "casual", models.AllocationMonthly, "1.00", true, "5.00")
	svc := NewLeaveRolloverService(db)

	// Only February exists; March was never allocated, so April carries
	// nothing regardless of February's surplus.
	require.NoError(t, db.Create(&models.LeaveBalance{
		EmployeeID:     employee.ID,
		LeaveType:      "casual",
		Year:           2026,
		Month:          2,
		TotalAllocated: dec("4.00"),
	}).Error)

	_, err := svc.RunMonthlyRollover(time.Date(2026, 4, 1, 0, 5, 0, 0, time.UTC))
	require.NoError(t, err)

	var april models.LeaveBalance
	require.NoError(t, db.Where("employee_id = ? AND month = ?", employee.ID, 4).First(&april).Error)
	assert.True(t, april.CarriedForward.IsZero())
}

func TestMonthlyRolloverJanuaryReadsDecember(t *testing.T) {
	db := setupTestDB(t)
	employee := seedTeacher(t, db)
	seedLeaveConfig(t, db, "casual", models.AllocationMonthly, "1.00", true, "2.00")
	svc := NewLeaveRolloverService(db)

	require.NoError(t, db.Create(&models.LeaveBalance{
		EmployeeID:     employee.ID,
		LeaveType:      "casual",
		Year:           2025,
		Month:          12,
		TotalAllocated: dec("1.00"),
	}).Error)

	_, err := svc.RunMonthlyRollover(time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC))
	require.NoError(t, err)

	var january models.LeaveBalance
	require.NoError(t, db.Where("employee_id = ? AND year = ? AND month = ?", employee.ID, 2026, 1).First(&january).Error)
	assert.True(t, dec("1.00").Equal(january.CarriedForward))
}

func TestYearlyRolloverGateAndAllocation(t *testing.T) {
	db := setupTestDB(t)
	employee := seedTeacher(t, db)
	seedLeaveConfig(t, db, "annual", models.AllocationYearly, "10.00", false, "0")
	svc := NewLeaveRolloverService(db)

	summary, err := svc.RunYearlyRollover(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, summary.Created, "first of a non-January month is a no-op")

	summary, err = svc.RunYearlyRollover(time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)

	var balance models.LeaveBalance
	require.NoError(t, db.Where("employee_id = ? AND leave_type = ?", employee.ID, "annual").First(&balance).Error)
	assert.Equal(t, 2026, balance.Year)
	assert.Equal(t, 0, balance.Month, "yearly balances use month zero")
	assert.True(t, dec("10.00").Equal(balance.TotalAllocated))
}

func TestRolloverIgnoresEndedRoles(t *testing.T) {
	db := setupTestDB(t)
	employee := seedTeacher(t, db)
	ended := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Model(&models.EmployeeRole{}).
		Where("employee_id = ?", employee.ID).Update("end_date", &ended).Error)
	seedLeaveConfig(t, db, "casual", models.AllocationMonthly, "1.00", false, "0")
	svc := NewLeaveRolloverService(db)

	summary, err := svc.RunMonthlyRollover(time.Date(2026, 4, 1, 0, 5, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, summary.Created)
	assert.Zero(t, summary.Skipped)
}

func TestRecordUsage(t *testing.T) {
	db := setupTestDB(t)
	employee := seedTeacher(t, db)
	svc := NewLeaveRolloverService(db)

	now := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&models.LeaveBalance{
		EmployeeID:     employee.ID,
		LeaveType:      "casual",
		Year:           2026,
		Month:          4,
		TotalAllocated: dec("2.00"),
	}).Error)

	require.NoError(t, svc.RecordUsage(employee.ID, "casual", dec("1.50"), now))

	var balance models.LeaveBalance
	require.NoError(t, db.Where("employee_id = ? AND month = ?", employee.ID, 4).First(&balance).Error)
	assert.True(t, dec("1.50").Equal(balance.Used))
	assert.True(t, dec("0.50").Equal(balance.Available()))

	var history models.LeaveBalanceHistory
	require.NoError(t, db.Where("action_type = ?", models.LeaveActionUsage).First(&history).Error)
	assert.True(t, dec("2.00").Equal(history.BalanceBefore))
	assert.True(t, dec("0.50").Equal(history.BalanceAfter))

	// More than the remaining half day must be rejected untouched.
	err := svc.RecordUsage(employee.ID, "casual", dec("1.00"), now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient leave balance")

	require.NoError(t, db.Where("employee_id = ? AND month = ?", employee.ID, 4).First(&balance).Error)
	assert.True(t, dec("1.50").Equal(balance.Used), "failed usage leaves the balance alone")
}

func TestRecordUsageFallsBackToYearly(t *testing.T) {
	db := setupTestDB(t)
	employee := seedTeacher(t, db)
	svc := NewLeaveRolloverService(db)

	require.NoError(t, db.Create(&models.LeaveBalance{
		EmployeeID:     employee.ID,
		LeaveType:      "annual",
		Year:           2026,
		Month:          0,
		TotalAllocated: dec("10.00"),
	}).Error)

	now := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.RecordUsage(employee.ID, "annual", dec("3.00"), now))

	var balance models.LeaveBalance
	require.NoError(t, db.Where("employee_id = ? AND leave_type = ?", employee.ID, "annual").First(&balance).Error)
	assert.True(t, dec("3.00").Equal(balance.Used))
}

func TestRecordUsageRejectsNonPositive(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLeaveRolloverService(db)

	assert.Error(t, svc.RecordUsage(1, "casual", dec("0"), time.Now()))
	assert.Error(t, svc.RecordUsage(1, "casual", dec("-1"), time.Now()))
}
