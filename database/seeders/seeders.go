package seeders

import (
	"log"
	"time"

	"campusbilling_go/database"
	"campusbilling_go/models"
	"campusbilling_go/utils"

	"github.com/shopspring/decimal"
)

// SeedAll runs all seeders
func SeedAll() {
	log.Println("Starting database seeding...")

	SeedCampuses()
	SeedUsers()
	SeedClassesAndFees()
	SeedCharges()
	SeedEmployees()
	SeedLeaveConfigs()

	log.Println("Database seeding completed successfully!")
}

// SeedCampuses seeds the campuses table
func SeedCampuses() {
	var count int64
	database.DB.Model(&models.Campus{}).Count(&count)
	if count > 0 {
		log.Println("Campuses already seeded, skipping...")
		return
	}

	campuses := []models.Campus{
		{
			BaseModel: models.BaseModel{ID: 1},
			Name:      "Main Campus",
			Code:      "MAIN",
			Address:   "12 College Road",
			Phone:     "555-010100",
			Active:    true,
		},
		{
			BaseModel: models.BaseModel{ID: 2},
			Name:      "North Campus",
			Code:      "NORTH",
			Address:   "98 Hillside Avenue",
			Phone:     "555-010200",
			Active:    true,
		},
	}

	for _, campus := range campuses {
		if err := database.DB.Create(&campus).Error; err != nil {
			log.Printf("Error seeding campus %s: %v", campus.Code, err)
		}
	}

	log.Println("Campuses seeded successfully")
}

// SeedUsers seeds the users table
func SeedUsers() {
	var count int64
	database.DB.Model(&models.User{}).Count(&count)
	if count > 0 {
		log.Println("Users already seeded, skipping...")
		return
	}

	hashed, err := utils.HashPassword("changeme123")
	if err != nil {
		log.Printf("Error hashing seed password: %v", err)
		return
	}

	users := []models.User{
		{Username: "owner", Password: hashed, Email: "owner@example.com", Role: "owner", CampusID: 1, Status: "active"},
		{Username: "admin.main", Password: hashed, Email: "admin.main@example.com", Role: "admin", CampusID: 1, Status: "active"},
		{Username: "accounts.main", Password: hashed, Email: "accounts.main@example.com", Role: "accountant", CampusID: 1, Status: "active"},
		{Username: "accounts.north", Password: hashed, Email: "accounts.north@example.com", Role: "accountant", CampusID: 2, Status: "active"},
	}

	for _, user := range users {
		if err := database.DB.Create(&user).Error; err != nil {
			log.Printf("Error seeding user %s: %v", user.Username, err)
		}
	}

	log.Println("Users seeded successfully")
}

// SeedClassesAndFees seeds classes with their fee schedules
func SeedClassesAndFees() {
	var count int64
	database.DB.Model(&models.Class{}).Count(&count)
	if count > 0 {
		log.Println("Classes already seeded, skipping...")
		return
	}

	type classSeed struct {
		name      string
		campusID  uint
		tuition   string
		admission string
	}
	seeds := []classSeed{
		{"Grade 1", 1, "1500.00", "5000.00"},
		{"Grade 2", 1, "1600.00", "5000.00"},
		{"Grade 3", 1, "1700.00", "5000.00"},
		{"Grade 1", 2, "1400.00", "4500.00"},
		{"Grade 2", 2, "1500.00", "4500.00"},
	}

	for _, s := range seeds {
		class := models.Class{Name: s.name, CampusID: s.campusID, Active: true}
		if err := database.DB.Create(&class).Error; err != nil {
			log.Printf("Error seeding class %s: %v", s.name, err)
			continue
		}
		fee := models.ClassFee{
			ClassID:      class.ID,
			CampusID:     s.campusID,
			TuitionFee:   decimal.RequireFromString(s.tuition),
			AdmissionFee: decimal.RequireFromString(s.admission),
			IsActive:     true,
		}
		if err := database.DB.Create(&fee).Error; err != nil {
			log.Printf("Error seeding class fee for %s: %v", s.name, err)
		}
	}

	log.Println("Classes and fees seeded successfully")
}

// SeedCharges seeds the extra-charge catalog
func SeedCharges() {
	var count int64
	database.DB.Model(&models.ClassFeeExtraCharge{}).Count(&count)
	if count > 0 {
		log.Println("Charges already seeded, skipping...")
		return
	}

	charges := []models.ClassFeeExtraCharge{
		{Name: "Exam Fee", CampusID: 1, Category: models.ChargeMonthly, Amount: decimal.RequireFromString("200.00"), IsActive: true},
		{Name: "ID Card", CampusID: 1, Category: models.ChargeOncePerLifetime, Amount: decimal.RequireFromString("150.00"), IsActive: true},
		{Name: "Course Books", CampusID: 1, Category: models.ChargeOncePerClass, Amount: decimal.RequireFromString("1200.00"), IsActive: true},
		{Name: "Lab Fee", CampusID: 2, Category: models.ChargeMonthly, Amount: decimal.RequireFromString("250.00"), IsActive: true},
	}

	for _, charge := range charges {
		if err := database.DB.Create(&charge).Error; err != nil {
			log.Printf("Error seeding charge %s: %v", charge.Name, err)
		}
	}

	log.Println("Charges seeded successfully")
}

// SeedEmployees seeds a demo employee with a salary definition and an
// employee-parent student linked to them.
func SeedEmployees() {
	var count int64
	database.DB.Model(&models.Employee{}).Count(&count)
	if count > 0 {
		log.Println("Employees already seeded, skipping...")
		return
	}

	employee := models.Employee{FirstName: "Dana", LastName: "Whitfield", CampusID: 1, Active: true}
	if err := database.DB.Create(&employee).Error; err != nil {
		log.Printf("Error seeding employee: %v", err)
		return
	}

	role := models.EmployeeRole{
		EmployeeID:   employee.ID,
		EmployeeType: "teaching",
		RoleName:     "teacher",
		StartDate:    time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := database.DB.Create(&role).Error; err != nil {
		log.Printf("Error seeding employee role: %v", err)
	}

	salary := models.SalaryDefinition{
		EmployeeID:    employee.ID,
		NetSalary:     decimal.RequireFromString("30000.00"),
		IsActive:      true,
		EffectiveFrom: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := database.DB.Create(&salary).Error; err != nil {
		log.Printf("Error seeding salary definition: %v", err)
	}

	student := models.Student{
		FirstName:     "Riley",
		LastName:      "Whitfield",
		CampusID:      1,
		ClassID:       1,
		GuardianName:  "Dana Whitfield",
		GuardianPhone: "555-020300",
	}
	if err := database.DB.Create(&student).Error; err != nil {
		log.Printf("Error seeding student: %v", err)
		return
	}

	assignment := models.StudentCategoryAssignment{
		StudentID:              student.ID,
		CategoryType:           models.CategoryEmployeeParent,
		EmployeeID:             &employee.ID,
		PaymentMode:            models.PaymentModeCutFromSalary,
		TuitionDiscountPercent: decimal.RequireFromString("25.00"),
		IsActive:               true,
	}
	if err := database.DB.Create(&assignment).Error; err != nil {
		log.Printf("Error seeding category assignment: %v", err)
	}

	log.Println("Employees seeded successfully")
}

// SeedLeaveConfigs seeds the leave allocation rules
func SeedLeaveConfigs() {
	var count int64
	database.DB.Model(&models.LeaveConfig{}).Count(&count)
	if count > 0 {
		log.Println("Leave configs already seeded, skipping...")
		return
	}

	configs := []models.LeaveConfig{
		{
			EmployeeType:        "teaching",
			RoleName:            "teacher",
			LeaveType:           "casual",
			AllocationPeriod:    models.AllocationMonthly,
			AllowedDays:         decimal.RequireFromString("1.00"),
			IsCarryForward:      true,
			MaxCarryForwardDays: decimal.RequireFromString("2.00"),
			IsActive:            true,
		},
		{
			EmployeeType:        "teaching",
			RoleName:            "teacher",
			LeaveType:           "annual",
			AllocationPeriod:    models.AllocationYearly,
			AllowedDays:         decimal.RequireFromString("10.00"),
			IsCarryForward:      false,
			IsActive:            true,
		},
		{
			EmployeeType:        "non_teaching",
			RoleName:            "office_staff",
			LeaveType:           "casual",
			AllocationPeriod:    models.AllocationMonthly,
			AllowedDays:         decimal.RequireFromString("1.50"),
			IsCarryForward:      true,
			MaxCarryForwardDays: decimal.RequireFromString("3.00"),
			IsActive:            true,
		},
	}

	for _, cfg := range configs {
		if err := database.DB.Create(&cfg).Error; err != nil {
			log.Printf("Error seeding leave config %s/%s: %v", cfg.RoleName, cfg.LeaveType, err)
		}
	}

	log.Println("Leave configs seeded successfully")
}
