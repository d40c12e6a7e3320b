package routes

import (
	"campusbilling_go/controllers"
	"campusbilling_go/middleware"
	"campusbilling_go/services"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, scheduler *services.JobScheduler) {
	// Initialize controllers
	authController := &controllers.AuthController{}
	billingController := controllers.NewBillingController()
	chargeController := controllers.NewChargeController()
	leaveController := controllers.NewLeaveController()
	deductionController := controllers.NewDeductionController()
	jobController := controllers.NewJobController(scheduler)
	importController := controllers.NewPaymentsImportController()
	notificationController := &controllers.NotificationController{}
	auditController := controllers.NewAuditController()

	// API group
	api := app.Group("/api")

	// Authentication routes (no middleware)
	auth := api.Group("/auth")
	auth.Post("/login", authController.Login)
	auth.Get("/profile", middleware.JWTMiddleware(), authController.GetProfile)

	// Protected routes (require authentication)
	protected := api.Group("/", middleware.JWTMiddleware())

	protected.Get("/profile", authController.GetProfile)
	protected.Put("/profile/password", authController.ChangePassword)
	protected.Post("/auth/logout", authController.Logout)

	// User management (owner/admin)
	users := protected.Group("/users", middleware.RequireOwnerOrAdmin())
	users.Post("/", authController.Register)

	// Billing routes. Reads and payments for accountants and up; nothing
	// here recomputes past cycles.
	billing := protected.Group("/billing", middleware.RequireAccountantOrAbove())
	billing.Post("/", billingController.CreateStudentBilling)
	billing.Get("/students/:id", billingController.GetStudentBilling)
	billing.Post("/:id/payments", billingController.RecordPayment)
	billing.Get("/:id/receipt-data", billingController.GetReceiptData)
	billing.Get("/transactions/:id/receipt", billingController.GetReceipt)

	// Extra charge catalog and queries
	charges := protected.Group("/charges")
	charges.Post("/", middleware.RequireOwnerOrAdmin(), chargeController.CreateCharge)
	charges.Delete("/:id", middleware.RequireOwnerOrAdmin(), chargeController.DeactivateCharge)
	charges.Post("/assignments", middleware.RequireOwnerOrAdmin(), chargeController.AssignCharge)
	charges.Get("/applicable/:id", middleware.RequireAccountantOrAbove(), chargeController.GetApplicableCharges)
	charges.Get("/preview/:id", middleware.RequireAccountantOrAbove(), chargeController.PreviewExtraCharges)
	charges.Get("/paid/:id/:chargeId", middleware.RequireAccountantOrAbove(), chargeController.HasPaidCharge)

	// Payment imports (accountant and up)
	imports := protected.Group("/import", middleware.RequireAccountantOrAbove())
	imports.Post("/payments", importController.Import)

	// Salary deductions
	deductions := protected.Group("/deductions", middleware.RequireOwnerOrAdmin())
	deductions.Post("/run", deductionController.RunBatch)
	deductions.Get("/employees/:id", deductionController.GetEmployeeDeductions)

	// Leave configuration and balances
	leaves := protected.Group("/leaves")
	leaves.Post("/configs", middleware.RequireOwnerOrAdmin(), leaveController.CreateLeaveConfig)
	leaves.Get("/balances/:id", leaveController.GetBalances)
	leaves.Get("/history/:id", leaveController.GetHistory)
	leaves.Post("/usage/:id", middleware.RequireOwnerOrAdmin(), leaveController.RecordUsage)

	// Scheduler administration (owner/admin)
	jobs := protected.Group("/jobs", middleware.RequireOwnerOrAdmin())
	jobs.Get("/", jobController.ListJobs)
	jobs.Post("/:name/trigger", jobController.TriggerJob)

	// Notifications
	notifs := protected.Group("/notifications")
	notifs.Get("/", notificationController.GetNotifications)
	notifs.Post("/", middleware.RequireOwnerOrAdmin(), notificationController.CreateNotification)
	notifs.Patch("/:id/read", notificationController.MarkAsRead)
	notifs.Patch("/read-all", notificationController.MarkAllAsRead)

	// Audit trail (owner/admin)
	audit := protected.Group("/audit", middleware.RequireOwnerOrAdmin())
	audit.Get("/entries", auditController.GetEntries)
	audit.Get("/entries/:id", auditController.GetEntry)
	audit.Get("/archives", auditController.ListArchives)
	audit.Get("/archives/:id/download", auditController.DownloadArchive)
}
