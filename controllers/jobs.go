package controllers

import (
	"campusbilling_go/middleware"
	"campusbilling_go/services"

	"github.com/gofiber/fiber/v2"
)

// JobController exposes the scheduler's registered jobs to operators.
type JobController struct {
	scheduler *services.JobScheduler
}

func NewJobController(scheduler *services.JobScheduler) *JobController {
	return &JobController{scheduler: scheduler}
}

// ListJobs returns every registered job with its last-run status.
func (jc *JobController) ListJobs(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"jobs": jc.scheduler.Jobs()})
}

// TriggerJob runs a job immediately. The underlying batches are idempotent,
// so an out-of-schedule trigger is safe.
func (jc *JobController) TriggerJob(c *fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing job name"})
	}

	if err := jc.scheduler.TriggerNow(name); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	middleware.LogActivity(c, "CREATE", "jobs", 0, fiber.Map{"job": name, "action": "manual_trigger"})

	return c.JSON(fiber.Map{"message": "Job triggered", "job": name})
}
