package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/jobsync/internal/models"
	"alfredoptarigan/jobsync/internal/services"
)

type JobHandler struct {
	matching services.MatchingService
}

func NewJobHandler(matching services.MatchingService) *JobHandler {
	return &JobHandler{matching: matching}
}

func (h *JobHandler) HandleCreate(c *fiber.Ctx) error {
	var req models.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	job, err := h.matching.CreateJob(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Job posting created successfully",
		"job":     job,
	})
}

// HandleList lists the jobs of one domain, newest first.
func (h *JobHandler) HandleList(c *fiber.Ctx) error {
	domain := c.Query("domain")
	if domain == "" {
		return badRequest(c, "domain query parameter is required")
	}

	jobs, err := h.matching.ListJobsByDomain(c.UserContext(), domain)
	if err != nil {
		return respondError(c, err)
	}
	if jobs == nil {
		jobs = []models.JobDescription{}
	}

	return c.JSON(fiber.Map{
		"domain": domain,
		"jobs":   jobs,
	})
}

func (h *JobHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid job id")
	}

	if err := h.matching.DeleteJob(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *JobHandler) HandleDomains(c *fiber.Ctx) error {
	domains, err := h.matching.ListDomains(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if domains == nil {
		domains = []string{}
	}

	return c.JSON(fiber.Map{
		"domains": domains,
	})
}
