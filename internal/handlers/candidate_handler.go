package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/jobsync/internal/models"
	"alfredoptarigan/jobsync/internal/services"
)

type CandidateHandler struct {
	matching services.MatchingService
}

func NewCandidateHandler(matching services.MatchingService) *CandidateHandler {
	return &CandidateHandler{matching: matching}
}

// HandleMatch finds resumes similar to a stored job or a free-text job
// description and returns them with an analysis.
func (h *CandidateHandler) HandleMatch(c *fiber.Ctx) error {
	var req models.MatchCandidatesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	resp, err := h.matching.MatchCandidates(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(resp)
}
