package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/jobsync/internal/services"
)

// uploadField is the multipart field carrying the resume.
const uploadField = "file"

type ResumeHandler struct {
	matching       services.MatchingService
	storageService services.StorageService
	maxFileSize    int64
}

func NewResumeHandler(
	matching services.MatchingService,
	storageService services.StorageService,
	maxFileSize int64,
) *ResumeHandler {
	return &ResumeHandler{
		matching:       matching,
		storageService: storageService,
		maxFileSize:    maxFileSize,
	}
}

// HandleUpload extracts and stores a resume without analysing it.
func (h *ResumeHandler) HandleUpload(c *fiber.Ctx) error {
	upload, err := h.saveUpload(c)
	if err != nil {
		return respondError(c, err)
	}

	resp, err := h.matching.UploadResume(c.UserContext(), *upload)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleAnalyze runs the full pipeline on an uploaded resume.
func (h *ResumeHandler) HandleAnalyze(c *fiber.Ctx) error {
	upload, err := h.saveUpload(c)
	if err != nil {
		return respondError(c, err)
	}

	resp, err := h.matching.AnalyzeResume(c.UserContext(), *upload)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(resp)
}

// HandleAnalyzeStored re-runs the pipeline on a stored resume.
func (h *ResumeHandler) HandleAnalyzeStored(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid resume id")
	}

	resp, err := h.matching.AnalyzeStoredResume(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(resp)
}

// saveUpload writes the multipart file to the upload directory.
func (h *ResumeHandler) saveUpload(c *fiber.Ctx) (*services.Upload, error) {
	file, err := c.FormFile(uploadField)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "No file provided. Upload the resume in the 'file' field.")
	}

	if file.Size > h.maxFileSize {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("File too large. Max size: %d bytes", h.maxFileSize))
	}

	filePath, err := h.storageService.SaveUpload(file)
	if err != nil {
		return nil, err
	}

	return &services.Upload{Filename: file.Filename, Path: filePath}, nil
}
