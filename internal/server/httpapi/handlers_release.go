package httpapi

import (
	"github.com/everkeep/everkeep/internal/server/models"
	"github.com/gofiber/fiber/v2"
)

func (s *Server) handleSubmitRelease(c *fiber.Ctx) error {
	var req ReleaseRequestBody
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid request body")
	}
	release, err := s.releases.Request(c.Context(), callerFrom(c).UserID, req.VaultID, req.DeceasedName, req.EvidenceRef)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(releaseResponse(release))
}

func (s *Server) handleListReleases(c *fiber.Ctx) error {
	filter := models.ReleaseFilter{
		VaultID: c.Query("vault_id"),
		Status:  models.ReleaseStatus(c.Query("status")),
	}
	list, err := s.releases.List(c.Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]ReleaseResponse, 0, len(list))
	for _, r := range list {
		out = append(out, releaseResponse(r))
	}
	return c.JSON(out)
}

func (s *Server) handleReviewRelease(c *fiber.Ctx) error {
	var req ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid request body")
	}
	release, err := s.releases.Review(c.Context(), callerFrom(c).UserID, c.Params("id"), models.ReleaseDecision(req.Decision))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(releaseResponse(release))
}

func (s *Server) handleReleaseEvidence(c *fiber.Ctx) error {
	release, err := s.releases.Get(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	if release.EvidenceRef == "" {
		return respondError(c, fiber.StatusNotFound, "not found")
	}
	url, err := s.evidence.PresignDownload(c.Context(), release.EvidenceRef)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(PresignDownloadResponse{URL: url})
}

func (s *Server) handlePresignEvidence(c *fiber.Ctx) error {
	key, url, err := s.evidence.PresignUpload(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(PresignUploadResponse{Key: key, URL: url})
}
