package httpapi

import (
	"github.com/gofiber/fiber/v2"
)

func (s *Server) handleInvite(c *fiber.Ctx) error {
	var req InviteRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid request body")
	}
	contact, err := s.contacts.Invite(c.Context(), callerFrom(c).UserID, req.Email, req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(contactResponse(contact))
}

func (s *Server) handleListVaultContacts(c *fiber.Ctx) error {
	list, err := s.contacts.ListByVault(c.Context(), callerFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(contactListResponse(list))
}

func (s *Server) handleListMyNominations(c *fiber.Ctx) error {
	list, err := s.contacts.ListForUser(c.Context(), callerFrom(c).UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(contactListResponse(list))
}

func (s *Server) handleDenyContact(c *fiber.Ctx) error {
	if err := s.contacts.Deny(c.Context(), callerFrom(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleResolveInvitation(c *fiber.Ctx) error {
	contact, err := s.contacts.ResolveByToken(c.Context(), c.Params("token"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(contactResponse(contact))
}

func (s *Server) handleAcceptInvitation(c *fiber.Ctx) error {
	var req AcceptRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid request body")
	}
	contact, pair, err := s.contacts.Accept(c.Context(), c.Params("token"), req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(AcceptResponse{Contact: contactResponse(contact), Tokens: tokenResponse(pair)})
}

func (s *Server) handleDeclineInvitation(c *fiber.Ctx) error {
	if err := s.contacts.DenyByToken(c.Context(), c.Params("token")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
