package httpapi

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
)

// parsePatch decodes a partial vault update, remembering which keys the body
// actually carried so an absent funeral_plan is not confused with an
// explicit null.
func parsePatch(c *fiber.Ctx) (*VaultPatchRequest, error) {
	body := c.Body()

	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	req := &VaultPatchRequest{rawKeys: map[string]struct{}{}}
	if err := json.Unmarshal(body, req); err != nil {
		return nil, err
	}
	for k := range raw {
		req.rawKeys[k] = struct{}{}
	}
	return req, nil
}

func (s *Server) handleGetOwnVault(c *fiber.Ctx) error {
	caller := callerFrom(c)
	rec, err := s.vaults.EnsureByOwner(c.Context(), caller.UserID)
	if err != nil {
		return writeError(c, err)
	}
	vault, err := s.gateway.ReadVault(c.Context(), caller, rec.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(vaultResponse(vault))
}

func (s *Server) handlePatchOwnVault(c *fiber.Ctx) error {
	caller := callerFrom(c)
	req, err := parsePatch(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid request body")
	}
	rec, err := s.vaults.EnsureByOwner(c.Context(), caller.UserID)
	if err != nil {
		return writeError(c, err)
	}
	vault, err := s.gateway.WriteVault(c.Context(), caller, rec.ID, req.toPatch())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(vaultResponse(vault))
}

func (s *Server) handleGetVault(c *fiber.Ctx) error {
	vault, err := s.gateway.ReadVault(c.Context(), callerFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(vaultResponse(vault))
}

func (s *Server) handlePatchVault(c *fiber.Ctx) error {
	req, err := parsePatch(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid request body")
	}
	vault, err := s.gateway.WriteVault(c.Context(), callerFrom(c), c.Params("id"), req.toPatch())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(vaultResponse(vault))
}
