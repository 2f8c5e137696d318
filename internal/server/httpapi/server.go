// Package httpapi exposes the vault server over HTTP. Routes are grouped by
// concern: auth, own-vault, vault-by-id (gateway), invitations, contacts,
// releases and evidence presigning.
package httpapi

import (
	"context"
	"time"

	"github.com/everkeep/everkeep/internal/logging"
	"github.com/everkeep/everkeep/internal/server/config"
	"github.com/everkeep/everkeep/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

// Server is the HTTP front of the application services.
type Server struct {
	app      *fiber.App
	cfg      *config.Config
	log      logging.Logger
	users    *services.UserService
	vaults   *services.VaultService
	contacts *services.ContactService
	releases *services.ReleaseService
	evidence *services.EvidenceService
	gateway  *services.AccessGateway
}

// NewServer builds the fiber application and mounts all routes.
func NewServer(
	cfg *config.Config,
	log logging.Logger,
	users *services.UserService,
	vaults *services.VaultService,
	contacts *services.ContactService,
	releases *services.ReleaseService,
	evidence *services.EvidenceService,
	gateway *services.AccessGateway,
) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log.With("component", "httpapi"),
		users:    users,
		vaults:   vaults,
		contacts: contacts,
		releases: releases,
		evidence: evidence,
		gateway:  gateway,
	}
	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", s.handleRegister)
	authGroup.Post("/verify", s.handleVerify)
	authGroup.Post("/login", s.handleLogin)
	authGroup.Post("/refresh", s.handleRefresh)

	// invitation endpoints are public: the token IS the credential
	inv := api.Group("/invitations")
	inv.Get("/:token", s.handleResolveInvitation)
	inv.Post("/:token/accept", s.handleAcceptInvitation)
	inv.Post("/:token/deny", s.handleDeclineInvitation)

	authed := api.Group("", Authenticate([]byte(s.cfg.SecretKey)))

	authed.Get("/vault", s.handleGetOwnVault)
	authed.Patch("/vault", s.handlePatchOwnVault)
	authed.Get("/vaults/:id", s.handleGetVault)
	authed.Patch("/vaults/:id", s.handlePatchVault)
	authed.Get("/vaults/:id/contacts", s.handleListVaultContacts)

	authed.Post("/contacts/invite", s.handleInvite)
	authed.Get("/contacts/mine", s.handleListMyNominations)
	authed.Delete("/contacts/:id", s.handleDenyContact)

	authed.Post("/releases", s.handleSubmitRelease)
	authed.Post("/evidence/presign", s.handlePresignEvidence)

	admin := authed.Group("", AdminRequired())
	admin.Get("/releases", s.handleListReleases)
	admin.Post("/releases/:id/review", s.handleReviewRelease)
	admin.Get("/releases/:id/evidence", s.handleReleaseEvidence)
}

// App exposes the underlying fiber application for tests.
func (s *Server) App() *fiber.App { return s.app }

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.cfg.EndpointAddrHTTP)
	}()

	s.log.Info(ctx, "http server listening", "addr", s.cfg.EndpointAddrHTTP)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info(ctx, "shutting down http server")
		return s.app.ShutdownWithTimeout(5 * time.Second)
	}
}
