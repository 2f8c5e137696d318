package repomanager

import (
	"context"
	"database/sql"

	"github.com/everkeep/everkeep/internal/dbx"
	"github.com/everkeep/everkeep/internal/server/repositories/contacts"
	"github.com/everkeep/everkeep/internal/server/repositories/refreshtokens"
	"github.com/everkeep/everkeep/internal/server/repositories/releases"
	"github.com/everkeep/everkeep/internal/server/repositories/users"
	"github.com/everkeep/everkeep/internal/server/repositories/vaults"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Vaults(db dbx.DBTX) vaults.Repository
	Contacts(db dbx.DBTX) contacts.Repository
	Releases(db dbx.DBTX) releases.Repository
}
