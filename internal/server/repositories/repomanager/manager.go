package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/quicksend/internal/dbx"
	"github.com/dmitrijs2005/quicksend/internal/server/repositories/files"
	"github.com/dmitrijs2005/quicksend/internal/server/repositories/quotas"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so a service can group several writes under dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Files(db dbx.DBTX) files.Repository
	Quotas(db dbx.DBTX) quotas.Repository
}
