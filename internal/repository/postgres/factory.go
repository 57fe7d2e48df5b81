package postgres

import (
	repo "github.com/nur1kesh/ai-model-marketplace/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	Users      repo.Users
	Accounts   repo.Accounts
	Allowances repo.Allowances
	Transfers  repo.Transfers
	Listings   repo.Listings
	AuditLogs  repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:      &usersRepo{pool},
		Accounts:   &accountsRepo{pool},
		Allowances: &allowancesRepo{pool},
		Transfers:  &transfersRepo{pool},
		Listings:   &listingsRepo{pool},
		AuditLogs:  &auditLogsRepo{pool},
	}
}
