package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/credcore/internal/common"
	"github.com/dmitrijs2005/credcore/internal/logging"
	"github.com/dmitrijs2005/credcore/internal/server/auth"
	"github.com/dmitrijs2005/credcore/internal/server/models"
	"github.com/dmitrijs2005/credcore/internal/server/repositories/repomanager"
)

// AdminService backs the operator tooling. It bypasses registration policy
// and is never exposed over the network.
type AdminService struct {
	repos  repomanager.RepositoryManager
	hasher auth.PasswordHasher
	log    logging.Logger
}

func NewAdminService(repos repomanager.RepositoryManager, hasher auth.PasswordHasher, log logging.Logger) *AdminService {
	if log == nil {
		log = logging.Nop{}
	}
	return &AdminService{repos: repos, hasher: hasher, log: log.With("module", "admin")}
}

// CreateSuperUser creates a verified account holding both the user and
// super_user roles.
func (a *AdminService) CreateSuperUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = common.NormalizeEmail(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", common.ErrInvalidInput)
	}

	hash, err := a.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := a.repos.Users().Create(ctx, &models.User{
		Username:      in.Username,
		Email:         in.Email,
		Phone:         strings.TrimSpace(in.Phone),
		PasswordHash:  hash,
		Roles:         []string{common.RoleUser, common.RoleSuperUser},
		EmailVerified: true,
	})
	if err != nil {
		return nil, err
	}

	a.log.Info(ctx, "superuser created", "user_id", u.ID)
	pub := u.Public()
	return &pub, nil
}

// DeleteUser removes the account with the given username.
func (a *AdminService) DeleteUser(ctx context.Context, username string) error {
	repo := a.repos.Users()
	u, err := repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return err
	}
	if err := repo.Delete(ctx, u.ID); err != nil {
		return err
	}
	a.log.Info(ctx, "user deleted", "user_id", u.ID)
	return nil
}
