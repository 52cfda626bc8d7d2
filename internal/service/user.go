package service

import (
	"context"
	"strings"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/logger"
	"rentchain-backend/internal/repository"

	"github.com/ethereum/go-ethereum/common"
)

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) GetUser(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	if !actor.Authenticated() {
		return nil, domain.NewError(domain.KindUnauthorized, "authentication required")
	}
	return s.userRepo.GetByID(ctx, actor.ID)
}

func (s *userService) LinkWallet(ctx context.Context, actor domain.Actor, address string) (*domain.User, error) {
	logger.EnterMethod("userService.LinkWallet", "actorID", actor.ID)

	if !actor.Authenticated() {
		return nil, domain.NewError(domain.KindUnauthorized, "authentication required")
	}
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) || !strings.HasPrefix(address, "0x") {
		return nil, domain.NewError(domain.KindValidation, "invalid wallet address %q", address)
	}
	// Stored lower-case so uniqueness does not depend on checksum casing.
	address = strings.ToLower(address)

	user, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if user.HasWallet() {
		return nil, domain.NewError(domain.KindForbidden, "a wallet is already linked to this account")
	}

	if err := s.userRepo.LinkWallet(ctx, actor.ID, address); err != nil {
		logger.ExitMethodWithError("userService.LinkWallet", err)
		return nil, err
	}
	user.WalletAddress = &address

	logger.ExitMethod("userService.LinkWallet", "wallet", address)
	return user, nil
}
