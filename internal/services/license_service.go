package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apierrors "licensor/internal/errors"
	"licensor/internal/license"
	"licensor/pkg/contracts/domain"
)

// LicenseService provides business logic for license administration and
// validation. Handlers depend on this interface; tests mock it.
type LicenseService interface {
	List(ctx context.Context) ([]domain.License, error)
	Get(ctx context.Context, key string) (*domain.License, error)
	Issue(ctx context.Context, req IssueParams) (*domain.License, error)
	SetStatus(ctx context.Context, key string, status string) (*domain.License, error)
	Delete(ctx context.Context, key string) error
	Renew(ctx context.Context, key string, expiresAt string) (*domain.License, error)
	PatchIdentity(ctx context.Context, key, ip, hwid string) (*domain.License, error)
	AddSubUser(ctx context.Context, key, identity string) (*domain.License, error)
	RemoveSubUser(ctx context.Context, key, identity string) (*domain.License, error)
	Validate(ctx context.Context, req license.ValidateRequest) (*license.ValidateResult, error)
	Products(ctx context.Context) ([]domain.Product, error)
	Blacklist(ctx context.Context) (*domain.Blacklist, error)
	ReplaceBlacklist(ctx context.Context, bl domain.Blacklist) error
}

// IssueParams carries the issuance request after transport-level binding.
// MaxIPs/MaxHWIDs use the integer wire encoding (-1 unlimited, -2
// untracked); nil means the configured default. ExpiresAt is RFC 3339 or
// empty for non-expiring.
type IssueParams struct {
	ProductID       string
	DiscordID       string
	DiscordUsername string
	Email           string
	MaxIPs          *int
	MaxHWIDs        *int
	ExpiresAt       string
}

// licenseService is the production implementation over the license manager.
type licenseService struct {
	manager         *license.Manager
	logger          *slog.Logger
	defaultMaxIPs   int
	defaultMaxHWIDs int
}

// NewLicenseService creates a license service. The default capacities apply
// when issuance omits caps; they use the integer wire encoding.
func NewLicenseService(manager *license.Manager, logger *slog.Logger, defaultMaxIPs, defaultMaxHWIDs int) LicenseService {
	return &licenseService{
		manager:         manager,
		logger:          logger.With(slog.String("service", "license")),
		defaultMaxIPs:   defaultMaxIPs,
		defaultMaxHWIDs: defaultMaxHWIDs,
	}
}

func (s *licenseService) List(ctx context.Context) ([]domain.License, error) {
	licenses, err := s.manager.List(ctx)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return licenses, nil
}

func (s *licenseService) Get(ctx context.Context, key string) (*domain.License, error) {
	lic, err := s.manager.Get(ctx, key)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return lic, nil
}

func (s *licenseService) Issue(ctx context.Context, params IssueParams) (*domain.License, error) {
	maxIPs, err := capacityOrDefault(params.MaxIPs, s.defaultMaxIPs)
	if err != nil {
		return nil, apierrors.ErrValidation("maxIps", err.Error())
	}
	maxHWIDs, err := capacityOrDefault(params.MaxHWIDs, s.defaultMaxHWIDs)
	if err != nil {
		return nil, apierrors.ErrValidation("maxHwids", err.Error())
	}
	expiresAt, err := parseExpiry(params.ExpiresAt)
	if err != nil {
		return nil, mapDomainError(err)
	}

	lic, err := s.manager.Issue(ctx, license.IssueRequest{
		ProductID:       params.ProductID,
		DiscordID:       params.DiscordID,
		DiscordUsername: params.DiscordUsername,
		Email:           params.Email,
		MaxIPs:          maxIPs,
		MaxHWIDs:        maxHWIDs,
		ExpiresAt:       expiresAt,
	})
	if err != nil {
		return nil, mapDomainError(err)
	}
	return lic, nil
}

func (s *licenseService) SetStatus(ctx context.Context, key string, status string) (*domain.License, error) {
	lic, err := s.manager.SetStatus(ctx, key, domain.LicenseStatus(status))
	if err != nil {
		return nil, mapDomainError(err)
	}
	return lic, nil
}

func (s *licenseService) Delete(ctx context.Context, key string) error {
	if err := s.manager.Delete(ctx, key); err != nil {
		return mapDomainError(err)
	}
	return nil
}

func (s *licenseService) Renew(ctx context.Context, key string, expiresAt string) (*domain.License, error) {
	parsed, err := parseExpiry(expiresAt)
	if err != nil {
		return nil, mapDomainError(err)
	}
	if parsed == nil {
		return nil, apierrors.ErrValidation("expiresAt", "is required")
	}
	lic, err := s.manager.Renew(ctx, key, *parsed)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return lic, nil
}

func (s *licenseService) PatchIdentity(ctx context.Context, key, ip, hwid string) (*domain.License, error) {
	lic, err := s.manager.PatchIdentity(ctx, key, ip, hwid)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return lic, nil
}

func (s *licenseService) AddSubUser(ctx context.Context, key, identity string) (*domain.License, error) {
	lic, err := s.manager.AddSubUser(ctx, key, identity)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return lic, nil
}

func (s *licenseService) RemoveSubUser(ctx context.Context, key, identity string) (*domain.License, error) {
	lic, err := s.manager.RemoveSubUser(ctx, key, identity)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return lic, nil
}

func (s *licenseService) Validate(ctx context.Context, req license.ValidateRequest) (*license.ValidateResult, error) {
	result, err := s.manager.Validate(ctx, req)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return result, nil
}

func (s *licenseService) Products(ctx context.Context) ([]domain.Product, error) {
	products, err := s.manager.Products(ctx)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return products, nil
}

func (s *licenseService) Blacklist(ctx context.Context) (*domain.Blacklist, error) {
	bl, err := s.manager.Blacklist(ctx)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return bl, nil
}

func (s *licenseService) ReplaceBlacklist(ctx context.Context, bl domain.Blacklist) error {
	if err := s.manager.ReplaceBlacklist(ctx, bl); err != nil {
		return mapDomainError(err)
	}
	return nil
}

func capacityOrDefault(wire *int, def int) (domain.Capacity, error) {
	n := def
	if wire != nil {
		n = *wire
	}
	return domain.CapacityFromWire(n)
}

func parseExpiry(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", license.ErrInvalidExpiry, value)
	}
	return &t, nil
}

// mapDomainError translates license package sentinels into the API error
// taxonomy. Unknown errors become internal failures.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, license.ErrLicenseNotFound):
		return apierrors.ErrLicenseNotFound
	case errors.Is(err, license.ErrProductNotFound):
		return apierrors.ErrProductNotFound
	case errors.Is(err, license.ErrSubUserNotFound):
		return apierrors.NotFoundError("sub-user")
	case errors.Is(err, license.ErrInvalidStatus):
		return apierrors.ErrValidation("status", "must be one of: active, inactive")
	case errors.Is(err, license.ErrInvalidExpiry):
		return apierrors.ErrValidation("expiresAt", "must be a valid RFC 3339 instant")
	case errors.Is(err, license.ErrOwnerSubUser):
		return apierrors.ErrValidation("subUserDiscordId", "owner cannot be a sub-user of its own license")
	case errors.Is(err, license.ErrNoEvidence):
		return apierrors.ErrValidation("ip", "at least one of ip or hwid is required")
	case errors.Is(err, license.ErrDuplicateSubUser):
		return apierrors.ConflictError(err)
	default:
		if _, ok := license.IsCapacityError(err); ok {
			return apierrors.ConflictError(err)
		}
		return apierrors.InternalError(err)
	}
}
