package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/buildsite-dev/buildsite/internal/events"
	"github.com/buildsite-dev/buildsite/internal/models"
	"github.com/buildsite-dev/buildsite/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("identity not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service is the in-house identity provider: it owns account records, their
// credentials, and the custom claims that get copied into every minted token.
// Account creation and deletion are announced on the event bus, which is what
// drives the trigger pipeline.
type Service struct {
	db     *gorm.DB
	bus    *events.Bus
	logger *zap.Logger
}

func NewService(db *gorm.DB, bus *events.Bus, logger *zap.Logger) *Service {
	return &Service{db: db, bus: bus, logger: logger}
}

// Register creates an account and emits IdentityCreated.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*models.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var existing models.Identity
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("checking existing identity: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	id := models.Identity{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(passwordHash),
		DisplayName:  strings.TrimSpace(displayName),
	}

	if err := s.db.WithContext(ctx).Create(&id).Error; err != nil {
		return nil, fmt.Errorf("creating identity: %w", err)
	}

	s.logger.Info("identity created", zap.String("uid", id.UID))

	s.bus.Publish(events.IdentityCreated{
		UID:         id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
	})

	return &id, nil
}

// Authenticate verifies an email/password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var id models.Identity
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("fetching identity: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(id.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &id, nil
}

// Get fetches an account by UID.
func (s *Service) Get(ctx context.Context, uid string) (*models.Identity, error) {
	var id models.Identity
	if err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetching identity: %w", err)
	}
	return &id, nil
}

// SetCustomClaims overwrites the stored claim set for an identity. Callers
// pass the complete desired claims every time; there is no merge.
func (s *Service) SetCustomClaims(ctx context.Context, uid string, claims types.Claims) error {
	payload, err := json.Marshal(claims)
	if err != nil {
		return fmt.Errorf("encoding claims: %w", err)
	}

	res := s.db.WithContext(ctx).Model(&models.Identity{}).
		Where("uid = ?", uid).
		Update("custom_claims", datatypes.JSON(payload))

	if res.Error != nil {
		return fmt.Errorf("writing claims: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// CustomClaims returns the currently stored claim set. An identity that has
// never had claims set yields the least-privileged defaults.
func (s *Service) CustomClaims(ctx context.Context, uid string) (types.Claims, error) {
	id, err := s.Get(ctx, uid)
	if err != nil {
		return types.Claims{}, err
	}
	return DecodeClaims(id.CustomClaims), nil
}

// Delete removes an account and emits IdentityDeleted.
func (s *Service) Delete(ctx context.Context, uid string) error {
	res := s.db.WithContext(ctx).Where("uid = ?", uid).Delete(&models.Identity{})
	if res.Error != nil {
		return fmt.Errorf("deleting identity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("identity deleted", zap.String("uid", uid))
	s.bus.Publish(events.IdentityDeleted{UID: uid})

	return nil
}

// DecodeClaims parses a stored claim payload, defaulting to viewer access
// with no grants when the payload is empty or malformed.
func DecodeClaims(payload datatypes.JSON) types.Claims {
	claims := types.Claims{
		Role:             types.RoleViewer,
		AssignedModules:  []string{},
		AssignedProjects: []string{},
	}

	if len(payload) == 0 {
		return claims
	}

	if err := json.Unmarshal(payload, &claims); err != nil {
		return types.Claims{
			Role:             types.RoleViewer,
			AssignedModules:  []string{},
			AssignedProjects: []string{},
		}
	}

	if claims.Role == "" {
		claims.Role = types.RoleViewer
	}
	if claims.AssignedModules == nil {
		claims.AssignedModules = []string{}
	}
	if claims.AssignedProjects == nil {
		claims.AssignedProjects = []string{}
	}

	return claims
}
