package service

import (
	"context"
	"errors"
	"time"

	"fedchat/internal/entity"
	"fedchat/internal/repository"
	"fedchat/internal/signature"
	"fedchat/pkg/fault"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService handles accounts registered on this host: sign-up, sign-in and
// the directory lookups remote hosts use to verify our users' signatures.
type AuthService interface {
	Register(ctx context.Context, name, password string, publicKey, privateKey []byte) (*entity.User, error)
	SignIn(ctx context.Context, name, password string) (*entity.User, error)
	PublicKeyFor(ctx context.Context, name string) ([]byte, error)
	// Keypair returns the stored keypair for an authenticated local user, so
	// a client can sign messages from any device.
	Keypair(ctx context.Context, name string) (publicKey, privateKey []byte, err error)
}

type localAuthService struct {
	host    string
	storage *repository.Storage
	logger  *zap.Logger
}

func NewAuthService(host string, storage *repository.Storage, logger *zap.Logger) AuthService {
	return &localAuthService{
		host:    host,
		storage: storage,
		logger:  logger,
	}
}

func (a *localAuthService) Register(_ context.Context, name, password string, publicKey, privateKey []byte) (*entity.User, error) {
	if name == "" || password == "" {
		return nil, fault.InvalidArg("name and password are required")
	}
	// Reject keys that cannot verify anything: a broken key at registration
	// would only surface much later, on some other host.
	if _, err := signature.PublicKeyFromBytes(publicKey); err != nil {
		return nil, fault.InvalidArg("malformed public key: " + err.Error())
	}
	if _, err := signature.PrivateKeyFromBytes(privateKey); err != nil {
		return nil, fault.InvalidArg("malformed private key: " + err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	err = a.storage.Credentials().Create(&entity.RegisteredUser{
		Name:       name,
		Hash:       string(hash),
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrNameTaken) {
			return nil, fault.AlreadyExists("name " + name + " is already registered")
		}
		return nil, fault.Transport("storing credentials", err)
	}

	user, err := a.storage.Users().GetOrCreate(name, a.host)
	if err != nil {
		return nil, fault.Transport("creating identity", err)
	}

	a.logger.Info("user registered", zap.String("name", name))
	return user, nil
}

func (a *localAuthService) SignIn(_ context.Context, name, password string) (*entity.User, error) {
	registered, err := a.storage.Credentials().GetByName(name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.NotFound("no registered user " + name)
		}
		return nil, fault.Transport("reading credentials", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(registered.Hash), []byte(password)); err != nil {
		a.logger.Info("sign-in rejected", zap.String("name", name))
		return nil, fault.Unauthenticated("wrong credentials")
	}

	user, err := a.storage.Users().GetOrCreate(name, a.host)
	if err != nil {
		return nil, fault.Transport("resolving identity", err)
	}

	a.logger.Info("user signed in", zap.String("name", name))
	return user, nil
}

func (a *localAuthService) PublicKeyFor(_ context.Context, name string) ([]byte, error) {
	key, err := a.storage.Credentials().PublicKeyFor(name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.NotFound("no registered user " + name)
		}
		return nil, fault.Transport("reading public key", err)
	}
	return key, nil
}

func (a *localAuthService) Keypair(_ context.Context, name string) ([]byte, []byte, error) {
	registered, err := a.storage.Credentials().GetByName(name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fault.NotFound("no registered user " + name)
		}
		return nil, nil, fault.Transport("reading credentials", err)
	}
	return registered.PublicKey, registered.PrivateKey, nil
}
