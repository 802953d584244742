package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fedchat/internal/entity"
	"fedchat/internal/keyring"
	"fedchat/internal/relay"
	"fedchat/internal/repository"
	"fedchat/internal/signature"
	"fedchat/pkg/fault"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChannelService is the externally visible surface of the chat core: group
// and channel management, signed message distribution, history pagination
// and presence.
type ChannelService interface {
	AddUser(ctx context.Context, name, host string) (*entity.User, error)
	CreateGroup(ctx context.Context, name string) (*entity.Group, error)
	CreateChannel(ctx context.Context, groupUUID, name string) (*entity.Channel, error)
	GroupByName(ctx context.Context, name string) (*entity.Group, error)
	GroupChannels(ctx context.Context, groupUUID string) ([]*entity.Channel, error)

	SendMessage(ctx context.Context, channelUUID, body string, sender entity.Identity, sentAt time.Time, sig []byte) (*entity.Message, error)
	StreamMessages(ctx context.Context, channelUUID string) (*relay.Subscription, error)
	MessageRange(ctx context.Context, channelUUID string, offset, limit int) ([]*entity.Message, error)

	SetPresence(ctx context.Context, groupUUID string, user entity.Identity, state entity.PresenceState, custom string) (*entity.PresenceRecord, error)
	StreamPresence(ctx context.Context, groupUUID string, user entity.Identity) (*PresenceStream, error)
}

type chatService struct {
	storage *repository.Storage
	broker  relay.Broker
	keys    *keyring.Directory
	logger  *zap.Logger

	// allowUnsigned disables signature verification process-wide. Deployment
	// switch for non-production testing, never a per-message option.
	allowUnsigned bool
}

func NewChannelService(storage *repository.Storage, broker relay.Broker, keys *keyring.Directory, allowUnsigned bool, logger *zap.Logger) ChannelService {
	return &chatService{
		storage:       storage,
		broker:        broker,
		keys:          keys,
		logger:        logger,
		allowUnsigned: allowUnsigned,
	}
}

func (s *chatService) AddUser(_ context.Context, name, host string) (*entity.User, error) {
	user, err := s.storage.Users().GetOrCreate(name, host)
	if err != nil {
		return nil, fault.Transport("adding user", err)
	}
	s.logger.Info("user known", zap.String("identity", user.Identity().String()), zap.String("id", user.UUID))
	return user, nil
}

func (s *chatService) CreateGroup(_ context.Context, name string) (*entity.Group, error) {
	group, err := s.storage.Groups().Create(name)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fault.AlreadyExists("group " + name + " already exists")
		}
		return nil, fault.Transport("creating group", err)
	}
	s.logger.Info("group created", zap.String("name", name), zap.String("id", group.UUID))
	return group, nil
}

func (s *chatService) CreateChannel(_ context.Context, groupUUID, name string) (*entity.Channel, error) {
	channel, err := s.storage.Groups().AddChannel(groupUUID, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.NotFound("group " + groupUUID + " not found")
		}
		return nil, fault.Transport("creating channel", err)
	}
	s.logger.Info("channel created", zap.String("name", name), zap.String("group", groupUUID))
	return channel, nil
}

func (s *chatService) GroupByName(_ context.Context, name string) (*entity.Group, error) {
	group, err := s.storage.Groups().GetByName(name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.NotFound("group " + name + " not found")
		}
		return nil, fault.Transport("looking up group", err)
	}
	return group, nil
}

func (s *chatService) GroupChannels(_ context.Context, groupUUID string) ([]*entity.Channel, error) {
	if _, err := s.storage.Groups().GetByUUID(groupUUID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.NotFound("group " + groupUUID + " not found")
		}
		return nil, fault.Transport("looking up group", err)
	}
	channels, err := s.storage.Groups().Channels(groupUUID)
	if err != nil {
		return nil, fault.Transport("listing channels", err)
	}
	return channels, nil
}

// SendMessage runs the trust pipeline: resolve the sender's key, verify the
// signature, persist, then publish. Persistence happens before publication,
// so live subscribers see messages in persistence order; a publish failure
// after the append surfaces as TRANSPORT_FAILURE even though the message is
// durably stored.
func (s *chatService) SendMessage(ctx context.Context, channelUUID, body string, sender entity.Identity, sentAt time.Time, sig []byte) (*entity.Message, error) {
	if _, err := s.storage.Groups().ChannelByUUID(channelUUID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.NotFound("channel " + channelUUID + " not found")
		}
		return nil, fault.Transport("looking up channel", err)
	}

	message := &entity.Message{
		Body:        body,
		SenderName:  sender.Name,
		SenderHost:  sender.Host,
		ChannelUUID: channelUUID,
		SentAt:      sentAt,
	}

	// The sender must resolve even in unsigned mode: an unknown identity is
	// rejected before anything is persisted.
	pub, err := s.keys.Resolve(ctx, sender)
	if err != nil {
		s.logger.Info("sender key unresolved", zap.String("sender", sender.String()), zap.Error(err))
		return nil, err
	}

	if !s.allowUnsigned {
		if !signature.Verify(pub, sig, message.SigningParts()...) {
			s.logger.Info("signature rejected", zap.String("sender", sender.String()), zap.String("channel", channelUUID))
			return nil, fault.SignatureInvalid("signature does not match claimed sender " + sender.String())
		}
	}

	persisted, err := s.storage.Messages().Append(message)
	if err != nil {
		return nil, fault.Transport("storing message", err)
	}

	payload, err := json.Marshal(persisted)
	if err != nil {
		return persisted, fault.Transport("encoding message for fanout", err)
	}
	if err := s.broker.Publish(relay.ChannelTopic(channelUUID), payload); err != nil {
		// Stored but not fanned out: the caller sees a failure, readers see
		// the message on their next history fetch.
		s.logger.Warn("message stored but publish failed",
			zap.Uint64("id", persisted.ID), zap.String("channel", channelUUID), zap.Error(err))
		return persisted, fault.Transport("publishing message", err)
	}

	s.logger.Debug("message distributed",
		zap.Uint64("id", persisted.ID),
		zap.String("sender", persisted.Sender().String()),
		zap.String("channel", channelUUID))
	return persisted, nil
}

func (s *chatService) StreamMessages(_ context.Context, channelUUID string) (*relay.Subscription, error) {
	if _, err := s.storage.Groups().ChannelByUUID(channelUUID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fault.NotFound("channel " + channelUUID + " not found")
		}
		return nil, fault.Transport("looking up channel", err)
	}
	sub, err := s.broker.Subscribe(relay.ChannelTopic(channelUUID))
	if err != nil {
		return nil, fault.Transport("subscribing to channel "+channelUUID, err)
	}
	return sub, nil
}

func (s *chatService) MessageRange(_ context.Context, channelUUID string, offset, limit int) ([]*entity.Message, error) {
	messages, err := s.storage.Messages().Range(channelUUID, offset, limit)
	if err != nil {
		return nil, fault.Transport("reading message range", err)
	}
	return messages, nil
}

func (s *chatService) SetPresence(_ context.Context, groupUUID string, user entity.Identity, state entity.PresenceState, custom string) (*entity.PresenceRecord, error) {
	record := &entity.PresenceRecord{
		UserName:   user.Name,
		UserHost:   user.Host,
		GroupUUID:  groupUUID,
		State:      state,
		Custom:     custom,
		RecordedAt: time.Now(),
	}
	if custom != "" {
		record.State = ""
	}

	persisted, err := s.storage.Presence().Append(record)
	if err != nil {
		return nil, fault.Transport("storing presence", err)
	}

	payload, err := json.Marshal(persisted)
	if err != nil {
		return persisted, fault.Transport("encoding presence for fanout", err)
	}
	if err := s.broker.Publish(relay.GroupPresenceTopic(groupUUID), payload); err != nil {
		return persisted, fault.Transport("publishing presence", err)
	}
	return persisted, nil
}

// StreamPresence subscribes before reading the snapshot, so nothing can slip
// between the two; a record may appear in both, which a last-write-wins
// consumer absorbs. Closing the stream marks the consumer's identity OFFLINE
// so other subscribers observe the departure.
func (s *chatService) StreamPresence(_ context.Context, groupUUID string, user entity.Identity) (*PresenceStream, error) {
	sub, err := s.broker.Subscribe(relay.GroupPresenceTopic(groupUUID))
	if err != nil {
		return nil, fault.Transport("subscribing to presence for group "+groupUUID, err)
	}

	snapshot, err := s.storage.Presence().Current(groupUUID)
	if err != nil {
		sub.Cancel()
		return nil, fault.Transport("reading presence snapshot", err)
	}

	return newPresenceStream(snapshot, sub, func() {
		if _, err := s.SetPresence(context.Background(), groupUUID, user, entity.PresenceOffline, ""); err != nil {
			s.logger.Warn("could not mark user offline",
				zap.String("user", user.String()), zap.String("group", groupUUID), zap.Error(err))
		}
	}), nil
}
