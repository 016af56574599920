package hedera

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/hashgraph/hedera-sdk-go/v2"
	"go.uber.org/zap"

	"zengarden/internal/domain"
)

// PartialMintError - токен выпущен в казначейство, но перевод получателю не прошел.
// Серийный номер уже существует в сети, откатывать локальный гейт нельзя.
type PartialMintError struct {
	Receipt domain.MintReceipt
	Err     error
}

func (e *PartialMintError) Error() string {
	return fmt.Sprintf("token %s serial %d minted but not transferred: %v", e.Receipt.TokenID, e.Receipt.SerialNumber, e.Err)
}

func (e *PartialMintError) Unwrap() error { return e.Err }

type Config struct {
	Network     string
	OperatorID  string
	OperatorKey string
	TokenID     string
	TopicID     string
	Timeout     time.Duration
}

type Client struct {
	client   *hedera.Client
	operator hedera.AccountID
	token    hedera.TokenID
	topic    *hedera.TopicID
	logger   *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	client, err := hedera.ClientForName(cfg.Network)
	if err != nil {
		return nil, fmt.Errorf("hedera network %q: %w", cfg.Network, err)
	}

	operator, err := hedera.AccountIDFromString(cfg.OperatorID)
	if err != nil {
		return nil, fmt.Errorf("operator id: %w", err)
	}
	key, err := hedera.PrivateKeyFromString(cfg.OperatorKey)
	if err != nil {
		return nil, fmt.Errorf("operator key: %w", err)
	}
	client.SetOperator(operator, key)
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		client.SetRequestTimeout(&timeout)
	}

	token, err := hedera.TokenIDFromString(cfg.TokenID)
	if err != nil {
		return nil, fmt.Errorf("nft token id: %w", err)
	}

	c := &Client{client: client, operator: operator, token: token, logger: logger}

	// Топик аудита опционален: без него журнал просто не пишется
	if cfg.TopicID != "" {
		topic, err := hedera.TopicIDFromString(cfg.TopicID)
		if err != nil {
			return nil, fmt.Errorf("audit topic id: %w", err)
		}
		c.topic = &topic
	}
	return c, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// ValidAccountID принимает только shard.realm.num, который разбирает и SDK.
// Номер вне диапазона отсекается до любых внешних вызовов.
func ValidAccountID(id string) bool {
	if !domain.ValidAccountID(id) {
		return false
	}
	_, err := hedera.AccountIDFromString(id)
	return err == nil
}

// MetadataFor - содержимое поля metadata у NFT: ссылка на документ бейджа.
func MetadataFor(contentID string) []byte {
	return []byte("ipfs://" + contentID)
}

// MintBadge выпускает один серийный номер и переводит его на кошелек получателя.
// Ключ идемпотентности кладется в memo транзакции, по нему минт ищется при сверке.
// Повторов здесь нет: повторный минт - это второй токен.
func (c *Client) MintBadge(ctx context.Context, recipient, contentID, idempotencyKey string) (domain.MintReceipt, error) {
	if err := ctx.Err(); err != nil {
		return domain.MintReceipt{}, err
	}
	to, err := hedera.AccountIDFromString(recipient)
	if err != nil {
		return domain.MintReceipt{}, fmt.Errorf("recipient: %w", err)
	}

	// 1. Минт
	resp, err := hedera.NewTokenMintTransaction().
		SetTokenID(c.token).
		SetMetadata(MetadataFor(contentID)).
		SetTransactionMemo(memo(idempotencyKey)).
		Execute(c.client)
	if err != nil {
		return domain.MintReceipt{}, err
	}
	// Транзакция ушла в сеть: дальше без id транзакции не возвращаемся
	submitted := domain.MintReceipt{
		TokenID:       c.token.String(),
		TransactionID: resp.TransactionID.String(),
	}
	receipt, err := resp.GetReceipt(c.client)
	if err != nil {
		var status hedera.ErrHederaReceiptStatus
		if errors.As(err, &status) {
			// Сеть отклонила минт, токена нет
			return domain.MintReceipt{}, err
		}
		return submitted, fmt.Errorf("mint outcome unknown: %w", err)
	}
	if len(receipt.SerialNumbers) == 0 {
		return submitted, errors.New("mint receipt has no serial numbers")
	}

	out := domain.MintReceipt{
		TokenID:       c.token.String(),
		SerialNumber:  receipt.SerialNumbers[0],
		TransactionID: resp.TransactionID.String(),
		Timestamp:     time.Now().UTC(),
	}
	c.logger.Info("badge minted",
		zap.String("token", out.TokenID),
		zap.Int64("serial", out.SerialNumber),
		zap.String("tx", out.TransactionID),
	)

	// 2. Перевод получателю. Казначей - оператор
	if to.String() == c.operator.String() {
		return out, nil
	}
	nft := hedera.NftID{TokenID: c.token, SerialNumber: out.SerialNumber}
	transfer, err := hedera.NewTransferTransaction().
		AddNftTransfer(nft, c.operator, to).
		SetTransactionMemo(memo(idempotencyKey)).
		Execute(c.client)
	if err != nil {
		return out, &PartialMintError{Receipt: out, Err: err}
	}
	if _, err := transfer.GetReceipt(c.client); err != nil {
		return out, &PartialMintError{Receipt: out, Err: err}
	}
	return out, nil
}

func memo(key string) string {
	m := "zengarden-badge:" + key
	if len(m) > 100 {
		m = m[:100]
	}
	return m
}

// SubmitAudit пишет сообщение в топик аудита и возвращает его координаты.
func (c *Client) SubmitAudit(ctx context.Context, message []byte) (domain.AuditCoordinates, error) {
	if c.topic == nil {
		return domain.AuditCoordinates{}, errors.New("audit topic is not configured")
	}
	if err := ctx.Err(); err != nil {
		return domain.AuditCoordinates{}, err
	}

	resp, err := hedera.NewTopicMessageSubmitTransaction().
		SetTopicID(*c.topic).
		SetMessage(message).
		Execute(c.client)
	if err != nil {
		return domain.AuditCoordinates{}, err
	}
	record, err := resp.GetRecord(c.client)
	if err != nil {
		return domain.AuditCoordinates{}, err
	}

	ts := record.ConsensusTimestamp.UTC()
	return domain.AuditCoordinates{
		TopicID:            c.topic.String(),
		SequenceNumber:     int64(record.Receipt.TopicSequenceNumber),
		ConsensusTimestamp: &ts,
		TransactionID:      resp.TransactionID.String(),
	}, nil
}

// PublicKey достает ED25519-ключ аккаунта из сети. Аккаунты с ECDSA или
// составными ключами не поддерживаются.
func (c *Client) PublicKey(ctx context.Context, accountID string) (ed25519.PublicKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := hedera.AccountIDFromString(accountID)
	if err != nil {
		return nil, err
	}
	info, err := hedera.NewAccountInfoQuery().
		SetAccountID(id).
		Execute(c.client)
	if err != nil {
		return nil, err
	}

	pk, ok := info.Key.(hedera.PublicKey)
	if !ok {
		return nil, fmt.Errorf("account %s: unsupported key type %T", accountID, info.Key)
	}
	raw := pk.BytesRaw()
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("account %s: key is not ed25519", accountID)
	}
	return ed25519.PublicKey(raw), nil
}

// Ping - бесплатный запрос баланса оператора.
func (c *Client) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := hedera.NewAccountBalanceQuery().
		SetAccountID(c.operator).
		Execute(c.client)
	return err
}
