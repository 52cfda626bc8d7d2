package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"rentchain-backend/internal/config"
	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/logger"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Notarization holds the parameters recorded on chain for one agreement.
type Notarization struct {
	TenantAddress  string
	PropertyID     string
	RentMinorUnits *big.Int
	StartEpoch     int64
	EndEpoch       int64
	ContentID      string
}

// Receipt is the confirmed outcome of Submit. OnChainID is 0 when the
// AgreementCreated event was not found in the receipt.
type Receipt struct {
	OnChainID   uint64
	TxHash      string
	BlockNumber uint64
	EventFound  bool
}

// Notary records and verifies agreements on the ledger.
type Notary interface {
	// Submit blocks until the transaction is mined.
	Submit(ctx context.Context, n Notarization) (*Receipt, error)
	Verify(ctx context.Context, onChainID uint64, contentID string) (bool, error)
}

// Backend is what the client needs from a chain connection. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// BroadcastError is returned when a transaction was sent but its outcome is
// unknown. The transaction may still be mined.
type BroadcastError struct {
	TxHash string
	Err    error
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("transaction %s sent but not confirmed: %v", e.TxHash, e.Err)
}

func (e *BroadcastError) Unwrap() error {
	return e.Err
}

// Options tunes transaction submission. Zero values let the node estimate.
type Options struct {
	GasLimit            uint64
	GasPrice            *big.Int
	ConfirmationTimeout time.Duration
}

type Client struct {
	backend  Backend
	contract *bind.BoundContract
	address  common.Address
	abi      abi.ABI
	key      *ecdsa.PrivateKey
	chainID  *big.Int
	opts     Options
	closer   func()
}

func NewClient(backend Backend, contract common.Address, key *ecdsa.PrivateKey, chainID *big.Int, opts Options) (*Client, error) {
	parsed, err := ParsedABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract abi: %w", err)
	}
	return &Client{
		backend:  backend,
		contract: bind.NewBoundContract(contract, parsed, backend, backend, backend),
		address:  contract,
		abi:      parsed,
		key:      key,
		chainID:  chainID,
		opts:     opts,
	}, nil
}

// Dial connects to the configured RPC endpoint.
func Dial(ctx context.Context, cfg config.LedgerConfig) (*Client, error) {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid ledger private key: %w", err)
	}

	logger.ExternalServiceCall("ledger", "dial", "rpc", cfg.RPCURL)
	ec, err := ethclient.DialContext(ctx, cfg.RPCURL)
	logger.ExternalServiceResult("ledger", "dial", err)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ledger rpc: %w", err)
	}

	opts := Options{
		GasLimit:            cfg.GasLimit,
		ConfirmationTimeout: time.Duration(cfg.ConfirmationTimeoutSeconds) * time.Second,
	}
	if cfg.GasPriceWei > 0 {
		opts.GasPrice = big.NewInt(cfg.GasPriceWei)
	}
	c, err := NewClient(ec, common.HexToAddress(cfg.ContractAddress), key, big.NewInt(cfg.ChainID), opts)
	if err != nil {
		ec.Close()
		return nil, err
	}
	c.closer = ec.Close
	return c, nil
}

func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// Address is the account that signs notarization transactions.
func (c *Client) Address() common.Address {
	return crypto.PubkeyToAddress(c.key.PublicKey)
}

func (c *Client) Submit(ctx context.Context, n Notarization) (*Receipt, error) {
	logger.EnterMethod("ledger.Submit", "propertyID", n.PropertyID, "contentID", n.ContentID)

	if !common.IsHexAddress(n.TenantAddress) {
		return nil, domain.NewError(domain.KindValidation, "invalid tenant address %q", n.TenantAddress)
	}
	if n.RentMinorUnits == nil || n.RentMinorUnits.Sign() <= 0 {
		return nil, domain.NewError(domain.KindValidation, "rent must be positive")
	}

	if c.opts.ConfirmationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.ConfirmationTimeout)
		defer cancel()
	}

	auth, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, err, "build transactor")
	}
	auth.Context = ctx
	auth.GasLimit = c.opts.GasLimit
	auth.GasPrice = c.opts.GasPrice

	logger.ExternalServiceCall("ledger", methodCreateAgreement, "contract", c.address.Hex())
	tx, err := c.contract.Transact(auth, methodCreateAgreement,
		common.HexToAddress(n.TenantAddress),
		n.PropertyID,
		n.RentMinorUnits,
		big.NewInt(n.StartEpoch),
		big.NewInt(n.EndEpoch),
		n.ContentID,
	)
	if err != nil {
		logger.ExternalServiceResult("ledger", methodCreateAgreement, err)
		return nil, classify(methodCreateAgreement, err)
	}
	txHash := tx.Hash().Hex()
	logger.Info("Notarization transaction sent", "txHash", txHash, "nonce", tx.Nonce())

	mined, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		logger.ExternalServiceResult("ledger", "wait_mined", err, "txHash", txHash)
		return nil, &BroadcastError{
			TxHash: txHash,
			Err:    domain.WrapError(domain.KindLedgerUnavailable, err, "wait for %s", txHash),
		}
	}
	if mined.Status != types.ReceiptStatusSuccessful {
		err := fmt.Errorf("transaction %s reverted in block %v", txHash, mined.BlockNumber)
		logger.ExternalServiceResult("ledger", "wait_mined", err)
		return nil, domain.WrapError(domain.KindLedgerRejected, err, "ledger rejected %s", methodCreateAgreement)
	}

	receipt := &Receipt{TxHash: txHash}
	if mined.BlockNumber != nil {
		receipt.BlockNumber = mined.BlockNumber.Uint64()
	}
	receipt.OnChainID, receipt.EventFound, err = c.agreementID(mined)
	if err != nil {
		// Confirmed on chain; a malformed event must not turn into a failure.
		logger.ExternalServiceWarning("ledger", "parse_receipt", "unreadable AgreementCreated event", "txHash", txHash, "error", err)
	}
	if !receipt.EventFound {
		logger.ExternalServiceWarning("ledger", "parse_receipt", "AgreementCreated event missing from receipt", "txHash", txHash)
	}

	logger.ExitMethod("ledger.Submit", "txHash", txHash, "onChainID", receipt.OnChainID, "eventFound", receipt.EventFound)
	return receipt, nil
}

// agreementID reads the indexed id of the first AgreementCreated log emitted
// by the contract.
func (c *Client) agreementID(r *types.Receipt) (uint64, bool, error) {
	event := c.abi.Events[eventAgreementCreated]
	for _, l := range r.Logs {
		if l == nil || l.Address != c.address || len(l.Topics) < 2 || l.Topics[0] != event.ID {
			continue
		}
		id := new(big.Int).SetBytes(l.Topics[1].Bytes())
		if !id.IsUint64() {
			return 0, false, fmt.Errorf("agreement id %s overflows uint64", id)
		}
		return id.Uint64(), true, nil
	}
	return 0, false, nil
}

func (c *Client) Verify(ctx context.Context, onChainID uint64, contentID string) (bool, error) {
	logger.ExternalServiceCall("ledger", methodVerifyAgreement, "onChainID", onChainID)

	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodVerifyAgreement,
		new(big.Int).SetUint64(onChainID), contentID)
	logger.ExternalServiceResult("ledger", methodVerifyAgreement, err)
	if err != nil {
		return false, classify(methodVerifyAgreement, err)
	}
	if len(out) != 1 {
		return false, domain.NewError(domain.KindLedgerUnavailable, "unexpected %s output", methodVerifyAgreement)
	}
	ok, isBool := out[0].(bool)
	if !isBool {
		return false, domain.NewError(domain.KindLedgerUnavailable, "unexpected %s output type %T", methodVerifyAgreement, out[0])
	}
	return ok, nil
}

// classify separates contract reverts from transport failures. Nodes report
// reverts as JSON-RPC errors that carry revert data.
func classify(op string, err error) error {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil || strings.Contains(err.Error(), "execution reverted") {
		return domain.WrapError(domain.KindLedgerRejected, err, "ledger rejected %s", op)
	}
	return domain.WrapError(domain.KindLedgerUnavailable, err, "ledger %s", op)
}
