// internal/wallet/wallet.go
package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// TxRequest describes a transaction to be signed and broadcast. The nonce is
// always set explicitly by the caller; the signing layer never invents one.
type TxRequest struct {
	To       common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64
	GasPrice *big.Int
	Nonce    uint64
}

// Broadcaster is the write half of the chain client that an account needs to
// get a signed transaction on-chain.
type Broadcaster interface {
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	ChainID() *big.Int
}

// Wallet is a single signing identity, loaded once at startup and immutable
// for the process lifetime.
type Wallet struct {
	name       string
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

var keyRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// New creates a wallet from a hex-encoded private key, with or without the
// 0x prefix.
func New(name, hexKey string) (*Wallet, error) {
	clean := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(hexKey)), "0x")
	if !keyRe.MatchString(clean) {
		return nil, fmt.Errorf("invalid private key: expected 64 hex characters, got %d", len(clean))
	}

	privateKey, err := crypto.HexToECDSA(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &Wallet{
		name:       name,
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

func (w *Wallet) Name() string            { return w.name }
func (w *Wallet) Address() common.Address { return w.address }

// String returns the wallet address.
func (w *Wallet) String() string { return w.address.Hex() }

// Bind pairs the wallet with a broadcaster, producing an account that can
// sign and submit transactions.
func (w *Wallet) Bind(b Broadcaster) *Account {
	return &Account{wallet: w, broadcaster: b}
}

// Account is a wallet bound to a chain endpoint. It implements the account
// capability the trading layer is polymorphic over: an address plus
// sign-and-submit.
type Account struct {
	wallet      *Wallet
	broadcaster Broadcaster
}

func (a *Account) Address() common.Address { return a.wallet.address }

// SignAndSubmit signs req with the account key and broadcasts it, returning
// the transaction hash.
func (a *Account) SignAndSubmit(ctx context.Context, req TxRequest) (common.Hash, error) {
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    req.Nonce,
		To:       &req.To,
		Value:    req.Value,
		Gas:      req.GasLimit,
		GasPrice: req.GasPrice,
		Data:     req.Data,
	})

	signer := types.LatestSignerForChainID(a.broadcaster.ChainID())
	signed, err := types.SignTx(tx, signer, a.wallet.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := a.broadcaster.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

// walletsFile represents the structure of the wallets YAML file.
type walletsFile struct {
	Wallets []struct {
		Name       string `yaml:"name"`
		PrivateKey string `yaml:"private_key"`
	} `yaml:"wallets"`
}

// Load reads wallets from a YAML file, preserving file order. Entries with
// missing or malformed keys are skipped with a warning.
func Load(path string, logger *zap.Logger) ([]*Wallet, error) {
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file walletsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(file.Wallets) == 0 {
		return nil, fmt.Errorf("no wallets found in configuration")
	}

	wallets := make([]*Wallet, 0, len(file.Wallets))
	for _, entry := range file.Wallets {
		if entry.Name == "" || entry.PrivateKey == "" {
			logger.Warn("Skipping wallet with missing fields", zap.String("name", entry.Name))
			continue
		}
		w, err := New(entry.Name, entry.PrivateKey)
		if err != nil {
			logger.Warn("Skipping invalid wallet", zap.String("name", entry.Name), zap.Error(err))
			continue
		}
		wallets = append(wallets, w)
	}

	if len(wallets) == 0 {
		return nil, fmt.Errorf("no valid wallets loaded")
	}

	return wallets, nil
}
