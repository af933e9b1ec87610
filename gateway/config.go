package gateway

import (
	"crypto/ecdsa"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type Config struct {
	RPCURL     string     `long:"rpc-url"     description:"JSON-RPC endpoint of the ledger" env:"RPC_URL"`
	PrivateKey PrivateKey `long:"private-key" description:"hex encoded key signing the state submissions" env:"PRIVATE_KEY"`
	Contract   Address    `long:"contract"    description:"address of the Vortex storage contract" env:"VORTEX_CONTRACT_ADDRESS"`

	RequestTimeout time.Duration `long:"request-timeout" description:"timeout of a single ledger request"`
	DialTimeout    time.Duration `long:"dial-timeout"    description:"how long to keep retrying the initial connection"`
	ReceiptPoll    time.Duration `long:"receipt-poll"    description:"interval between receipt queries while waiting for a confirmation"`
}

func DefaultConfig() Config {
	return Config{
		RequestTimeout: 10 * time.Second,
		DialTimeout:    time.Minute,
		ReceiptPoll:    time.Second,
	}
}

// Address is a hex encoded ledger address flag.
type Address common.Address

func (a *Address) UnmarshalFlag(value string) error {
	if !common.IsHexAddress(value) {
		return fmt.Errorf("invalid address %q", value)
	}
	*a = Address(common.HexToAddress(value))
	return nil
}

func (a Address) String() string {
	return common.Address(a).Hex()
}

// PrivateKey is a hex encoded secp256k1 key flag. It never prints the key.
type PrivateKey struct {
	*ecdsa.PrivateKey
}

func (k *PrivateKey) UnmarshalFlag(value string) error {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(value, "0x"))
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}
	k.PrivateKey = key
	return nil
}

// Address returns the account controlled by the key.
func (k PrivateKey) Address() common.Address {
	if k.PrivateKey == nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(k.PublicKey)
}

func (k PrivateKey) String() string {
	if k.PrivateKey == nil {
		return ""
	}
	return "<redacted>"
}

func (c *Config) Validate() error {
	switch {
	case c.RPCURL == "":
		return fmt.Errorf("rpc url is required")
	case c.PrivateKey.PrivateKey == nil:
		return fmt.Errorf("private key is required")
	case common.Address(c.Contract) == (common.Address{}):
		return fmt.Errorf("contract address is required")
	}
	return nil
}
