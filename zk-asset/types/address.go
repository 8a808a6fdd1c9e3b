package types

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	jubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/kysee/zknote/zk-asset/crypto"
)

const ver = 0x01

func EncodeAddress(payload []byte) string {
	return "bz" + base58.CheckEncode(payload, ver)
}

func DecodeAddress(addr string) ([]byte, error) {
	if len(addr) < 2 || !strings.HasPrefix(addr, "bz") {
		return nil, fmt.Errorf("wrong prefix: got(%s)", addr[:min(len(addr), 2)])
	}
	bz, _ver, err := base58.CheckDecode(addr[2:])
	if err != nil {
		return nil, err
	}
	if _ver != ver {
		return nil, fmt.Errorf("wrong version: expected(%d), got(%d)", ver, _ver)
	}
	return bz, nil
}

// EncodePubKey renders a spending or linked public key as text.
func EncodePubKey(pubKey *jubjub.PublicKey) string {
	if pubKey == nil {
		return ""
	}
	return EncodeAddress(pubKey.Bytes())
}

func DecodePubKey(s string) (*jubjub.PublicKey, error) {
	pubKeyBytes, err := DecodeAddress(s)
	if err != nil {
		return nil, err
	}
	return crypto.PubFromBytes(pubKeyBytes)
}

// PubKeyAddress derives the account address of a spending key the way an
// Ethereum address is derived: the last 20 bytes of keccak256(key).
func PubKeyAddress(pubKey *jubjub.PublicKey) common.Address {
	return common.BytesToAddress(ethcrypto.Keccak256(pubKey.Bytes())[12:])
}
