package service

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var ErrSignerNotConfigured = errors.New("no signer configured")

// SignerService 签名服务
// - 如果配置了 remoteURL，则把 EIP-712 digest 发给远程托管签名服务
// - 否则用 localPrivKey 本地签名
type SignerService struct {
	remoteURL    string
	localPrivKey *ecdsa.PrivateKey
	address      common.Address
	httpClient   *http.Client
}

// NewSignerService 创建签名服务。remoteURL 非空时 remoteAddress 必须是远程签名地址。
// key 与 remoteURL 都为空时返回一个未配置的签名服务，而不是错误。
func NewSignerService(remoteURL, remoteAddress string, key *ecdsa.PrivateKey) (*SignerService, error) {
	s := &SignerService{
		remoteURL:    strings.TrimRight(remoteURL, "/"),
		localPrivKey: key,
		httpClient:   &http.Client{Timeout: 5 * time.Second},
	}
	switch {
	case s.remoteURL != "":
		addr, ok := NormalizeAddress(remoteAddress)
		if !ok {
			return nil, fmt.Errorf("remote signer requires a valid signer address")
		}
		s.address = common.HexToAddress(addr)
	case key != nil:
		s.address = crypto.PubkeyToAddress(key.PublicKey)
	}
	return s, nil
}

func (s *SignerService) Configured() bool {
	return s != nil && (s.remoteURL != "" || s.localPrivKey != nil)
}

// Address is the public signer address the vault contract trusts.
func (s *SignerService) Address() common.Address {
	return s.address
}

// SignTypedData hashes td per EIP-712 and returns a 65-byte signature with v in {27,28}.
func (s *SignerService) SignTypedData(ctx context.Context, td apitypes.TypedData) ([]byte, error) {
	digest, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}
	return s.SignDigest(ctx, digest)
}

func (s *SignerService) SignDigest(ctx context.Context, digest []byte) ([]byte, error) {
	if !s.Configured() {
		return nil, ErrSignerNotConfigured
	}

	var sig []byte
	if s.remoteURL != "" {
		remote, err := s.signRemote(ctx, digest)
		if err != nil {
			return nil, err
		}
		sig = remote
	} else {
		local, err := crypto.Sign(digest, s.localPrivKey)
		if err != nil {
			return nil, fmt.Errorf("sign digest: %w", err)
		}
		sig = local
	}

	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("signature length %d, want %d", len(sig), crypto.SignatureLength)
	}
	if sig[crypto.RecoveryIDOffset] < 27 {
		sig[crypto.RecoveryIDOffset] += 27
	}
	return sig, nil
}

func (s *SignerService) signRemote(ctx context.Context, digest []byte) ([]byte, error) {
	b, _ := json.Marshal(map[string]string{"digest": hexutil.Encode(digest)})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.remoteURL+"/sign", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote signer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote signer returned %d", resp.StatusCode)
	}
	var respObj struct {
		Signature string `json:"signature"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respObj); err != nil {
		return nil, fmt.Errorf("decode remote signer response: %w", err)
	}
	sig, err := hexutil.Decode(respObj.Signature)
	if err != nil {
		return nil, fmt.Errorf("decode remote signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("remote signature length %d", len(sig))
	}

	// a remote signer holding the wrong key would mint vouchers the vault rejects
	recoverable := append([]byte(nil), sig...)
	if recoverable[crypto.RecoveryIDOffset] >= 27 {
		recoverable[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(digest, recoverable)
	if err != nil {
		return nil, fmt.Errorf("recover remote signature: %w", err)
	}
	if got := crypto.PubkeyToAddress(*pub); got != s.address {
		return nil, fmt.Errorf("remote signature from %s, expected %s", got.Hex(), s.address.Hex())
	}
	return sig, nil
}
