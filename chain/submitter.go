// Package chain submits analysis records to the DAO contract as
// governance proposals.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/apex/log"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// Submission profiles select which contract variant receives the
// proposal.
const (
	ProfileSimple     = "simple"
	ProfileStructured = "structured"
)

const gasLimit = uint64(0)

// Plain description variant.
const simpleABI = `[
	{"type":"function","name":"createProposal","stateMutability":"nonpayable",
	 "inputs":[{"name":"description","type":"string"}],
	 "outputs":[{"name":"","type":"bytes32"}]},
	{"type":"event","name":"ProposalCreated","anonymous":false,
	 "inputs":[{"name":"proposalId","type":"bytes32","indexed":true},
	           {"name":"description","type":"string","indexed":false},
	           {"name":"deadline","type":"uint256","indexed":false}]}
]`

// Structured metadata variant.
const structuredABI = `[
	{"type":"function","name":"createProposal","stateMutability":"nonpayable",
	 "inputs":[{"name":"title","type":"string"},
	           {"name":"description","type":"string"},
	           {"name":"location","type":"string"},
	           {"name":"latitude","type":"int256"},
	           {"name":"longitude","type":"int256"},
	           {"name":"requestedAmount","type":"uint256"},
	           {"name":"beneficiary","type":"address"},
	           {"name":"propertyId","type":"bytes32"},
	           {"name":"evidenceHash","type":"bytes32"},
	           {"name":"verificationConfidence","type":"uint8"},
	           {"name":"issueType","type":"uint8"},
	           {"name":"severity","type":"uint8"},
	           {"name":"ipfsCID","type":"string"}],
	 "outputs":[{"name":"","type":"bytes32"}]},
	{"type":"event","name":"ProposalCreated","anonymous":false,
	 "inputs":[{"name":"proposalId","type":"bytes32","indexed":true},
	           {"name":"propertyId","type":"bytes32","indexed":true},
	           {"name":"evidenceHash","type":"bytes32","indexed":false},
	           {"name":"issueType","type":"uint8","indexed":false},
	           {"name":"severity","type":"uint8","indexed":false},
	           {"name":"deadline","type":"uint256","indexed":false},
	           {"name":"resolutionDeadline","type":"uint256","indexed":false}]}
]`

// Receipt identifies a confirmed proposal.
type Receipt struct {
	ProposalID string
	TxHash     string
}

// Submitter writes proposals to the DAO contract.
type Submitter struct {
	client          *ethclient.Client
	chainID         *big.Int
	privateKey      *ecdsa.PrivateKey
	fromAddress     ethcommon.Address
	contractAddress ethcommon.Address
	contractABI     abi.ABI
	contract        *bind.BoundContract
	profile         string
}

// NewSubmitter dials the RPC endpoint and binds the contract variant
// selected by profile.
func NewSubmitter(rpcURL, privateKey, contractAddress, profile string) (*Submitter, error) {
	s := &Submitter{profile: profile}

	abiJSON := simpleABI
	if profile == ProfileStructured {
		abiJSON = structuredABI
	}
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("error parsing contract ABI: %w", err)
	}
	s.contractABI = parsed

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("error creating ethclient with the network url %s: %w", rpcURL, err)
	}
	s.client = client

	chainID, err := client.NetworkID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("error getting network ID: %w", err)
	}
	s.chainID = chainID

	if len(privateKey) == 0 {
		return nil, fmt.Errorf("the proposal private key param isn't specified")
	}
	s.privateKey, err = crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("error converting private key: %w", err)
	}

	publicKey := s.privateKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("error creating ECDSA public key from %v", publicKey)
	}
	s.fromAddress = crypto.PubkeyToAddress(*publicKeyECDSA)
	s.contractAddress = ethcommon.HexToAddress(contractAddress)
	s.contract = bind.NewBoundContract(s.contractAddress, parsed, client, client, client)

	log.Infof("Submitter initialized, profile: %s, chain ID: %v, contract: %v, proposer: %v",
		profile, s.chainID, s.contractAddress, s.fromAddress)

	return s, nil
}

// ToFixedPoint converts a coordinate in degrees to the contract's
// microdegree representation, always rounding toward negative
// infinity so the mapping matches across submitters.
func ToFixedPoint(coord float64) *big.Int {
	return decimal.NewFromFloat(coord).
		Mul(decimal.NewFromInt(1_000_000)).
		Floor().
		BigInt()
}

// ToTokenWei scales a decimal token amount string by 1e18. A
// malformed amount falls back to zero rather than failing submission.
func ToTokenWei(amount string) *big.Int {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		log.Warnf("Unparseable token amount %q, using 0", amount)
		return big.NewInt(0)
	}
	return d.Mul(decimal.New(1, 18)).Truncate(0).BigInt()
}

// toBytes32 maps an identifier string to bytes32. A 0x-prefixed
// 32-byte hex string passes through; anything else gets keccak-hashed.
func toBytes32(s string) [32]byte {
	if strings.HasPrefix(s, "0x") && len(s) == 66 {
		return ethcommon.HexToHash(s)
	}
	return crypto.Keccak256Hash([]byte(s))
}

// SubmitSimple creates a proposal from a preformatted description.
func (s *Submitter) SubmitSimple(ctx context.Context, description string) (*Receipt, error) {
	return s.submit(ctx, description)
}

// SubmitStructured creates a proposal with the full metadata tuple.
func (s *Submitter) SubmitStructured(ctx context.Context, meta *ProposalMetadata) (*Receipt, error) {
	beneficiary := meta.Beneficiary
	if beneficiary == "" {
		beneficiary = zeroAddress
	}
	return s.submit(ctx,
		meta.Title,
		meta.Description,
		meta.Location,
		ToFixedPoint(meta.Latitude),
		ToFixedPoint(meta.Longitude),
		ToTokenWei(meta.RequestedAmount),
		ethcommon.HexToAddress(beneficiary),
		toBytes32(meta.PropertyID),
		toBytes32(meta.EvidenceHash),
		uint8(clampByte(meta.VerificationConfidence)),
		uint8(clampByte(meta.IssueType)),
		uint8(clampByte(meta.Severity)),
		meta.IPFSCID,
	)
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func (s *Submitter) submit(ctx context.Context, args ...interface{}) (*Receipt, error) {
	nonce, err := s.client.PendingNonceAt(ctx, s.fromAddress)
	if err != nil {
		return nil, fmt.Errorf("error getting pending nonce: %w", err)
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting gas price: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(s.privateKey, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("error creating transactor: %w", err)
	}
	auth.Nonce = big.NewInt(int64(nonce))
	auth.Value = big.NewInt(0)
	auth.GasLimit = gasLimit
	auth.GasPrice = gasPrice
	auth.Context = ctx

	tx, err := s.contract.Transact(auth, "createProposal", args...)
	if err != nil {
		return nil, fmt.Errorf("call contract createProposal: %w", err)
	}
	log.Infof("Transaction %s", tx.Hash().String())

	receipt, err := bind.WaitMined(ctx, s.client, tx)
	if err != nil {
		return nil, fmt.Errorf("error waiting for transaction: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", tx.Hash().String())
	}
	log.Infof("Transaction confirmed in block %v", receipt.BlockNumber)

	proposalID, err := s.proposalIDFromLogs(receipt.Logs)
	if err != nil {
		return nil, err
	}

	return &Receipt{
		ProposalID: proposalID,
		TxHash:     tx.Hash().String(),
	}, nil
}

// proposalIDFromLogs finds the ProposalCreated event in the receipt
// and returns its indexed proposal id.
func (s *Submitter) proposalIDFromLogs(logs []*types.Log) (string, error) {
	event, ok := s.contractABI.Events["ProposalCreated"]
	if !ok {
		return "", fmt.Errorf("ProposalCreated event not found in contract ABI")
	}
	for _, l := range logs {
		if len(l.Topics) >= 2 && l.Topics[0] == event.ID {
			return l.Topics[1].Hex(), nil
		}
	}
	return "", fmt.Errorf("proposal creation event not found in transaction receipt")
}
